// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

// Context is the immutable variable scope of a render. It holds plain values
// (platform facts, variant values, caller overrides) and the entries of a
// recipe "context:" section, which are templates themselves and are
// resolved on lookup. Every With* method returns a new Context.
type Context struct {
	values   map[string]Value
	section  map[string]*tree.Value
	order    []string
	pins     map[string]string
	resolved map[string]string
}

// NewContext creates a Context from plain Go values.
func NewContext(vars map[string]any) *Context {
	c := &Context{values: make(map[string]Value, len(vars))}
	for k, v := range vars {
		c.values[k] = FromAny(v)
	}
	return c
}

func (c *Context) clone() *Context {
	return &Context{
		values:   maps.Clone(c.values),
		section:  maps.Clone(c.section),
		order:    slices.Clone(c.order),
		pins:     c.pins,
		resolved: c.resolved,
	}
}

// With returns a copy of c with key bound to v.
func (c *Context) With(key string, v Value) *Context {
	n := c.clone()
	if n.values == nil {
		n.values = make(map[string]Value)
	}
	n.values[key] = v
	delete(n.section, key)
	return n
}

// WithVars returns a copy of c with every entry of vars bound.
func (c *Context) WithVars(vars map[string]any) *Context {
	n := c.clone()
	if n.values == nil {
		n.values = make(map[string]Value, len(vars))
	}
	for k, v := range vars {
		n.values[k] = FromAny(v)
		delete(n.section, k)
	}
	return n
}

// WithSection returns a copy of c holding the entries of a recipe
// "context:" mapping. Section entries shadow plain values of the same name;
// overrides shadow both and are never rendered.
func (c *Context) WithSection(section *tree.Value, overrides map[string]string) (*Context, error) {
	n := c.clone()
	if n.values == nil {
		n.values = make(map[string]Value)
	}
	if n.section == nil {
		n.section = make(map[string]*tree.Value)
	}
	if !section.IsNull() {
		if section.Kind != tree.KindMapping {
			return nil, rerrors.NewWithContext(rerrors.ErrCodeRecipeParse,
				"context must be a mapping", map[string]any{"location": section.Loc.String()})
		}
		for _, e := range section.Entries {
			n.section[e.Key] = e.Value
			n.order = append(n.order, e.Key)
			delete(n.values, e.Key)
		}
	}
	for k, v := range overrides {
		n.values[k] = StringValue(v)
		delete(n.section, k)
	}
	return n, nil
}

// WithPins returns a copy of c that resolves pin_subpackage against
// subpackages and pin_compatible against resolved (name to version).
func (c *Context) WithPins(subpackages, resolved map[string]string) *Context {
	n := c.clone()
	n.pins = subpackages
	n.resolved = resolved
	return n
}

// Has reports whether name is bound.
func (c *Context) Has(name string) bool {
	if _, ok := c.values[name]; ok {
		return true
	}
	_, ok := c.section[name]
	return ok
}

// Keys returns every bound name, sorted.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values)+len(c.section))
	for k := range c.values {
		keys = append(keys, k)
	}
	for k := range c.section {
		if _, dup := c.values[k]; !dup {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// SectionKeys returns the names declared by the context section in
// declaration order, minus any that were overridden.
func (c *Context) SectionKeys() []string {
	var keys []string
	for _, k := range c.order {
		if _, ok := c.section[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// SectionNode returns the unrendered node of a context section entry.
func (c *Context) SectionNode(name string) (*tree.Value, bool) {
	n, ok := c.section[name]
	return n, ok
}

// Lookup returns the value bound to name, rendering context section entries
// on demand.
func (c *Context) Lookup(name string) (Value, error) {
	v, err := (&evaluator{ctx: c}).lookup(name)
	if err != nil {
		return nil, wrapRender(err, name)
	}
	return v, nil
}

// Var returns the plain Go value bound to name. It lets a Context serve as a
// selector environment.
func (c *Context) Var(name string) (any, bool) {
	v, err := (&evaluator{ctx: c}).lookup(name)
	if err != nil {
		return nil, false
	}
	return ToAny(v), true
}

// Resolve renders every context section entry in declaration order and
// returns a Context holding only plain values.
func (c *Context) Resolve() (*Context, error) {
	e := &evaluator{ctx: c}
	n := c.clone()
	if n.values == nil {
		n.values = make(map[string]Value)
	}
	for _, k := range c.SectionKeys() {
		v, err := e.lookup(k)
		if err != nil {
			return nil, tree.WrapNode(tree.JoinPath("context", k), c.section[k], wrapRender(err, k))
		}
		n.values[k] = v
	}
	n.section = nil
	n.order = nil
	return n, nil
}

func wrapRender(err error, subject string) error {
	if rerrors.CodeOf(err) != "" {
		return err
	}
	return rerrors.WrapWithContext(rerrors.ErrCodeRender, "render failed", err, map[string]any{"subject": subject})
}

// lookup resolves name, rendering section entries with cycle detection.
func (e *evaluator) lookup(name string) (Value, error) {
	if v, ok := e.ctx.values[name]; ok {
		return v, nil
	}
	node, ok := e.ctx.section[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	if slices.Contains(e.visiting, name) {
		chain := append(slices.Clone(e.visiting), name)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(chain, " -> "))
	}
	e.visiting = append(e.visiting, name)
	defer func() { e.visiting = e.visiting[:len(e.visiting)-1] }()
	return e.renderNode(node)
}

// renderNode renders every string of a section entry into a Value.
func (e *evaluator) renderNode(n *tree.Value) (Value, error) {
	switch n.Kind {
	case tree.KindString:
		return e.render(n.Scalar)
	case tree.KindSequence:
		out := make(ListValue, 0, len(n.Items))
		for _, it := range n.Items {
			v, err := e.renderNode(it)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case tree.KindMapping:
		out := make(MapValue, len(n.Entries))
		for _, en := range n.Entries {
			v, err := e.renderNode(en.Value)
			if err != nil {
				return nil, err
			}
			out[en.Key] = v
		}
		return out, nil
	default:
		return FromTree(n), nil
	}
}
