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

// Package tree holds the dynamically-typed recipe document before it is
// converted into the typed recipe model. Scalars keep their raw text so
// values such as "0.10" are never reinterpreted as floats.
package tree

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindSequence
	KindMapping
)

// String returns the YAML-ish name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Location is a 1-based line/column position in the source document.
// The zero Location means the value was synthesized.
type Location struct {
	Line   int `json:"line,omitempty" yaml:"line,omitempty"`
	Column int `json:"column,omitempty" yaml:"column,omitempty"`
}

func (l Location) String() string {
	if l.Line == 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Entry is one key/value pair of a mapping.
type Entry struct {
	Key   string
	Value *Value
}

// Value is a node of the recipe document.
type Value struct {
	Kind    Kind
	Scalar  string
	Items   []*Value
	Entries []Entry
	Loc     Location
}

// String creates a string scalar.
func String(s string) *Value { return &Value{Kind: KindString, Scalar: s} }

// Number creates a number scalar from its textual form.
func Number(raw string) *Value { return &Value{Kind: KindNumber, Scalar: raw} }

// Bool creates a bool scalar.
func Bool(b bool) *Value { return &Value{Kind: KindBool, Scalar: strconv.FormatBool(b)} }

// Null creates a null value.
func Null() *Value { return &Value{Kind: KindNull} }

// Sequence creates a sequence of items.
func Sequence(items ...*Value) *Value { return &Value{Kind: KindSequence, Items: items} }

// Mapping creates a mapping from ordered entries.
func Mapping(entries ...Entry) *Value { return &Value{Kind: KindMapping, Entries: entries} }

// At returns a shallow copy of v positioned at loc.
func (v *Value) At(loc Location) *Value {
	c := *v
	c.Loc = loc
	return &c
}

// IsNull reports whether v is absent or null.
func (v *Value) IsNull() bool {
	return v == nil || v.Kind == KindNull
}

// IsScalar reports whether v is a string, number or bool.
func (v *Value) IsScalar() bool {
	return v != nil && (v.Kind == KindString || v.Kind == KindNumber || v.Kind == KindBool)
}

// Get returns the value stored under key in a mapping, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != KindMapping {
		return nil
	}
	for _, e := range v.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Keys returns the mapping keys in declaration order.
func (v *Value) Keys() []string {
	if v == nil || v.Kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Truthy interprets a scalar the way YAML booleans are written.
func (v *Value) Truthy() (bool, bool) {
	if v == nil {
		return false, false
	}
	switch v.Kind {
	case KindBool:
		return v.Scalar == "true", true
	case KindString, KindNumber:
		switch strings.ToLower(v.Scalar) {
		case "true", "yes", "on", "1":
			return true, true
		case "false", "no", "off", "0", "":
			return false, true
		}
	case KindNull:
		return false, true
	}
	return false, false
}

// ToAny converts the value to plain Go data: mappings become
// map[string]any, sequences []any, scalars their raw text and null nil.
func (v *Value) ToAny() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindMapping:
		m := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			m[e.Key] = e.Value.ToAny()
		}
		return m
	case KindSequence:
		s := make([]any, 0, len(v.Items))
		for _, it := range v.Items {
			s = append(s, it.ToAny())
		}
		return s
	case KindNull:
		return nil
	default:
		return v.Scalar
	}
}

// Parse decodes a YAML document into a Value tree.
func Parse(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, rerrors.Wrap(rerrors.ErrCodeRecipeParse, "invalid YAML document", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Mapping(), nil
	}
	return FromNode(&doc)
}

// FromNode converts a yaml.v3 node into a Value tree.
func FromNode(n *yaml.Node) (*Value, error) {
	loc := Location{Line: n.Line, Column: n.Column}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null().At(loc), nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return Null().At(loc), nil
		case "!!bool":
			return &Value{Kind: KindBool, Scalar: strings.ToLower(n.Value), Loc: loc}, nil
		case "!!int", "!!float":
			return &Value{Kind: KindNumber, Scalar: n.Value, Loc: loc}, nil
		default:
			return &Value{Kind: KindString, Scalar: n.Value, Loc: loc}, nil
		}
	case yaml.SequenceNode:
		items := make([]*Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := FromNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &Value{Kind: KindSequence, Items: items, Loc: loc}, nil
	case yaml.MappingNode:
		entries := make([]Entry, 0, len(n.Content)/2)
		seen := make(map[string]bool, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, rerrors.NewWithContext(rerrors.ErrCodeRecipeParse,
					"mapping keys must be scalars", map[string]any{"location": Location{Line: k.Line, Column: k.Column}.String()})
			}
			if seen[k.Value] {
				return nil, rerrors.NewWithContext(rerrors.ErrCodeRecipeParse,
					fmt.Sprintf("duplicate key %q", k.Value), map[string]any{"location": Location{Line: k.Line, Column: k.Column}.String()})
			}
			seen[k.Value] = true
			val, err := FromNode(vn)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: k.Value, Value: val})
		}
		return &Value{Kind: KindMapping, Entries: entries, Loc: loc}, nil
	default:
		return nil, rerrors.New(rerrors.ErrCodeRecipeParse, fmt.Sprintf("unsupported YAML node kind %d", n.Kind))
	}
}

// Walk visits every node depth-first in document order. The path uses
// dotted keys and [i] indexes, e.g. "requirements.host[0]".
func (v *Value) Walk(fn func(path string, node *Value) error) error {
	return walk("", v, fn)
}

func walk(path string, v *Value, fn func(string, *Value) error) error {
	if v == nil {
		return nil
	}
	if err := fn(path, v); err != nil {
		return err
	}
	switch v.Kind {
	case KindMapping:
		for _, e := range v.Entries {
			if err := walk(JoinPath(path, e.Key), e.Value, fn); err != nil {
				return err
			}
		}
	case KindSequence:
		for i, it := range v.Items {
			if err := walk(IndexPath(path, i), it, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// JoinPath appends a mapping key to a node path.
func JoinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// IndexPath appends a sequence index to a node path.
func IndexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
