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

package selector

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Error types for selector failures
var (
	ErrSyntax          = errors.New("malformed selector")
	ErrUnknownVariable = errors.New("unknown selector variable")
)

// Env resolves selector identifiers.
type Env interface {
	Var(name string) (any, bool)
}

// MapEnv is an Env backed by a map.
type MapEnv map[string]any

// Var implements Env.
func (m MapEnv) Var(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// NodeKind discriminates selector nodes.
type NodeKind uint8

const (
	NodeIdent NodeKind = iota
	NodeString
	NodeBool
	NodeNot
	NodeAnd
	NodeOr
	NodeEq
	NodeNe
)

// Node is a parsed selector. Ident and String nodes use Text, Bool nodes
// use Bool and the remaining kinds use Operands.
type Node struct {
	Kind     NodeKind
	Text     string
	Bool     bool
	Operands []*Node
}

const parseCacheSize = 512

var parsed, _ = lru.New(parseCacheSize)

// Parse parses a selector, optionally wrapped in "${{ }}".
func Parse(expr string) (*Node, error) {
	src := unwrap(expr)
	if n, ok := parsed.Get(src); ok {
		return n.(*Node), nil
	}
	n, err := parse(src)
	if err != nil {
		return nil, rerrors.WrapWithContext(rerrors.ErrCodeSelector,
			"invalid selector", err, map[string]any{"selector": expr})
	}
	parsed.Add(src, n)
	return n, nil
}

// Evaluate parses and evaluates a selector against env.
func Evaluate(expr string, env Env) (bool, error) {
	n, err := Parse(expr)
	if err != nil {
		return false, err
	}
	ok, err := n.Eval(env)
	if err != nil {
		return false, rerrors.WrapWithContext(rerrors.ErrCodeSelector,
			"cannot evaluate selector", err, map[string]any{"selector": expr})
	}
	return ok, nil
}

// Variables returns the sorted identifiers a selector reads.
func Variables(expr string) ([]string, error) {
	n, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	var names []string
	n.walk(func(n *Node) {
		if n.Kind == NodeIdent && !slices.Contains(names, n.Text) {
			names = append(names, n.Text)
		}
	})
	slices.Sort(names)
	return names, nil
}

func unwrap(expr string) string {
	s := strings.TrimSpace(expr)
	if strings.HasPrefix(s, "${{") && strings.HasSuffix(s, "}}") {
		s = strings.TrimSpace(s[3 : len(s)-2])
	}
	return s
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, o := range n.Operands {
		o.walk(fn)
	}
}

// Eval evaluates the selector. Every identifier must be bound in env, even
// one that "and" or "or" would never reach. It never mutates n or env.
func (n *Node) Eval(env Env) (bool, error) {
	if err := n.resolve(env); err != nil {
		return false, err
	}
	return n.eval(env)
}

// resolve reports the first identifier, left to right, that env lacks.
func (n *Node) resolve(env Env) error {
	var err error
	n.walk(func(n *Node) {
		if err != nil || n.Kind != NodeIdent {
			return
		}
		if _, ok := env.Var(n.Text); !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownVariable, n.Text)
		}
	})
	return err
}

func (n *Node) eval(env Env) (bool, error) {
	switch n.Kind {
	case NodeNot:
		v, err := n.Operands[0].eval(env)
		return !v, err
	case NodeAnd:
		for _, o := range n.Operands {
			v, err := o.eval(env)
			if err != nil || !v {
				return false, err
			}
		}
		return true, nil
	case NodeOr:
		for _, o := range n.Operands {
			v, err := o.eval(env)
			if err != nil || v {
				return v, err
			}
		}
		return false, nil
	case NodeEq, NodeNe:
		l, err := n.Operands[0].operand(env)
		if err != nil {
			return false, err
		}
		r, err := n.Operands[1].operand(env)
		if err != nil {
			return false, err
		}
		return (text(l) == text(r)) == (n.Kind == NodeEq), nil
	default:
		v, err := n.operand(env)
		if err != nil {
			return false, err
		}
		return truthy(v), nil
	}
}

func (n *Node) operand(env Env) (any, error) {
	switch n.Kind {
	case NodeIdent:
		v, ok := env.Var(n.Text)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, n.Text)
		}
		return v, nil
	case NodeString:
		return n.Text, nil
	case NodeBool:
		return n.Bool, nil
	default:
		return n.eval(env)
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0", "no", "off", "none":
			return false
		}
		return true
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// String returns the selector in canonical form.
func (n *Node) String() string {
	switch n.Kind {
	case NodeIdent:
		return n.Text
	case NodeString:
		return fmt.Sprintf("%q", n.Text)
	case NodeBool:
		return fmt.Sprint(n.Bool)
	case NodeNot:
		return "not " + n.Operands[0].group(NodeNot)
	case NodeEq:
		return n.Operands[0].String() + " == " + n.Operands[1].String()
	case NodeNe:
		return n.Operands[0].String() + " != " + n.Operands[1].String()
	}
	op := " and "
	if n.Kind == NodeOr {
		op = " or "
	}
	parts := make([]string, 0, len(n.Operands))
	for _, o := range n.Operands {
		parts = append(parts, o.group(n.Kind))
	}
	return strings.Join(parts, op)
}

// group parenthesizes n when it binds looser than its parent.
func (n *Node) group(parent NodeKind) string {
	loose := (n.Kind == NodeOr && parent != NodeOr) || (n.Kind == NodeAnd && parent == NodeNot)
	if loose {
		return "(" + n.String() + ")"
	}
	return n.String()
}
