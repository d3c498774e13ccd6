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

// NodeKind discriminates expression syntax nodes.
type NodeKind uint8

const (
	NodeLiteral NodeKind = iota
	NodeIdent
	NodeList
	NodeDict
	NodeAttr
	NodeIndex
	NodeSlice
	NodeCall
	NodeFilter
	NodeUnary
	NodeBinary
	NodeCond
)

// Node is a parsed expression. The set of implementations is closed.
type Node interface {
	Kind() NodeKind
	node()
}

// Kwarg is a keyword argument of a call or filter.
type Kwarg struct {
	Name  string
	Value Node
}

type (
	// Literal is a constant.
	Literal struct{ Value Value }
	// Ident is a variable reference.
	Ident struct{ Name string }
	// List is a list literal.
	List struct{ Items []Node }
	// Dict is a mapping literal with string keys.
	Dict struct {
		Keys   []string
		Values []Node
	}
	// Attr is X.Name.
	Attr struct {
		X    Node
		Name string
	}
	// Index is X[Index].
	Index struct {
		X     Node
		Index Node
	}
	// Slice is X[Lo:Hi]; either bound may be nil.
	Slice struct {
		X      Node
		Lo, Hi Node
	}
	// Call is Func(Args, Kwargs). Func is an Ident for helpers and an Attr
	// for method calls.
	Call struct {
		Func   Node
		Args   []Node
		Kwargs []Kwarg
	}
	// Filter is X | Name(Args, Kwargs).
	Filter struct {
		X      Node
		Name   string
		Args   []Node
		Kwargs []Kwarg
	}
	// Unary is "not X" or "-X".
	Unary struct {
		Op string
		X  Node
	}
	// Binary is L Op R.
	Binary struct {
		Op   string
		L, R Node
	}
	// Cond is "Then if Test else Else"; Else may be nil.
	Cond struct {
		Then, Test, Else Node
	}
)

func (*Literal) Kind() NodeKind { return NodeLiteral }
func (*Ident) Kind() NodeKind   { return NodeIdent }
func (*List) Kind() NodeKind    { return NodeList }
func (*Dict) Kind() NodeKind    { return NodeDict }
func (*Attr) Kind() NodeKind    { return NodeAttr }
func (*Index) Kind() NodeKind   { return NodeIndex }
func (*Slice) Kind() NodeKind   { return NodeSlice }
func (*Call) Kind() NodeKind    { return NodeCall }
func (*Filter) Kind() NodeKind  { return NodeFilter }
func (*Unary) Kind() NodeKind   { return NodeUnary }
func (*Binary) Kind() NodeKind  { return NodeBinary }
func (*Cond) Kind() NodeKind    { return NodeCond }

func (*Literal) node() {}
func (*Ident) node()   {}
func (*List) node()    {}
func (*Dict) node()    {}
func (*Attr) node()    {}
func (*Index) node()   {}
func (*Slice) node()   {}
func (*Call) node()    {}
func (*Filter) node()  {}
func (*Unary) node()   {}
func (*Binary) node()  {}
func (*Cond) node()    {}

// inspect calls fn for n and every node below it in source order.
func inspect(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *List:
		for _, it := range t.Items {
			inspect(it, fn)
		}
	case *Dict:
		for _, v := range t.Values {
			inspect(v, fn)
		}
	case *Attr:
		inspect(t.X, fn)
	case *Index:
		inspect(t.X, fn)
		inspect(t.Index, fn)
	case *Slice:
		inspect(t.X, fn)
		inspect(t.Lo, fn)
		inspect(t.Hi, fn)
	case *Call:
		if _, isHelper := t.Func.(*Ident); !isHelper {
			inspect(t.Func, fn)
		}
		for _, a := range t.Args {
			inspect(a, fn)
		}
		for _, kw := range t.Kwargs {
			inspect(kw.Value, fn)
		}
	case *Filter:
		inspect(t.X, fn)
		for _, a := range t.Args {
			inspect(a, fn)
		}
		for _, kw := range t.Kwargs {
			inspect(kw.Value, fn)
		}
	case *Unary:
		inspect(t.X, fn)
	case *Binary:
		inspect(t.L, fn)
		inspect(t.R, fn)
	case *Cond:
		inspect(t.Then, fn)
		inspect(t.Test, fn)
		inspect(t.Else, fn)
	}
}
