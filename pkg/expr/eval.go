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
	"math"
	"strings"
)

type evaluator struct {
	ctx      *Context
	visiting []string
}

// Eval evaluates a parsed expression against ctx.
func Eval(n Node, ctx *Context) (Value, error) {
	v, err := (&evaluator{ctx: ctx}).eval(n)
	if err != nil {
		return nil, wrapRender(err, "expression")
	}
	return v, nil
}

func (e *evaluator) eval(n Node) (Value, error) {
	switch t := n.(type) {
	case *Literal:
		return t.Value, nil
	case *Ident:
		return e.lookup(t.Name)
	case *List:
		out := make(ListValue, 0, len(t.Items))
		for _, it := range t.Items {
			v, err := e.eval(it)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *Dict:
		out := make(MapValue, len(t.Keys))
		for i, k := range t.Keys {
			v, err := e.eval(t.Values[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *Attr:
		x, err := e.eval(t.X)
		if err != nil {
			return nil, err
		}
		if m, ok := x.(MapValue); ok {
			if v, ok := m[t.Name]; ok {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%w: attribute %q", ErrUndefined, t.Name)
	case *Index:
		return e.index(t)
	case *Slice:
		return e.slice(t)
	case *Call:
		return e.call(t)
	case *Filter:
		return e.filter(t)
	case *Unary:
		x, err := e.eval(t.X)
		if err != nil {
			return nil, err
		}
		if t.Op == "not" {
			return BoolValue(!x.Truth()), nil
		}
		switch v := x.(type) {
		case IntValue:
			if v == math.MinInt64 {
				return nil, fmt.Errorf("%w: -(%d)", ErrOverflow, v)
			}
			return -v, nil
		case FloatValue:
			return -v, nil
		}
		return nil, fmt.Errorf("%w: cannot negate %s", ErrType, x.String())
	case *Binary:
		return e.binary(t)
	case *Cond:
		test, err := e.eval(t.Test)
		if err != nil {
			return nil, err
		}
		if test.Truth() {
			return e.eval(t.Then)
		}
		if t.Else == nil {
			return NoneValue{}, nil
		}
		return e.eval(t.Else)
	default:
		return nil, fmt.Errorf("%w: unsupported node", ErrSyntax)
	}
}

func (e *evaluator) call(c *Call) (Value, error) {
	switch fn := c.Func.(type) {
	case *Ident:
		h, ok := helpers[fn.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHelper, fn.Name)
		}
		args, kwargs, err := e.arguments(c.Args, c.Kwargs)
		if err != nil {
			return nil, err
		}
		return h(e, args, kwargs)
	case *Attr:
		x, err := e.eval(fn.X)
		if err != nil {
			return nil, err
		}
		m, ok := methods[fn.Name]
		if !ok {
			return nil, fmt.Errorf("%w: method %s", ErrUnknownFilter, fn.Name)
		}
		args, kwargs, err := e.arguments(c.Args, c.Kwargs)
		if err != nil {
			return nil, err
		}
		return m(x, args, kwargs)
	default:
		return nil, fmt.Errorf("%w: value is not callable", ErrSyntax)
	}
}

func (e *evaluator) filter(f *Filter) (Value, error) {
	fn, ok := filters[f.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, f.Name)
	}
	x, err := e.eval(f.X)
	if err != nil {
		if f.Name != "default" || !isUndefined(err) {
			return nil, err
		}
		x = NoneValue{}
	}
	args, kwargs, err := e.arguments(f.Args, f.Kwargs)
	if err != nil {
		return nil, err
	}
	return fn(x, args, kwargs)
}

func (e *evaluator) arguments(args []Node, kwargs []Kwarg) ([]Value, map[string]Value, error) {
	av := make([]Value, 0, len(args))
	for _, a := range args {
		v, err := e.eval(a)
		if err != nil {
			return nil, nil, err
		}
		av = append(av, v)
	}
	var kv map[string]Value
	if len(kwargs) > 0 {
		kv = make(map[string]Value, len(kwargs))
		for _, kw := range kwargs {
			v, err := e.eval(kw.Value)
			if err != nil {
				return nil, nil, err
			}
			kv[kw.Name] = v
		}
	}
	return av, kv, nil
}

func (e *evaluator) index(ix *Index) (Value, error) {
	x, err := e.eval(ix.X)
	if err != nil {
		return nil, err
	}
	key, err := e.eval(ix.Index)
	if err != nil {
		return nil, err
	}
	switch t := x.(type) {
	case MapValue:
		if v, ok := t[key.String()]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: key %q", ErrUndefined, key.String())
	case ListValue, StringValue:
		i, ok := key.(IntValue)
		if !ok {
			return nil, fmt.Errorf("%w: index must be an integer", ErrType)
		}
		items := sequenceOf(t)
		n := int(i)
		if n < 0 {
			n += len(items)
		}
		if n < 0 || n >= len(items) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrArgument, int(i))
		}
		return items[n], nil
	}
	return nil, fmt.Errorf("%w: cannot index %s", ErrType, x.String())
}

func (e *evaluator) slice(s *Slice) (Value, error) {
	x, err := e.eval(s.X)
	if err != nil {
		return nil, err
	}
	if x.Kind() != KindList && x.Kind() != KindString {
		return nil, fmt.Errorf("%w: cannot slice %s", ErrType, x.String())
	}
	items := sequenceOf(x)
	lo, hi := 0, len(items)
	if s.Lo != nil {
		if lo, err = e.bound(s.Lo, len(items)); err != nil {
			return nil, err
		}
	}
	if s.Hi != nil {
		if hi, err = e.bound(s.Hi, len(items)); err != nil {
			return nil, err
		}
	}
	if hi < lo {
		hi = lo
	}
	part := items[lo:hi]
	if x.Kind() == KindString {
		var b strings.Builder
		for _, c := range part {
			b.WriteString(c.String())
		}
		return StringValue(b.String()), nil
	}
	return part, nil
}

func (e *evaluator) bound(n Node, length int) (int, error) {
	v, err := e.eval(n)
	if err != nil {
		return 0, err
	}
	i, ok := v.(IntValue)
	if !ok {
		return 0, fmt.Errorf("%w: slice bound must be an integer", ErrType)
	}
	b := int(i)
	if b < 0 {
		b += length
	}
	return min(max(b, 0), length), nil
}

// sequenceOf returns list items or the characters of a string.
func sequenceOf(v Value) ListValue {
	switch t := v.(type) {
	case ListValue:
		return t
	case StringValue:
		out := make(ListValue, 0, len(t))
		for _, r := range string(t) {
			out = append(out, StringValue(string(r)))
		}
		return out
	}
	return nil
}

func (e *evaluator) binary(b *Binary) (Value, error) {
	l, err := e.eval(b.L)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "and":
		if !l.Truth() {
			return l, nil
		}
		return e.eval(b.R)
	case "or":
		if l.Truth() {
			return l, nil
		}
		return e.eval(b.R)
	}

	r, err := e.eval(b.R)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "==":
		return BoolValue(equalValues(l, r)), nil
	case "!=":
		return BoolValue(!equalValues(l, r)), nil
	case "<", "<=", ">", ">=":
		c, err := compareOrdered(l, r)
		if err != nil {
			return nil, err
		}
		switch b.Op {
		case "<":
			return BoolValue(c < 0), nil
		case "<=":
			return BoolValue(c <= 0), nil
		case ">":
			return BoolValue(c > 0), nil
		default:
			return BoolValue(c >= 0), nil
		}
	case "in", "not in":
		found, err := contains(r, l)
		if err != nil {
			return nil, err
		}
		return BoolValue(found == (b.Op == "in")), nil
	case "~":
		return StringValue(l.String() + r.String()), nil
	default:
		return arithmetic(b.Op, l, r)
	}
}

func compareOrdered(l, r Value) (int, error) {
	if ln, ok := numeric(l); ok {
		if rn, ok := numeric(r); ok {
			switch {
			case ln < rn:
				return -1, nil
			case ln > rn:
				return 1, nil
			}
			return 0, nil
		}
	}
	ls, lok := l.(StringValue)
	rs, rok := r.(StringValue)
	if lok && rok {
		return strings.Compare(string(ls), string(rs)), nil
	}
	return 0, fmt.Errorf("%w: cannot order %s and %s", ErrType, l.String(), r.String())
}

func contains(container, item Value) (bool, error) {
	switch t := container.(type) {
	case ListValue:
		for _, it := range t {
			if equalValues(it, item) {
				return true, nil
			}
		}
		return false, nil
	case StringValue:
		return strings.Contains(string(t), item.String()), nil
	case MapValue:
		_, ok := t[item.String()]
		return ok, nil
	}
	return false, fmt.Errorf("%w: %s is not a container", ErrType, container.String())
}

// intArithmetic applies op to two integers. Results outside the int64 range
// are errors.
func intArithmetic(op string, l, r IntValue) (Value, error) {
	switch op {
	case "+":
		sum := l + r
		if (l > 0 && r > 0 && sum < 0) || (l < 0 && r < 0 && sum >= 0) {
			return nil, fmt.Errorf("%w: %d + %d", ErrOverflow, l, r)
		}
		return sum, nil
	case "-":
		diff := l - r
		if (l >= 0 && r < 0 && diff < 0) || (l < 0 && r > 0 && diff >= 0) {
			return nil, fmt.Errorf("%w: %d - %d", ErrOverflow, l, r)
		}
		return diff, nil
	case "*":
		if l == 0 || r == 0 {
			return IntValue(0), nil
		}
		prod := l * r
		if prod/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return nil, fmt.Errorf("%w: %d * %d", ErrOverflow, l, r)
		}
		return prod, nil
	case "//", "%":
		if r == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrArgument)
		}
		if op == "%" {
			return l % r, nil
		}
		if l == math.MinInt64 && r == -1 {
			return nil, fmt.Errorf("%w: %d // %d", ErrOverflow, l, r)
		}
		q := l / r
		if l%r != 0 && (l < 0) != (r < 0) {
			q--
		}
		return q, nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrSyntax, op)
}

func arithmetic(op string, l, r Value) (Value, error) {
	if op == "+" {
		if ls, ok := l.(StringValue); ok {
			if rs, ok := r.(StringValue); ok {
				return ls + rs, nil
			}
		}
		if ll, ok := l.(ListValue); ok {
			if rl, ok := r.(ListValue); ok {
				return append(append(ListValue{}, ll...), rl...), nil
			}
		}
	}

	li, lInt := l.(IntValue)
	ri, rInt := r.(IntValue)
	if lInt && rInt && op != "/" {
		return intArithmetic(op, li, ri)
	}

	ln, lok := numeric(l)
	rn, rok := numeric(r)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrType, l.String(), op, r.String())
	}
	switch op {
	case "+":
		return FloatValue(ln + rn), nil
	case "-":
		return FloatValue(ln - rn), nil
	case "*":
		return FloatValue(ln * rn), nil
	case "/", "//", "%":
		if rn == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrArgument)
		}
		switch op {
		case "/":
			return FloatValue(ln / rn), nil
		case "//":
			return FloatValue(math.Floor(ln / rn)), nil
		default:
			return FloatValue(math.Mod(ln, rn)), nil
		}
	}
	return nil, fmt.Errorf("%w: operator %s", ErrSyntax, op)
}
