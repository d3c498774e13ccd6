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
	"sort"
	"strconv"
	"strings"

	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
	KindPin
)

// Value is the result of evaluating an expression. The set of
// implementations is closed.
type Value interface {
	Kind() ValueKind
	String() string
	Truth() bool
	value()
}

type (
	// NoneValue is the absent value.
	NoneValue struct{}
	// StringValue is a string.
	StringValue string
	// IntValue is a 64-bit integer.
	IntValue int64
	// FloatValue is a float produced by a literal or a division.
	FloatValue float64
	// BoolValue is a boolean.
	BoolValue bool
	// ListValue is an ordered list.
	ListValue []Value
	// MapValue is a string-keyed mapping.
	MapValue map[string]Value
	// PinValue is a pin whose version is not known at render time.
	PinValue struct{ Pin Pin }
)

func (NoneValue) Kind() ValueKind   { return KindNone }
func (StringValue) Kind() ValueKind { return KindString }
func (IntValue) Kind() ValueKind    { return KindInt }
func (FloatValue) Kind() ValueKind  { return KindFloat }
func (BoolValue) Kind() ValueKind   { return KindBool }
func (ListValue) Kind() ValueKind   { return KindList }
func (MapValue) Kind() ValueKind    { return KindMap }
func (PinValue) Kind() ValueKind    { return KindPin }

func (NoneValue) value()   {}
func (StringValue) value() {}
func (IntValue) value()    {}
func (FloatValue) value()  {}
func (BoolValue) value()   {}
func (ListValue) value()   {}
func (MapValue) value()    {}
func (PinValue) value()    {}

func (NoneValue) String() string     { return "" }
func (v StringValue) String() string { return string(v) }
func (v IntValue) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v FloatValue) String() string  { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v BoolValue) String() string   { return strconv.FormatBool(bool(v)) }
func (v PinValue) String() string    { return v.Pin.Name }

func (v ListValue) String() string {
	parts := make([]string, 0, len(v))
	for _, it := range v {
		parts = append(parts, it.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (v MapValue) String() string {
	parts := make([]string, 0, len(v))
	for _, k := range v.keys() {
		parts = append(parts, k+": "+v[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (NoneValue) Truth() bool     { return false }
func (v StringValue) Truth() bool { return v != "" }
func (v IntValue) Truth() bool    { return v != 0 }
func (v FloatValue) Truth() bool  { return v != 0 }
func (v BoolValue) Truth() bool   { return bool(v) }
func (v ListValue) Truth() bool   { return len(v) > 0 }
func (v MapValue) Truth() bool    { return len(v) > 0 }
func (PinValue) Truth() bool      { return true }

func (v MapValue) keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts plain Go data into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return NoneValue{}
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(t)
	case int64:
		return IntValue(t)
	case float64:
		return FloatValue(t)
	case []string:
		out := make(ListValue, 0, len(t))
		for _, s := range t {
			out = append(out, StringValue(s))
		}
		return out
	case []any:
		out := make(ListValue, 0, len(t))
		for _, it := range t {
			out = append(out, FromAny(it))
		}
		return out
	case map[string]any:
		out := make(MapValue, len(t))
		for k, it := range t {
			out[k] = FromAny(it)
		}
		return out
	case fmt.Stringer:
		return StringValue(t.String())
	default:
		return StringValue(fmt.Sprint(t))
	}
}

// ToAny converts v into plain Go data.
func ToAny(v Value) any {
	switch t := v.(type) {
	case StringValue:
		return string(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case BoolValue:
		return bool(t)
	case ListValue:
		out := make([]any, 0, len(t))
		for _, it := range t {
			out = append(out, ToAny(it))
		}
		return out
	case MapValue:
		out := make(map[string]any, len(t))
		for k, it := range t {
			out[k] = ToAny(it)
		}
		return out
	case PinValue:
		return t.Pin.toAny()
	default:
		return nil
	}
}

// ToTree converts v into a document node positioned at loc.
func ToTree(v Value, loc tree.Location) *tree.Value {
	var out *tree.Value
	switch t := v.(type) {
	case StringValue:
		out = tree.String(string(t))
	case IntValue, FloatValue:
		out = tree.Number(t.String())
	case BoolValue:
		out = tree.Bool(bool(t))
	case ListValue:
		items := make([]*tree.Value, 0, len(t))
		for _, it := range t {
			items = append(items, ToTree(it, loc))
		}
		out = tree.Sequence(items...)
	case MapValue:
		entries := make([]tree.Entry, 0, len(t))
		for _, k := range t.keys() {
			entries = append(entries, tree.Entry{Key: k, Value: ToTree(t[k], loc)})
		}
		out = tree.Mapping(entries...)
	case PinValue:
		out = t.Pin.toTree(loc)
	default:
		out = tree.Null()
	}
	return out.At(loc)
}

// FromTree converts a document node into a Value without rendering any
// template text it holds. Numbers that are not integers stay strings so
// "0.10" keeps its digits.
func FromTree(n *tree.Value) Value {
	if n == nil {
		return NoneValue{}
	}
	switch n.Kind {
	case tree.KindString:
		return StringValue(n.Scalar)
	case tree.KindNumber:
		if i, err := strconv.ParseInt(n.Scalar, 10, 64); err == nil {
			return IntValue(i)
		}
		return StringValue(n.Scalar)
	case tree.KindBool:
		return BoolValue(n.Scalar == "true")
	case tree.KindSequence:
		out := make(ListValue, 0, len(n.Items))
		for _, it := range n.Items {
			out = append(out, FromTree(it))
		}
		return out
	case tree.KindMapping:
		out := make(MapValue, len(n.Entries))
		for _, e := range n.Entries {
			out[e.Key] = FromTree(e.Value)
		}
		return out
	default:
		return NoneValue{}
	}
}

func equalValues(a, b Value) bool {
	if an, ok := numeric(a); ok {
		if bn, ok := numeric(b); ok {
			return an == bn
		}
		return false
	}
	switch at := a.(type) {
	case NoneValue:
		return b.Kind() == KindNone
	case StringValue:
		bs, ok := b.(StringValue)
		return ok && at == bs
	case BoolValue:
		bb, ok := b.(BoolValue)
		return ok && at == bb
	case ListValue:
		bl, ok := b.(ListValue)
		if !ok || len(at) != len(bl) {
			return false
		}
		for i := range at {
			if !equalValues(at[i], bl[i]) {
				return false
			}
		}
		return true
	default:
		return a.String() == b.String() && a.Kind() == b.Kind()
	}
}

func numeric(v Value) (float64, bool) {
	switch t := v.(type) {
	case IntValue:
		return float64(t), true
	case FloatValue:
		return float64(t), true
	default:
		return 0, false
	}
}
