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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type filterFunc func(v Value, args []Value, kwargs map[string]Value) (Value, error)

// filters are applied with "x | name(args)".
var filters = map[string]filterFunc{
	"lower": func(v Value, _ []Value, _ map[string]Value) (Value, error) {
		return StringValue(cases.Lower(language.Und).String(v.String())), nil
	},
	"upper": func(v Value, _ []Value, _ map[string]Value) (Value, error) {
		return StringValue(cases.Upper(language.Und).String(v.String())), nil
	},
	"title": func(v Value, _ []Value, _ map[string]Value) (Value, error) {
		return StringValue(cases.Title(language.Und).String(v.String())), nil
	},
	"trim":                   filterTrim,
	"replace":                filterReplace,
	"split":                  filterSplit,
	"join":                   filterJoin,
	"default":                filterDefault,
	"length":                 filterLength,
	"first":                  filterFirst,
	"last":                   filterLast,
	"int":                    filterInt,
	"string":                 func(v Value, _ []Value, _ map[string]Value) (Value, error) { return StringValue(v.String()), nil },
	"version_to_buildstring": filterVersionToBuildstring,
}

// methods are called on a value with "x.name(args)".
var methods = map[string]filterFunc{
	"lower":   filters["lower"],
	"upper":   filters["upper"],
	"title":   filters["title"],
	"strip":   filterTrim,
	"replace": filterReplace,
	"split":   filterSplit,
	"startswith": func(v Value, args []Value, _ map[string]Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: startswith takes one argument", ErrArgument)
		}
		return BoolValue(strings.HasPrefix(v.String(), args[0].String())), nil
	},
	"endswith": func(v Value, args []Value, _ map[string]Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: endswith takes one argument", ErrArgument)
		}
		return BoolValue(strings.HasSuffix(v.String(), args[0].String())), nil
	},
	"join": func(v Value, args []Value, _ map[string]Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: join takes one argument", ErrArgument)
		}
		return filterJoin(args[0], []Value{v}, nil)
	},
}

func isUndefined(err error) bool {
	return errors.Is(err, ErrUndefined)
}

// arg returns the argument at position i or under name.
func arg(args []Value, kwargs map[string]Value, i int, name string) (Value, bool) {
	if v, ok := kwargs[name]; ok {
		return v, true
	}
	if i < len(args) {
		return args[i], true
	}
	return nil, false
}

func filterTrim(v Value, args []Value, kwargs map[string]Value) (Value, error) {
	if chars, ok := arg(args, kwargs, 0, "chars"); ok {
		return StringValue(strings.Trim(v.String(), chars.String())), nil
	}
	return StringValue(strings.TrimSpace(v.String())), nil
}

func filterReplace(v Value, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: replace takes old and new strings", ErrArgument)
	}
	n := -1
	if c, ok := arg(args, kwargs, 2, "count"); ok {
		i, ok := c.(IntValue)
		if !ok {
			return nil, fmt.Errorf("%w: replace count must be an integer", ErrArgument)
		}
		n = int(i)
	}
	return StringValue(strings.Replace(v.String(), args[0].String(), args[1].String(), n)), nil
}

func filterSplit(v Value, args []Value, kwargs map[string]Value) (Value, error) {
	var parts []string
	sep, hasSep := arg(args, kwargs, 0, "sep")
	if !hasSep || sep.Kind() == KindNone {
		parts = strings.Fields(v.String())
	} else {
		n := -1
		if m, ok := arg(args, kwargs, 1, "maxsplit"); ok {
			i, ok := m.(IntValue)
			if !ok {
				return nil, fmt.Errorf("%w: maxsplit must be an integer", ErrArgument)
			}
			if i >= 0 {
				n = int(i) + 1
			}
		}
		if sep.String() == "" {
			return nil, fmt.Errorf("%w: empty separator", ErrArgument)
		}
		parts = strings.SplitN(v.String(), sep.String(), n)
	}
	out := make(ListValue, 0, len(parts))
	for _, p := range parts {
		out = append(out, StringValue(p))
	}
	return out, nil
}

func filterJoin(v Value, args []Value, kwargs map[string]Value) (Value, error) {
	sep := ""
	if s, ok := arg(args, kwargs, 0, "d"); ok {
		sep = s.String()
	}
	list, ok := v.(ListValue)
	if !ok {
		return StringValue(v.String()), nil
	}
	parts := make([]string, 0, len(list))
	for _, it := range list {
		parts = append(parts, it.String())
	}
	return StringValue(strings.Join(parts, sep)), nil
}

func filterDefault(v Value, args []Value, kwargs map[string]Value) (Value, error) {
	d, ok := arg(args, kwargs, 0, "default_value")
	if !ok {
		d = StringValue("")
	}
	boolean := false
	if b, ok := arg(args, kwargs, 1, "boolean"); ok {
		boolean = b.Truth()
	}
	if v.Kind() == KindNone || (boolean && !v.Truth()) {
		return d, nil
	}
	return v, nil
}

func filterLength(v Value, _ []Value, _ map[string]Value) (Value, error) {
	switch t := v.(type) {
	case StringValue:
		return IntValue(len([]rune(string(t)))), nil
	case ListValue:
		return IntValue(len(t)), nil
	case MapValue:
		return IntValue(len(t)), nil
	case NoneValue:
		return IntValue(0), nil
	}
	return nil, fmt.Errorf("%w: %s has no length", ErrType, v.String())
}

func filterFirst(v Value, _ []Value, _ map[string]Value) (Value, error) {
	items := sequenceOf(v)
	if items == nil && v.Kind() != KindList && v.Kind() != KindString {
		return nil, fmt.Errorf("%w: first needs a list or string", ErrType)
	}
	if len(items) == 0 {
		return NoneValue{}, nil
	}
	return items[0], nil
}

func filterLast(v Value, _ []Value, _ map[string]Value) (Value, error) {
	items := sequenceOf(v)
	if items == nil && v.Kind() != KindList && v.Kind() != KindString {
		return nil, fmt.Errorf("%w: last needs a list or string", ErrType)
	}
	if len(items) == 0 {
		return NoneValue{}, nil
	}
	return items[len(items)-1], nil
}

func filterInt(v Value, args []Value, kwargs map[string]Value) (Value, error) {
	fallback := Value(IntValue(0))
	if d, ok := arg(args, kwargs, 0, "default"); ok {
		fallback = d
	}
	switch t := v.(type) {
	case IntValue:
		return t, nil
	case FloatValue:
		return IntValue(int64(t)), nil
	case BoolValue:
		if t {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	case StringValue:
		s := strings.TrimSpace(string(t))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return IntValue(int64(f)), nil
		}
	}
	return fallback, nil
}

// filterVersionToBuildstring turns "3.11.4" into "311", the form used in
// build strings such as "py311".
func filterVersionToBuildstring(v Value, _ []Value, _ map[string]Value) (Value, error) {
	if v.Kind() == KindNone {
		return StringValue(""), nil
	}
	parts := strings.Split(strings.TrimSpace(v.String()), ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return StringValue(strings.Join(parts, "")), nil
}
