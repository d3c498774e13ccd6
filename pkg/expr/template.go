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
	"slices"
	"strings"

	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

const (
	openDelim  = "${{"
	closeDelim = "}}"
)

// part is either literal text or a parsed expression of a template.
type part struct {
	text string
	expr Node
}

// IsTemplate reports whether s contains an expression.
func IsTemplate(s string) bool {
	return strings.Contains(s, openDelim)
}

// splitTemplate cuts s into literal and expression parts.
func splitTemplate(s string) ([]part, error) {
	var parts []part
	rest := s
	for {
		i := strings.Index(rest, openDelim)
		if i < 0 {
			if rest != "" {
				parts = append(parts, part{text: rest})
			}
			return parts, nil
		}
		if i > 0 {
			parts = append(parts, part{text: rest[:i]})
		}
		body := rest[i+len(openDelim):]
		end := closingIndex(body)
		if end < 0 {
			return nil, fmt.Errorf("%w: unclosed %q", ErrSyntax, openDelim)
		}
		src := strings.TrimSpace(body[:end])
		if src == "" {
			return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
		}
		n, err := parseExpr(src)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{expr: n})
		rest = body[end+len(closeDelim):]
	}
}

// closingIndex finds the "}}" ending an expression, skipping quoted text
// and nested dict literals.
func closingIndex(s string) int {
	var quote byte
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 && strings.HasPrefix(s[i:], closeDelim) {
				return i
			}
			if depth > 0 {
				depth--
			}
		}
	}
	return -1
}

// render evaluates a template. A template that is exactly one expression
// keeps the expression's type; anything else is concatenated as a string.
func (e *evaluator) render(s string) (Value, error) {
	if !IsTemplate(s) {
		return StringValue(s), nil
	}
	parts, err := splitTemplate(s)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 && parts[0].expr != nil {
		return e.eval(parts[0].expr)
	}
	var b strings.Builder
	for _, p := range parts {
		if p.expr == nil {
			b.WriteString(p.text)
			continue
		}
		v, err := e.eval(p.expr)
		if err != nil {
			return nil, err
		}
		b.WriteString(v.String())
	}
	return StringValue(b.String()), nil
}

// Render evaluates a template string against ctx.
func Render(template string, ctx *Context) (Value, error) {
	v, err := (&evaluator{ctx: ctx}).render(template)
	if err != nil {
		return nil, wrapRender(err, template)
	}
	return v, nil
}

// RenderString evaluates a template and returns its text form.
func RenderString(template string, ctx *Context) (string, error) {
	v, err := Render(template, ctx)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// RenderTree renders every string scalar of v. Mapping keys are kept as
// written and nodes without expressions are shared with the input.
func RenderTree(v *tree.Value, ctx *Context) (*tree.Value, error) {
	return renderTree("", v, &evaluator{ctx: ctx})
}

func renderTree(path string, v *tree.Value, e *evaluator) (*tree.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case tree.KindString:
		if !IsTemplate(v.Scalar) {
			return v, nil
		}
		val, err := e.render(v.Scalar)
		if err != nil {
			return nil, tree.WrapNode(path, v, wrapRender(err, v.Scalar))
		}
		return ToTree(val, v.Loc), nil
	case tree.KindSequence:
		items := make([]*tree.Value, 0, len(v.Items))
		for i, it := range v.Items {
			r, err := renderTree(tree.IndexPath(path, i), it, e)
			if err != nil {
				return nil, err
			}
			items = append(items, r)
		}
		return tree.Sequence(items...).At(v.Loc), nil
	case tree.KindMapping:
		entries := make([]tree.Entry, 0, len(v.Entries))
		for _, en := range v.Entries {
			r, err := renderTree(tree.JoinPath(path, en.Key), en.Value, e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, tree.Entry{Key: en.Key, Value: r})
		}
		return tree.Mapping(entries...).At(v.Loc), nil
	default:
		return v, nil
	}
}

// Variables returns the sorted names a template reads. Calls to compiler
// and stdlib also report the variables they consult, e.g. compiler('c')
// reports c_compiler and c_compiler_version.
func Variables(template string) ([]string, error) {
	if !IsTemplate(template) {
		return nil, nil
	}
	parts, err := splitTemplate(template)
	if err != nil {
		return nil, wrapRender(err, template)
	}
	seen := make(map[string]bool)
	for _, p := range parts {
		for _, name := range nodeVariables(p.expr) {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

// nodeVariables returns the names a parsed expression reads, unsorted and
// possibly repeated.
func nodeVariables(n Node) []string {
	var names []string
	inspect(n, func(n Node) {
		switch t := n.(type) {
		case *Ident:
			names = append(names, t.Name)
		case *Call:
			fn, ok := t.Func.(*Ident)
			if !ok {
				return
			}
			switch fn.Name {
			case "compiler", "stdlib":
				names = append(names, "target_platform")
				if len(t.Args) > 0 {
					if lit, ok := t.Args[0].(*Literal); ok && lit.Value.Kind() == KindString {
						key := lit.Value.String() + "_" + fn.Name
						names = append(names, key, key+"_version")
					}
				}
			case "cdt":
				names = append(names, "target_platform", "cdt_name")
			}
		}
	})
	return names
}
