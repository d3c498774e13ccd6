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
	"strconv"

	"github.com/BenjaminLowry/rattler-build/pkg/defaults"
	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Parse parses a single expression, the text between "${{" and "}}".
func Parse(src string) (Node, error) {
	n, err := parseExpr(src)
	if err != nil {
		return nil, rerrors.WrapWithContext(rerrors.ErrCodeRender,
			"invalid expression", err, map[string]any{"expression": src})
	}
	return n, nil
}

func parseExpr(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expression()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t)
	}
	return n, nil
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(kind tokenKind, text string) bool {
	if p.peek().is(kind, text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if p.accept(tokPunct, text) {
		return nil
	}
	return fmt.Errorf("%w: expected %q, found %s", ErrSyntax, text, p.peek().describe())
}

func (p *parser) unexpected(t token) error {
	return fmt.Errorf("%w: unexpected %s", ErrSyntax, t.describe())
}

func (p *parser) keyword(word string) bool {
	return p.accept(tokIdent, word)
}

// expression := or ["if" or ["else" expression]]
func (p *parser) expression() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > defaults.MaxExpressionDepth {
		return nil, fmt.Errorf("%w: expression nested too deeply", ErrSyntax)
	}

	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.keyword("if") {
		return n, nil
	}
	test, err := p.or()
	if err != nil {
		return nil, err
	}
	cond := &Cond{Then: n, Test: test}
	if p.keyword("else") {
		if cond.Else, err = p.expression(); err != nil {
			return nil, err
		}
	}
	return cond, nil
}

func (p *parser) or() (Node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "or", L: l, R: r}
	}
	return l, nil
}

func (p *parser) and() (Node, error) {
	l, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		r, err := p.not()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "and", L: l, R: r}
	}
	return l, nil
}

func (p *parser) not() (Node, error) {
	if p.keyword("not") {
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", X: x}, nil
	}
	return p.comparison()
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) comparison() (Node, error) {
	l, err := p.concat()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var op string
		switch {
		case t.kind == tokPunct && comparisonOps[t.text]:
			op = t.text
			p.next()
		case t.is(tokIdent, "in"):
			op = "in"
			p.next()
		case t.is(tokIdent, "not") && p.toks[p.pos+1].is(tokIdent, "in"):
			op = "not in"
			p.pos += 2
		default:
			return l, nil
		}
		r, err := p.concat()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: op, L: l, R: r}
	}
}

func (p *parser) concat() (Node, error) {
	return p.binary(p.additive, "~")
}

func (p *parser) additive() (Node, error) {
	return p.binary(p.multiplicative, "+", "-")
}

func (p *parser) multiplicative() (Node, error) {
	return p.binary(p.unary, "*", "/", "//", "%")
}

func (p *parser) binary(operand func() (Node, error), ops ...string) (Node, error) {
	l, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		matched := ""
		for _, op := range ops {
			if t.is(tokPunct, op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return l, nil
		}
		p.next()
		r, err := operand()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: matched, L: l, R: r}
	}
}

func (p *parser) unary() (Node, error) {
	if p.accept(tokPunct, "-") {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "-", X: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (Node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept(tokPunct, "."):
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.unexpected(name)
			}
			n = &Attr{X: n, Name: name.text}
		case p.accept(tokPunct, "("):
			args, kwargs, err := p.arguments()
			if err != nil {
				return nil, err
			}
			n = &Call{Func: n, Args: args, Kwargs: kwargs}
		case p.accept(tokPunct, "["):
			if n, err = p.subscript(n); err != nil {
				return nil, err
			}
		case p.accept(tokPunct, "|"):
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.unexpected(name)
			}
			f := &Filter{X: n, Name: name.text}
			if p.accept(tokPunct, "(") {
				if f.Args, f.Kwargs, err = p.arguments(); err != nil {
					return nil, err
				}
			}
			n = f
		default:
			return n, nil
		}
	}
}

// subscript parses the part after "[" of an index or slice.
func (p *parser) subscript(x Node) (Node, error) {
	var lo, hi Node
	var err error
	if !p.peek().is(tokPunct, ":") {
		if lo, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if !p.accept(tokPunct, ":") {
		if lo == nil {
			return nil, p.unexpected(p.peek())
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return &Index{X: x, Index: lo}, nil
	}
	if !p.peek().is(tokPunct, "]") {
		if hi, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	return &Slice{X: x, Lo: lo, Hi: hi}, nil
}

// arguments parses a call argument list after "(" up to and including ")".
func (p *parser) arguments() ([]Node, []Kwarg, error) {
	var (
		args   []Node
		kwargs []Kwarg
	)
	for !p.accept(tokPunct, ")") {
		if len(args)+len(kwargs) > 0 {
			if err := p.expect(","); err != nil {
				return nil, nil, err
			}
			if p.accept(tokPunct, ")") {
				break
			}
		}
		t := p.peek()
		if t.kind == tokIdent && p.toks[p.pos+1].is(tokPunct, "=") {
			p.pos += 2
			v, err := p.expression()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, Kwarg{Name: t.text, Value: v})
			continue
		}
		if len(kwargs) > 0 {
			return nil, nil, fmt.Errorf("%w: positional argument after keyword argument at offset %d", ErrSyntax, t.pos)
		}
		v, err := p.expression()
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	return args, kwargs, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return &Literal{Value: StringValue(t.text)}, nil
	case tokInt:
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return &Literal{Value: IntValue(i)}, nil
	case tokFloat:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return &Literal{Value: FloatValue(f)}, nil
	case tokIdent:
		switch t.text {
		case "true", "True":
			return &Literal{Value: BoolValue(true)}, nil
		case "false", "False":
			return &Literal{Value: BoolValue(false)}, nil
		case "none", "None":
			return &Literal{Value: NoneValue{}}, nil
		case "and", "or", "not", "if", "else", "in":
			return nil, p.unexpected(t)
		}
		return &Ident{Name: t.text}, nil
	case tokPunct:
		switch t.text {
		case "(":
			n, err := p.expression()
			if err != nil {
				return nil, err
			}
			if p.accept(tokPunct, ",") {
				return p.sequence(n, ")")
			}
			return n, p.expect(")")
		case "[":
			return p.sequence(nil, "]")
		case "{":
			return p.dict()
		}
	}
	return nil, p.unexpected(t)
}

// sequence parses list or tuple items up to the closing delimiter. first is
// an already parsed item, if any.
func (p *parser) sequence(first Node, closing string) (Node, error) {
	l := &List{}
	if first != nil {
		l.Items = append(l.Items, first)
	}
	for !p.accept(tokPunct, closing) {
		if len(l.Items) > 0 && first == nil {
			if err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept(tokPunct, closing) {
				break
			}
		}
		first = nil
		n, err := p.expression()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, n)
	}
	return l, nil
}

func (p *parser) dict() (Node, error) {
	d := &Dict{}
	for !p.accept(tokPunct, "}") {
		if len(d.Keys) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept(tokPunct, "}") {
				break
			}
		}
		k := p.next()
		if k.kind != tokString && k.kind != tokIdent {
			return nil, p.unexpected(k)
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		d.Keys = append(d.Keys, k.text)
		d.Values = append(d.Values, v)
	}
	return d, nil
}
