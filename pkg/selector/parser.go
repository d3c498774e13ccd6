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
	"fmt"
	"strings"
)

type token struct {
	text   string
	quoted bool
	pos    int
}

func tokenize(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')':
			toks = append(toks, token{text: string(c), pos: i})
			i++
		case c == '=' || c == '!':
			if i+1 >= len(src) || src[i+1] != '=' {
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, c, i)
			}
			toks = append(toks, token{text: src[i : i+2], pos: i})
			i += 2
		case c == '\'' || c == '"':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated string at offset %d", ErrSyntax, i)
			}
			toks = append(toks, token{text: src[i+1 : i+1+end], quoted: true, pos: i})
			i += end + 2
		case isIdentByte(c, true):
			start := i
			for i < len(src) && isIdentByte(src[i], false) {
				i++
			}
			toks = append(toks, token{text: src[start:i], pos: start})
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, c, i)
		}
	}
	return toks, nil
}

func isIdentByte(c byte, first bool) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return !first && (c >= '0' && c <= '9')
}

type parser struct {
	toks []token
	pos  int
}

func parse(src string) (*Node, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrSyntax)
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		t := p.toks[p.pos]
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, t.text, t.pos)
	}
	return n, nil
}

func (p *parser) peekWord(word string) bool {
	return p.pos < len(p.toks) && !p.toks[p.pos].quoted && p.toks[p.pos].text == word
}

func (p *parser) or() (*Node, error) {
	return p.chain(NodeOr, "or", p.and)
}

func (p *parser) and() (*Node, error) {
	return p.chain(NodeAnd, "and", p.not)
}

func (p *parser) chain(kind NodeKind, word string, operand func() (*Node, error)) (*Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	operands := []*Node{first}
	for p.peekWord(word) {
		p.pos++
		n, err := operand()
		if err != nil {
			return nil, err
		}
		operands = append(operands, n)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &Node{Kind: kind, Operands: operands}, nil
}

func (p *parser) not() (*Node, error) {
	if p.peekWord("not") {
		p.pos++
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, Operands: []*Node{x}}, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (*Node, error) {
	l, err := p.atom()
	if err != nil {
		return nil, err
	}
	kind := NodeEq
	switch {
	case p.peekWord("=="):
	case p.peekWord("!="):
		kind = NodeNe
	default:
		return l, nil
	}
	p.pos++
	r, err := p.atom()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: kind, Operands: []*Node{l, r}}, nil
}

func (p *parser) atom() (*Node, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected end of selector", ErrSyntax)
	}
	t := p.toks[p.pos]
	p.pos++
	if t.quoted {
		return &Node{Kind: NodeString, Text: t.text}, nil
	}
	switch t.text {
	case "(":
		n, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.peekWord(")") {
			return nil, fmt.Errorf("%w: missing ')' for '(' at offset %d", ErrSyntax, t.pos)
		}
		p.pos++
		return n, nil
	case "true", "True":
		return &Node{Kind: NodeBool, Bool: true}, nil
	case "false", "False":
		return &Node{Kind: NodeBool, Bool: false}, nil
	case ")", "==", "!=", "and", "or", "not":
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, t.text, t.pos)
	}
	return &Node{Kind: NodeIdent, Text: t.text}, nil
}
