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

package version

import (
	"errors"
	"fmt"
	"strings"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Error types for constraint parsing failures
var (
	ErrEmptyConstraint = errors.New("constraint expression is empty")
	ErrEmptyTerm       = errors.New("constraint has an empty term")
	ErrBadOperator     = errors.New("constraint operator is malformed")
)

// Operator represents a comparison operator in constraint expressions.
type Operator string

const (
	// OperatorEQ represents "==" (exact match, trailing zeros ignored).
	OperatorEQ Operator = "=="

	// OperatorNE represents "!=" (not equal).
	OperatorNE Operator = "!="

	// OperatorGT represents ">" (greater than).
	OperatorGT Operator = ">"

	// OperatorGTE represents ">=" (greater than or equal).
	OperatorGTE Operator = ">="

	// OperatorLT represents "<" (less than).
	OperatorLT Operator = "<"

	// OperatorLTE represents "<=" (less than or equal).
	OperatorLTE Operator = "<="

	// OperatorCompatible represents "~=" (compatible release).
	OperatorCompatible Operator = "~="

	// OperatorStartsWith represents "=1.2" or "1.2.*" (prefix match).
	OperatorStartsWith Operator = "="

	// OperatorNotStartsWith represents "!=1.2.*".
	OperatorNotStartsWith Operator = "!=*"

	// OperatorAny represents "*" (matches every version).
	OperatorAny Operator = "*"
)

// operators in match order, longest first so ">" never shadows ">=".
var operators = []Operator{OperatorCompatible, OperatorGTE, OperatorLTE, OperatorEQ, OperatorNE, OperatorGT, OperatorLT, OperatorStartsWith}

// NodeKind discriminates Constraint nodes.
type NodeKind uint8

const (
	NodeLeaf NodeKind = iota
	NodeAnd
	NodeOr
)

// Constraint is a version constraint tree. Leaves hold an operator and a
// version; And/Or nodes hold operands. Constraints are immutable once parsed.
type Constraint struct {
	Kind     NodeKind
	Operator Operator
	Version  Version
	Operands []*Constraint
}

// Leaf creates a constraint leaf.
func Leaf(op Operator, v Version) *Constraint {
	return &Constraint{Kind: NodeLeaf, Operator: op, Version: v}
}

// And combines operands with logical AND.
func And(operands ...*Constraint) *Constraint {
	if len(operands) == 1 {
		return operands[0]
	}
	return &Constraint{Kind: NodeAnd, Operands: operands}
}

// Or combines operands with logical OR.
func Or(operands ...*Constraint) *Constraint {
	if len(operands) == 1 {
		return operands[0]
	}
	return &Constraint{Kind: NodeOr, Operands: operands}
}

// ParseConstraint parses a constraint expression. Terms separated by "," or
// whitespace are combined with AND; "|" separates OR alternatives and binds
// looser than AND. An operator may be separated from its version by spaces.
//
// Examples:
//   - ">=0.7,<0.8" -> AND[>=0.7, <0.8]
//   - "1.2.*|>=2"  -> OR[=1.2, >=2]
//   - "~=1.4.2"    -> compatible release
func ParseConstraint(expr string) (*Constraint, error) {
	c, err := parseConstraint(expr)
	if err != nil {
		return nil, rerrors.WrapWithContext(rerrors.ErrCodeConstraintParse,
			"invalid version constraint", err, map[string]any{"constraint": expr})
	}
	return c, nil
}

// MustParseConstraint parses a constraint and panics on error.
// Only use this for hardcoded strings or in tests.
func MustParseConstraint(expr string) *Constraint {
	c, err := ParseConstraint(expr)
	if err != nil {
		panic(fmt.Sprintf("MustParseConstraint: %v", err))
	}
	return c
}

func parseConstraint(expr string) (*Constraint, error) {
	expr = glueOperators(strings.TrimSpace(expr))
	if expr == "" {
		return nil, ErrEmptyConstraint
	}

	var alternatives []*Constraint
	for _, alt := range strings.Split(expr, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return nil, ErrEmptyTerm
		}
		var terms []*Constraint
		for _, group := range strings.Split(alt, ",") {
			fields := strings.Fields(group)
			if len(fields) == 0 {
				return nil, ErrEmptyTerm
			}
			for _, f := range fields {
				term, err := parseTerm(f)
				if err != nil {
					return nil, err
				}
				terms = append(terms, term)
			}
		}
		alternatives = append(alternatives, And(terms...))
	}
	return Or(alternatives...), nil
}

// glueOperators removes whitespace between an operator and its version so
// ">= 1.0" tokenizes like ">=1.0".
func glueOperators(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if isOperatorByte(s[i]) && (i+1 >= len(s) || !isOperatorByte(s[i+1])) {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
				j++
			}
			i = j - 1
		}
	}
	return b.String()
}

func isOperatorByte(c byte) bool {
	return c == '<' || c == '>' || c == '=' || c == '!' || c == '~'
}

func parseTerm(term string) (*Constraint, error) {
	if term == "*" {
		return &Constraint{Kind: NodeLeaf, Operator: OperatorAny}, nil
	}

	op := Operator("")
	rest := term
	for _, candidate := range operators {
		if strings.HasPrefix(term, string(candidate)) {
			op = candidate
			rest = term[len(candidate):]
			break
		}
	}
	if rest != "" && isOperatorByte(rest[0]) {
		return nil, fmt.Errorf("%w: %q", ErrBadOperator, term)
	}

	glob := strings.HasSuffix(rest, "*")
	if glob {
		rest = strings.TrimSuffix(strings.TrimSuffix(rest, "*"), ".")
	}
	if rest == "" {
		return nil, fmt.Errorf("%w: missing version in %q", ErrBadOperator, term)
	}

	v, err := parse(rest)
	if err != nil {
		return nil, fmt.Errorf("term %q: %w", term, err)
	}

	switch op {
	case "":
		if glob {
			op = OperatorStartsWith
		} else {
			op = OperatorEQ
		}
	case OperatorEQ:
		if glob {
			op = OperatorStartsWith
		}
	case OperatorNE:
		if glob {
			op = OperatorNotStartsWith
		}
	case OperatorCompatible:
		if glob || v.SegmentCount() < 2 {
			return nil, fmt.Errorf("%w: %q needs at least two segments", ErrBadOperator, term)
		}
	}
	return Leaf(op, v), nil
}

// Matches reports whether v satisfies the constraint.
func (c *Constraint) Matches(v Version) bool {
	if c == nil {
		return true
	}
	switch c.Kind {
	case NodeAnd:
		for _, o := range c.Operands {
			if !o.Matches(v) {
				return false
			}
		}
		return true
	case NodeOr:
		for _, o := range c.Operands {
			if o.Matches(v) {
				return true
			}
		}
		return false
	default:
		return c.matchLeaf(v)
	}
}

func (c *Constraint) matchLeaf(v Version) bool {
	switch c.Operator {
	case OperatorAny:
		return true
	case OperatorEQ:
		return v.Compare(c.Version) == 0
	case OperatorNE:
		return v.Compare(c.Version) != 0
	case OperatorGT:
		return v.Compare(c.Version) > 0
	case OperatorGTE:
		return v.Compare(c.Version) >= 0
	case OperatorLT:
		return v.Compare(c.Version) < 0
	case OperatorLTE:
		return v.Compare(c.Version) <= 0
	case OperatorStartsWith:
		return v.StartsWith(c.Version)
	case OperatorNotStartsWith:
		return !v.StartsWith(c.Version)
	case OperatorCompatible:
		prefix := MustParse(c.Version.Truncate(c.Version.SegmentCount() - 1))
		return v.Compare(c.Version) >= 0 && v.StartsWith(prefix)
	default:
		return false
	}
}

// IsExact reports whether the constraint pins a single version with "==".
func (c *Constraint) IsExact() bool {
	return c != nil && c.Kind == NodeLeaf && c.Operator == OperatorEQ
}

// String returns the canonical form of the constraint.
func (c *Constraint) String() string {
	if c == nil {
		return ""
	}
	switch c.Kind {
	case NodeAnd:
		parts := make([]string, 0, len(c.Operands))
		for _, o := range c.Operands {
			parts = append(parts, o.String())
		}
		return strings.Join(parts, ",")
	case NodeOr:
		parts := make([]string, 0, len(c.Operands))
		for _, o := range c.Operands {
			parts = append(parts, o.String())
		}
		return strings.Join(parts, "|")
	}

	switch c.Operator {
	case OperatorAny:
		return "*"
	case OperatorStartsWith:
		return c.Version.String() + ".*"
	case OperatorNotStartsWith:
		return "!=" + c.Version.String() + ".*"
	default:
		return string(c.Operator) + c.Version.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c *Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// AsConstraint turns a variant or compiler version value into constraint
// text. A bare version "3.11" becomes the prefix match "3.11.*"; text that
// already carries an operator, a wildcard or a separator is kept as is.
func AsConstraint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, "<>=!~*,| ") {
		return value
	}
	return value + ".*"
}
