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

package matchspec

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/platform"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// Error types for spec parsing failures
var (
	ErrEmptySpec         = errors.New("dependency spec is empty")
	ErrInvalidName       = errors.New("invalid package name")
	ErrInvalidChannel    = errors.New("invalid channel")
	ErrUnbalancedBracket = errors.New("unbalanced bracket")
	ErrUnknownField      = errors.New("unknown bracket field")
	ErrDuplicateField    = errors.New("duplicate bracket field")
	ErrTooManyFields     = errors.New("too many positional fields")
	ErrInvalidBuild      = errors.New("invalid build string pattern")
)

var namePattern = regexp.MustCompile(`^[a-z0-9_][a-z0-9_.\-]*$`)

// operatorChars start or end a token that belongs to a version constraint.
const operatorChars = "<>=!~,|"

// MatchSpec describes which packages satisfy a dependency.
// A nil constraint or empty string field places no restriction.
type MatchSpec struct {
	Name        string
	Version     *version.Constraint
	Build       string
	BuildNumber *version.Constraint
	Channel     string
	Subdir      string
	MD5         string
	SHA256      string

	build glob.Glob
}

// Parse parses a dependency spec. Results are cached; the returned value
// shares its immutable constraint trees with other callers.
func Parse(s string) (MatchSpec, error) {
	key := strings.TrimSpace(s)
	if cached, ok := specCache.Get(key); ok {
		cacheHits.Inc()
		return cached.(MatchSpec), nil
	}
	cacheMisses.Inc()

	m, err := parse(key)
	if err != nil {
		return MatchSpec{}, rerrors.WrapWithContext(rerrors.ErrCodeMatchSpecParse,
			"invalid dependency spec", err, map[string]any{"spec": s})
	}
	specCache.Add(key, m)
	return m, nil
}

// MustParse parses a spec and panics on error.
// Only use this for hardcoded strings or in tests.
func MustParse(s string) MatchSpec {
	m, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("MustParse: %v", err))
	}
	return m
}

func parse(s string) (MatchSpec, error) {
	if s == "" {
		return MatchSpec{}, ErrEmptySpec
	}

	head, fields, err := splitBrackets(s)
	if err != nil {
		return MatchSpec{}, err
	}

	var m MatchSpec
	if ch, rest, ok := strings.Cut(head, "::"); ok {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			return MatchSpec{}, fmt.Errorf("%w: empty channel before '::'", ErrInvalidChannel)
		}
		if i := strings.LastIndexByte(ch, '/'); i > 0 {
			if p, perr := platform.Parse(ch[i+1:]); perr == nil {
				m.Subdir = p.String()
				ch = ch[:i]
			}
		}
		m.Channel = ch
		head = rest
	}

	head = strings.TrimSpace(head)
	end := strings.IndexAny(head, " \t"+operatorChars)
	if end < 0 {
		end = len(head)
	}
	m.Name = strings.ToLower(head[:end])
	if !namePattern.MatchString(m.Name) {
		return MatchSpec{}, fmt.Errorf("%w: %q", ErrInvalidName, head[:end])
	}

	groups := positionalGroups(head[end:])
	if len(groups) > 2 {
		return MatchSpec{}, fmt.Errorf("%w: %q", ErrTooManyFields, strings.Join(groups[2:], " "))
	}
	if len(groups) > 0 {
		if m.Version, err = version.ParseConstraint(groups[0]); err != nil {
			return MatchSpec{}, err
		}
	}
	if len(groups) > 1 {
		if err := m.setBuild(groups[1]); err != nil {
			return MatchSpec{}, err
		}
	}

	if err := m.applyFields(fields); err != nil {
		return MatchSpec{}, err
	}
	return m, nil
}

// positionalGroups splits the text after the name into whitespace separated
// groups, merging tokens that continue a constraint so that
// ">= 1.0 , < 2" stays one group.
func positionalGroups(rest string) []string {
	var groups []string
	for _, tok := range strings.Fields(rest) {
		n := len(groups)
		if n > 0 {
			prev := groups[n-1]
			if strings.ContainsRune(operatorChars, rune(tok[0])) ||
				strings.ContainsRune(operatorChars, rune(prev[len(prev)-1])) {
				groups[n-1] = prev + " " + tok
				continue
			}
		}
		groups = append(groups, tok)
	}
	return groups
}

// splitBrackets separates a trailing "[key=value, ...]" block from the spec.
func splitBrackets(s string) (string, map[string]string, error) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		if strings.ContainsRune(s, ']') {
			return "", nil, ErrUnbalancedBracket
		}
		return s, nil, nil
	}
	if !strings.HasSuffix(s, "]") {
		return "", nil, ErrUnbalancedBracket
	}

	fields := make(map[string]string)
	for _, pair := range splitUnquoted(s[open+1 : len(s)-1]) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return "", nil, fmt.Errorf("%w: %q has no value", ErrUnknownField, pair)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if _, dup := fields[k]; dup {
			return "", nil, fmt.Errorf("%w: %s", ErrDuplicateField, k)
		}
		fields[k] = unquote(strings.TrimSpace(v))
	}
	return s[:open], fields, nil
}

// splitUnquoted splits on commas that are not inside single or double quotes.
func splitUnquoted(s string) []string {
	var (
		parts []string
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func (m *MatchSpec) applyFields(fields map[string]string) error {
	var err error
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		v := fields[k]
		switch k {
		case "version":
			m.Version, err = version.ParseConstraint(v)
		case "build":
			err = m.setBuild(v)
		case "build_number":
			m.BuildNumber, err = version.ParseConstraint(v)
		case "channel":
			m.Channel = v
		case "subdir":
			m.Subdir = strings.ToLower(v)
		case "md5":
			m.MD5 = strings.ToLower(v)
		case "sha256":
			m.SHA256 = strings.ToLower(v)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *MatchSpec) setBuild(pattern string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidBuild, pattern, err)
	}
	m.Build = pattern
	m.build = g
	return nil
}

// HasConstraint reports whether the spec restricts the version or the build
// string. Variant pinning only applies to specs without one.
func (m MatchSpec) HasConstraint() bool {
	return m.Version != nil || m.Build != ""
}

// WithVersion returns a copy of m restricted by c.
func (m MatchSpec) WithVersion(c *version.Constraint) MatchSpec {
	m.Version = c
	return m
}

// String returns the canonical form of the spec. Parsing the result yields
// an equivalent spec.
func (m MatchSpec) String() string {
	var b strings.Builder
	if m.Channel != "" {
		b.WriteString(m.Channel)
		if m.Subdir != "" {
			b.WriteString("/" + m.Subdir)
		}
		b.WriteString("::")
	}
	b.WriteString(m.Name)

	if m.Version != nil || m.Build != "" {
		b.WriteByte(' ')
		if m.Version != nil {
			b.WriteString(m.Version.String())
		} else {
			b.WriteByte('*')
		}
	}
	if m.Build != "" {
		b.WriteString(" " + m.Build)
	}

	var extras []string
	if m.BuildNumber != nil {
		extras = append(extras, fmt.Sprintf("build_number='%s'", m.BuildNumber))
	}
	if m.Subdir != "" && m.Channel == "" {
		extras = append(extras, fmt.Sprintf("subdir='%s'", m.Subdir))
	}
	if m.MD5 != "" {
		extras = append(extras, fmt.Sprintf("md5='%s'", m.MD5))
	}
	if m.SHA256 != "" {
		extras = append(extras, fmt.Sprintf("sha256='%s'", m.SHA256))
	}
	if len(extras) > 0 {
		b.WriteString("[" + strings.Join(extras, ",") + "]")
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (m MatchSpec) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MatchSpec) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
