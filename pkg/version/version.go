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
	"strconv"
	"strings"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion     = errors.New("version string is empty")
	ErrInvalidCharacter = errors.New("version contains a disallowed character")
	ErrEmptySegment     = errors.New("version has an empty segment")
	ErrInvalidEpoch     = errors.New("version epoch must be a single non-negative integer")
	ErrInvalidLocal     = errors.New("version has an invalid local segment")
)

// componentKind orders the component variants: dev < string < number < post.
type componentKind uint8

const (
	componentDev componentKind = iota
	componentString
	componentNumber
	componentPost
)

// component is one digit or letter run of a segment. Numbers keep their
// digits without leading zeros so arbitrarily long runs compare exactly.
type component struct {
	kind componentKind
	text string
}

var zeroComponent = component{kind: componentNumber, text: "0"}

func (c component) compare(o component) int {
	if c.kind != o.kind {
		if c.kind < o.kind {
			return -1
		}
		return 1
	}
	switch c.kind {
	case componentNumber:
		if len(c.text) != len(o.text) {
			if len(c.text) < len(o.text) {
				return -1
			}
			return 1
		}
		return strings.Compare(c.text, o.text)
	case componentString:
		return strings.Compare(c.text, o.text)
	default:
		return 0
	}
}

type segment []component

// Version is a parsed package version. The zero Version is not valid;
// use Parse to build one.
type Version struct {
	source string
	epoch  string
	raw    []string
	base   []segment
	local  []segment
}

// Parse parses a package version such as "1.2.3", "1.0a1", "2!1.0" or
// "1.0+cuda.12". Letters are case-insensitive; "-" and "_" separate segments
// like ".".
func Parse(s string) (Version, error) {
	v, err := parse(s)
	if err != nil {
		return Version{}, rerrors.WrapWithContext(rerrors.ErrCodeVersionParse,
			"invalid version", err, map[string]any{"version": s})
	}
	return v, nil
}

// ParseVersion is an alias of Parse.
func ParseVersion(s string) (Version, error) {
	return Parse(s)
}

// MustParse parses a version string and panics if parsing fails.
// Only use this for hardcoded strings or in tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("MustParse: %v", err))
	}
	return v
}

func parse(s string) (Version, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	for _, r := range s {
		if !isVersionRune(r) {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidCharacter, r)
		}
	}

	v := Version{source: s}
	rest := s

	if i := strings.IndexByte(rest, '!'); i >= 0 {
		epoch := rest[:i]
		if epoch == "" || strings.Count(rest, "!") > 1 || !isDigits(epoch) {
			return Version{}, ErrInvalidEpoch
		}
		v.epoch = trimZeros(epoch)
		rest = rest[i+1:]
	}

	if i := strings.IndexByte(rest, '+'); i >= 0 {
		local := rest[i+1:]
		if local == "" || strings.Contains(local, "+") {
			return Version{}, ErrInvalidLocal
		}
		segs, _, err := parseSegments(local)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %v", ErrInvalidLocal, err)
		}
		v.local = segs
		rest = rest[:i]
	}

	segs, raw, err := parseSegments(rest)
	if err != nil {
		return Version{}, err
	}
	v.base = segs
	v.raw = raw
	return v, nil
}

func parseSegments(s string) ([]segment, []string, error) {
	if s == "" {
		return nil, nil, ErrEmptySegment
	}
	s = strings.NewReplacer("-", ".", "_", ".").Replace(s)
	raw := strings.Split(s, ".")
	segs := make([]segment, 0, len(raw))
	for _, part := range raw {
		if part == "" {
			return nil, nil, ErrEmptySegment
		}
		segs = append(segs, splitRuns(part))
	}
	return segs, raw, nil
}

// splitRuns splits a segment into alternating digit and letter runs. A
// segment that starts with a letter gets an implicit leading zero so that
// "1.a" orders like "1.0a".
func splitRuns(part string) segment {
	var seg segment
	start := 0
	for i := 1; i <= len(part); i++ {
		if i < len(part) && isDigit(part[i]) == isDigit(part[start]) {
			continue
		}
		run := part[start:i]
		switch {
		case isDigit(run[0]):
			seg = append(seg, component{kind: componentNumber, text: trimZeros(run)})
		case run == "dev":
			seg = append(seg, component{kind: componentDev, text: run})
		case run == "post":
			seg = append(seg, component{kind: componentPost, text: run})
		default:
			seg = append(seg, component{kind: componentString, text: run})
		}
		start = i
	}
	if seg[0].kind != componentNumber {
		seg = append(segment{zeroComponent}, seg...)
	}
	return seg
}

func isVersionRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') ||
		r == '.' || r == '_' || r == '-' || r == '+' || r == '!'
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

// String returns the normalized source text of the version.
func (v Version) String() string {
	return v.source
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return v.source == ""
}

// SegmentCount returns the number of dot-separated segments before any
// local part.
func (v Version) SegmentCount() int {
	return len(v.base)
}

// HasLocal reports whether the version carries a "+local" part.
func (v Version) HasLocal() bool {
	return len(v.local) > 0
}

// Compare returns -1, 0 or 1 when v sorts before, equal to or after other.
// Epochs compare first, then base segments with missing components treated
// as 0, then local segments only when the bases are equal. A version
// without a local part sorts before one with it.
func (v Version) Compare(other Version) int {
	if c := compareNumberText(epochOrZero(v.epoch), epochOrZero(other.epoch)); c != 0 {
		return c
	}
	if c := compareSegments(v.base, other.base); c != 0 {
		return c
	}
	switch {
	case len(v.local) == 0 && len(other.local) == 0:
		return 0
	case len(v.local) == 0:
		return -1
	case len(other.local) == 0:
		return 1
	}
	return compareSegments(v.local, other.local)
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other compare equal ("1.0" equals "1.0.0").
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func epochOrZero(e string) string {
	if e == "" {
		return "0"
	}
	return e
}

func compareNumberText(a, b string) int {
	return component{kind: componentNumber, text: a}.compare(component{kind: componentNumber, text: b})
}

func compareSegments(a, b []segment) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var sa, sb segment
		if i < len(a) {
			sa = a[i]
		}
		if i < len(b) {
			sb = b[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(a, b segment) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := zeroComponent, zeroComponent
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if c := ca.compare(cb); c != 0 {
			return c
		}
	}
	return 0
}

// StartsWith reports whether v lies under the prefix version p, the way
// "1.2.*" matches 1.2, 1.2.0 and 1.2.7 but not 1.20. Local parts of v are
// ignored.
func (v Version) StartsWith(p Version) bool {
	if compareNumberText(epochOrZero(v.epoch), epochOrZero(p.epoch)) != 0 {
		return false
	}
	for i, ps := range p.base {
		var vs segment
		if i < len(v.base) {
			vs = v.base[i]
		}
		if i < len(p.base)-1 {
			if compareSegment(ps, vs) != 0 {
				return false
			}
			continue
		}
		for j, pc := range ps {
			vc := zeroComponent
			if j < len(vs) {
				vc = vs[j]
			}
			if pc.compare(vc) != 0 {
				return false
			}
		}
	}
	return true
}

// Truncate returns the first n segments of v as a version string, keeping
// any epoch. n larger than the segment count returns the whole base.
func (v Version) Truncate(n int) string {
	if n > len(v.raw) {
		n = len(v.raw)
	}
	return v.withEpoch(strings.Join(v.raw[:n], "."))
}

// Bump truncates v to n segments and increments the leading number of the
// last one: Bump(2) of 1.2.3 is "1.3".
func (v Version) Bump(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("bump needs at least one segment, got %d", n)
	}
	if n > len(v.raw) {
		n = len(v.raw)
	}
	parts := append([]string(nil), v.raw[:n]...)
	last := parts[n-1]
	end := 0
	for end < len(last) && isDigit(last[end]) {
		end++
	}
	if end == 0 {
		return "", rerrors.NewWithContext(rerrors.ErrCodeVersionParse,
			"cannot bump a non-numeric segment", map[string]any{"version": v.source, "segment": last})
	}
	num, err := strconv.ParseUint(last[:end], 10, 64)
	if err != nil {
		return "", rerrors.Wrap(rerrors.ErrCodeVersionParse, "cannot bump segment", err)
	}
	parts[n-1] = strconv.FormatUint(num+1, 10)
	return v.withEpoch(strings.Join(parts, ".")), nil
}

func (v Version) withEpoch(s string) string {
	if v.epoch == "" {
		return s
	}
	return v.epoch + "!" + s
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.source), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
