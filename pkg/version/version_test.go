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
	"testing"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		segments int
		wantErr  error
	}{
		{name: "simple", input: "1.2.3", expected: "1.2.3", segments: 3},
		{name: "uppercase letters", input: "1.0RC1", expected: "1.0rc1", segments: 2},
		{name: "dash separator", input: "1.0-1", expected: "1.0-1", segments: 3},
		{name: "epoch", input: "2!1.0", expected: "2!1.0", segments: 2},
		{name: "local", input: "1.0+cuda.12", expected: "1.0+cuda.12", segments: 2},
		{name: "surrounding whitespace", input: "  3.11 ", expected: "3.11", segments: 2},
		{name: "empty", input: "", wantErr: ErrEmptyVersion},
		{name: "double dot", input: "1..2", wantErr: ErrEmptySegment},
		{name: "trailing dot", input: "1.0.", wantErr: ErrEmptySegment},
		{name: "bad character", input: "1.0$", wantErr: ErrInvalidCharacter},
		{name: "non numeric epoch", input: "a!1.0", wantErr: ErrInvalidEpoch},
		{name: "double epoch", input: "1!2!3", wantErr: ErrInvalidEpoch},
		{name: "empty local", input: "1.0+", wantErr: ErrInvalidLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				if !rerrors.HasCode(err, rerrors.ErrCodeVersionParse) {
					t.Errorf("Parse(%q) error code = %q, want %q", tt.input, rerrors.CodeOf(err), rerrors.ErrCodeVersionParse)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if v.String() != tt.expected {
				t.Errorf("String() = %q, want %q", v.String(), tt.expected)
			}
			if v.SegmentCount() != tt.segments {
				t.Errorf("SegmentCount() = %d, want %d", v.SegmentCount(), tt.segments)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0.1", -1},
		{"1.0.1", "1.1", -1},
		{"1.1", "1.10", -1},
		{"2.0", "10.0", -1},
		{"1.0a1", "1.0", -1},
		{"1.0dev", "1.0a1", -1},
		{"1.0b2", "1.0rc1", -1},
		{"1.0", "1.0post1", -1},
		{"1.0.post1", "1.0.1", -1},
		{"1.0", "1.0.0", 0},
		{"1.0-1", "1.0.1", 0},
		{"1.0A1", "1.0a1", 0},
		{"01.002", "1.2", 0},
		{"1!0.1", "2.0", 1},
		{"0!2.0", "2.0", 0},
		{"1.0+1", "1.0", 1},
		{"1.0+1", "1.0+2", -1},
		{"1.0.1", "1.0+5", 1},
		{"12345678901234567890.1", "12345678901234567891", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a, b := MustParse(tt.a), MustParse(tt.b)
			if got := a.Compare(b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := b.Compare(a); got != -tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestStartsWith(t *testing.T) {
	tests := []struct {
		version string
		prefix  string
		want    bool
	}{
		{"1.2", "1.2", true},
		{"1.2.0", "1.2", true},
		{"1.2.7", "1.2", true},
		{"1.2.7+local", "1.2", true},
		{"1.20", "1.2", false},
		{"1.3", "1.2", false},
		{"1", "1.0", true},
		{"1.0a1", "1.0a", true},
		{"2!1.2", "1.2", false},
	}

	for _, tt := range tests {
		t.Run(tt.version+" under "+tt.prefix, func(t *testing.T) {
			if got := MustParse(tt.version).StartsWith(MustParse(tt.prefix)); got != tt.want {
				t.Errorf("StartsWith() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncateAndBump(t *testing.T) {
	v := MustParse("1.2.3")
	if got := v.Truncate(2); got != "1.2" {
		t.Errorf("Truncate(2) = %q, want %q", got, "1.2")
	}
	if got := v.Truncate(9); got != "1.2.3" {
		t.Errorf("Truncate(9) = %q, want %q", got, "1.2.3")
	}
	if got := MustParse("1!2.3").Truncate(1); got != "1!2" {
		t.Errorf("Truncate(1) with epoch = %q, want %q", got, "1!2")
	}

	bumps := map[int]string{1: "2", 2: "1.3", 3: "1.2.4"}
	for n, want := range bumps {
		got, err := v.Bump(n)
		if err != nil {
			t.Fatalf("Bump(%d) unexpected error: %v", n, err)
		}
		if got != want {
			t.Errorf("Bump(%d) = %q, want %q", n, got, want)
		}
	}

	if _, err := v.Bump(0); err == nil {
		t.Error("Bump(0) expected error")
	}
	if _, err := MustParse("1.a").Bump(2); err == nil {
		t.Error("Bump of letter segment expected error")
	}
}

func TestTextRoundTrip(t *testing.T) {
	var v Version
	if err := v.UnmarshalText([]byte("3.10.2")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	b, err := v.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error: %v", err)
	}
	if string(b) != "3.10.2" {
		t.Errorf("MarshalText() = %q, want %q", b, "3.10.2")
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse() expected panic")
		}
	}()
	MustParse("not a version!")
}
