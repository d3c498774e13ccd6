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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

func parseTree(t *testing.T, doc string) *tree.Value {
	t.Helper()
	v, err := tree.Parse([]byte(doc))
	require.NoError(t, err)
	return v
}

func TestPrune(t *testing.T) {
	doc := parseTree(t, `
requirements:
  build:
    - cmake
    - if: linux
      then: sysroot_linux-64
    - if: win
      then: m2-patch
      else: patch
    - if: osx
      then:
        - clang
        - ld64
    - if: unix
      then:
        - make
        - if: x86_64
          then: nasm
  host:
    - if: osx
      then: libcxx
build:
  script:
    if: win
    then: build.bat
    else: build.sh
  skip:
    if: osx
    then: true
extra: {if: true, then: kept}
`)
	got, err := Prune(doc, linux64)
	require.NoError(t, err)

	want := map[string]any{
		"requirements": map[string]any{
			"build": []any{"cmake", "sysroot_linux-64", "patch", "make", "nasm"},
			"host":  []any{},
		},
		"build": map[string]any{
			"script": "build.sh",
		},
		"extra": "kept",
	}
	assert.Equal(t, want, got.ToAny())

	// Pruning returns a new tree.
	assert.Len(t, doc.Get("requirements").Get("build").Items, 5)
	assert.NotNil(t, doc.Get("build").Get("skip"))
}

func TestPruneKeepsLocations(t *testing.T) {
	doc := parseTree(t, `
build:
  - if: linux
    then: gcc
`)
	got, err := Prune(doc, linux64)
	require.NoError(t, err)
	item := got.Get("build").Items[0]
	assert.Equal(t, "gcc", item.Scalar)
	assert.Equal(t, 4, item.Loc.Line)
}

func TestPruneTopLevelConditional(t *testing.T) {
	doc := parseTree(t, "if: osx\nthen: {a: 1}\n")
	got, err := Prune(doc, linux64)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestPruneErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
		path string
		line int
	}{
		{
			name: "unknown variable",
			doc:  "deps:\n  - cmake\n  - if: linnux\n    then: gcc\n",
			want: ErrUnknownVariable,
			path: "deps[1].if",
			line: 3,
		},
		{
			name: "missing then",
			doc:  "deps:\n  - if: linux\n    else: gcc\n",
			want: ErrMalformedConditional,
			path: "deps[0]",
			line: 2,
		},
		{
			name: "extra key",
			doc:  "deps:\n  - if: linux\n    then: gcc\n    when: now\n",
			want: ErrMalformedConditional,
			path: "deps[0]",
			line: 2,
		},
		{
			name: "syntax error",
			doc:  "script:\n  if: linux and\n  then: x\n",
			want: ErrSyntax,
			path: "script.if",
			line: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prune(parseTree(t, tt.doc), linux64)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, rerrors.HasCode(err, rerrors.ErrCodeSelector))

			var ne *tree.NodeError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, tt.path, ne.Path)
			assert.Equal(t, tt.line, ne.Loc.Line)
		})
	}
}

func TestConditions(t *testing.T) {
	doc := parseTree(t, `
a:
  - if: linux
    then: x
  - if: true
    then: y
b:
  if: win and not arm64
  then: z
`)
	assert.Equal(t, []string{"linux", "win and not arm64"}, Conditions(doc))
}
