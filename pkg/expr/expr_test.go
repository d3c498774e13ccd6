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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

func testContext() *Context {
	return NewContext(map[string]any{
		"name":               "xtensor",
		"version":            "0.24.6",
		"number":             3,
		"items":              []string{"a", "b"},
		"flag":               true,
		"target_platform":    "linux-64",
		"c_compiler_version": "12",
	})
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected Value
	}{
		{"variable", "${{ name }}", StringValue("xtensor")},
		{"keeps type", "${{ number }}", IntValue(3)},
		{"plain text", "no expressions here", StringValue("no expressions here")},
		{"concatenated text", "v${{ number }}", StringValue("v3")},
		{"upper filter", "${{ name | upper }}", StringValue("XTENSOR")},
		{"title filter", "${{ 'hello world' | title }}", StringValue("Hello World")},
		{"method then filter", "${{ version.split('.') | join('-') }}", StringValue("0-24-6")},
		{"filter chain", "${{ version | split('.') | first }}", StringValue("0")},
		{"index", "${{ version.split('.')[1] }}", StringValue("24")},
		{"negative index", "${{ items[-1] }}", StringValue("b")},
		{"slice", "${{ version[:4] }}", StringValue("0.24")},
		{"tilde", "${{ name ~ '-' ~ version }}", StringValue("xtensor-0.24.6")},
		{"precedence", "${{ number + 2 * 3 }}", IntValue(9)},
		{"floor division", "${{ 7 // 2 }}", IntValue(3)},
		{"negative floor division", "${{ -7 // 2 }}", IntValue(-4)},
		{"largest integer", "${{ 9223372036854775806 + 1 }}", IntValue(9223372036854775807)},
		{"true division", "${{ 7 / 2 }}", FloatValue(3.5)},
		{"in", "${{ 'a' in items }}", BoolValue(true)},
		{"not in", "${{ 'z' not in items }}", BoolValue(true)},
		{"inline if", "${{ 'yes' if flag else 'no' }}", StringValue("yes")},
		{"inline if without else", "${{ 'yes' if not flag }}", NoneValue{}},
		{"default of undefined", "${{ missing | default('fallback') }}", StringValue("fallback")},
		{"buildstring", "${{ version | version_to_buildstring }}", StringValue("024")},
		{"length", "${{ items | length }}", IntValue(2)},
		{"int filter binds tighter", "${{ '42' | int + 1 }}", IntValue(43)},
		{"boolean logic", "${{ not flag or number > 2 }}", BoolValue(true)},
		{"and returns operand", "${{ flag and name }}", StringValue("xtensor")},
		{"dict literal", "${{ {'a': 1}['a'] }}", IntValue(1)},
		{"startswith", "${{ name.startswith('xt') }}", BoolValue(true)},
		{"replace method", "${{ version.replace('.', '') }}", StringValue("0246")},
		{"comparison of strings", "${{ name == 'xtensor' }}", BoolValue(true)},
		{"list literal", "${{ [1, 'two'] }}", ListValue{IntValue(1), StringValue("two")}},
	}

	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		template string
		expected string
	}{
		{"${{ compiler('c') }}", "gcc_linux-64 12.*"},
		{"${{ compiler('cxx') }}", "gxx_linux-64"},
		{"${{ compiler('rust') }}", "rust_linux-64"},
		{"${{ stdlib('c') }}", "sysroot_linux-64"},
		{"${{ cdt('mesa-libgl') }}", "mesa-libgl-cos7-x86_64"},
		{"${{ match(version, '>=0.24') }}", "true"},
		{"${{ match(version, '<0.24') }}", "false"},
	}

	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := RenderString(tt.template, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	osx := ctx.With("target_platform", StringValue("osx-arm64")).With("c_compiler", StringValue("clang"))
	got, err := RenderString("${{ compiler('c') }}", osx)
	require.NoError(t, err)
	assert.Equal(t, "clang_osx-arm64 12.*", got)
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  error
	}{
		{"unknown filter", "${{ name | nope }}", ErrUnknownFilter},
		{"unknown method", "${{ name.nope() }}", ErrUnknownFilter},
		{"unknown helper", "${{ nope('x') }}", ErrUnknownHelper},
		{"undefined", "${{ missing }}", ErrUndefined},
		{"undefined attribute", "${{ name.missing }}", ErrUndefined},
		{"unclosed", "${{ name ", ErrSyntax},
		{"dangling operator", "${{ 1 + }}", ErrSyntax},
		{"empty expression", "${{ }}", ErrSyntax},
		{"bad character", "${{ name $ }}", ErrSyntax},
		{"unterminated string", "${{ 'abc }}", ErrSyntax},
		{"keyword as value", "${{ and }}", ErrSyntax},
		{"mixed ordering", "${{ 'a' < 1 }}", ErrType},
		{"index out of range", "${{ items[5] }}", ErrArgument},
		{"compiler without language", "${{ compiler() }}", ErrArgument},
		{"addition overflow", "${{ 9223372036854775807 + 1 }}", ErrOverflow},
		{"subtraction overflow", "${{ -9223372036854775807 - 2 }}", ErrOverflow},
		{"multiplication overflow", "${{ 4611686018427387904 * 2 }}", ErrOverflow},
		{"negation overflow", "${{ -(-9223372036854775807 - 1) }}", ErrOverflow},
		{"floor division overflow", "${{ (-9223372036854775807 - 1) // -1 }}", ErrOverflow},
	}

	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.template, ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, rerrors.ErrCodeRender, rerrors.CodeOf(err))
		})
	}
}

func TestVariables(t *testing.T) {
	got, err := Variables("${{ name }}-${{ compiler('c') }} ${{ x | default(y) }} ${{ a.b }}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c_compiler", "c_compiler_version", "name", "target_platform", "x", "y"}, got)

	got, err = Variables("plain")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Variables("${{ (( }}")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseNestingLimit(t *testing.T) {
	deep := ""
	for i := 0; i < 200; i++ {
		deep += "("
	}
	_, err := Parse(deep + "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseNodeKinds(t *testing.T) {
	tests := map[string]NodeKind{
		"name":          NodeIdent,
		"'x'":           NodeLiteral,
		"[1, 2]":        NodeList,
		"(a, b)":        NodeList,
		"{'a': 1}":      NodeDict,
		"a.b":           NodeAttr,
		"a[0]":          NodeIndex,
		"a[1:]":         NodeSlice,
		"f(1, k=2)":     NodeCall,
		"a | lower":     NodeFilter,
		"not a":         NodeUnary,
		"a ~ b":         NodeBinary,
		"a if b else c": NodeCond,
	}
	for src, want := range tests {
		n, err := Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, want, n.Kind(), src)
	}

	_, err := Parse("f(k=1, 2)")
	assert.ErrorIs(t, err, ErrSyntax)
}
