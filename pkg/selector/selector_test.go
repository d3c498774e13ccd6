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
)

var linux64 = MapEnv{
	"linux":           true,
	"osx":             false,
	"win":             false,
	"unix":            true,
	"x86_64":          true,
	"aarch64":         false,
	"target_platform": "linux-64",
	"build_platform":  "linux-64",
	"cuda":            "None",
	"python":          "3.11",
	"empty":           "",
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"linux", true},
		{"osx", false},
		{"not osx", true},
		{"not not linux", true},
		{"linux and x86_64", true},
		{"linux and aarch64", false},
		{"osx or linux", true},
		{"osx or win", false},
		{"osx or linux and aarch64", false},
		{"(osx or linux) and x86_64", true},
		{"not osx and linux", true},
		{"not (osx or linux)", false},
		{"target_platform == 'linux-64'", true},
		{`target_platform == "osx-arm64"`, false},
		{"target_platform != build_platform", false},
		{"'linux-64' == target_platform", true},
		{"cuda != 'None'", false},
		{"cuda", false},
		{"python", true},
		{"empty", false},
		{"true", true},
		{"False or linux", true},
		{"linux == true", true},
		{"${{ linux and not osx }}", true},
		{"  unix  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, linux64)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"", ErrSyntax},
		{"linux and", ErrSyntax},
		{"(linux", ErrSyntax},
		{"linux)", ErrSyntax},
		{"linux = osx", ErrSyntax},
		{"linux && osx", ErrSyntax},
		{"'unterminated", ErrSyntax},
		{"linux osx", ErrSyntax},
		{"and linux", ErrSyntax},
		{"linnux", ErrUnknownVariable},
		{"osx or typo", ErrUnknownVariable},
		{"target_platform == missing", ErrUnknownVariable},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Evaluate(tt.expr, linux64)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, rerrors.ErrCodeSelector, rerrors.CodeOf(err))
		})
	}
}

func TestEvaluateUnknownBehindShortCircuit(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "or with true left", expr: "linux or lnux"},
		{name: "and with false left", expr: "win and lnux"},
		{name: "nested", expr: "osx and (linux or lnux)"},
		{name: "comparison", expr: "linux or target_platfrom == 'linux-64'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, linux64)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownVariable)
			assert.True(t, rerrors.HasCode(err, rerrors.ErrCodeSelector))
		})
	}

	// known names still short-circuit on their values
	got, err := Evaluate("linux or osx", linux64)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateDoesNotMutateEnv(t *testing.T) {
	env := MapEnv{"linux": true, "osx": false}
	for range 3 {
		got, err := Evaluate("linux and not osx", env)
		require.NoError(t, err)
		assert.True(t, got)
	}
	assert.Equal(t, MapEnv{"linux": true, "osx": false}, env)
}

func TestParseString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"linux", "linux"},
		{"not osx and linux", "not osx and linux"},
		{"(osx or linux) and x86_64", "(osx or linux) and x86_64"},
		{"not (osx or win)", "not (osx or win)"},
		{"a or b or c", "a or b or c"},
		{"target_platform=='linux-64'", `target_platform == "linux-64"`},
	}
	for _, tt := range tests {
		n, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, n.String())

		again, err := Parse(n.String())
		require.NoError(t, err)
		assert.Equal(t, n, again)
	}
}

func TestVariables(t *testing.T) {
	got, err := Variables("(osx or linux) and target_platform != 'linux-64' and not osx")
	require.NoError(t, err)
	assert.Equal(t, []string{"linux", "osx", "target_platform"}, got)

	got, err = Variables("true")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Variables("(")
	assert.ErrorIs(t, err, ErrSyntax)
}
