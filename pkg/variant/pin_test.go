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

package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

func TestPin(t *testing.T) {
	combo := NewCombination(
		Pair{"python", "3.11"},
		Pair{"numpy", ">=1.26,<2"},
		Pair{"libxml2", "2.12 h*_0"},
		Pair{"blank", ""},
	)
	tests := []struct {
		dep  string
		want string
	}{
		{"python", "python 3.11.*"},
		{"conda-forge::python", "conda-forge::python 3.11.*"},
		{"numpy", "numpy >=1.26,<2"},
		{"libxml2", "libxml2 2.12.* h*_0"},
		{"zlib", "zlib"},
		{"blank", "blank"},
		{"python >=3.10", "python >=3.10"},
		{"python * *_cpython", "python * *_cpython"},
	}
	for _, tt := range tests {
		t.Run(tt.dep, func(t *testing.T) {
			got, err := Pin(matchspec.MustParse(tt.dep), combo)
			require.NoError(t, err)
			assert.Equal(t, matchspec.MustParse(tt.want).String(), got.String())
		})
	}
}

func TestPinSatisfiesVariant(t *testing.T) {
	got, err := Pin(matchspec.MustParse("python"), NewCombination(Pair{"python", "3.11"}))
	require.NoError(t, err)
	assert.True(t, got.Version.Matches(version.MustParse("3.11.4")))
	assert.False(t, got.Version.Matches(version.MustParse("3.12.0")))
}

func TestPinConflict(t *testing.T) {
	_, err := Pin(matchspec.MustParse("python >=3.10"), NewCombination(Pair{"python", "3.9"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, rerrors.ErrCodeVariantConflict, rerrors.CodeOf(err))

	// Values that are not plain versions are not compared.
	_, err = Pin(matchspec.MustParse("python >=3.10"), NewCombination(Pair{"python", ">=3.8"}))
	assert.NoError(t, err)
}

func TestPinInvalidValue(t *testing.T) {
	_, err := Pin(matchspec.MustParse("python"), NewCombination(Pair{"python", ">=>3"}))
	require.Error(t, err)
	assert.Equal(t, rerrors.ErrCodeVariantConflict, rerrors.CodeOf(err))
	assert.True(t, rerrors.HasCode(err, rerrors.ErrCodeMatchSpecParse) || rerrors.HasCode(err, rerrors.ErrCodeConstraintParse))
}
