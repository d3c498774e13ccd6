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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		specName  string
		version   string
		build     string
		channel   string
		subdir    string
		canonical string
	}{
		{name: "name only", input: "NumPy", specName: "numpy", canonical: "numpy"},
		{name: "range", input: "xtl >=0.7,<0.8", specName: "xtl", version: ">=0.7,<0.8", canonical: "xtl >=0.7,<0.8"},
		{name: "spaced operators", input: "numpy >= 1.21 , < 2", specName: "numpy", version: ">=1.21,<2", canonical: "numpy >=1.21,<2"},
		{name: "no space before operator", input: "numpy>=1.21", specName: "numpy", version: ">=1.21", canonical: "numpy >=1.21"},
		{name: "version and build", input: "python 3.11.* *_cpython", specName: "python", version: "3.11.*", build: "*_cpython", canonical: "python 3.11.* *_cpython"},
		{name: "any version with build", input: "python * *_cpython", specName: "python", version: "*", build: "*_cpython", canonical: "python * *_cpython"},
		{name: "channel", input: "conda-forge::zlib", specName: "zlib", channel: "conda-forge", canonical: "conda-forge::zlib"},
		{name: "channel and subdir", input: "conda-forge/linux-64::zlib 1.3.*", specName: "zlib", version: "1.3.*", channel: "conda-forge", subdir: "linux-64", canonical: "conda-forge/linux-64::zlib 1.3.*"},
		{name: "brackets", input: "numpy[version='>=1.21,<2', build='py3*']", specName: "numpy", version: ">=1.21,<2", build: "py3*", canonical: "numpy >=1.21,<2 py3*"},
		{name: "bracket subdir", input: "zlib[subdir=osx-arm64]", specName: "zlib", subdir: "osx-arm64", canonical: "zlib[subdir='osx-arm64']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.specName, m.Name)
			assert.Equal(t, tt.build, m.Build)
			assert.Equal(t, tt.channel, m.Channel)
			assert.Equal(t, tt.subdir, m.Subdir)
			if tt.version == "" {
				assert.Nil(t, m.Version)
			} else {
				require.NotNil(t, m.Version)
				assert.Equal(t, tt.version, m.Version.String())
			}
			assert.Equal(t, tt.canonical, m.String())

			again, err := Parse(m.String())
			require.NoError(t, err)
			assert.Equal(t, m.String(), again.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "   ", wantErr: ErrEmptySpec},
		{name: "bad name", input: "-numpy", wantErr: ErrInvalidName},
		{name: "name with slash", input: "num/py", wantErr: ErrInvalidName},
		{name: "empty channel", input: "::numpy", wantErr: ErrInvalidChannel},
		{name: "open bracket", input: "numpy[version=1", wantErr: ErrUnbalancedBracket},
		{name: "stray bracket", input: "numpy]", wantErr: ErrUnbalancedBracket},
		{name: "unknown field", input: "numpy[color=red]", wantErr: ErrUnknownField},
		{name: "duplicate field", input: "numpy[md5=a, md5=b]", wantErr: ErrDuplicateField},
		{name: "too many fields", input: "numpy 1.0 py3 extra", wantErr: ErrTooManyFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, rerrors.ErrCodeMatchSpecParse, rerrors.CodeOf(err))
		})
	}
}

func TestParseBadConstraint(t *testing.T) {
	_, err := Parse("numpy >=1.0$")
	require.Error(t, err)
	assert.True(t, rerrors.HasCode(err, rerrors.ErrCodeMatchSpecParse))
	assert.True(t, rerrors.HasCode(err, rerrors.ErrCodeConstraintParse))
}

func TestParseCache(t *testing.T) {
	PurgeCache()
	first, err := Parse("cmake >=3.20")
	require.NoError(t, err)
	assert.Equal(t, 1, specCache.Len())

	second, err := Parse("  cmake >=3.20 ")
	require.NoError(t, err)
	assert.Equal(t, 1, specCache.Len())
	assert.Same(t, first.Version, second.Version)
}

func TestHasConstraint(t *testing.T) {
	assert.False(t, MustParse("python").HasConstraint())
	assert.True(t, MustParse("python >=3.10").HasConstraint())
	assert.True(t, MustParse("python * *_cpython").HasConstraint())

	pinned := MustParse("python").WithVersion(version.MustParseConstraint("3.11.*"))
	assert.Equal(t, "python 3.11.*", pinned.String())
}

func TestTextRoundTrip(t *testing.T) {
	var m MatchSpec
	require.NoError(t, m.UnmarshalText([]byte("openssl >=3,<4")))
	b, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "openssl >=3,<4", string(b))
}
