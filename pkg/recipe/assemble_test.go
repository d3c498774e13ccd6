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

package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
	"github.com/BenjaminLowry/rattler-build/pkg/variant"
)

const minimalPackage = "package:\n  name: foo\n  version: 1.0.0\n"

func assemble(t *testing.T, doc string, combo variant.Combination) (*Recipe, error) {
	t.Helper()
	v, err := tree.Parse([]byte(minimalPackage + doc))
	require.NoError(t, err)
	return Assemble(v, combo)
}

func mustAssemble(t *testing.T, doc string) *Recipe {
	t.Helper()
	r, err := assemble(t, doc, variant.Combination{})
	require.NoError(t, err)
	return r
}

func TestAssembleScript(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		kind    ScriptKind
		content string
		path    string
	}{
		{name: "absent", doc: "", kind: ScriptDefault},
		{name: "command", doc: "build:\n  script: make install\n", kind: ScriptCommand, content: "make install"},
		{name: "script file", doc: "build:\n  script: build.sh\n", kind: ScriptCommandOrPath, content: "build.sh"},
		{name: "batch file", doc: "build:\n  script: bld.bat\n", kind: ScriptCommandOrPath, content: "bld.bat"},
		{name: "commands", doc: "build:\n  script:\n    - ./configure\n    - make\n", kind: ScriptCommands, content: "./configure\nmake"},
		{name: "mapping file", doc: "build:\n  script:\n    file: scripts/build.sh\n", kind: ScriptPath, path: "scripts/build.sh"},
		{name: "mapping content", doc: "build:\n  script:\n    interpreter: bash\n    content: echo hi\n", kind: ScriptCommand, content: "echo hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustAssemble(t, tt.doc)
			assert.Equal(t, tt.kind, r.Build.Script.Kind)
			assert.Equal(t, tt.content, r.Build.Script.Content())
			assert.Equal(t, tt.path, r.Build.Script.Path)
		})
	}
}

func TestAssembleScriptOptions(t *testing.T) {
	r := mustAssemble(t, `
build:
  number: 3
  script:
    interpreter: python
    env:
      FOO: bar
    secrets: TOKEN
    content:
      - import sys
      - print(sys.version)
`)
	s := r.Build.Script
	assert.Equal(t, ScriptCommands, s.Kind)
	assert.Equal(t, "python", s.Interpreter)
	assert.Equal(t, map[string]string{"FOO": "bar"}, s.Env)
	assert.Equal(t, []string{"TOKEN"}, s.Secrets)
	assert.Equal(t, 3, r.Build.Number)
	assert.Regexp(t, `^h[0-9a-f]{7}_3$`, r.Build.String)
}

func TestAssembleBuildString(t *testing.T) {
	py310 := variant.NewCombination(variant.Pair{Key: "python", Value: "3.10"})
	py311 := variant.NewCombination(variant.Pair{Key: "python", Value: "3.11"})

	a, err := assemble(t, "", py310)
	require.NoError(t, err)
	b, err := assemble(t, "", py311)
	require.NoError(t, err)
	again, err := assemble(t, "", py310)
	require.NoError(t, err)

	assert.NotEqual(t, a.Build.String, b.Build.String)
	assert.Equal(t, a.Build.String, again.Build.String)
	assert.Equal(t, "h"+py310.Hash()+"_0", a.Build.String)

	explicit := mustAssemble(t, "build:\n  string: custom_1\n")
	assert.Equal(t, "custom_1", explicit.Build.String)
}

func TestAssembleNoarch(t *testing.T) {
	r := mustAssemble(t, "build:\n  noarch: python\n  python:\n    entry_points:\n      - foo = foo.cli:main\n")
	assert.Equal(t, NoarchPython, r.Build.Noarch)
	assert.Equal(t, "noarch", r.Subdir)
	assert.Equal(t, []string{"foo = foo.cli:main"}, r.Build.Python.EntryPoints)

	_, err := assemble(t, "build:\n  noarch: java\n", variant.Combination{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestAssembleSources(t *testing.T) {
	r := mustAssemble(t, `
source:
  - url:
      - https://example.com/foo-1.0.tar.gz
      - https://mirror.example.com/foo-1.0.tar.gz
    md5: d41d8cd98f00b204e9800998ecf8427e
    file_name: foo.tar.gz
    patches: fix-build.patch
  - git: https://github.com/example/foo.git
    tag: v1.0.0
    depth: 1
    lfs: true
    target_directory: vendor/foo
  - path: ../src
`)
	require.Len(t, r.Sources, 3)

	url := r.Sources[0]
	assert.Equal(t, SourceURL, url.Kind)
	assert.Len(t, url.URL, 2)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", url.MD5)
	assert.Equal(t, "foo.tar.gz", url.FileName)
	assert.Equal(t, []string{"fix-build.patch"}, url.Patches)

	git := r.Sources[1]
	assert.Equal(t, SourceGit, git.Kind)
	assert.Equal(t, "v1.0.0", git.Tag)
	assert.Equal(t, 1, git.Depth)
	assert.True(t, git.LFS)
	assert.Equal(t, "vendor/foo", git.TargetDirectory)

	path := r.Sources[2]
	assert.Equal(t, SourcePath, path.Kind)
	assert.Equal(t, "../src", path.Path)
	assert.True(t, path.UseGitignore)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
		path string
	}{
		{
			name: "url without checksum",
			doc:  "source:\n  url: https://example.com/foo.tar.gz\n",
			err:  ErrMissingChecksum,
			path: "source",
		},
		{
			name: "two source kinds",
			doc:  "source:\n  url: https://example.com/foo.tar.gz\n  path: .\n",
			err:  ErrInvalidField,
			path: "source",
		},
		{
			name: "git ref conflict",
			doc:  "source:\n  - git: https://example.com/foo.git\n    tag: v1\n    branch: main\n",
			err:  ErrInvalidField,
			path: "source[0]",
		},
		{
			name: "unknown build key",
			doc:  "build:\n  numbre: 1\n",
			err:  ErrUnknownField,
			path: "build.numbre",
		},
		{
			name: "non integer build number",
			doc:  "build:\n  number: one\n",
			err:  ErrInvalidField,
			path: "build.number",
		},
		{
			name: "dependency list is a string",
			doc:  "requirements:\n  run: python\n",
			err:  ErrInvalidField,
			path: "requirements.run",
		},
		{
			name: "mapping that is not a pin",
			doc:  "requirements:\n  run:\n    - {python: 3}\n",
			err:  ErrInvalidField,
			path: "requirements.run[0]",
		},
		{
			name: "unknown about key",
			doc:  "about:\n  licence: MIT\n",
			err:  ErrInvalidField,
			path: "about",
		},
		{
			name: "unknown run export strength",
			doc:  "requirements:\n  run_exports:\n    medium:\n      - foo\n",
			err:  ErrUnknownField,
			path: "requirements.run_exports.medium",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assemble(t, tt.doc, variant.Combination{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, rerrors.HasCode(err, rerrors.ErrCodeRecipeParse))

			var ne *tree.NodeError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, tt.path, ne.Path)
			assert.Positive(t, ne.Loc.Line)
		})
	}
}

func TestAssembleRequirements(t *testing.T) {
	r := mustAssemble(t, `
requirements:
  build:
    - cmake >=3.20
    -
    - ""
  host:
    - pin_subpackage:
        name: libfoo
        upper_bound: x.x
  run_constrained:
    - openssl >=3,<4
  ignore_run_exports:
    by_name:
      - libgcc
    from_package: gxx_linux-64
`)
	assert.Equal(t, []string{"cmake >=3.20"}, specStrings(r.Requirements.Build))
	require.Len(t, r.Requirements.Host, 1)
	pin := r.Requirements.Host[0].Pin
	require.NotNil(t, pin)
	assert.Equal(t, "pin_subpackage", pin.Helper)
	assert.Equal(t, "libfoo", pin.Name)
	assert.Equal(t, "x.x", pin.UpperBound)
	assert.Equal(t, "libfoo", r.Requirements.Host[0].Name())
	assert.Equal(t, []string{"openssl >=3,<4"}, specStrings(r.Requirements.RunConstrained))
	assert.Equal(t, []string{"libgcc"}, r.Requirements.IgnoreRunExports.ByName)
	assert.Equal(t, []string{"gxx_linux-64"}, r.Requirements.IgnoreRunExports.FromPackage)
}

func TestAssembleRunExports(t *testing.T) {
	list := mustAssemble(t, "requirements:\n  run_exports:\n    - libfoo >=1.0\n")
	assert.Equal(t, []string{"libfoo >=1.0"}, specStrings(list.Requirements.RunExports.Weak))
	assert.Empty(t, list.Requirements.RunExports.Strong)

	byStrength := mustAssemble(t, `
requirements:
  run_exports:
    strong:
      - libfoo >=1.0
    weak_constrained:
      - libbar <2
`)
	re := byStrength.Requirements.RunExports
	assert.Empty(t, re.Weak)
	assert.Equal(t, []string{"libfoo >=1.0"}, specStrings(re.Strong))
	assert.Equal(t, []string{"libbar <2"}, specStrings(re.WeakConstrained))
	assert.False(t, re.IsEmpty())
}

func TestAssembleRunExportsNotPinned(t *testing.T) {
	combo := variant.NewCombination(variant.Pair{Key: "python", Value: "3.11"})
	r, err := assemble(t, "requirements:\n  host:\n    - python\n  run_exports:\n    - python\n", combo)
	require.NoError(t, err)
	assert.Equal(t, []string{"python 3.11.*"}, specStrings(r.Requirements.Host))
	assert.Equal(t, []string{"python"}, specStrings(r.Requirements.RunExports.Weak))
}

func TestAssembleTestAndAbout(t *testing.T) {
	r := mustAssemble(t, `
test:
  imports:
    - foo
  commands:
    - foo --help
  requires:
    - pytest >=7
about:
  homepage: https://example.com
  license: MIT
  license_file:
    - LICENSE
    - NOTICE
  summary: A package
extra:
  recipe-maintainers:
    - someone
`)
	assert.Equal(t, []string{"foo"}, r.Test.Imports)
	assert.Equal(t, []string{"foo --help"}, r.Test.Commands)
	require.Len(t, r.Test.Requires, 1)
	assert.Equal(t, "pytest", r.Test.Requires[0].Name)
	assert.Equal(t, "pytest >=7", r.Test.Requires[0].String())

	assert.Equal(t, "https://example.com", r.About.Homepage)
	assert.Equal(t, []string{"LICENSE", "NOTICE"}, r.About.LicenseFile)
	assert.Equal(t, map[string]any{"recipe-maintainers": []any{"someone"}}, r.Extra)
}

func TestDependencyEncoding(t *testing.T) {
	r := mustAssemble(t, `
requirements:
  run:
    - python >=3.10
    - pin_compatible:
        name: numpy
        upper_bound: x.x
`)
	data, err := json.Marshal(r.Requirements.Run)
	require.NoError(t, err)
	assert.JSONEq(t, `["python >=3.10", {"pin_compatible": {"name": "numpy", "upper_bound": "x.x"}}]`, string(data))

	out, err := yaml.Marshal(r.Requirements.Run)
	require.NoError(t, err)
	assert.Contains(t, string(out), "- python >=3.10\n")
	assert.Contains(t, string(out), "pin_compatible:")
	assert.Contains(t, string(out), "upper_bound: x.x")
}
