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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/BenjaminLowry/rattler-build/pkg/serializer"
)

const testRecipe = `
context:
  name: pyfoo
  version: "1.4.0"
package:
  name: ${{ name }}
  version: ${{ version }}
requirements:
  host:
    - python
  run:
    - python
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newRootCmd().Run(context.Background(), append([]string{name}, args...))
}

type renderedOutput struct {
	Variant map[string]string `json:"variant"`
	Recipe  struct {
		Package struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"package"`
		Requirements struct {
			Host []string `json:"host"`
		} `json:"requirements"`
		Subdir string `json:"subdir"`
	} `json:"recipe"`
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		wantFormat serializer.Format
		wantErr    bool
	}{
		{name: "valid yaml format", format: "yaml", wantFormat: serializer.FormatYAML},
		{name: "valid json format", format: "json", wantFormat: serializer.FormatJSON},
		{name: "valid table format", format: "table", wantFormat: serializer.FormatTable},
		{name: "upper case", format: "JSON", wantFormat: serializer.FormatJSON},
		{name: "invalid format xml", format: "xml", wantErr: true},
		{name: "empty format", format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cli.Command{
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: tt.format,
					},
				},
				Action: func(_ context.Context, c *cli.Command) error {
					got, err := parseOutputFormat(c)
					if (err != nil) != tt.wantErr {
						t.Errorf("parseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
						return nil
					}
					if !tt.wantErr && got != tt.wantFormat {
						t.Errorf("parseOutputFormat() = %v, want %v", got, tt.wantFormat)
					}
					return nil
				},
			}
			if err := cmd.Run(context.Background(), []string{"test"}); err != nil {
				t.Fatalf("failed to run command: %v", err)
			}
		})
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	recipePath := writeFile(t, dir, "recipe.yaml", testRecipe)
	base := writeFile(t, dir, "base.yaml", "python: ['3.10', '3.11']\n")
	local := writeFile(t, dir, "local.yaml", "python: ['3.12']\n")
	out := filepath.Join(dir, "out.json")

	err := run(t, "render",
		"--target-platform", "osx-arm64",
		"-m", base,
		"-m", local,
		"-D", "version=1.5.0",
		"-o", out,
		recipePath)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var outputs []renderedOutput
	require.NoError(t, json.Unmarshal(data, &outputs), "output should be JSON because of the file extension")
	require.Len(t, outputs, 1)

	o := outputs[0]
	assert.Equal(t, map[string]string{"python": "3.12"}, o.Variant)
	assert.Equal(t, "pyfoo", o.Recipe.Package.Name)
	assert.Equal(t, "1.5.0", o.Recipe.Package.Version)
	assert.Equal(t, []string{"python 3.12.*"}, o.Recipe.Requirements.Host)
	assert.Equal(t, "osx-arm64", o.Recipe.Subdir)
}

func TestRenderCommandBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", testRecipe)
	bad := writeFile(t, dir, "bad.yaml", "package:\n  name: broken\n")
	out := filepath.Join(dir, "out.txt")

	err := run(t, "render", "--target-platform", "linux-64", "--format", "json", "-o", out, good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 recipes failed to render")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report []struct {
		Recipe  string           `json:"recipe"`
		Outputs []renderedOutput `json:"outputs"`
		Error   string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report, 2)
	assert.Equal(t, good, report[0].Recipe)
	assert.Len(t, report[0].Outputs, 1)
	assert.Empty(t, report[0].Error)
	assert.Equal(t, bad, report[1].Recipe)
	assert.Contains(t, report[1].Error, "package.version")
}

func TestRenderCommandErrors(t *testing.T) {
	dir := t.TempDir()
	recipePath := writeFile(t, dir, "recipe.yaml", testRecipe)
	badConfig := writeFile(t, dir, "bad.yaml", "zip_keys: [[python]]\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no recipe", args: []string{"render"}, want: "at least one recipe"},
		{name: "unknown platform", args: []string{"render", "--target-platform", "amiga-68k", recipePath}, want: "target-platform"},
		{name: "unknown host platform", args: []string{"render", "--host-platform", "beos", recipePath}, want: "host-platform"},
		{name: "missing variant config", args: []string{"render", "-m", filepath.Join(dir, "nope.yaml"), recipePath}, want: "failed to read variant config"},
		{name: "invalid variant config", args: []string{"render", "-m", badConfig, recipePath}, want: badConfig},
		{name: "missing recipe", args: []string{"render", filepath.Join(dir, "nope.yaml")}, want: "failed to read recipe"},
		{name: "bad format", args: []string{"render", "--format", "xml", recipePath}, want: "unknown output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRenderCommandStageError(t *testing.T) {
	dir := t.TempDir()
	recipePath := writeFile(t, dir, "recipe.yaml", "package:\n  name: foo\n  version: ${{ missing }}\n")

	err := run(t, "render", "--target-platform", "linux-64", "-o", filepath.Join(dir, "out.yaml"), recipePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), recipePath)
	assert.Contains(t, err.Error(), "rendering")
	assert.Contains(t, err.Error(), "package.version")
}

func TestMatchCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "match.json")

	err := run(t, "match", "-o", out, "python >=3.10,<3.13 *_cpython", "python", "3.11.4", "h955ad1f_0_cpython")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res matchResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.True(t, res.Matches)
	assert.Equal(t, "python 3.11.4 h955ad1f_0_cpython", res.Package)

	err = run(t, "match", "-o", out, "python >=3.12", "python", "3.11.4")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoMatch)

	err = run(t, "match", "-o", out, "python")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected SPEC NAME VERSION")
}

func TestCompareCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "compare.json")

	require.NoError(t, run(t, "compare", "-o", out, "1.0.0rc1", "1.0.0"))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res compareResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, compareResult{Left: "1.0.0rc1", Right: "1.0.0", Order: -1, Relation: "<"}, res)

	err = run(t, "compare", "-o", out, "1.0")
	require.Error(t, err)
}

func TestOutputFormatNotSharedBetweenRuns(t *testing.T) {
	dir := t.TempDir()
	forced := filepath.Join(dir, "forced.json")
	require.NoError(t, run(t, "compare", "--format", "yaml", "-o", forced, "1.0", "2.0"))
	data, err := os.ReadFile(forced)
	require.NoError(t, err)
	assert.Contains(t, string(data), "relation:")
	assert.False(t, json.Valid(data))

	// a later run without --format falls back to the file extension
	derived := filepath.Join(dir, "derived.json")
	require.NoError(t, run(t, "compare", "-o", derived, "1.0", "2.0"))
	data, err = os.ReadFile(derived)
	require.NoError(t, err)
	var res compareResult
	require.NoError(t, json.Unmarshal(data, &res), string(data))
	assert.Equal(t, "<", res.Relation)
}

func TestCompareVersionsRelation(t *testing.T) {
	tests := []struct {
		left, right string
		want        string
	}{
		{"1.0", "1.0.0", "=="},
		{"1.10", "1.9", ">"},
		{"1!0.1", "2.0", ">"},
		{"1.0a1", "1.0", "<"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.left, tt.right), func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "out.json")
			require.NoError(t, run(t, "compare", "-o", out, tt.left, tt.right))
			data, err := os.ReadFile(out)
			require.NoError(t, err)
			var res compareResult
			require.NoError(t, json.Unmarshal(data, &res))
			assert.Equal(t, tt.want, res.Relation)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(context.Canceled))
	assert.Equal(t, 2, exitCode(fmt.Errorf("render: %w", context.DeadlineExceeded)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestServeCommandStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newRootCmd().Run(ctx, []string{name, "serve", "--address", "127.0.0.1", "--port", "0"})
	require.NoError(t, err)
}
