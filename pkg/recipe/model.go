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
	"fmt"
	"strings"

	"github.com/BenjaminLowry/rattler-build/pkg/expr"
	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// Recipe is the fully rendered build plan for one variant combination.
// It is not modified after assembly.
type Recipe struct {
	Package      Package        `json:"package" yaml:"package"`
	Sources      []Source       `json:"source,omitempty" yaml:"source,omitempty"`
	Build        Build          `json:"build" yaml:"build"`
	Requirements Requirements   `json:"requirements" yaml:"requirements"`
	Test         Test           `json:"test,omitzero" yaml:"test,omitempty"`
	About        About          `json:"about,omitzero" yaml:"about,omitempty"`
	Extra        map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`

	// Subdir is the platform directory the package is built for, or
	// "noarch".
	Subdir string `json:"subdir,omitempty" yaml:"subdir,omitempty"`
}

// Package names the output package.
type Package struct {
	Name    string          `json:"name" yaml:"name"`
	Version version.Version `json:"version" yaml:"version"`
}

// Identifier returns "name-version-build".
func (r *Recipe) Identifier() string {
	return fmt.Sprintf("%s-%s-%s", r.Package.Name, r.Package.Version, r.Build.String)
}

// OutputFilename returns the file name of the built package.
func (r *Recipe) OutputFilename() string {
	return r.Identifier() + ".conda"
}

// SourceKind discriminates sources.
type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourceGit  SourceKind = "git"
	SourcePath SourceKind = "path"
)

// Source is one location the build fetches files from. Fields that do not
// apply to Kind are empty.
type Source struct {
	Kind SourceKind `json:"kind" yaml:"kind"`

	// url
	URL    []string `json:"url,omitempty" yaml:"url,omitempty"`
	SHA256 string   `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	MD5    string   `json:"md5,omitempty" yaml:"md5,omitempty"`

	// git
	Git    string `json:"git,omitempty" yaml:"git,omitempty"`
	Rev    string `json:"rev,omitempty" yaml:"rev,omitempty"`
	Tag    string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Depth  int    `json:"depth,omitempty" yaml:"depth,omitempty"`
	LFS    bool   `json:"lfs,omitempty" yaml:"lfs,omitempty"`

	// path
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	UseGitignore bool   `json:"use_gitignore,omitempty" yaml:"use_gitignore,omitempty"`

	FileName        string   `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	TargetDirectory string   `json:"target_directory,omitempty" yaml:"target_directory,omitempty"`
	Patches         []string `json:"patches,omitempty" yaml:"patches,omitempty"`
}

// Noarch values.
const (
	NoarchNone    = ""
	NoarchPython  = "python"
	NoarchGeneric = "generic"
)

// Build holds the build section.
type Build struct {
	Number int    `json:"number" yaml:"number"`
	String string `json:"string" yaml:"string"`
	Script Script `json:"script" yaml:"script"`
	Noarch string `json:"noarch,omitempty" yaml:"noarch,omitempty"`
	Python Python `json:"python,omitzero" yaml:"python,omitempty"`
}

// Python holds python specific build settings.
type Python struct {
	EntryPoints []string `json:"entry_points,omitempty" yaml:"entry_points,omitempty"`
}

// ScriptKind tells how the script content was given.
type ScriptKind string

const (
	// ScriptDefault runs build.sh or build.bat next to the recipe.
	ScriptDefault ScriptKind = "default"
	// ScriptPath runs the named file.
	ScriptPath ScriptKind = "path"
	// ScriptCommandOrPath is a single line that is either a script file
	// (when it exists next to the recipe) or a command.
	ScriptCommandOrPath ScriptKind = "command_or_path"
	// ScriptCommands is a list of commands.
	ScriptCommands ScriptKind = "commands"
	// ScriptCommand is one (possibly multi-line) command string.
	ScriptCommand ScriptKind = "command"
)

// Script is the build script.
type Script struct {
	Kind        ScriptKind        `json:"kind" yaml:"kind"`
	Path        string            `json:"path,omitempty" yaml:"path,omitempty"`
	Commands    []string          `json:"commands,omitempty" yaml:"commands,omitempty"`
	Interpreter string            `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Secrets     []string          `json:"secrets,omitempty" yaml:"secrets,omitempty"`
}

// Content returns the script text for inline kinds, commands joined by
// newlines.
func (s Script) Content() string {
	return strings.Join(s.Commands, "\n")
}

// Requirements holds the dependency lists of the recipe.
type Requirements struct {
	Build            []Dependency     `json:"build,omitempty" yaml:"build,omitempty"`
	Host             []Dependency     `json:"host,omitempty" yaml:"host,omitempty"`
	Run              []Dependency     `json:"run,omitempty" yaml:"run,omitempty"`
	RunConstrained   []Dependency     `json:"run_constrained,omitempty" yaml:"run_constrained,omitempty"`
	RunExports       RunExports       `json:"run_exports,omitzero" yaml:"run_exports,omitempty"`
	IgnoreRunExports IgnoreRunExports `json:"ignore_run_exports,omitzero" yaml:"ignore_run_exports,omitempty"`
}

// RunExports lists the constraints a package imposes on its consumers.
type RunExports struct {
	Weak              []Dependency `json:"weak,omitempty" yaml:"weak,omitempty"`
	Strong            []Dependency `json:"strong,omitempty" yaml:"strong,omitempty"`
	WeakConstrained   []Dependency `json:"weak_constrained,omitempty" yaml:"weak_constrained,omitempty"`
	StrongConstrained []Dependency `json:"strong_constrained,omitempty" yaml:"strong_constrained,omitempty"`
	Noarch            []Dependency `json:"noarch,omitempty" yaml:"noarch,omitempty"`
}

// IsEmpty reports whether no run export is declared.
func (r RunExports) IsEmpty() bool {
	return len(r.Weak)+len(r.Strong)+len(r.WeakConstrained)+len(r.StrongConstrained)+len(r.Noarch) == 0
}

// IgnoreRunExports filters run exports of dependencies.
type IgnoreRunExports struct {
	ByName      []string `json:"by_name,omitempty" yaml:"by_name,omitempty"`
	FromPackage []string `json:"from_package,omitempty" yaml:"from_package,omitempty"`
}

// Dependency is a dependency spec, or a pin whose version is only known
// once the pinned package is built or resolved.
type Dependency struct {
	Spec matchspec.MatchSpec
	Pin  *expr.Pin
}

// Name returns the package name of the dependency.
func (d Dependency) Name() string {
	if d.Pin != nil {
		return d.Pin.Name
	}
	return d.Spec.Name
}

// String returns the spec text, or "helper(name)" for a pin.
func (d Dependency) String() string {
	if d.Pin != nil {
		return d.Pin.Helper + "(" + d.Pin.Name + ")"
	}
	return d.Spec.String()
}

func (d Dependency) encoded() any {
	if d.Pin == nil {
		return d.Spec.String()
	}
	args := map[string]any{"name": d.Pin.Name}
	if d.Pin.LowerBound != "" {
		args["lower_bound"] = d.Pin.LowerBound
	}
	if d.Pin.UpperBound != "" {
		args["upper_bound"] = d.Pin.UpperBound
	}
	if d.Pin.Exact {
		args["exact"] = true
	}
	return map[string]any{d.Pin.Helper: args}
}

// MarshalJSON encodes a spec as its string form and a pin as
// {"pin_subpackage": {...}}.
func (d Dependency) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.encoded())
}

// MarshalYAML mirrors MarshalJSON.
func (d Dependency) MarshalYAML() (any, error) {
	return d.encoded(), nil
}

// Test describes the checks run against the built package.
type Test struct {
	Commands    []string              `json:"commands,omitempty" yaml:"commands,omitempty"`
	Imports     []string              `json:"imports,omitempty" yaml:"imports,omitempty"`
	Files       []string              `json:"files,omitempty" yaml:"files,omitempty"`
	SourceFiles []string              `json:"source_files,omitempty" yaml:"source_files,omitempty"`
	Requires    []matchspec.MatchSpec `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// About holds package metadata.
type About struct {
	Homepage      string   `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Repository    string   `json:"repository,omitempty" yaml:"repository,omitempty"`
	Documentation string   `json:"documentation,omitempty" yaml:"documentation,omitempty"`
	License       string   `json:"license,omitempty" yaml:"license,omitempty"`
	LicenseFile   []string `json:"license_file,omitempty" yaml:"license_file,omitempty"`
	LicenseFamily string   `json:"license_family,omitempty" yaml:"license_family,omitempty"`
	Summary       string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
}
