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
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/expr"
	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
	"github.com/BenjaminLowry/rattler-build/pkg/variant"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// Error types for recipe structure problems
var (
	ErrMissingField    = errors.New("missing required field")
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidField    = errors.New("invalid field")
	ErrMissingChecksum = errors.New("url source without sha256 or md5")
)

var topLevelKeys = []string{"context", "schema_version", "package", "source", "build", "requirements", "test", "about", "extra"}

// Assemble converts a pruned and rendered recipe tree into a Recipe for
// combo. Dependencies without a constraint are pinned to the combination's
// values. The tree must not contain conditionals or templates anymore.
func Assemble(rendered *tree.Value, combo variant.Combination) (*Recipe, error) {
	if rendered == nil || rendered.Kind != tree.KindMapping {
		return nil, fieldError("", rendered, ErrInvalidField, "recipe must be a mapping")
	}
	if err := checkKeys("", rendered, topLevelKeys...); err != nil {
		return nil, err
	}

	r := &Recipe{}
	var err error
	if r.Package, err = assemblePackage(rendered.Get("package")); err != nil {
		return nil, err
	}
	if r.Sources, err = assembleSources(rendered.Get("source")); err != nil {
		return nil, err
	}
	if r.Build, err = assembleBuild(rendered.Get("build"), combo); err != nil {
		return nil, err
	}
	if r.Requirements, err = assembleRequirements(rendered.Get("requirements"), combo); err != nil {
		return nil, err
	}
	if err = decodeSection("test", rendered.Get("test"), &r.Test); err != nil {
		return nil, err
	}
	if err = decodeSection("about", rendered.Get("about"), &r.About); err != nil {
		return nil, err
	}
	if extra := rendered.Get("extra"); !extra.IsNull() {
		m, ok := extra.ToAny().(map[string]any)
		if !ok {
			return nil, fieldError("extra", extra, ErrInvalidField, "extra must be a mapping")
		}
		r.Extra = m
	}
	if r.Build.Noarch != NoarchNone {
		r.Subdir = "noarch"
	}
	return r, nil
}

func assemblePackage(v *tree.Value) (Package, error) {
	if v.IsNull() {
		return Package{}, fieldError("package", v, ErrMissingField, "package")
	}
	if err := checkKeys("package", v, "name", "version"); err != nil {
		return Package{}, err
	}
	name := v.Get("name")
	if name.IsNull() || !name.IsScalar() || name.Scalar == "" {
		return Package{}, fieldError("package.name", orParent(name, v), ErrMissingField, "package.name")
	}
	spec, err := matchspec.Parse(name.Scalar)
	if err != nil || spec.HasConstraint() || spec.Channel != "" {
		return Package{}, fieldError("package.name", name, ErrInvalidField, "invalid package name %q", name.Scalar)
	}

	ver := v.Get("version")
	if ver.IsNull() || !ver.IsScalar() || ver.Scalar == "" {
		return Package{}, fieldError("package.version", orParent(ver, v), ErrMissingField, "package.version")
	}
	parsed, err := version.Parse(ver.Scalar)
	if err != nil {
		return Package{}, tree.WrapNode("package.version", ver, err)
	}
	return Package{Name: spec.Name, Version: parsed}, nil
}

func assembleSources(v *tree.Value) ([]Source, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind == tree.KindMapping {
		s, err := assembleSource("source", v)
		if err != nil {
			return nil, err
		}
		return []Source{s}, nil
	}
	if v.Kind != tree.KindSequence {
		return nil, fieldError("source", v, ErrInvalidField, "source must be a mapping or a list")
	}
	out := make([]Source, 0, len(v.Items))
	for i, it := range v.Items {
		s, err := assembleSource(tree.IndexPath("source", i), it)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func assembleSource(path string, v *tree.Value) (Source, error) {
	if v.Kind != tree.KindMapping {
		return Source{}, fieldError(path, v, ErrInvalidField, "source must be a mapping")
	}
	var kinds []SourceKind
	for _, k := range []SourceKind{SourceURL, SourceGit, SourcePath} {
		if v.Get(string(k)) != nil {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) != 1 {
		return Source{}, fieldError(path, v, ErrInvalidField, "source needs exactly one of url, git or path")
	}

	s := Source{Kind: kinds[0]}
	var err error
	str := func(key string) string {
		if err != nil {
			return ""
		}
		var out string
		out, err = scalar(tree.JoinPath(path, key), v.Get(key))
		return out
	}
	common := []string{"target_directory", "patches"}

	switch s.Kind {
	case SourceURL:
		if err = checkKeys(path, v, append(common, "url", "sha256", "md5", "file_name")...); err != nil {
			return Source{}, err
		}
		if s.URL, err = stringList(tree.JoinPath(path, "url"), v.Get("url")); err != nil {
			return Source{}, err
		}
		if len(s.URL) == 0 {
			return Source{}, fieldError(tree.JoinPath(path, "url"), v, ErrMissingField, "url")
		}
		s.SHA256, s.MD5, s.FileName = str("sha256"), str("md5"), str("file_name")
		if err == nil && s.SHA256 == "" && s.MD5 == "" {
			return Source{}, fieldError(path, v, ErrMissingChecksum, "%s", s.URL[0])
		}
	case SourceGit:
		if err = checkKeys(path, v, append(common, "git", "rev", "tag", "branch", "depth", "lfs")...); err != nil {
			return Source{}, err
		}
		s.Git, s.Rev, s.Tag, s.Branch = str("git"), str("rev"), str("tag"), str("branch")
		if err == nil {
			refs := 0
			for _, r := range []string{s.Rev, s.Tag, s.Branch} {
				if r != "" {
					refs++
				}
			}
			if refs > 1 {
				return Source{}, fieldError(path, v, ErrInvalidField, "only one of rev, tag or branch may be set")
			}
			if s.Depth, err = integer(tree.JoinPath(path, "depth"), v.Get("depth"), 0); err == nil {
				s.LFS, err = boolean(tree.JoinPath(path, "lfs"), v.Get("lfs"), false)
			}
		}
	case SourcePath:
		if err = checkKeys(path, v, append(common, "path", "use_gitignore", "file_name")...); err != nil {
			return Source{}, err
		}
		s.Path, s.FileName = str("path"), str("file_name")
		if err == nil {
			s.UseGitignore, err = boolean(tree.JoinPath(path, "use_gitignore"), v.Get("use_gitignore"), true)
		}
	}
	if err != nil {
		return Source{}, err
	}
	s.TargetDirectory = str("target_directory")
	if err != nil {
		return Source{}, err
	}
	if s.Patches, err = stringList(tree.JoinPath(path, "patches"), v.Get("patches")); err != nil {
		return Source{}, err
	}
	return s, nil
}

func assembleBuild(v *tree.Value, combo variant.Combination) (Build, error) {
	b := Build{Script: Script{Kind: ScriptDefault}}
	if !v.IsNull() {
		if v.Kind != tree.KindMapping {
			return Build{}, fieldError("build", v, ErrInvalidField, "build must be a mapping")
		}
		if err := checkKeys("build", v, "number", "string", "script", "noarch", "python", "skip"); err != nil {
			return Build{}, err
		}
		var err error
		if b.Number, err = integer("build.number", v.Get("number"), 0); err != nil {
			return Build{}, err
		}
		if b.String, err = scalar("build.string", v.Get("string")); err != nil {
			return Build{}, err
		}
		if b.Script, err = assembleScript("build.script", v.Get("script")); err != nil {
			return Build{}, err
		}
		if b.Noarch, err = scalar("build.noarch", v.Get("noarch")); err != nil {
			return Build{}, err
		}
		if !slices.Contains([]string{NoarchNone, NoarchPython, NoarchGeneric}, b.Noarch) {
			return Build{}, fieldError("build.noarch", v.Get("noarch"), ErrInvalidField, "noarch must be python or generic, got %q", b.Noarch)
		}
		if py := v.Get("python"); !py.IsNull() {
			if err := checkKeys("build.python", py, "entry_points"); err != nil {
				return Build{}, err
			}
			if b.Python.EntryPoints, err = stringList("build.python.entry_points", py.Get("entry_points")); err != nil {
				return Build{}, err
			}
		}
	}
	if b.String == "" {
		b.String = fmt.Sprintf("h%s_%d", combo.Hash(), b.Number)
	}
	return b, nil
}

func assembleScript(path string, v *tree.Value) (Script, error) {
	s := Script{Kind: ScriptDefault}
	switch {
	case v.IsNull():
		return s, nil
	case v.IsScalar(), v.Kind == tree.KindSequence:
		return scriptContent(path, v, s)
	case v.Kind != tree.KindMapping:
		return Script{}, fieldError(path, v, ErrInvalidField, "script must be a string, a list or a mapping")
	}

	if err := checkKeys(path, v, "interpreter", "env", "secrets", "file", "content"); err != nil {
		return Script{}, err
	}
	var err error
	if s.Interpreter, err = scalar(tree.JoinPath(path, "interpreter"), v.Get("interpreter")); err != nil {
		return Script{}, err
	}
	if s.Secrets, err = stringList(tree.JoinPath(path, "secrets"), v.Get("secrets")); err != nil {
		return Script{}, err
	}
	if env := v.Get("env"); !env.IsNull() {
		if env.Kind != tree.KindMapping {
			return Script{}, fieldError(tree.JoinPath(path, "env"), env, ErrInvalidField, "env must be a mapping")
		}
		s.Env = make(map[string]string, len(env.Entries))
		for _, e := range env.Entries {
			if s.Env[e.Key], err = scalar(tree.JoinPath(path, "env."+e.Key), e.Value); err != nil {
				return Script{}, err
			}
		}
	}

	file, content := v.Get("file"), v.Get("content")
	switch {
	case file != nil && content != nil:
		return Script{}, fieldError(path, v, ErrInvalidField, "script takes either file or content")
	case file != nil:
		if s.Path, err = scalar(tree.JoinPath(path, "file"), file); err != nil {
			return Script{}, err
		}
		s.Kind = ScriptPath
		return s, nil
	case content != nil:
		return scriptContent(tree.JoinPath(path, "content"), content, s)
	}
	return s, nil
}

// scriptContent fills s from an inline script: a list of commands, a
// single line naming a .sh or .bat file, or a command string.
func scriptContent(path string, v *tree.Value, s Script) (Script, error) {
	if v.Kind == tree.KindSequence {
		cmds, err := stringList(path, v)
		if err != nil {
			return Script{}, err
		}
		s.Kind, s.Commands = ScriptCommands, cmds
		return s, nil
	}
	text, err := scalar(path, v)
	if err != nil {
		return Script{}, err
	}
	s.Kind, s.Commands = ScriptCommand, []string{text}
	if !strings.Contains(text, "\n") && (strings.HasSuffix(text, ".sh") || strings.HasSuffix(text, ".bat")) {
		s.Kind = ScriptCommandOrPath
	}
	return s, nil
}

func assembleRequirements(v *tree.Value, combo variant.Combination) (Requirements, error) {
	var req Requirements
	if v.IsNull() {
		return req, nil
	}
	if v.Kind != tree.KindMapping {
		return req, fieldError("requirements", v, ErrInvalidField, "requirements must be a mapping")
	}
	if err := checkKeys("requirements", v, "build", "host", "run", "run_constrained", "run_exports", "ignore_run_exports"); err != nil {
		return req, err
	}
	lists := []struct {
		key string
		dst *[]Dependency
	}{
		{"build", &req.Build},
		{"host", &req.Host},
		{"run", &req.Run},
		{"run_constrained", &req.RunConstrained},
	}
	for _, l := range lists {
		deps, err := dependencies(tree.JoinPath("requirements", l.key), v.Get(l.key), &combo)
		if err != nil {
			return req, err
		}
		*l.dst = deps
	}

	var err error
	if req.RunExports, err = assembleRunExports(v.Get("run_exports")); err != nil {
		return req, err
	}
	if ire := v.Get("ignore_run_exports"); !ire.IsNull() {
		if err := checkKeys("requirements.ignore_run_exports", ire, "by_name", "from_package"); err != nil {
			return req, err
		}
		if req.IgnoreRunExports.ByName, err = stringList("requirements.ignore_run_exports.by_name", ire.Get("by_name")); err != nil {
			return req, err
		}
		if req.IgnoreRunExports.FromPackage, err = stringList("requirements.ignore_run_exports.from_package", ire.Get("from_package")); err != nil {
			return req, err
		}
	}
	return req, nil
}

// assembleRunExports accepts a list, which means weak run exports, or a
// mapping by strength.
func assembleRunExports(v *tree.Value) (RunExports, error) {
	const path = "requirements.run_exports"
	var re RunExports
	if v.IsNull() {
		return re, nil
	}
	if v.Kind == tree.KindSequence {
		deps, err := dependencies(path, v, nil)
		re.Weak = deps
		return re, err
	}
	if err := checkKeys(path, v, "weak", "strong", "weak_constrained", "strong_constrained", "noarch"); err != nil {
		return re, err
	}
	lists := []struct {
		key string
		dst *[]Dependency
	}{
		{"weak", &re.Weak},
		{"strong", &re.Strong},
		{"weak_constrained", &re.WeakConstrained},
		{"strong_constrained", &re.StrongConstrained},
		{"noarch", &re.Noarch},
	}
	for _, l := range lists {
		deps, err := dependencies(tree.JoinPath(path, l.key), v.Get(l.key), nil)
		if err != nil {
			return re, err
		}
		*l.dst = deps
	}
	return re, nil
}

// dependencies parses a dependency list. Null and empty entries, which
// come from templates rendering to nothing, are dropped. With a
// combination, entries are pinned to its values.
func dependencies(path string, v *tree.Value, combo *variant.Combination) ([]Dependency, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind != tree.KindSequence {
		return nil, fieldError(path, v, ErrInvalidField, "dependencies must be a list")
	}
	out := make([]Dependency, 0, len(v.Items))
	for i, it := range v.Items {
		itemPath := tree.IndexPath(path, i)
		switch {
		case it.IsNull():
			continue
		case it.Kind == tree.KindMapping:
			pin, ok := expr.PinFromTree(it)
			if !ok {
				return nil, fieldError(itemPath, it, ErrInvalidField, "dependency must be a string or a pin")
			}
			out = append(out, Dependency{Spec: matchspec.MatchSpec{Name: pin.Name}, Pin: &pin})
			continue
		case it.Kind != tree.KindString:
			return nil, fieldError(itemPath, it, ErrInvalidField, "dependency must be a string, got %s", it.Kind)
		}
		text := strings.TrimSpace(it.Scalar)
		if text == "" {
			continue
		}
		spec, err := matchspec.Parse(text)
		if err != nil {
			return nil, tree.WrapNode(itemPath, it, err)
		}
		if combo != nil {
			if spec, err = variant.Pin(spec, *combo); err != nil {
				return nil, tree.WrapNode(itemPath, it, err)
			}
		}
		out = append(out, Dependency{Spec: spec})
	}
	return out, nil
}

// decodeSection decodes a free-form section into out, rejecting unknown
// keys.
func decodeSection(key string, v *tree.Value, out any) error {
	if v.IsNull() {
		return nil
	}
	if v.Kind != tree.KindMapping {
		return fieldError(key, v, ErrInvalidField, "%s must be a mapping", key)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		Result:           out,
	})
	if err != nil {
		return rerrors.Wrap(rerrors.ErrCodeInternal, "failed to create decoder", err)
	}
	if err := dec.Decode(v.ToAny()); err != nil {
		return tree.WrapNode(key, v, rerrors.Wrap(rerrors.ErrCodeRecipeParse,
			"invalid recipe", fmt.Errorf("%w: %s: %w", ErrInvalidField, key, err)))
	}
	return nil
}

func checkKeys(path string, v *tree.Value, allowed ...string) error {
	if v.Kind != tree.KindMapping {
		return fieldError(path, v, ErrInvalidField, "expected a mapping, got %s", v.Kind)
	}
	for _, e := range v.Entries {
		if !slices.Contains(allowed, e.Key) {
			return fieldError(tree.JoinPath(path, e.Key), e.Value, ErrUnknownField, "%s", e.Key)
		}
	}
	return nil
}

func scalar(path string, v *tree.Value) (string, error) {
	switch {
	case v.IsNull():
		return "", nil
	case v.IsScalar():
		return v.Scalar, nil
	default:
		return "", fieldError(path, v, ErrInvalidField, "expected a scalar, got %s", v.Kind)
	}
}

func stringList(path string, v *tree.Value) ([]string, error) {
	switch {
	case v.IsNull():
		return nil, nil
	case v.IsScalar():
		return []string{v.Scalar}, nil
	case v.Kind != tree.KindSequence:
		return nil, fieldError(path, v, ErrInvalidField, "expected a list, got %s", v.Kind)
	}
	out := make([]string, 0, len(v.Items))
	for i, it := range v.Items {
		if it.IsNull() {
			continue
		}
		if !it.IsScalar() {
			return nil, fieldError(tree.IndexPath(path, i), it, ErrInvalidField, "expected a scalar, got %s", it.Kind)
		}
		out = append(out, it.Scalar)
	}
	return out, nil
}

func integer(path string, v *tree.Value, def int) (int, error) {
	if v.IsNull() {
		return def, nil
	}
	if v.IsScalar() {
		if n, err := strconv.Atoi(strings.TrimSpace(v.Scalar)); err == nil {
			return n, nil
		}
	}
	return 0, fieldError(path, v, ErrInvalidField, "expected an integer")
}

func boolean(path string, v *tree.Value, def bool) (bool, error) {
	if v.IsNull() {
		return def, nil
	}
	if b, ok := v.Truthy(); ok && v.IsScalar() {
		return b, nil
	}
	return false, fieldError(path, v, ErrInvalidField, "expected a boolean")
}

// orParent returns v, or parent when v is absent, so errors point at
// the closest existing node.
func orParent(v, parent *tree.Value) *tree.Value {
	if v == nil {
		return parent
	}
	return v
}

func fieldError(path string, node *tree.Value, cause error, format string, args ...any) error {
	return tree.WrapNode(path, node, rerrors.Wrap(rerrors.ErrCodeRecipeParse, "invalid recipe",
		fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...))))
}
