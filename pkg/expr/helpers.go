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
	"fmt"
	"regexp"
	"strings"

	"github.com/BenjaminLowry/rattler-build/pkg/platform"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

type helperFunc func(e *evaluator, args []Value, kwargs map[string]Value) (Value, error)

// helpers are the functions callable by name inside expressions. Populated
// in init because they evaluate through the evaluator that dispatches them.
var helpers map[string]helperFunc

func init() {
	helpers = map[string]helperFunc{
		"compiler":       helperCompiler,
		"stdlib":         helperStdlib,
		"cdt":            helperCDT,
		"pin_subpackage": helperPinSubpackage,
		"pin_compatible": helperPinCompatible,
		"match":          helperMatch,
	}
}

// Helper names for Pin.Helper.
const (
	PinSubpackage = "pin_subpackage"
	PinCompatible = "pin_compatible"
)

var defaultCompilers = map[string]map[string]string{
	"linux": {"c": "gcc", "cxx": "gxx", "fortran": "gfortran", "cuda": "cuda-nvcc"},
	"osx":   {"c": "clang", "cxx": "clangxx", "fortran": "gfortran"},
	"win":   {"c": "vs2019", "cxx": "vs2019", "fortran": "flang", "cuda": "cuda-nvcc"},
}

var defaultStdlibs = map[string]string{
	"linux": "sysroot",
	"osx":   "macosx_deployment_target",
	"win":   "vs",
}

// optional looks up name and reports false when it is undefined.
func (e *evaluator) optional(name string) (Value, bool, error) {
	v, err := e.lookup(name)
	if err != nil {
		if isUndefined(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, v.Kind() != KindNone, nil
}

func (e *evaluator) targetPlatform() (platform.Platform, error) {
	v, err := e.lookup("target_platform")
	if err != nil {
		return "", err
	}
	p, err := platform.Parse(v.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArgument, err)
	}
	return p, nil
}

func stringArg(args []Value, kwargs map[string]Value, i int, name, helper string) (string, error) {
	v, ok := arg(args, kwargs, i, name)
	if !ok || v.Kind() != KindString || v.String() == "" {
		return "", fmt.Errorf("%w: %s needs a %s string", ErrArgument, helper, name)
	}
	return v.String(), nil
}

// toolchain renders "<name>_<target_platform>[ <version constraint>]" where
// name and version come from the "<lang>_<kind>" and
// "<lang>_<kind>_version" variables.
func (e *evaluator) toolchain(lang, kind, fallback string) (Value, error) {
	target, err := e.targetPlatform()
	if err != nil {
		return nil, err
	}
	name := fallback
	if v, ok, err := e.optional(lang + "_" + kind); err != nil {
		return nil, err
	} else if ok {
		name = v.String()
	}
	out := name + "_" + target.String()
	if v, ok, err := e.optional(lang + "_" + kind + "_version"); err != nil {
		return nil, err
	} else if ok {
		out += " " + version.AsConstraint(v.String())
	}
	return StringValue(out), nil
}

func helperCompiler(e *evaluator, args []Value, kwargs map[string]Value) (Value, error) {
	lang, err := stringArg(args, kwargs, 0, "language", "compiler")
	if err != nil {
		return nil, err
	}
	target, err := e.targetPlatform()
	if err != nil {
		return nil, err
	}
	fallback, ok := defaultCompilers[target.OS()][lang]
	if !ok {
		fallback = lang
	}
	return e.toolchain(lang, "compiler", fallback)
}

func helperStdlib(e *evaluator, args []Value, kwargs map[string]Value) (Value, error) {
	lang, err := stringArg(args, kwargs, 0, "language", "stdlib")
	if err != nil {
		return nil, err
	}
	target, err := e.targetPlatform()
	if err != nil {
		return nil, err
	}
	fallback, ok := defaultStdlibs[target.OS()]
	if !ok {
		fallback = lang + "_stdlib"
	}
	return e.toolchain(lang, "stdlib", fallback)
}

// helperCDT names a core dependency tree package, e.g.
// "mesa-libgl-devel-cos7-x86_64".
func helperCDT(e *evaluator, args []Value, kwargs map[string]Value) (Value, error) {
	name, err := stringArg(args, kwargs, 0, "name", "cdt")
	if err != nil {
		return nil, err
	}
	target, err := e.targetPlatform()
	if err != nil {
		return nil, err
	}
	arch := target.Arch()
	if arch == "x86" {
		arch = "i686"
	}
	distro := "cos7"
	if v, ok, err := e.optional("cdt_name"); err != nil {
		return nil, err
	} else if ok {
		distro = v.String()
	}
	return StringValue(name + "-" + distro + "-" + arch), nil
}

func helperMatch(_ *evaluator, args []Value, kwargs map[string]Value) (Value, error) {
	v, ok := arg(args, kwargs, 0, "value")
	if !ok {
		return nil, fmt.Errorf("%w: match needs a value", ErrArgument)
	}
	spec, err := stringArg(args, kwargs, 1, "spec", "match")
	if err != nil {
		return nil, err
	}
	ver, err := version.Parse(v.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgument, err)
	}
	c, err := version.ParseConstraint(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgument, err)
	}
	return BoolValue(c.Matches(ver)), nil
}

func helperPinSubpackage(e *evaluator, args []Value, kwargs map[string]Value) (Value, error) {
	return e.pin(PinSubpackage, e.ctx.pins, args, kwargs)
}

func helperPinCompatible(e *evaluator, args []Value, kwargs map[string]Value) (Value, error) {
	return e.pin(PinCompatible, e.ctx.resolved, args, kwargs)
}

// Pin is a dependency bound derived from the version of another package.
// Bounds are either "x" patterns such as "x.x" or explicit versions; an
// empty bound means none.
type Pin struct {
	Helper     string
	Name       string
	LowerBound string
	UpperBound string
	Exact      bool
}

const (
	defaultLowerBound = "x.x.x.x.x.x"
	defaultUpperBound = "x"
)

var boundPattern = regexp.MustCompile(`^x(\.x)*$`)

func (e *evaluator) pin(helper string, known map[string]string, args []Value, kwargs map[string]Value) (Value, error) {
	name, err := stringArg(args, kwargs, 0, "name", helper)
	if err != nil {
		return nil, err
	}
	p := Pin{Helper: helper, Name: strings.ToLower(name), LowerBound: defaultLowerBound, UpperBound: defaultUpperBound}
	for _, key := range []string{"lower_bound", "min_pin"} {
		if v, ok := kwargs[key]; ok {
			p.LowerBound = v.String()
		}
	}
	for _, key := range []string{"upper_bound", "max_pin"} {
		if v, ok := kwargs[key]; ok {
			p.UpperBound = v.String()
		}
	}
	if v, ok := kwargs["exact"]; ok {
		p.Exact = v.Truth()
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	ver, ok := known[p.Name]
	if !ok {
		return PinValue{Pin: p}, nil
	}
	v, err := version.Parse(ver)
	if err != nil {
		return nil, fmt.Errorf("%w: %s version: %v", ErrArgument, p.Name, err)
	}
	spec, err := p.Apply(v)
	if err != nil {
		return nil, err
	}
	return StringValue(spec), nil
}

func (p Pin) validate() error {
	for _, b := range []string{p.LowerBound, p.UpperBound} {
		if b == "" || boundPattern.MatchString(b) {
			continue
		}
		if _, err := version.Parse(b); err != nil {
			return fmt.Errorf("%w: %s bound %q is neither an x pattern nor a version", ErrArgument, p.Helper, b)
		}
	}
	return nil
}

// Apply renders the pin as dependency text for the resolved version v,
// e.g. "foo >=1.2.3,<2.0a0".
func (p Pin) Apply(v version.Version) (string, error) {
	if p.Exact {
		return p.Name + " ==" + v.String(), nil
	}
	var parts []string
	switch {
	case p.LowerBound == "":
	case boundPattern.MatchString(p.LowerBound):
		parts = append(parts, ">="+v.Truncate(strings.Count(p.LowerBound, "x")))
	default:
		parts = append(parts, ">="+p.LowerBound)
	}
	switch {
	case p.UpperBound == "":
	case boundPattern.MatchString(p.UpperBound):
		bumped, err := v.Bump(strings.Count(p.UpperBound, "x"))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrArgument, err)
		}
		parts = append(parts, "<"+bumped+".0a0")
	default:
		parts = append(parts, "<"+p.UpperBound)
	}
	if len(parts) == 0 {
		return p.Name, nil
	}
	return p.Name + " " + strings.Join(parts, ","), nil
}

func (p Pin) args() map[string]any {
	m := map[string]any{"name": p.Name, "exact": p.Exact}
	if p.LowerBound != "" {
		m["lower_bound"] = p.LowerBound
	} else {
		m["lower_bound"] = nil
	}
	if p.UpperBound != "" {
		m["upper_bound"] = p.UpperBound
	} else {
		m["upper_bound"] = nil
	}
	return m
}

func (p Pin) toAny() any {
	return map[string]any{p.Helper: p.args()}
}

func (p Pin) toTree(loc tree.Location) *tree.Value {
	return ToTree(FromAny(p.toAny()), loc)
}

// PinFromTree recognizes the mapping a deferred pin renders to.
func PinFromTree(n *tree.Value) (Pin, bool) {
	if n == nil || n.Kind != tree.KindMapping || len(n.Entries) != 1 {
		return Pin{}, false
	}
	helper := n.Entries[0].Key
	if helper != PinSubpackage && helper != PinCompatible {
		return Pin{}, false
	}
	body := n.Entries[0].Value
	name := body.Get("name")
	if name == nil || !name.IsScalar() {
		return Pin{}, false
	}
	p := Pin{Helper: helper, Name: name.Scalar}
	if lb := body.Get("lower_bound"); lb.IsScalar() {
		p.LowerBound = lb.Scalar
	}
	if ub := body.Get("upper_bound"); ub.IsScalar() {
		p.UpperBound = ub.Scalar
	}
	if ex, ok := body.Get("exact").Truthy(); ok {
		p.Exact = ex
	}
	return p, true
}
