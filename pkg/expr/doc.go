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

// Package expr renders the "${{ ... }}" templates embedded in recipe text.
//
// # Templates
//
// A template is literal text with embedded expressions. When the whole
// string is a single expression the result keeps its type, so
// "${{ build_number }}" yields an integer and "${{ pin_subpackage('foo') }}"
// a pin; otherwise every part is converted to text and concatenated:
//
//	ctx := expr.NewContext(map[string]any{"name": "xtensor", "version": "0.24.6"})
//	s, err := expr.RenderString("${{ name }}-${{ version | replace('.', '_') }}", ctx)
//	// s == "xtensor-0_24_6"
//
// # Expressions
//
// The expression language is a small Jinja subset: literals (strings,
// integers, floats, true/false, none, lists, dicts), variables, attribute
// and index access, slicing, "~" concatenation, arithmetic, comparisons,
// "in" and "not in", "not", "and", "or", inline "a if cond else b", filters
// ("x | lower") and method calls ("x.split('.')"). Expressions are parsed
// into a closed set of Node types before evaluation.
//
// Filters: lower, upper, title, trim, replace, split, join, default, length,
// first, last, int, string and version_to_buildstring.
//
// Helpers: compiler, stdlib, cdt, pin_subpackage, pin_compatible and match.
// A pin whose package version is unknown evaluates to a PinValue that
// renders to a {pin_subpackage: {...}} mapping for later resolution.
//
// # Context
//
// A Context is immutable. Entries of a recipe "context:" section may refer
// to each other in any order; they are rendered on lookup and a chain that
// leads back to itself fails with ErrCycle.
//
// Every error returned by the exported functions carries the RENDER code
// and wraps one of the package's sentinel errors.
package expr
