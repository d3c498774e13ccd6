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
	"slices"

	"github.com/BenjaminLowry/rattler-build/pkg/expr"
	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/selector"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
	"github.com/BenjaminLowry/rattler-build/pkg/variant"
)

var dependencySections = []string{"build", "host", "run", "run_constrained"}

// references collects the names in an unrendered recipe that can select
// variant keys: template and selector variables anywhere in the document,
// including both branches of every conditional and the context section,
// and the names of unconstrained dependencies.
func references(root *tree.Value) (variant.References, error) {
	var refs variant.References
	add := func(dst *[]string, names ...string) {
		for _, n := range names {
			if !slices.Contains(*dst, n) {
				*dst = append(*dst, n)
			}
		}
	}

	err := root.Walk(func(path string, n *tree.Value) error {
		switch {
		case selector.IsConditional(n):
			if cond := n.Get("if"); cond.Kind == tree.KindString && !expr.IsTemplate(cond.Scalar) {
				names, err := selector.Variables(cond.Scalar)
				if err != nil {
					return tree.WrapNode(tree.JoinPath(path, "if"), cond, err)
				}
				add(&refs.Variables, names...)
			}
		case n.Kind == tree.KindString && expr.IsTemplate(n.Scalar):
			names, err := expr.Variables(n.Scalar)
			if err != nil {
				return tree.WrapNode(path, n, err)
			}
			add(&refs.Variables, names...)
		}
		return nil
	})
	if err != nil {
		return refs, err
	}

	names, err := skipVariables(root.Get("build").Get("skip"))
	if err != nil {
		return refs, err
	}
	add(&refs.Variables, names...)

	req := root.Get("requirements")
	for _, key := range dependencySections {
		add(&refs.Dependencies, unconstrained(req.Get(key))...)
	}
	slices.Sort(refs.Variables)
	slices.Sort(refs.Dependencies)
	return refs, nil
}

// skipVariables returns the variables of plain selector strings in
// build.skip, which are evaluated as selectors after rendering.
func skipVariables(v *tree.Value) ([]string, error) {
	var out []string
	err := v.Walk(func(path string, n *tree.Value) error {
		if n.Kind != tree.KindString || expr.IsTemplate(n.Scalar) {
			return nil
		}
		names, err := selector.Variables(n.Scalar)
		if err != nil {
			return tree.WrapNode(subPath("build.skip", path), n, err)
		}
		out = append(out, names...)
		return nil
	})
	return out, err
}

// unconstrained returns the names of plain dependency strings without a
// version or build constraint, looking into both branches of
// conditionals. Entries that fail to parse are left for assembly to report.
func unconstrained(v *tree.Value) []string {
	var out []string
	switch {
	case v == nil:
	case selector.IsConditional(v):
		out = append(out, unconstrained(v.Get("then"))...)
		out = append(out, unconstrained(v.Get("else"))...)
	case v.Kind == tree.KindSequence:
		for _, it := range v.Items {
			out = append(out, unconstrained(it)...)
		}
	case v.Kind == tree.KindString && !expr.IsTemplate(v.Scalar):
		spec, err := matchspec.Parse(v.Scalar)
		if err == nil && !spec.HasConstraint() {
			out = append(out, spec.Name)
		}
	}
	return out
}

// subPath joins a path relative to a subtree onto the subtree's path.
func subPath(base, rel string) string {
	if rel == "" || rel[0] == '[' {
		return base + rel
	}
	return tree.JoinPath(base, rel)
}
