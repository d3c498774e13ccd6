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
	"fmt"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

// ErrMalformedConditional is returned for an "if" node without "then" or
// with keys other than if/then/else.
var ErrMalformedConditional = errors.New("malformed conditional")

// IsConditional reports whether v is an if/then/else mapping.
func IsConditional(v *tree.Value) bool {
	return v != nil && v.Kind == tree.KindMapping && v.Get("if") != nil
}

// Prune returns a copy of v with every conditional replaced by its chosen
// branch. The input tree is left untouched. A conditional that selects
// nothing at the top level yields a null value.
func Prune(v *tree.Value, env Env) (*tree.Value, error) {
	out, keep, err := prune("", v, env)
	if err != nil {
		return nil, err
	}
	if !keep {
		return tree.Null().At(v.Loc), nil
	}
	return out, nil
}

// Conditions returns the selectors of every conditional in v, in document
// order. Selectors written as plain booleans are not included.
func Conditions(v *tree.Value) []string {
	var out []string
	_ = v.Walk(func(_ string, n *tree.Value) error {
		if IsConditional(n) {
			if c := n.Get("if"); c.Kind == tree.KindString {
				out = append(out, c.Scalar)
			}
		}
		return nil
	})
	return out
}

func prune(path string, v *tree.Value, env Env) (*tree.Value, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	if IsConditional(v) {
		branch, err := choose(path, v, env)
		if err != nil || branch == nil {
			return nil, false, err
		}
		return prune(path, branch, env)
	}
	switch v.Kind {
	case tree.KindMapping:
		out := &tree.Value{Kind: tree.KindMapping, Loc: v.Loc, Entries: make([]tree.Entry, 0, len(v.Entries))}
		for _, e := range v.Entries {
			child, keep, err := prune(tree.JoinPath(path, e.Key), e.Value, env)
			if err != nil {
				return nil, false, err
			}
			if keep {
				out.Entries = append(out.Entries, tree.Entry{Key: e.Key, Value: child})
			}
		}
		return out, true, nil
	case tree.KindSequence:
		out := &tree.Value{Kind: tree.KindSequence, Loc: v.Loc, Items: make([]*tree.Value, 0, len(v.Items))}
		for i, it := range v.Items {
			items, err := pruneItem(tree.IndexPath(path, i), it, env)
			if err != nil {
				return nil, false, err
			}
			out.Items = append(out.Items, items...)
		}
		return out, true, nil
	default:
		return v, true, nil
	}
}

// pruneItem prunes one sequence item, splicing a chosen list branch into
// the enclosing sequence.
func pruneItem(path string, it *tree.Value, env Env) ([]*tree.Value, error) {
	if !IsConditional(it) {
		child, keep, err := prune(path, it, env)
		if err != nil || !keep {
			return nil, err
		}
		return []*tree.Value{child}, nil
	}
	branch, err := choose(path, it, env)
	if err != nil || branch == nil {
		return nil, err
	}
	if branch.Kind != tree.KindSequence {
		return pruneItem(path, branch, env)
	}
	var out []*tree.Value
	for i, b := range branch.Items {
		items, err := pruneItem(tree.IndexPath(path, i), b, env)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// choose evaluates a conditional and returns its selected branch, or nil
// when the condition is false and there is no else.
func choose(path string, v *tree.Value, env Env) (*tree.Value, error) {
	for _, k := range v.Keys() {
		if k != "if" && k != "then" && k != "else" {
			return nil, tree.WrapNode(path, v, rerrors.Wrap(rerrors.ErrCodeSelector,
				"invalid conditional", fmt.Errorf("%w: unexpected key %q", ErrMalformedConditional, k)))
		}
	}
	then := v.Get("then")
	if then == nil {
		return nil, tree.WrapNode(path, v, rerrors.Wrap(rerrors.ErrCodeSelector,
			"invalid conditional", fmt.Errorf("%w: missing then", ErrMalformedConditional)))
	}
	cond := v.Get("if")
	ok, err := condition(cond, env)
	if err != nil {
		return nil, tree.WrapNode(tree.JoinPath(path, "if"), cond, err)
	}
	if ok {
		return then, nil
	}
	return v.Get("else"), nil
}

func condition(cond *tree.Value, env Env) (bool, error) {
	switch cond.Kind {
	case tree.KindString:
		return Evaluate(cond.Scalar, env)
	case tree.KindBool, tree.KindNumber, tree.KindNull:
		b, _ := cond.Truthy()
		return b, nil
	default:
		return false, rerrors.Wrap(rerrors.ErrCodeSelector, "invalid conditional",
			fmt.Errorf("%w: condition must be a scalar, got %s", ErrMalformedConditional, cond.Kind))
	}
}
