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
	"errors"
	"fmt"
	"slices"

	"github.com/BenjaminLowry/rattler-build/pkg/defaults"
	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Error types for matrix expansion
var (
	ErrZipLength       = errors.New("zipped keys have different numbers of values")
	ErrTooManyVariants = errors.New("too many variant combinations")
)

// References lists the names a recipe mentions that may select variant
// keys.
type References struct {
	// Variables are template and selector variables, including those
	// reached through the context section and keys read by helpers, e.g.
	// c_compiler for compiler('c').
	Variables []string
	// Dependencies are names of dependencies declared without a version
	// or build constraint.
	Dependencies []string
}

// UsedKeys returns the configured keys the recipe references, sorted.
func UsedKeys(refs References, cfg *Config) []string {
	var used []string
	for _, names := range [][]string{refs.Variables, refs.Dependencies} {
		for _, n := range names {
			if _, ok := cfg.Values(n); ok && !slices.Contains(used, n) {
				used = append(used, n)
			}
		}
	}
	slices.Sort(used)
	return used
}

// dimension is one independently varying axis of the matrix: a single
// key, or a zip group moving positionally.
type dimension struct {
	keys   []string
	values [][]string
	size   int
}

// Expand returns the combinations of the used keys in the configuration's
// declaration order, the last declared key varying fastest. Used keys that
// are not configured or have no values are ignored. Without used keys the result is a single
// empty combination.
func Expand(used []string, cfg *Config) ([]Combination, error) {
	dims, err := dimensions(used, cfg)
	if err != nil {
		return nil, err
	}

	total := 1
	for _, d := range dims {
		total *= d.size
		if total > defaults.MaxCombinations {
			return nil, rerrors.WrapWithContext(rerrors.ErrCodeInvalidRequest, "variant matrix too large",
				ErrTooManyVariants, map[string]any{"limit": defaults.MaxCombinations})
		}
	}

	order := cfg.Keys()
	out := make([]Combination, 0, total)
	idx := make([]int, len(dims))
	for range total {
		var pairs []Pair
		for i, d := range dims {
			for j, k := range d.keys {
				pairs = append(pairs, Pair{Key: k, Value: d.values[j][idx[i]]})
			}
		}
		slices.SortStableFunc(pairs, func(a, b Pair) int {
			return slices.Index(order, a.Key) - slices.Index(order, b.Key)
		})
		out = append(out, Combination{pairs: pairs})

		for i := len(dims) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < dims[i].size {
				break
			}
			idx[i] = 0
		}
	}
	return out, nil
}

func dimensions(used []string, cfg *Config) ([]dimension, error) {
	var dims []dimension
	done := map[string]bool{}
	for _, key := range cfg.Keys() {
		if done[key] || !slices.Contains(used, key) {
			continue
		}
		group := cfg.zipGroup(key)
		if group == nil {
			values, _ := cfg.Values(key)
			done[key] = true
			if len(values) > 0 {
				dims = append(dims, dimension{keys: []string{key}, values: [][]string{values}, size: len(values)})
			}
			continue
		}
		d, err := zipDimension(group, used, cfg)
		if err != nil {
			return nil, err
		}
		for _, k := range group {
			done[k] = true
		}
		if d.size > 0 && len(d.keys) > 0 {
			dims = append(dims, d)
		}
	}
	return dims, nil
}

// zipDimension builds the axis of a zip group. Lengths are checked across
// every configured member; only used members are assigned.
func zipDimension(group, used []string, cfg *Config) (dimension, error) {
	d := dimension{size: -1}
	lengths := map[string]any{}
	mismatch := false
	for _, k := range cfg.Keys() {
		if !slices.Contains(group, k) {
			continue
		}
		values, _ := cfg.Values(k)
		lengths[k] = len(values)
		if d.size >= 0 && len(values) != d.size {
			mismatch = true
		}
		if d.size < 0 {
			d.size = len(values)
		}
		if slices.Contains(used, k) {
			d.keys = append(d.keys, k)
			d.values = append(d.values, values)
		}
	}
	if mismatch {
		return dimension{}, rerrors.WrapWithContext(rerrors.ErrCodeZipLengthMismatch,
			"cannot zip variant keys", fmt.Errorf("%w: %v", ErrZipLength, group), lengths)
	}
	return d, nil
}
