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
	"bytes"
	"crypto/sha1" //nolint:gosec // content hash for build strings, not security
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// hashLength is the number of hex digits kept from a combination hash.
const hashLength = 7

// Pair is one key assignment of a Combination.
type Pair struct {
	Key   string
	Value string
}

// Combination is one concrete assignment of values to the used variant
// keys, ordered as the keys are declared in the configuration.
type Combination struct {
	pairs []Pair
}

// NewCombination builds a combination from pairs in the given order.
func NewCombination(pairs ...Pair) Combination {
	return Combination{pairs: slices.Clone(pairs)}
}

// Pairs returns the assignments in order.
func (c Combination) Pairs() []Pair {
	return slices.Clone(c.pairs)
}

// Len returns the number of assigned keys.
func (c Combination) Len() int { return len(c.pairs) }

// Get returns the value assigned to key.
func (c Combination) Get(key string) (string, bool) {
	for _, p := range c.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Keys returns the assigned keys in order.
func (c Combination) Keys() []string {
	keys := make([]string, 0, len(c.pairs))
	for _, p := range c.pairs {
		keys = append(keys, p.Key)
	}
	return keys
}

// Vars returns the assignments as template variables.
func (c Combination) Vars() map[string]any {
	m := make(map[string]any, len(c.pairs))
	for _, p := range c.pairs {
		m[p.Key] = p.Value
	}
	return m
}

// Hash returns a short stable digest of the assignments. Key order does
// not affect the result.
func (c Combination) Hash() string {
	sorted := slices.Clone(c.pairs)
	slices.SortFunc(sorted, func(a, b Pair) int { return strings.Compare(a.Key, b.Key) })

	var buf bytes.Buffer
	for _, p := range sorted {
		buf.WriteString(p.Key)
		buf.WriteByte('=')
		buf.WriteString(p.Value)
		buf.WriteByte('\n')
	}
	sum := sha1.Sum(buf.Bytes()) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])[:hashLength]
}

// String returns "k1=v1, k2=v2", or "(none)" for the empty combination.
func (c Combination) String() string {
	if len(c.pairs) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(c.pairs))
	for _, p := range c.pairs {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON encodes the combination as an object in key order.
func (c Combination) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range c.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the combination as a mapping in key order.
func (c Combination) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range c.pairs {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	return n, nil
}
