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

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

// ZipKeysKey is the reserved configuration key holding zip groups.
const ZipKeysKey = "zip_keys"

// ErrInvalidConfig is returned for a variant configuration with the wrong shape.
var ErrInvalidConfig = errors.New("invalid variant config")

// Config holds candidate values per key in declaration order. A Config is
// not modified after it is built and may be shared between goroutines.
type Config struct {
	keys    []string
	values  map[string][]string
	zipKeys [][]string
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{values: map[string][]string{}}
}

// Set declares key with its candidate values, replacing any previous
// values while keeping the key's original position.
func (c *Config) Set(key string, values ...string) *Config {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = slices.Clone(values)
	return c
}

// Zip adds a zip group.
func (c *Config) Zip(keys ...string) *Config {
	c.zipKeys = append(c.zipKeys, slices.Clone(keys))
	return c
}

// Keys returns the configured keys in declaration order.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.keys)
}

// Values returns the candidates of key.
func (c *Config) Values(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return slices.Clone(v), ok
}

// ZipKeys returns the zip groups.
func (c *Config) ZipKeys() [][]string {
	if c == nil {
		return nil
	}
	out := make([][]string, 0, len(c.zipKeys))
	for _, g := range c.zipKeys {
		out = append(out, slices.Clone(g))
	}
	return out
}

// Len returns the number of configured keys.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Merge returns a new Config where keys of other replace keys of c.
// Zip groups of other replace those of c when other declares any.
func (c *Config) Merge(other *Config) *Config {
	out := NewConfig()
	for _, src := range []*Config{c, other} {
		if src == nil {
			continue
		}
		for _, k := range src.keys {
			out.Set(k, src.values[k]...)
		}
		if len(src.zipKeys) > 0 {
			out.zipKeys = src.ZipKeys()
		}
	}
	return out
}

// zipGroup returns the zip group containing key, or nil.
func (c *Config) zipGroup(key string) []string {
	for _, g := range c.zipKeys {
		if slices.Contains(g, key) {
			return g
		}
	}
	return nil
}

// ParseConfig decodes a YAML variant configuration. Scalar values become
// one-element candidate lists; numbers keep their source text so "3.10"
// stays distinct from "3.1".
func ParseConfig(data []byte) (*Config, error) {
	doc, err := tree.Parse(data)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig()
	if doc.IsNull() {
		return cfg, nil
	}
	if doc.Kind != tree.KindMapping {
		return nil, configError("", doc, "variant config must be a mapping, got %s", doc.Kind)
	}
	for _, e := range doc.Entries {
		if e.Key == ZipKeysKey {
			if err := cfg.parseZipKeys(e.Value); err != nil {
				return nil, err
			}
			continue
		}
		values, err := candidates(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		cfg.Set(e.Key, values...)
	}
	return cfg, nil
}

func candidates(key string, v *tree.Value) ([]string, error) {
	switch {
	case v.IsNull():
		return nil, nil
	case v.IsScalar():
		return []string{v.Scalar}, nil
	case v.Kind == tree.KindSequence:
		out := make([]string, 0, len(v.Items))
		for i, it := range v.Items {
			if !it.IsScalar() {
				return nil, configError(tree.IndexPath(key, i), it, "variant value must be a scalar, got %s", it.Kind)
			}
			out = append(out, it.Scalar)
		}
		return out, nil
	default:
		return nil, configError(key, v, "variant values must be a scalar or a list, got %s", v.Kind)
	}
}

func (c *Config) parseZipKeys(v *tree.Value) error {
	if v.IsNull() {
		return nil
	}
	if v.Kind != tree.KindSequence {
		return configError(ZipKeysKey, v, "zip_keys must be a list of key lists")
	}
	seen := map[string]bool{}
	for i, g := range v.Items {
		path := tree.IndexPath(ZipKeysKey, i)
		if g.Kind != tree.KindSequence || len(g.Items) < 2 {
			return configError(path, g, "zip group must list at least two keys")
		}
		group := make([]string, 0, len(g.Items))
		for _, k := range g.Items {
			if k.Kind != tree.KindString {
				return configError(path, k, "zip key must be a string")
			}
			if seen[k.Scalar] {
				return configError(path, k, "key %q appears in more than one zip group", k.Scalar)
			}
			seen[k.Scalar] = true
			group = append(group, k.Scalar)
		}
		c.zipKeys = append(c.zipKeys, group)
	}
	return nil
}

func configError(path string, node *tree.Value, format string, args ...any) error {
	return tree.WrapNode(path, node, rerrors.Wrap(rerrors.ErrCodeInvalidRequest,
		"invalid variant config", fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)))
}
