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
	"strings"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// ErrConflict is returned when a variant value violates an explicit
// dependency constraint.
var ErrConflict = errors.New("variant value violates dependency constraint")

// Pin applies combo to dep. A dependency without a version or build
// constraint whose name is a combination key takes the key's value as its
// constraint; other dependencies are returned unchanged, after checking
// that the key's value (when it is a plain version) satisfies the
// declared version constraint.
func Pin(dep matchspec.MatchSpec, combo Combination) (matchspec.MatchSpec, error) {
	value, ok := combo.Get(dep.Name)
	if !ok || strings.TrimSpace(value) == "" {
		return dep, nil
	}
	if dep.HasConstraint() {
		return dep, checkConflict(dep, value)
	}

	pinned, err := matchspec.Parse(dep.Name + " " + pinText(value))
	if err != nil {
		return dep, rerrors.WrapWithContext(rerrors.ErrCodeVariantConflict,
			"cannot pin dependency to variant value", err,
			map[string]any{"dependency": dep.String(), "value": value})
	}
	pinned.Channel = dep.Channel
	pinned.Subdir = dep.Subdir
	pinned.BuildNumber = dep.BuildNumber
	pinned.MD5 = dep.MD5
	pinned.SHA256 = dep.SHA256
	return pinned, nil
}

// pinText turns a variant value into the positional part of a spec. A
// value may carry a build string after the version ("3.11 *_cpython").
func pinText(value string) string {
	value = strings.TrimSpace(value)
	if strings.ContainsAny(value, "<>=!~,|") {
		return value
	}
	fields := strings.Fields(value)
	fields[0] = version.AsConstraint(fields[0])
	return strings.Join(fields, " ")
}

func checkConflict(dep matchspec.MatchSpec, value string) error {
	if dep.Version == nil {
		return nil
	}
	v, err := version.Parse(strings.Fields(value)[0])
	if err != nil {
		// Not a plain version; nothing to compare against.
		return nil //nolint:nilerr
	}
	if dep.Version.Matches(v) {
		return nil
	}
	return rerrors.WrapWithContext(rerrors.ErrCodeVariantConflict,
		"variant value conflicts with dependency",
		fmt.Errorf("%w: %s does not satisfy %s", ErrConflict, value, dep.Version),
		map[string]any{"dependency": dep.String(), "value": value})
}
