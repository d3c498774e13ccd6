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

package matchspec

import (
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// Candidate is a concrete package record tested against a MatchSpec.
type Candidate struct {
	Name        string
	Version     version.Version
	Build       string
	BuildNumber int
	Channel     string
	Subdir      string
	MD5         string
	SHA256      string
}

// Satisfies reports whether c meets every restriction of spec.
func Satisfies(spec MatchSpec, c Candidate) bool {
	if strings.ToLower(c.Name) != spec.Name {
		return false
	}
	if spec.Version != nil {
		if c.Version.IsZero() || !spec.Version.Matches(c.Version) {
			return false
		}
	}
	if spec.Build != "" && !spec.buildGlob().Match(c.Build) {
		return false
	}
	if spec.BuildNumber != nil {
		n, err := version.Parse(strconv.Itoa(c.BuildNumber))
		if err != nil || !spec.BuildNumber.Matches(n) {
			return false
		}
	}
	if spec.Channel != "" && !channelMatches(spec.Channel, c.Channel) {
		return false
	}
	if spec.Subdir != "" && spec.Subdir != strings.ToLower(c.Subdir) {
		return false
	}
	if spec.MD5 != "" && !strings.EqualFold(spec.MD5, c.MD5) {
		return false
	}
	if spec.SHA256 != "" && !strings.EqualFold(spec.SHA256, c.SHA256) {
		return false
	}
	return true
}

func (m MatchSpec) buildGlob() glob.Glob {
	if m.build != nil {
		return m.build
	}
	g, err := glob.Compile(m.Build)
	if err != nil {
		return glob.MustCompile(glob.QuoteMeta(m.Build))
	}
	return g
}

// channelMatches accepts a bare channel name against either the same name or
// a channel URL ending in it.
func channelMatches(want, have string) bool {
	want = strings.TrimSuffix(want, "/")
	have = strings.TrimSuffix(have, "/")
	return strings.EqualFold(want, have) ||
		strings.HasSuffix(strings.ToLower(have), "/"+strings.ToLower(want))
}
