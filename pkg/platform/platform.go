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

// Package platform describes the build, host and target platforms a recipe
// is rendered for.
package platform

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
)

// Platform is a conda subdir such as "linux-64" or "osx-arm64".
type Platform string

const (
	NoArch       Platform = "noarch"
	Linux64      Platform = "linux-64"
	Linux32      Platform = "linux-32"
	LinuxAarch64 Platform = "linux-aarch64"
	LinuxArmV7l  Platform = "linux-armv7l"
	LinuxPpc64le Platform = "linux-ppc64le"
	LinuxS390x   Platform = "linux-s390x"
	Osx64        Platform = "osx-64"
	OsxArm64     Platform = "osx-arm64"
	Win64        Platform = "win-64"
	Win32        Platform = "win-32"
	WinArm64     Platform = "win-arm64"
)

type facts struct {
	os   string
	arch string
}

var known = map[Platform]facts{
	NoArch:       {},
	Linux64:      {os: "linux", arch: "x86_64"},
	Linux32:      {os: "linux", arch: "x86"},
	LinuxAarch64: {os: "linux", arch: "aarch64"},
	LinuxArmV7l:  {os: "linux", arch: "armv7l"},
	LinuxPpc64le: {os: "linux", arch: "ppc64le"},
	LinuxS390x:   {os: "linux", arch: "s390x"},
	Osx64:        {os: "osx", arch: "x86_64"},
	OsxArm64:     {os: "osx", arch: "arm64"},
	Win64:        {os: "win", arch: "x86_64"},
	Win32:        {os: "win", arch: "x86"},
	WinArm64:     {os: "win", arch: "arm64"},
}

// OperatingSystems lists every OS selector name.
var OperatingSystems = []string{"linux", "osx", "win"}

// Architectures lists every architecture selector name.
var Architectures = []string{"aarch64", "arm64", "armv7l", "ppc64le", "s390x", "x86", "x86_64"}

// Parse validates a platform string.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := known[p]; !ok {
		return "", rerrors.NewWithContext(rerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown platform %q", s), map[string]any{"supported": Supported()})
	}
	return p, nil
}

// Supported returns all known platforms sorted alphabetically.
func Supported() []string {
	out := make([]string, 0, len(known))
	for p := range known {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// OS returns the operating system family ("linux", "osx", "win") or empty for noarch.
func (p Platform) OS() string { return known[p].os }

// Arch returns the architecture name used in selectors.
func (p Platform) Arch() string { return known[p].arch }

// IsUnix reports whether the platform is linux or osx.
func (p Platform) IsUnix() bool { return p.OS() == "linux" || p.OS() == "osx" }

// IsWindows reports whether the platform is a Windows subdir.
func (p Platform) IsWindows() bool { return p.OS() == "win" }

func (p Platform) String() string { return string(p) }

// Current returns the platform of the running process.
func Current() Platform {
	os := runtime.GOOS
	if os == "darwin" {
		os = "osx"
	} else if os == "windows" {
		os = "win"
	}
	arch := "64"
	switch runtime.GOARCH {
	case "arm64":
		if os == "linux" {
			arch = "aarch64"
		} else {
			arch = "arm64"
		}
	case "386":
		arch = "32"
	case "ppc64le", "s390x":
		arch = runtime.GOARCH
	}
	p := Platform(os + "-" + arch)
	if _, ok := known[p]; !ok {
		return Linux64
	}
	return p
}

// Targets holds the platforms for the three roles of a build.
type Targets struct {
	Build  Platform `json:"build_platform" yaml:"build_platform"`
	Host   Platform `json:"host_platform" yaml:"host_platform"`
	Target Platform `json:"target_platform" yaml:"target_platform"`
}

// NewTargets builds Targets for a target platform; the build platform is the
// running platform and the host platform follows the target.
func NewTargets(target Platform) Targets {
	return Targets{Build: Current(), Host: target, Target: target}
}

// Variables returns the platform facts exposed to templates and selectors.
// OS and architecture flags describe the target platform and every known
// flag is present so that a misspelt one can be told apart from a false one.
func (t Targets) Variables() map[string]any {
	vars := map[string]any{
		"target_platform": string(t.Target),
		"build_platform":  string(t.Build),
		"host_platform":   string(t.Host),
		"unix":            t.Target.IsUnix(),
	}
	for _, os := range OperatingSystems {
		vars[os] = t.Target.OS() == os
	}
	for _, arch := range Architectures {
		vars[arch] = t.Target.Arch() == arch
	}
	return vars
}
