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

package version

import (
	"testing"
)

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"1.2.3", "0", "1.0a1", "1.0rc1", "1.0.post1", "1.0.dev0",
		"2!1.0", "1.0+cuda.12", "1_2-3", "1.*", "",
		".", "..", "1.", ".1", "1..2", "!1", "1!", "1+", "1++2",
		"   1.2.3", "1.2.3   ", "1. 2.3", "1.2$", "999999999999999999999.1",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// Parse should never panic
		v, err := Parse(input)
		if err != nil {
			return
		}

		if v.IsZero() {
			t.Errorf("Parse(%q) returned zero version", input)
		}

		// Re-parsing the string should produce an equal version
		v2, err := Parse(v.String())
		if err != nil {
			t.Fatalf("re-parsing %q (from %q) failed: %v", v.String(), input, err)
		}
		if v.Compare(v2) != 0 {
			t.Errorf("round-trip mismatch for %q: %s != %s", input, v, v2)
		}

		// Ordering must be antisymmetric
		other := MustParse("1.2.3")
		if v.Compare(other) != -other.Compare(v) {
			t.Errorf("Compare(%q, 1.2.3) is not antisymmetric", input)
		}

		// Derived helpers should not panic
		_ = v.SegmentCount()
		_ = v.Truncate(2)
		_, _ = v.Bump(1)
		if !v.StartsWith(v) {
			t.Errorf("%q does not start with itself", input)
		}
		_ = v.StartsWith(other)
	})
}

func FuzzCompareAntisymmetric(f *testing.F) {
	f.Add("1.0", "1.0.1")
	f.Add("1.0a1", "1.0")
	f.Add("1!1", "2")
	f.Add("1.0+a", "1.0+b")

	f.Fuzz(func(t *testing.T, a, b string) {
		va, errA := Parse(a)
		vb, errB := Parse(b)
		if errA != nil || errB != nil {
			return
		}
		if va.Compare(vb) != -vb.Compare(va) {
			t.Errorf("Compare(%q, %q) is not antisymmetric", a, b)
		}
	})
}

func FuzzParseConstraint(f *testing.F) {
	for _, seed := range []string{
		">=1.0,<2", "1.2.*", "==1.0|>2", "!=1.*", "~=1.4.2", "1.0",
		"", ">", ">=", "<<1", "1.0,", "|1", ">=1.0 , < 2", "(1.0)",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		c, err := ParseConstraint(input)
		if err != nil {
			return
		}
		_ = c.String()
		_ = c.Matches(MustParse("1.2.3"))
	})
}
