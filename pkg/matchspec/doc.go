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

// Package matchspec parses dependency specifications and tests candidate
// packages against them.
//
// Supported forms:
//
//	numpy
//	numpy >=1.21,<2
//	numpy >= 1.21 , < 2
//	python 3.11.* *_cpython
//	conda-forge::numpy
//	conda-forge/linux-64::numpy 1.26.*
//	numpy[version='>=1.21', build='py3*', build_number='>=2']
//
// Names are lower-cased and must start with a letter, digit or underscore.
// Build strings are glob patterns. Parsed specs are immutable and cached in a
// process-wide LRU keyed by the input text, so repeated parsing of the same
// dependency line is cheap.
//
// Satisfies is pure: it only looks at the spec and the candidate.
package matchspec
