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

// Package defaults provides centralized configuration constants for the renderer.
//
// This package defines worker counts, cache sizes, limits and timeouts used
// across the codebase. Centralizing these values keeps the library and the
// CLI consistent.
//
// # Categories
//
//   - Rendering: worker pool size and the per-invocation timeout
//   - Caching: parse cache capacities
//   - Limits: guards against runaway variant matrices
//
// # Usage
//
//	opts := recipe.Options{Workers: defaults.RenderWorkers}
//	ctx, cancel := context.WithTimeout(ctx, defaults.RenderTimeout)
//	defer cancel()
package defaults
