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

package defaults

import "time"

// Rendering parameters.
const (
	// RenderWorkers is the default number of variant combinations rendered
	// concurrently for a single recipe.
	RenderWorkers = 4

	// BatchWorkers is the default number of recipes rendered concurrently
	// by a batch render.
	BatchWorkers = 2

	// RenderTimeout bounds a single CLI invocation.
	RenderTimeout = 2 * time.Minute
)

// Cache capacities.
const (
	// MatchSpecCacheSize is the number of parsed dependency specs kept in
	// the process-wide LRU cache.
	MatchSpecCacheSize = 4096
)

// Limits.
const (
	// MaxCombinations caps the size of an expanded variant matrix.
	MaxCombinations = 10000

	// MaxExpressionDepth caps nesting while parsing template expressions.
	MaxExpressionDepth = 64
)

// Server timeouts and limits for the render service.
const (
	// ServerReadTimeout is the maximum duration for reading a request.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 2*RenderTimeout + 30*time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second

	// ServerMaxRequestBytes caps the body of a render request.
	ServerMaxRequestBytes = 4 << 20
)
