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
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/BenjaminLowry/rattler-build/pkg/defaults"
)

// specCache holds parsed specs keyed by their trimmed source text.
var specCache = mustNewCache(defaults.MatchSpecCacheSize)

func mustNewCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		panic(fmt.Sprintf("matchspec: cache: %v", err))
	}
	return c
}

// PurgeCache drops every cached spec.
func PurgeCache() {
	specCache.Purge()
}
