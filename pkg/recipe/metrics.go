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

package recipe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Render metrics
	renderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rattler_render_duration_seconds",
			Help:    "Duration of rendering one recipe in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	renderVariantsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rattler_render_variants_total",
			Help: "Total number of rendered variant recipes",
		},
	)
	renderSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rattler_render_skipped_total",
			Help: "Total number of variant combinations dropped by build.skip",
		},
	)

	renderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rattler_render_errors_total",
			Help: "Total number of failed renders",
		},
		[]string{"code"}, // RENDER, SELECTOR, VARIANT_CONFLICT, ...
	)
)
