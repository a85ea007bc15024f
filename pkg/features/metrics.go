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

package features

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	resultWritten = "written"
	resultFailed  = "failed"
	resultRemoved = "removed"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zfs_feature_discovery_refresh_total",
			Help: "Total number of refresh cycles",
		},
		[]string{"status"}, // success or error
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zfs_feature_discovery_refresh_duration_seconds",
			Help:    "Time taken by a complete refresh cycle",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	featureFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zfs_feature_discovery_feature_files_total",
			Help: "Total number of feature file operations",
		},
		[]string{"result"}, // written, failed or removed
	)

	lastRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zfs_feature_discovery_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful refresh cycle",
		},
	)
)
