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

// Refresh timing.
const (
	// RefreshInterval is the default pause between refresh cycles.
	RefreshInterval = 60 * time.Second

	// RefreshTimeout bounds a single refresh cycle.
	// Must stay below RefreshInterval.
	RefreshTimeout = 50 * time.Second

	// LabelTTL is the default lifetime written into the expiry comment.
	LabelTTL = time.Hour

	// LaunchWarnInterval limits how often a failing tool launch is logged at warning level.
	LaunchWarnInterval = 10 * time.Minute
)

// External tool locations.
const (
	ZpoolCommand  = "/usr/sbin/zpool"
	ZfsCommand    = "/usr/sbin/zfs"
	HostIDCommand = "/usr/bin/hostid"
)

// Feature file output.
const (
	// FeatureDir is where node-feature-discovery picks up local feature files.
	FeatureDir = "/etc/kubernetes/node-feature-discovery/features.d"

	// FeatureFilePrefix marks files owned by this agent inside FeatureDir.
	FeatureFilePrefix = "zfs-"

	// FeatureFileMode is the permission of every published feature file.
	FeatureFileMode = 0o644
)

// Labels.
const (
	LabelNamespace     = "feature.node.kubernetes.io"
	ZpoolLabelFormat   = "zpool.{pool_name}.{property_name}"
	DatasetLabelFormat = "zfs.{pool_name}.{dataset_name}.{property_name}"
	GlobalLabelFormat  = "zfs-global.{property_name}"
)

// ZpoolProps returns the pool properties published when no selector is given.
func ZpoolProps() []string {
	return []string{
		"altroot",
		"ashift",
		"capacity",
		"comment",
		"compatibility",
		"guid",
		"health",
		"readonly",
		"size",
		"version",
	}
}

// DatasetProps returns the dataset properties published when no selector is given.
func DatasetProps() []string {
	return []string{
		"checksum",
		"compression",
		"dedup",
		"encryption",
		"guid",
		"mounted",
		"origin",
		"readonly",
		"recordsize",
		"reservation",
		"sharenfs",
		"sharesmb",
		"type",
		"version",
		"volsize",
		"xattr",
	}
}
