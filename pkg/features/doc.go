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

// Package features publishes ZFS properties as node-feature-discovery
// feature files.
//
// # Overview
//
// A Manager holds the registered pools and drives refresh cycles. One cycle:
//
//  1. Acquires pool properties, dataset properties and global properties
//     concurrently. A slow or failing pool only delays its own files.
//  2. Renders one label per configured property name. Properties the tool
//     did not report are rendered with an empty value.
//  3. Publishes every document atomically: a hidden temporary file in the
//     feature directory is written, synced, set to 0644 and renamed over
//     the destination.
//  4. After every write has finished, removes files carrying the configured
//     prefix that were not published in this cycle.
//
// # Files
//
// With prefix "zfs-" a cycle produces:
//
//	zfs-zpool.<pool>   pool properties
//	zfs-zfs.<pool>     properties of the configured datasets of <pool>
//	zfs-global         tool versions and host id
//
// Each file starts with a generator comment, lists sorted
// "<namespace>/<label>=<value>" lines and, when a label TTL is set, ends with
// an "# +expiry-time=" comment holding the refresh time plus the TTL.
//
// # Failure Handling
//
// Acquisition failures degrade to empty values and write failures are
// logged and counted; neither aborts the cycle. A file whose write failed
// keeps its previous content and is not removed by reconciliation.
package features
