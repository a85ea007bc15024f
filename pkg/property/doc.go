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

// Package property parses the tab-separated output of `zpool get -Hp` and
// `zfs get -Hp` into Property records.
//
// Each line carries four fields: the owner (a pool name or a full dataset
// path), the property name, its value and its source. Stream turns a line
// sequence into a lazy Property sequence, skipping lines that do not have
// exactly four fields with a warning. Unknown sources map to SourceUnknown.
//
// Collect folds a sequence into a Set keyed by property name (last value
// wins) and GroupByOwner folds it into one Set per owner.
package property
