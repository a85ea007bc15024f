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

// Package zpool acquires the properties of one ZFS pool and its datasets.
//
// A Manager is created once per configured pool and is immutable afterwards.
// Every call runs a fresh tool invocation:
//
//	zpool get -Hp all <pool>
//	zfs get -Hp all <pool>/<ds1> <pool>/<ds2> ...
//
// Acquisition never fails the caller. A tool that cannot be launched or that
// exits non-zero is logged, and the result degrades: PoolProperties reports
// no properties and DatasetProperties maps every configured dataset to an
// empty set.
package zpool
