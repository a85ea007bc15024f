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

// Package config holds the agent configuration.
//
// Values are layered: built-in defaults from pkg/defaults, then an optional
// YAML or JSON file, then command-line flags and their environment
// variables (applied by pkg/cli). Validate runs once at startup, before any
// pool is registered.
//
// Example file:
//
//	zpools:
//	  rpool: [ROOT/ubuntu, data]
//	  tank:
//	zpool_props: -all,health,size
//	zfs_dataset_props: [-sharesmb, quota]
//	label:
//	  namespace: example.io
//	label_ttl: 2h
//	interval: 5m
//
// # Property Selectors
//
// zpool_props and zfs_dataset_props adjust the default property sets. A
// plain name adds a property, "-name" removes one and "-all" starts from an
// empty set. Token order does not matter; removing a property that is not
// in the set is an error.
package config
