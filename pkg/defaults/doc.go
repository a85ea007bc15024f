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

// Package defaults provides centralized configuration constants for
// zfs-feature-discovery.
//
// This package defines tool locations, timing parameters, label formats and
// the default property sets used across the codebase. Centralizing these
// values ensures consistency and makes tuning easier.
//
// # Timing
//
//   - RefreshInterval: pause between refresh cycles in continuous mode
//   - RefreshTimeout: upper bound for one whole refresh cycle; kept below
//     RefreshInterval so a stuck tool cannot make cycles overlap
//   - LabelTTL: lifetime advertised in the expiry comment of each feature file
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.RefreshTimeout)
//	defer cancel()
package defaults
