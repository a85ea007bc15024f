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

// Package featurefile reads node-feature-discovery feature files the way
// the local feature source consumes them.
//
// A feature file holds one "key=value" label per line. Lines starting with
// '#' are comments, except for the "# +expiry-time=" directive which sets
// when the labels of the file expire. A line without '=' is a label with
// the value "true".
//
// # Usage
//
//	r := featurefile.NewReader(featurefile.WithPrefix("zfs-"))
//	files, err := r.ReadDir("/etc/kubernetes/node-feature-discovery/features.d")
//	if err != nil {
//	    return err
//	}
//	labels := featurefile.Merge(files)
package featurefile
