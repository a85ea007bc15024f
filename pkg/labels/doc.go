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

// Package labels renders feature label names from validated templates.
//
// A label format is a template such as
//
//	zfs.{pool_name}.{dataset_name}.{property_name}
//
// where text in braces names a placeholder. Each template kind allows its
// own set of placeholders:
//
//	KindPool     pool_name, property_name
//	KindDataset  pool_name, dataset_name, property_name
//	KindGlobal   property_name
//
// ParseFormat validates a template once: literal text may only contain
// ASCII letters, digits, '-', '_' and '.', and every placeholder must be
// allowed for the kind. Render substitutes placeholder values after passing
// them through Sanitize, so a rendered label never contains characters the
// template could not.
package labels
