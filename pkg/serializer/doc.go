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

// Package serializer encodes and decodes structured data as JSON, YAML or
// a flattened table.
//
// # Supported Formats
//
// JSON:
//   - Indented, machine-parseable
//
// YAML:
//   - Human-readable, used for the configuration file
//   - gopkg.in/yaml.v3
//
// Table:
//   - Flattened "KEY VALUE" rows sorted by key, for terminals
//   - Write-only
//
// # Usage - Encoding
//
//	w := serializer.NewWriter(serializer.FormatTable, os.Stdout)
//	defer w.Close()
//	if err := w.Serialize(ctx, labels); err != nil {
//	    return err
//	}
//
// # Usage - Decoding
//
// Load a file, detecting the format from its extension:
//
//	cfg, err := serializer.FromFile[config.Config](path, serializer.WithStrict(true))
//
// Strict decoding rejects keys that do not map to a field.
//
// # Format Detection
//
//   - .json → JSON
//   - .yaml, .yml → YAML
//   - .table, .txt → Table
//   - Other → YAML
package serializer
