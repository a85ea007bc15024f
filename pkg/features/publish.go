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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/danielkza/zfs-feature-discovery/pkg/defaults"
	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
)

// writeFile atomically replaces path with data. On failure the destination
// is left untouched and no temporary file remains.
func writeFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeWriteFailed, "refresh cancelled before write", err,
			map[string]any{"path": path})
	}
	if err := atomicwriter.WriteFile(path, data, defaults.FeatureFileMode); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeWriteFailed, fmt.Sprintf("failed to write %s", path), err,
			map[string]any{"path": path})
	}
	return nil
}

// reconcile removes regular files with the configured prefix that are not in
// keep and returns their paths.
func (m *Manager) reconcile(log *slog.Logger, keep map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal, "failed to scan feature directory", err,
			map[string]any{"dir": m.cfg.Dir})
	}

	var removed []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), m.cfg.Prefix) || !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(m.cfg.Dir, e.Name())
		if _, ok := keep[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				log.Warn("failed to remove stale feature file", slog.String("path", path), slog.String("error", err.Error()))
			}
			continue
		}
		log.Info("removed stale feature file", slog.String("path", path))
		featureFiles.WithLabelValues(resultRemoved).Inc()
		removed = append(removed, path)
	}
	return removed, nil
}
