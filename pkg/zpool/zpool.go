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

package zpool

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/danielkza/zfs-feature-discovery/pkg/command"
	"github.com/danielkza/zfs-feature-discovery/pkg/property"
)

// getAllArgs are the fixed arguments of both property commands.
var getAllArgs = []string{"get", "-Hp", "all"}

// NewZpoolCommand returns the pool-level "get all properties" command.
func NewZpoolCommand(path string, opts ...command.Option) *command.Command {
	return command.New(path, getAllArgs, opts...)
}

// NewZfsCommand returns the dataset-level "get all properties" command.
func NewZfsCommand(path string, opts ...command.Option) *command.Command {
	return command.New(path, getAllArgs, opts...)
}

// Manager owns the identity of one pool and the datasets to report for it.
type Manager struct {
	name     string
	datasets []string
	zpool    *command.Command
	zfs      *command.Command
}

// NewManager creates a Manager for pool name. Datasets are names relative
// to the pool; duplicates are dropped. The commands may be shared between
// managers; each manager clones them so launch failures are throttled per
// pool.
func NewManager(name string, datasets []string, zpool, zfs *command.Command) *Manager {
	ds := slices.Clone(datasets)
	slices.Sort(ds)
	return &Manager{
		name:     name,
		datasets: slices.Compact(ds),
		zpool:    zpool.Clone(),
		zfs:      zfs.Clone(),
	}
}

// Name returns the pool name.
func (m *Manager) Name() string {
	return m.name
}

// Datasets returns the configured dataset names relative to the pool, sorted.
func (m *Manager) Datasets() []string {
	return slices.Clone(m.datasets)
}

// DatasetPath returns the fully qualified path of a dataset in this pool.
func (m *Manager) DatasetPath(dataset string) string {
	return m.name + "/" + dataset
}

// FullDatasets returns the fully qualified dataset paths, sorted.
func (m *Manager) FullDatasets() []string {
	paths := make([]string, 0, len(m.datasets))
	for _, ds := range m.datasets {
		paths = append(paths, m.DatasetPath(ds))
	}
	return paths
}

// PoolProperties returns the pool-level properties. The second result is
// false when the tool could not be launched or exited non-zero.
func (m *Manager) PoolProperties(ctx context.Context) (property.Set, bool) {
	p, err := m.zpool.Start(ctx, m.name)
	if err != nil {
		m.zpool.LogFailure("failed to get pool properties", err)
		return nil, false
	}

	props := property.Collect(property.Stream(p.Lines()))

	code, err := p.Wait()
	if err != nil {
		slog.Warn("failed waiting for pool properties",
			slog.String("pool", m.name), slog.String("error", err.Error()))
		return nil, false
	}
	if code != 0 {
		m.zpool.LogFailure("failed to get pool properties", m.zpool.ExitError(code))
		return nil, false
	}

	slog.Debug("got pool properties", slog.String("pool", m.name), slog.Int("count", len(props)))
	return props, true
}

// DatasetProperties returns the properties of every configured dataset,
// keyed by fully qualified path. Every configured dataset is present in the
// result; on failure its set is empty. With no datasets configured no
// command is run.
func (m *Manager) DatasetProperties(ctx context.Context) map[string]property.Set {
	result := make(map[string]property.Set, len(m.datasets))
	if len(m.datasets) == 0 {
		return result
	}

	paths := m.FullDatasets()
	for _, path := range paths {
		result[path] = property.Set{}
	}

	p, err := m.zfs.Start(ctx, paths...)
	if err != nil {
		m.zfs.LogFailure("failed to get dataset properties", err)
		return result
	}

	groups := property.GroupByOwner(property.Stream(p.Lines()))

	code, err := p.Wait()
	if err != nil {
		slog.Warn("failed waiting for dataset properties",
			slog.String("pool", m.name), slog.String("error", err.Error()))
		return result
	}
	if code != 0 {
		m.zfs.LogFailure("failed to get dataset properties", m.zfs.ExitError(code))
		return result
	}

	prefix := m.name + "/"
	for owner, set := range groups {
		if !strings.HasPrefix(owner, prefix) {
			slog.Warn("dropping properties of unexpected dataset",
				slog.String("pool", m.name), slog.String("dataset", owner))
			continue
		}
		result[owner] = set
	}

	return result
}

func (m *Manager) String() string {
	return fmt.Sprintf("%s%v", m.name, m.datasets)
}
