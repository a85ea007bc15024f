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
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
	"github.com/danielkza/zfs-feature-discovery/pkg/globals"
	"github.com/danielkza/zfs-feature-discovery/pkg/labels"
	"github.com/danielkza/zfs-feature-discovery/pkg/property"
)

// PoolSource supplies the properties of one pool. zpool.Manager implements it.
type PoolSource interface {
	Name() string
	Datasets() []string
	DatasetPath(dataset string) string
	PoolProperties(ctx context.Context) (property.Set, bool)
	DatasetProperties(ctx context.Context) map[string]property.Set
}

// GlobalSource supplies host-wide properties. globals.Probe implements it.
type GlobalSource interface {
	Properties(ctx context.Context) globals.Properties
}

// Config is the immutable configuration of a Manager.
type Config struct {
	// Dir is the existing directory feature files are published to.
	Dir string
	// Prefix starts the name of every file owned by the Manager.
	Prefix string
	// Namespace prefixes every label key.
	Namespace string

	PoolFormat    *labels.Format
	DatasetFormat *labels.Format
	GlobalFormat  *labels.Format

	// PoolProps and DatasetProps are the property names to publish.
	PoolProps    []string
	DatasetProps []string

	// LabelTTL is added to the refresh time to compute the expiry comment.
	// Zero disables the comment.
	LabelTTL time.Duration
}

func (c Config) validate() error {
	invalid := func(msg string) error {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, msg)
	}
	switch {
	case c.Dir == "":
		return invalid("feature directory is required")
	case c.Prefix == "":
		return invalid("feature file prefix is required")
	case strings.ContainsRune(c.Prefix, os.PathSeparator):
		return invalid(fmt.Sprintf("feature file prefix %q must not contain a path separator", c.Prefix))
	case c.PoolFormat == nil || c.PoolFormat.Kind() != labels.KindPool:
		return invalid("pool label format is required")
	case c.DatasetFormat == nil || c.DatasetFormat.Kind() != labels.KindDataset:
		return invalid("dataset label format is required")
	case c.GlobalFormat == nil || c.GlobalFormat.Kind() != labels.KindGlobal:
		return invalid("global label format is required")
	case c.LabelTTL < 0:
		return invalid("label TTL must not be negative")
	}
	return labels.ValidateNamespace(c.Namespace)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for the refresh reference time.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// Result lists the feature file paths affected by one refresh cycle.
type Result struct {
	Written []string `json:"written" yaml:"written"`
	Failed  []string `json:"failed,omitempty" yaml:"failed,omitempty"`
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Manager publishes feature files for the registered pools.
type Manager struct {
	cfg     Config
	globals GlobalSource
	clock   clock.PassiveClock

	mu     sync.Mutex
	pools  []PoolSource
	files  map[string]string // file name -> pool name
	closed bool

	// warnedKeys holds the invalid label keys already reported at warning level.
	warnedKeys sync.Map
}

// NewManager creates a Manager. A nil GlobalSource disables the global file.
func NewManager(cfg Config, gs GlobalSource, opts ...Option) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.PoolProps = sortedNames(cfg.PoolProps)
	cfg.DatasetProps = sortedNames(cfg.DatasetProps)

	m := &Manager{
		cfg:     cfg,
		globals: gs,
		clock:   clock.RealClock{},
		files:   map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Register adds pools to the registry. It fails for a pool whose name is
// already registered, whose feature files would collide with another
// pool's, or with two datasets whose labels would collide, and once the
// first refresh has started.
func (m *Manager) Register(pools ...PoolSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "cannot register pools after refresh started")
	}

	for _, p := range pools {
		name := m.poolFileName(p)
		if other, ok := m.files[name]; ok {
			if other == p.Name() {
				return apperrors.New(apperrors.ErrCodeInvalidRequest, fmt.Sprintf("pool %q already registered", p.Name()))
			}
			return apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("pool %q collides with pool %q in feature file %s", p.Name(), other, name))
		}
		if err := checkDatasets(p); err != nil {
			return err
		}
		m.files[name] = p.Name()
		m.pools = append(m.pools, p)
		slog.Debug("registered pool", slog.String("pool", p.Name()), slog.Any("datasets", p.Datasets()))
	}
	return nil
}

// Pools returns the registered pools in registration order.
func (m *Manager) Pools() []PoolSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pools)
}

// Config returns the configuration of the Manager.
func (m *Manager) Config() Config {
	return m.cfg
}

// Expiry returns the expiry time for labels published now. The second
// result is false when expiry is disabled.
func (m *Manager) Expiry() (time.Time, bool) {
	return m.expiryAt(m.clock.Now())
}

func (m *Manager) expiryAt(now time.Time) (time.Time, bool) {
	if m.cfg.LabelTTL == 0 {
		return time.Time{}, false
	}
	return now.Add(m.cfg.LabelTTL), true
}

// Refresh runs one refresh cycle. Per-entity failures are logged and
// reported in the Result; the error is non-nil only when the feature
// directory could not be reconciled.
func (m *Manager) Refresh(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	m.closed = true
	pools := slices.Clone(m.pools)
	m.mu.Unlock()

	log := slog.With(slog.String("cycle", uuid.NewString()))
	log.Debug("starting refresh", slog.Int("pools", len(pools)))

	start := m.clock.Now()
	expiry, hasExpiry := m.expiryAt(start)

	var (
		mu   sync.Mutex
		res  = &Result{}
		keep = map[string]struct{}{}
	)

	publish := func(doc *Document) {
		path := filepath.Join(m.cfg.Dir, doc.Name)

		mu.Lock()
		keep[path] = struct{}{}
		mu.Unlock()

		data := doc.Bytes(expiry, hasExpiry)
		err := writeFile(ctx, path, data)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Warn("failed to write feature file", slog.String("path", path), slog.String("error", err.Error()))
			featureFiles.WithLabelValues(resultFailed).Inc()
			res.Failed = append(res.Failed, path)
			return
		}
		log.Debug("wrote feature file", slog.String("path", path), slog.Int("labels", len(doc.Labels)))
		featureFiles.WithLabelValues(resultWritten).Inc()
		res.Written = append(res.Written, path)
	}

	// Goroutines never return errors; the group is the barrier before reconcile.
	var g errgroup.Group

	for _, pool := range pools {
		g.Go(func() error {
			props, ok := pool.PoolProperties(ctx)
			if !ok {
				log.Debug("no pool properties", slog.String("pool", pool.Name()))
			}
			publish(m.renderPool(log, pool, props))
			return nil
		})

		if len(pool.Datasets()) == 0 {
			continue
		}
		g.Go(func() error {
			publish(m.renderDatasets(log, pool, pool.DatasetProperties(ctx)))
			return nil
		})
	}

	if m.globals != nil {
		g.Go(func() error {
			publish(m.renderGlobal(log, m.globals.Properties(ctx)))
			return nil
		})
	}

	_ = g.Wait()

	removed, err := m.reconcile(log, keep)
	res.Removed = removed

	slices.Sort(res.Written)
	slices.Sort(res.Failed)
	slices.Sort(res.Removed)

	refreshDuration.Observe(m.clock.Since(start).Seconds())
	if err != nil {
		refreshTotal.WithLabelValues(statusError).Inc()
		log.Error("failed to reconcile feature directory", slog.String("error", err.Error()))
		return res, err
	}
	refreshTotal.WithLabelValues(statusSuccess).Inc()
	lastRefresh.Set(float64(start.Unix()))

	log.Info("refresh complete",
		slog.Int("written", len(res.Written)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("removed", len(res.Removed)))

	return res, nil
}

func (m *Manager) poolFileName(p PoolSource) string {
	return m.cfg.Prefix + "zpool." + labels.Sanitize(p.Name())
}

func (m *Manager) datasetFileName(p PoolSource) string {
	return m.cfg.Prefix + "zfs." + labels.Sanitize(p.Name())
}

func (m *Manager) globalFileName() string {
	return m.cfg.Prefix + "global"
}

// checkDatasets rejects datasets of p that render to the same label name.
func checkDatasets(p PoolSource) error {
	seen := make(map[string]string, len(p.Datasets()))
	for _, ds := range p.Datasets() {
		key := labels.Sanitize(ds)
		if other, ok := seen[key]; ok {
			return apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("dataset %q collides with dataset %q in pool %q as %q", ds, other, p.Name(), key))
		}
		seen[key] = ds
	}
	return nil
}

func sortedNames(names []string) []string {
	s := slices.Clone(names)
	slices.Sort(s)
	return slices.Compact(s)
}
