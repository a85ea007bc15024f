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

package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielkza/zfs-feature-discovery/pkg/defaults"
	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
	"github.com/danielkza/zfs-feature-discovery/pkg/features"
	"github.com/danielkza/zfs-feature-discovery/pkg/labels"
	"github.com/danielkza/zfs-feature-discovery/pkg/serializer"
)

// EnvPrefix starts the name of every environment variable read by the agent.
const EnvPrefix = "ZFS_FEATURE_DISCOVERY_"

// removeAll is the selector token that clears the default property set.
const removeAll = "-all"

// Props is a list of property selector tokens. In YAML it is either a
// sequence or a comma-separated string.
type Props []string

// ParseProps splits a comma-separated selector string.
func ParseProps(s string) Props {
	var p Props
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			p = append(p, tok)
		}
	}
	return p
}

// UnmarshalYAML accepts a scalar or a sequence.
func (p *Props) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = ParseProps(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*p = ParseProps(strings.Join(items, ","))
		return nil
	default:
		return fmt.Errorf("line %d: property selector must be a string or a list", node.Line)
	}
}

// ResolveProps applies selector tokens to defaults and returns the sorted
// result.
func ResolveProps(defaultProps []string, tokens []string) ([]string, error) {
	set := map[string]struct{}{}
	if !slices.Contains(tokens, removeAll) {
		for _, name := range defaultProps {
			set[name] = struct{}{}
		}
	}

	var removals []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "" || tok == removeAll:
		case strings.HasPrefix(tok, "-"):
			removals = append(removals, strings.TrimPrefix(tok, "-"))
		default:
			set[tok] = struct{}{}
		}
	}

	for _, name := range removals {
		if _, ok := set[name]; !ok {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("cannot remove property %q: not selected", name),
				map[string]any{"property": name})
		}
		delete(set, name)
	}

	return slices.Sorted(maps.Keys(set)), nil
}

// Label configures label keys.
type Label struct {
	Namespace     string `json:"namespace" yaml:"namespace"`
	ZpoolFormat   string `json:"zpool_format" yaml:"zpool_format"`
	DatasetFormat string `json:"zfs_dataset_format" yaml:"zfs_dataset_format"`
	GlobalFormat  string `json:"global_format" yaml:"global_format"`
}

// Config is the complete agent configuration.
type Config struct {
	// Zpools maps pool names to the names of their datasets to report,
	// relative to the pool.
	Zpools map[string][]string `json:"zpools" yaml:"zpools"`

	ZpoolCommand  string `json:"zpool_command" yaml:"zpool_command"`
	ZfsCommand    string `json:"zfs_command" yaml:"zfs_command"`
	HostIDCommand string `json:"hostid_command" yaml:"hostid_command"`

	ZpoolProps   Props `json:"zpool_props" yaml:"zpool_props"`
	DatasetProps Props `json:"zfs_dataset_props" yaml:"zfs_dataset_props"`

	FeatureDir        string `json:"feature_dir" yaml:"feature_dir"`
	FeatureFilePrefix string `json:"feature_file_prefix" yaml:"feature_file_prefix"`

	Label    Label         `json:"label" yaml:"label"`
	LabelTTL time.Duration `json:"label_ttl" yaml:"label_ttl"`

	Interval        time.Duration `json:"interval" yaml:"interval"`
	RefreshTimeout  time.Duration `json:"refresh_timeout" yaml:"refresh_timeout"`
	Oneshot         bool          `json:"oneshot" yaml:"oneshot"`
	MetricsTextfile string        `json:"metrics_textfile" yaml:"metrics_textfile"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Zpools:            map[string][]string{},
		ZpoolCommand:      defaults.ZpoolCommand,
		ZfsCommand:        defaults.ZfsCommand,
		HostIDCommand:     defaults.HostIDCommand,
		FeatureDir:        defaults.FeatureDir,
		FeatureFilePrefix: defaults.FeatureFilePrefix,
		Label: Label{
			Namespace:     defaults.LabelNamespace,
			ZpoolFormat:   defaults.ZpoolLabelFormat,
			DatasetFormat: defaults.DatasetLabelFormat,
			GlobalFormat:  defaults.GlobalLabelFormat,
		},
		LabelTTL:       defaults.LabelTTL,
		Interval:       defaults.RefreshInterval,
		RefreshTimeout: defaults.RefreshTimeout,
	}
}

// Load returns the defaults overlaid with the file at path. Unknown keys
// are rejected. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	if err := serializer.DecodeFile(path, cfg, serializer.WithStrict(true)); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest, "failed to load configuration", err,
			map[string]any{"path": path})
	}
	if cfg.Zpools == nil {
		cfg.Zpools = map[string][]string{}
	}
	return cfg, nil
}

// AddPool adds a pool spec of the form "pool" or "pool:ds1,ds2". Datasets
// are merged with those already configured for the pool.
func (c *Config) AddPool(spec string) error {
	name, datasets, err := ParsePoolSpec(spec)
	if err != nil {
		return err
	}
	if c.Zpools == nil {
		c.Zpools = map[string][]string{}
	}
	c.Zpools[name] = append(c.Zpools[name], datasets...)
	return nil
}

// ParsePoolSpec parses "pool" or "pool:ds1,ds2".
func ParsePoolSpec(spec string) (string, []string, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(spec), ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid pool %q: name is empty", spec), map[string]any{"spec": spec})
	}
	var datasets []string
	for _, ds := range strings.Split(rest, ",") {
		if ds = strings.TrimSpace(ds); ds != "" {
			datasets = append(datasets, ds)
		}
	}
	return name, datasets, nil
}

// PoolNames returns the configured pool names, sorted.
func (c *Config) PoolNames() []string {
	return slices.Sorted(maps.Keys(c.Zpools))
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, fmt.Sprintf(format, args...))
	}

	for _, cmd := range []struct{ name, path string }{
		{"zpool_command", c.ZpoolCommand},
		{"zfs_command", c.ZfsCommand},
		{"hostid_command", c.HostIDCommand},
		{"feature_dir", c.FeatureDir},
	} {
		if !filepath.IsAbs(cmd.path) {
			return invalid("%s must be an absolute path: %q", cmd.name, cmd.path)
		}
	}

	for pool, datasets := range c.Zpools {
		if pool == "" || strings.ContainsAny(pool, "/@ \t") {
			return invalid("invalid pool name %q", pool)
		}
		for _, ds := range datasets {
			if ds == "" || strings.HasPrefix(ds, "/") || strings.HasSuffix(ds, "/") || strings.Contains(ds, "@") {
				return invalid("invalid dataset name %q in pool %q", ds, pool)
			}
		}
	}

	if c.Interval <= 0 {
		return invalid("interval must be positive: %s", c.Interval)
	}
	if c.RefreshTimeout < 0 {
		return invalid("refresh_timeout must not be negative: %s", c.RefreshTimeout)
	}
	if c.LabelTTL < 0 {
		return invalid("label_ttl must not be negative: %s", c.LabelTTL)
	}
	if c.FeatureFilePrefix == "" || strings.ContainsRune(c.FeatureFilePrefix, '/') {
		return invalid("invalid feature_file_prefix %q", c.FeatureFilePrefix)
	}
	if c.MetricsTextfile != "" && !filepath.IsAbs(c.MetricsTextfile) {
		return invalid("metrics_textfile must be an absolute path: %q", c.MetricsTextfile)
	}

	_, err := c.Features()
	return err
}

// Features builds the feature manager configuration, parsing label
// formats and resolving property selectors.
func (c *Config) Features() (features.Config, error) {
	if err := labels.ValidateNamespace(c.Label.Namespace); err != nil {
		return features.Config{}, err
	}

	poolFormat, err := labels.ParseFormat(labels.KindPool, c.Label.ZpoolFormat)
	if err != nil {
		return features.Config{}, err
	}
	datasetFormat, err := labels.ParseFormat(labels.KindDataset, c.Label.DatasetFormat)
	if err != nil {
		return features.Config{}, err
	}
	globalFormat, err := labels.ParseFormat(labels.KindGlobal, c.Label.GlobalFormat)
	if err != nil {
		return features.Config{}, err
	}

	poolProps, err := ResolveProps(defaults.ZpoolProps(), c.ZpoolProps)
	if err != nil {
		return features.Config{}, fmt.Errorf("zpool_props: %w", err)
	}
	datasetProps, err := ResolveProps(defaults.DatasetProps(), c.DatasetProps)
	if err != nil {
		return features.Config{}, fmt.Errorf("zfs_dataset_props: %w", err)
	}

	return features.Config{
		Dir:           c.FeatureDir,
		Prefix:        c.FeatureFilePrefix,
		Namespace:     c.Label.Namespace,
		PoolFormat:    poolFormat,
		DatasetFormat: datasetFormat,
		GlobalFormat:  globalFormat,
		PoolProps:     poolProps,
		DatasetProps:  datasetProps,
		LabelTTL:      c.LabelTTL,
	}, nil
}
