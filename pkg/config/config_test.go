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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielkza/zfs-feature-discovery/pkg/defaults"
	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveProps(t *testing.T) {
	defaultProps := []string{"size", "health", "guid"}

	tests := []struct {
		name    string
		tokens  []string
		want    []string
		wantErr bool
	}{
		{name: "defaults", tokens: nil, want: []string{"guid", "health", "size"}},
		{name: "add", tokens: []string{"ashift"}, want: []string{"ashift", "guid", "health", "size"}},
		{name: "remove", tokens: []string{"-guid"}, want: []string{"health", "size"}},
		{name: "all then add", tokens: []string{"-all", "health"}, want: []string{"health"}},
		{name: "all position irrelevant", tokens: []string{"health", "-all"}, want: []string{"health"}},
		{name: "all only", tokens: []string{"-all"}, want: nil},
		{name: "add and remove same", tokens: []string{"-ashift", "ashift"}, want: []string{"guid", "health", "size"}},
		{name: "empty tokens ignored", tokens: []string{"", " ", "ashift"}, want: []string{"ashift", "guid", "health", "size"}},
		{name: "remove missing", tokens: []string{"-ashift"}, wantErr: true},
		{name: "remove after all", tokens: []string{"-all", "-size"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveProps(defaultProps, tt.tokens)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePropsDoesNotMutateDefaults(t *testing.T) {
	d := defaults.ZpoolProps()
	_, err := ResolveProps(d, []string{"-all"})
	require.NoError(t, err)
	assert.Equal(t, defaults.ZpoolProps(), d)
}

func TestParseProps(t *testing.T) {
	assert.Equal(t, Props{"-all", "health", "size"}, ParseProps("-all, health,,size "))
	assert.Nil(t, ParseProps(""))
}

func TestParsePoolSpec(t *testing.T) {
	tests := []struct {
		spec     string
		name     string
		datasets []string
		wantErr  bool
	}{
		{spec: "rpool", name: "rpool"},
		{spec: "rpool:", name: "rpool"},
		{spec: "rpool:data", name: "rpool", datasets: []string{"data"}},
		{spec: " rpool : ROOT/ubuntu, data ", name: "rpool", datasets: []string{"ROOT/ubuntu", "data"}},
		{spec: "", wantErr: true},
		{spec: ":data", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, datasets, err := ParsePoolSpec(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.datasets, datasets)
		})
	}
}

func TestNew(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaults.ZpoolCommand, cfg.ZpoolCommand)
	assert.Equal(t, defaults.FeatureDir, cfg.FeatureDir)
	assert.Equal(t, defaults.RefreshInterval, cfg.Interval)
	assert.Equal(t, defaults.LabelTTL, cfg.LabelTTL)
	assert.Empty(t, cfg.PoolNames())

	fc, err := cfg.Features()
	require.NoError(t, err)
	assert.Equal(t, defaults.ZpoolProps(), fc.PoolProps)
	assert.Equal(t, defaults.DatasetProps(), fc.DatasetProps)
	assert.Equal(t, "zpool.{pool_name}.{property_name}", fc.PoolFormat.String())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
zpools:
  rpool: [ROOT/ubuntu, data]
  tank:
zpool_props: -all,health,size
zfs_dataset_props: [-sharesmb, quota]
label:
  namespace: example.io
label_ttl: 0s
interval: 5m
oneshot: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"rpool", "tank"}, cfg.PoolNames())
	assert.Equal(t, []string{"ROOT/ubuntu", "data"}, cfg.Zpools["rpool"])
	assert.Empty(t, cfg.Zpools["tank"])
	assert.Equal(t, Props{"-all", "health", "size"}, cfg.ZpoolProps)
	assert.Equal(t, Props{"-sharesmb", "quota"}, cfg.DatasetProps)
	assert.Equal(t, "example.io", cfg.Label.Namespace)
	assert.Equal(t, defaults.ZpoolLabelFormat, cfg.Label.ZpoolFormat, "unset keys keep defaults")
	assert.Equal(t, time.Duration(0), cfg.LabelTTL)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.True(t, cfg.Oneshot)

	fc, err := cfg.Features()
	require.NoError(t, err)
	assert.Equal(t, []string{"health", "size"}, fc.PoolProps)
	assert.Contains(t, fc.DatasetProps, "quota")
	assert.NotContains(t, fc.DatasetProps, "sharesmb")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.yaml", "zpool: rpool\n"))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("bad selector type", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.yaml", "zpool_props: {a: b}\n"))
		require.Error(t, err)
	})
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestAddPool(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.AddPool("rpool:data"))
	require.NoError(t, cfg.AddPool("rpool:vm"))
	require.NoError(t, cfg.AddPool("tank"))
	require.Error(t, cfg.AddPool(":x"))

	assert.Equal(t, map[string][]string{"rpool": {"data", "vm"}, "tank": nil}, cfg.Zpools)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative zpool", func(c *Config) { c.ZpoolCommand = "zpool" }},
		{"relative zfs", func(c *Config) { c.ZfsCommand = "./zfs" }},
		{"relative hostid", func(c *Config) { c.HostIDCommand = "" }},
		{"relative feature dir", func(c *Config) { c.FeatureDir = "features.d" }},
		{"pool with slash", func(c *Config) { c.Zpools["rpool/data"] = nil }},
		{"empty pool name", func(c *Config) { c.Zpools[""] = nil }},
		{"empty dataset", func(c *Config) { c.Zpools["rpool"] = []string{""} }},
		{"snapshot dataset", func(c *Config) { c.Zpools["rpool"] = []string{"data@snap"} }},
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"negative timeout", func(c *Config) { c.RefreshTimeout = -time.Second }},
		{"negative ttl", func(c *Config) { c.LabelTTL = -time.Second }},
		{"empty prefix", func(c *Config) { c.FeatureFilePrefix = "" }},
		{"prefix with slash", func(c *Config) { c.FeatureFilePrefix = "a/b" }},
		{"relative metrics file", func(c *Config) { c.MetricsTextfile = "zfs.prom" }},
		{"bad namespace", func(c *Config) { c.Label.Namespace = "Example.IO" }},
		{"bad pool format", func(c *Config) { c.Label.ZpoolFormat = "{dataset_name}.{property_name}" }},
		{"bad dataset format", func(c *Config) { c.Label.DatasetFormat = "zfs/{property_name}" }},
		{"bad global format", func(c *Config) { c.Label.GlobalFormat = "global" }},
		{"bad selector", func(c *Config) { c.ZpoolProps = Props{"-nonexistent"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest), err.Error())
		})
	}
}
