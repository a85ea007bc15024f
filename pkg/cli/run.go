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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/danielkza/zfs-feature-discovery/pkg/config"
	"github.com/danielkza/zfs-feature-discovery/pkg/defaults"
	"github.com/danielkza/zfs-feature-discovery/pkg/features"
	"github.com/danielkza/zfs-feature-discovery/pkg/globals"
	"github.com/danielkza/zfs-feature-discovery/pkg/runner"
	"github.com/danielkza/zfs-feature-discovery/pkg/zpool"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Publish ZFS properties as feature files",
		Description: `Refresh the feature files for the configured pools immediately and then
every interval until terminated. Each refresh writes:
  - one file per pool with its pool properties
  - one file per pool with the properties of its configured datasets
  - one file with the global ZFS version and host id

Feature files with the configured prefix that were not written by the
refresh are removed.`,
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}

			r, err := newRunner(cfg)
			if err != nil {
				return err
			}

			return r.Run(ctx)
		},
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Description: `Resolve the configuration from the defaults, the configuration file, the
environment and flags exactly like run does, validate it and print it.`,
		Flags: append(configFlags(), outputFlag(), formatFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}

			ser := newOutputWriter(cmd, outFormat)
			defer func() {
				if err := ser.Close(); err != nil {
					slog.Warn("failed to close serializer", "error", err)
				}
			}()

			return ser.Serialize(ctx, cfg)
		},
	}
}

// configFlags returns the flags that override configuration file values.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			Sources: envVars("config-path"),
		},
		&cli.StringSliceFlag{
			Name:    "zpool",
			Aliases: []string{"p"},
			Usage: `Pool to report, as "pool" or "pool:dataset1,dataset2". May be repeated.
	The environment variable holds whitespace separated pools.`,
			Sources: envVars("zpool"),
		},
		&cli.StringFlag{
			Name:    "zpool-command",
			Value:   defaults.ZpoolCommand,
			Usage:   "Absolute path of the zpool executable",
			Sources: envVars("zpool-command"),
		},
		&cli.StringFlag{
			Name:    "zfs-command",
			Value:   defaults.ZfsCommand,
			Usage:   "Absolute path of the zfs executable",
			Sources: envVars("zfs-command"),
		},
		&cli.StringFlag{
			Name:    "hostid-command",
			Value:   defaults.HostIDCommand,
			Usage:   "Absolute path of the hostid executable",
			Sources: envVars("hostid-command"),
		},
		&cli.StringFlag{
			Name: "zpool-props",
			Usage: fmt.Sprintf(`Pool property selector: comma separated names to add, "-name" to remove, "-all" to clear.
	Defaults: %s`, strings.Join(defaults.ZpoolProps(), ",")),
			Sources: envVars("zpool-props"),
		},
		&cli.StringFlag{
			Name: "zfs-dataset-props",
			Usage: fmt.Sprintf(`Dataset property selector: comma separated names to add, "-name" to remove, "-all" to clear.
	Defaults: %s`, strings.Join(defaults.DatasetProps(), ",")),
			Sources: envVars("zfs-dataset-props"),
		},
		&cli.StringFlag{
			Name:    "feature-dir",
			Value:   defaults.FeatureDir,
			Usage:   "Directory the feature files are written to",
			Sources: envVars("feature-dir"),
		},
		&cli.StringFlag{
			Name:    "feature-file-prefix",
			Value:   defaults.FeatureFilePrefix,
			Usage:   "Name prefix of the feature files",
			Sources: envVars("feature-file-prefix"),
		},
		&cli.StringFlag{
			Name:    "label-namespace",
			Value:   defaults.LabelNamespace,
			Usage:   "Label namespace, a DNS subdomain",
			Sources: envVars("label-namespace"),
		},
		&cli.StringFlag{
			Name:    "zpool-label-format",
			Value:   defaults.ZpoolLabelFormat,
			Usage:   "Pool label format, using {pool_name} and {property_name}",
			Sources: envVars("zpool-label-format"),
		},
		&cli.StringFlag{
			Name:    "zfs-dataset-label-format",
			Value:   defaults.DatasetLabelFormat,
			Usage:   "Dataset label format, using {pool_name}, {dataset_name} and {property_name}",
			Sources: envVars("zfs-dataset-label-format"),
		},
		&cli.StringFlag{
			Name:    "global-label-format",
			Value:   defaults.GlobalLabelFormat,
			Usage:   "Global label format, using {property_name}",
			Sources: envVars("global-label-format"),
		},
		&cli.DurationFlag{
			Name:    "label-ttl",
			Value:   defaults.LabelTTL,
			Usage:   "Time after which published labels expire, 0 to disable expiry",
			Sources: envVars("label-ttl"),
		},
		&cli.DurationFlag{
			Name:    "interval",
			Value:   defaults.RefreshInterval,
			Usage:   "Time between the start of consecutive refreshes",
			Sources: envVars("interval"),
		},
		&cli.DurationFlag{
			Name:    "refresh-timeout",
			Value:   defaults.RefreshTimeout,
			Usage:   "Maximum duration of one refresh, 0 for no limit",
			Sources: envVars("refresh-timeout"),
		},
		&cli.BoolFlag{
			Name:    "oneshot",
			Usage:   "Refresh once and exit",
			Sources: envVars("oneshot"),
		},
		&cli.StringFlag{
			Name:    "metrics-textfile",
			Usage:   "Absolute path of a Prometheus textfile written after every refresh",
			Sources: envVars("metrics-textfile"),
		},
	}
}

// configFromCmd loads the configuration file and applies the flags that
// were set explicitly on the command line or through the environment.
func configFromCmd(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("zpool") {
		for _, value := range cmd.StringSlice("zpool") {
			for _, spec := range strings.Fields(value) {
				if err := cfg.AddPool(spec); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{"zpool-command", &cfg.ZpoolCommand},
		{"zfs-command", &cfg.ZfsCommand},
		{"hostid-command", &cfg.HostIDCommand},
		{"feature-dir", &cfg.FeatureDir},
		{"feature-file-prefix", &cfg.FeatureFilePrefix},
		{"label-namespace", &cfg.Label.Namespace},
		{"zpool-label-format", &cfg.Label.ZpoolFormat},
		{"zfs-dataset-label-format", &cfg.Label.DatasetFormat},
		{"global-label-format", &cfg.Label.GlobalFormat},
		{"metrics-textfile", &cfg.MetricsTextfile},
	} {
		if cmd.IsSet(o.flag) {
			*o.dst = cmd.String(o.flag)
		}
	}

	for _, o := range []struct {
		flag string
		dst  *time.Duration
	}{
		{"label-ttl", &cfg.LabelTTL},
		{"interval", &cfg.Interval},
		{"refresh-timeout", &cfg.RefreshTimeout},
	} {
		if cmd.IsSet(o.flag) {
			*o.dst = cmd.Duration(o.flag)
		}
	}

	if cmd.IsSet("zpool-props") {
		cfg.ZpoolProps = config.ParseProps(cmd.String("zpool-props"))
	}
	if cmd.IsSet("zfs-dataset-props") {
		cfg.DatasetProps = config.ParseProps(cmd.String("zfs-dataset-props"))
	}
	if cmd.IsSet("oneshot") {
		cfg.Oneshot = cmd.Bool("oneshot")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newRunner wires the pool managers, the global probe and the feature
// manager for cfg.
func newRunner(cfg *config.Config) (*runner.Runner, error) {
	fcfg, err := cfg.Features()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mgr, err := features.NewManager(fcfg, globals.NewProbe(cfg.ZfsCommand, cfg.HostIDCommand))
	if err != nil {
		return nil, err
	}

	zpoolCmd := zpool.NewZpoolCommand(cfg.ZpoolCommand)
	zfsCmd := zpool.NewZfsCommand(cfg.ZfsCommand)

	pools := make([]features.PoolSource, 0, len(cfg.Zpools))
	for _, pool := range cfg.PoolNames() {
		m := zpool.NewManager(pool, cfg.Zpools[pool], zpoolCmd, zfsCmd)
		slog.Info("registering pool", slog.String("pool", m.String()))
		pools = append(pools, m)
	}
	if len(pools) == 0 {
		slog.Warn("no pools configured, publishing global properties only")
	}
	if err := mgr.Register(pools...); err != nil {
		return nil, err
	}

	return &runner.Runner{
		Refresher:       mgr,
		Interval:        cfg.Interval,
		Timeout:         cfg.RefreshTimeout,
		Oneshot:         cfg.Oneshot,
		MetricsTextfile: cfg.MetricsTextfile,
	}, nil
}
