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
	"log/slog"
	"slices"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/danielkza/zfs-feature-discovery/pkg/defaults"
	"github.com/danielkza/zfs-feature-discovery/pkg/featurefile"
)

func labelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "labels",
		Usage: "Show the labels in the published feature files",
		Description: `Read every feature file with the prefix from the feature directory and print
the merged labels. Comment and blank lines are skipped and each label line is
split on its first '='.

With --files the labels are printed per file together with their expiry time.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "feature-dir",
				Value:   defaults.FeatureDir,
				Usage:   "Directory the feature files are read from",
				Sources: envVars("feature-dir"),
			},
			&cli.StringFlag{
				Name:    "prefix",
				Value:   defaults.FeatureFilePrefix,
				Usage:   "Name prefix of the feature files",
				Sources: envVars("feature-file-prefix"),
			},
			&cli.BoolFlag{
				Name:  "files",
				Usage: "Print the labels of each file instead of the merged labels",
			},
			&cli.BoolFlag{
				Name:  "skip-expired",
				Usage: "Ignore files whose expiry time has passed",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			reader := featurefile.NewReader(featurefile.WithPrefix(cmd.String("prefix")))
			files, err := reader.ReadDir(cmd.String("feature-dir"))
			if err != nil {
				return err
			}

			if cmd.Bool("skip-expired") {
				now := time.Now()
				files = slices.DeleteFunc(files, func(f *featurefile.File) bool {
					if f.Expired(now) {
						slog.Debug("skipping expired feature file", slog.String("path", f.Path))
						return true
					}
					return false
				})
			}

			ser := newOutputWriter(cmd, outFormat)
			defer func() {
				if err := ser.Close(); err != nil {
					slog.Warn("failed to close serializer", "error", err)
				}
			}()

			if cmd.Bool("files") {
				if files == nil {
					files = []*featurefile.File{}
				}
				return ser.Serialize(ctx, files)
			}
			return ser.Serialize(ctx, featurefile.Merge(files))
		},
	}
}
