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

// Package globals probes host-wide ZFS attributes that belong to no pool:
// the userland tool version, the kernel module version and the host
// identifier.
//
// Each probe is independent and fault tolerant. A tool that cannot be
// launched or exits non-zero leaves the corresponding values empty.
package globals

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielkza/zfs-feature-discovery/pkg/command"
)

// Property names published in the global feature file.
const (
	PropVersion       = "ver"
	PropKernelVersion = "kver"
	PropHostID        = "hostid"
)

var (
	versionPattern       = regexp.MustCompile(`^zfs-(\d\S+)`)
	kernelVersionPattern = regexp.MustCompile(`^zfs-kmod-(\d\S+)`)
)

// Names returns the global property names, sorted.
func Names() []string {
	return []string{PropHostID, PropKernelVersion, PropVersion}
}

// Version holds the tool versions reported by `zfs version`. Empty fields
// were not reported.
type Version struct {
	Userland string `json:"userland,omitempty" yaml:"userland,omitempty"`
	Kernel   string `json:"kernel,omitempty" yaml:"kernel,omitempty"`
}

// ParseVersion extracts the first userland and kernel module versions found
// in the output of `zfs version`.
func ParseVersion(out string) Version {
	var v Version
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v.Userland == "" {
			if m := versionPattern.FindStringSubmatch(line); m != nil {
				v.Userland = m[1]
			}
		}
		if v.Kernel == "" {
			if m := kernelVersionPattern.FindStringSubmatch(line); m != nil {
				v.Kernel = m[1]
			}
		}
	}
	return v
}

// Properties is the result of one probe.
type Properties struct {
	Version
	HostID string `json:"hostid,omitempty" yaml:"hostid,omitempty"`
}

// Values returns the reported values keyed by property name. Properties
// that were not reported are omitted.
func (p Properties) Values() map[string]string {
	values := map[string]string{}
	if p.Userland != "" {
		values[PropVersion] = p.Userland
	}
	if p.Kernel != "" {
		values[PropKernelVersion] = p.Kernel
	}
	if p.HostID != "" {
		values[PropHostID] = p.HostID
	}
	return values
}

// Probe runs the global property commands.
type Probe struct {
	version *command.Command
	hostID  *command.Command
}

// NewProbe creates a Probe using the zfs and hostid executables at the
// given paths.
func NewProbe(zfsPath, hostIDPath string, opts ...command.Option) *Probe {
	return &Probe{
		version: command.New(zfsPath, []string{"version"}, opts...),
		hostID:  command.New(hostIDPath, nil, opts...),
	}
}

// Version runs `zfs version`. Both fields are empty on failure.
func (p *Probe) Version(ctx context.Context) Version {
	out, err := p.version.Output(ctx)
	if err != nil {
		p.version.LogFailure("failed to get zfs version", err)
		return Version{}
	}
	v := ParseVersion(out)
	slog.Debug("got zfs version", slog.String("userland", v.Userland), slog.String("kernel", v.Kernel))
	return v
}

// HostID returns the trimmed output of hostid. The second result is false
// on failure.
func (p *Probe) HostID(ctx context.Context) (string, bool) {
	out, err := p.hostID.Output(ctx)
	if err != nil {
		p.hostID.LogFailure("failed to get host id", err)
		return "", false
	}
	return strings.TrimSpace(out), true
}

// Properties runs both probes concurrently.
func (p *Probe) Properties(ctx context.Context) Properties {
	var props Properties

	var g errgroup.Group
	g.Go(func() error {
		props.Version = p.Version(ctx)
		return nil
	})
	g.Go(func() error {
		props.HostID, _ = p.HostID(ctx)
		return nil
	})
	_ = g.Wait()

	return props
}
