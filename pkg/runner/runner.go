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

// Package runner drives refresh cycles until shutdown.
//
// A Runner refreshes immediately and then once per interval, bounding every
// cycle with a timeout. In oneshot mode it returns after the first cycle.
//
// When running under systemd the Runner reports readiness after the first
// cycle and pings the watchdog after every cycle. When a metrics textfile is
// configured, the default Prometheus registry is written to it after every
// cycle for the node exporter textfile collector.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"

	"github.com/danielkza/zfs-feature-discovery/pkg/features"
)

// Refresher runs one refresh cycle. features.Manager implements it.
type Refresher interface {
	Refresh(ctx context.Context) (*features.Result, error)
}

// Notifier sends a state string to the service manager. It has the
// signature of daemon.SdNotify.
type Notifier func(unsetEnvironment bool, state string) (bool, error)

// Runner repeats refresh cycles.
type Runner struct {
	Refresher Refresher

	// Interval is the pause between the start of consecutive cycles.
	Interval time.Duration
	// Timeout bounds one cycle. Zero means no timeout.
	Timeout time.Duration
	// Oneshot stops after the first cycle.
	Oneshot bool
	// MetricsTextfile, if set, receives the metrics after every cycle.
	MetricsTextfile string

	// Notify defaults to daemon.SdNotify.
	Notify Notifier
	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Clock defaults to the real clock.
	Clock clock.Clock
}

// Run refreshes until ctx is done. In oneshot mode it returns the error of
// the single cycle; otherwise cycle errors are logged and Run returns nil on
// shutdown.
func (r *Runner) Run(ctx context.Context) error {
	if r.Refresher == nil {
		return fmt.Errorf("runner requires a refresher")
	}
	if !r.Oneshot && r.Interval <= 0 {
		return fmt.Errorf("invalid refresh interval: %s", r.Interval)
	}

	clk := r.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	if r.Oneshot {
		_, err := r.cycle(ctx)
		r.writeMetrics()
		return err
	}

	watchdog := r.watchdogInterval()
	ready := false

	for {
		start := clk.Now()
		if _, err := r.cycle(ctx); err != nil {
			slog.Error("refresh failed", slog.String("error", err.Error()))
		}
		r.writeMetrics()

		if !ready {
			r.notify(daemon.SdNotifyReady)
			ready = true
		}
		if watchdog > 0 {
			r.notify(daemon.SdNotifyWatchdog)
		}

		wait := r.Interval - clk.Since(start)
		if wait < 0 {
			wait = 0
		}
		slog.Debug("waiting for next refresh", slog.Duration("wait", wait))

		select {
		case <-ctx.Done():
			slog.Info("stopping refresh loop")
			r.notify(daemon.SdNotifyStopping)
			return nil
		case <-clk.After(wait):
		}
	}
}

func (r *Runner) cycle(ctx context.Context) (*features.Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Refresher.Refresh(ctx)
}

func (r *Runner) writeMetrics() {
	if r.MetricsTextfile == "" {
		return
	}
	g := r.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(r.MetricsTextfile, g); err != nil {
		slog.Warn("failed to write metrics textfile",
			slog.String("path", r.MetricsTextfile), slog.String("error", err.Error()))
	}
}

func (r *Runner) notify(state string) {
	notify := r.Notify
	if notify == nil {
		notify = daemon.SdNotify
	}
	sent, err := notify(false, state)
	if err != nil {
		slog.Warn("failed to notify service manager", slog.String("state", state), slog.String("error", err.Error()))
		return
	}
	if sent {
		slog.Debug("notified service manager", slog.String("state", state))
	}
}

func (r *Runner) watchdogInterval() time.Duration {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		slog.Warn("invalid watchdog configuration", slog.String("error", err.Error()))
		return 0
	}
	if interval > 0 && interval <= r.Interval {
		slog.Warn("watchdog interval is shorter than the refresh interval",
			slog.Duration("watchdog", interval), slog.Duration("interval", r.Interval))
	}
	return interval
}
