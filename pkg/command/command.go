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

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	utilexec "k8s.io/utils/exec"

	"github.com/danielkza/zfs-feature-discovery/pkg/defaults"
	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
)

// maxLineSize is the longest output line accepted from a tool.
const maxLineSize = 1 << 20

// Option configures a Command.
type Option func(*Command)

// WithExec sets the exec implementation used to launch processes.
// Default is utilexec.New().
func WithExec(e utilexec.Interface) Option {
	return func(c *Command) {
		c.exec = e
	}
}

// Command describes how to invoke an external tool.
type Command struct {
	path string
	args []string
	exec utilexec.Interface

	launchWarn *rate.Sometimes
}

// New creates a Command for the executable at path with fixed leading args.
func New(path string, args []string, opts ...Option) *Command {
	c := &Command{
		path:       path,
		args:       slices.Clone(args),
		exec:       utilexec.New(),
		launchWarn: &rate.Sometimes{First: 1, Interval: defaults.LaunchWarnInterval},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone returns a copy of c with its own launch-failure throttle.
func (c *Command) Clone() *Command {
	return &Command{
		path:       c.path,
		args:       slices.Clone(c.args),
		exec:       c.exec,
		launchWarn: &rate.Sometimes{First: 1, Interval: defaults.LaunchWarnInterval},
	}
}

// Name returns the executable name used to prefix diagnostics.
func (c *Command) Name() string {
	return filepath.Base(c.path)
}

// Path returns the executable path.
func (c *Command) Path() string {
	return c.path
}

// Args returns the full argument list for a call with the given extra args.
func (c *Command) Args(extra ...string) []string {
	return append(slices.Clone(c.args), extra...)
}

// String returns the command line for a call without extra args.
func (c *Command) String() string {
	return strings.Join(append([]string{c.path}, c.args...), " ")
}

// Start launches the tool with the fixed args followed by extra.
// The returned Process must be waited on.
func (c *Command) Start(ctx context.Context, extra ...string) (*Process, error) {
	args := c.Args(extra...)
	cmd := c.exec.CommandContext(ctx, c.path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, fmt.Sprintf("failed to open stdout of %s", c.Name()), err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, fmt.Sprintf("failed to open stderr of %s", c.Name()), err)
	}

	if err := cmd.Start(); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeLaunchFailed,
			fmt.Sprintf("failed to start %s", c.Name()), err,
			map[string]any{"command": c.path},
		)
	}

	slog.Debug("started command", slog.String("command", c.path), slog.Any("args", args))

	p := &Process{
		name:       c.Name(),
		started:    time.Now(),
		cmd:        cmd,
		stdout:     stdout,
		stderrDone: make(chan struct{}),
	}
	go p.drainStderr(stderr)

	return p, nil
}

// Output runs the tool to completion and returns its standard output with
// lines joined by newlines. A non-zero exit status is reported as an error
// with code COMMAND_FAILED.
func (c *Command) Output(ctx context.Context, extra ...string) (string, error) {
	p, err := c.Start(ctx, extra...)
	if err != nil {
		return "", err
	}

	lines := slices.Collect(p.Lines())

	code, err := p.Wait()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeCommandFailed, fmt.Sprintf("failed waiting for %s", c.Name()), err)
	}
	if code != 0 {
		return "", c.ExitError(code)
	}

	return strings.Join(lines, "\n"), nil
}

// ExitError returns the COMMAND_FAILED error reported for a non-zero exit.
func (c *Command) ExitError(code int) error {
	return apperrors.NewWithContext(apperrors.ErrCodeCommandFailed,
		fmt.Sprintf("%s exited with status %d", c.Name(), code),
		map[string]any{"command": c.path, "exit_code": code},
	)
}

// LogFailure logs an error returned by Start, Output or a non-zero exit.
// Repeated launch failures are reported at warning level at most once per
// defaults.LaunchWarnInterval and at debug level otherwise.
func (c *Command) LogFailure(msg string, err error) {
	attrs := []any{slog.String("command", c.path), slog.String("error", err.Error())}
	commandFailures.WithLabelValues(c.Name(), failureReason(err)).Inc()

	if !apperrors.IsCode(err, apperrors.ErrCodeLaunchFailed) {
		slog.Warn(msg, attrs...)
		return
	}

	warned := false
	c.launchWarn.Do(func() {
		warned = true
		slog.Warn(msg, attrs...)
	})
	if !warned {
		slog.Debug(msg, attrs...)
	}
}

// Process is a running tool started by Command.Start.
type Process struct {
	name    string
	started time.Time
	cmd     utilexec.Cmd
	stdout  io.Reader

	// mu serializes stdout reads between Lines and Wait.
	mu       sync.Mutex
	consumed bool

	stderrDone chan struct{}

	waitOnce sync.Once
	exitCode int
	waitErr  error
}

// Lines returns standard output as a single-pass sequence of lines without
// their trailing newline. Iterating a second time yields nothing.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.consumed {
			return
		}
		p.consumed = true

		scanner := bufio.NewScanner(p.stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			if !yield(strings.TrimRight(scanner.Text(), "\r")) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("failed reading command output", slog.String("command", p.name), slog.String("error", err.Error()))
		}
	}
}

// Wait discards unread standard output, waits for standard error to be
// drained and for the process to exit, and returns its exit status.
// A process killed by a signal reports -1. The error is non-nil only when
// waiting itself failed. Wait is safe to call more than once.
func (p *Process) Wait() (int, error) {
	p.waitOnce.Do(func() {
		p.mu.Lock()
		_, _ = io.Copy(io.Discard, p.stdout)
		p.consumed = true
		p.mu.Unlock()

		<-p.stderrDone

		p.exitCode, p.waitErr = exitStatus(p.cmd.Wait())
		commandDuration.WithLabelValues(p.name).Observe(time.Since(p.started).Seconds())
		slog.Debug("command finished", slog.String("command", p.name), slog.Int("exit_code", p.exitCode))
	})
	return p.exitCode, p.waitErr
}

func (p *Process) drainStderr(stderr io.Reader) {
	defer close(p.stderrDone)

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		slog.Warn(p.name+": "+line, slog.String("command", p.name))
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("stopped reading command stderr", slog.String("command", p.name), slog.String("error", err.Error()))
		_, _ = io.Copy(io.Discard, stderr)
	}
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, err
}

func failureReason(err error) string {
	switch {
	case apperrors.IsCode(err, apperrors.ErrCodeLaunchFailed):
		return "launch"
	case apperrors.IsCode(err, apperrors.ErrCodeCommandFailed):
		return "exit"
	default:
		return "other"
	}
}
