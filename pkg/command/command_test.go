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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielkza/zfs-feature-discovery/pkg/command/commandtest"
	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
)

// captureLogs redirects the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCommand_Name(t *testing.T) {
	c := New("/usr/sbin/zpool", []string{"get", "-Hp"})
	assert.Equal(t, "zpool", c.Name())
	assert.Equal(t, "/usr/sbin/zpool", c.Path())
	assert.Equal(t, "/usr/sbin/zpool get -Hp", c.String())
	assert.Equal(t, []string{"get", "-Hp", "all", "tank"}, c.Args("all", "tank"))
	assert.Equal(t, []string{"get", "-Hp"}, c.Args(), "fixed args must not be mutated")
}

func TestProcess_Lines(t *testing.T) {
	tests := []struct {
		name     string
		response commandtest.Response
		want     []string
		wantCode int
	}{
		{
			name:     "multiple lines",
			response: commandtest.Response{Stdout: "one\ntwo\nthree\n"},
			want:     []string{"one", "two", "three"},
		},
		{
			name:     "no trailing newline",
			response: commandtest.Response{Stdout: "one\ntwo"},
			want:     []string{"one", "two"},
		},
		{
			name:     "carriage returns trimmed",
			response: commandtest.Response{Stdout: "one\r\ntwo\r\n"},
			want:     []string{"one", "two"},
		},
		{
			name:     "empty output",
			response: commandtest.Response{},
			want:     nil,
		},
		{
			name:     "non-zero exit keeps output",
			response: commandtest.Response{Stdout: "partial\n", ExitCode: 3},
			want:     []string{"partial"},
			wantCode: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := commandtest.New(t, "tool", tt.response)
			p, err := New(fake.Path, nil).Start(t.Context())
			require.NoError(t, err)

			got := slices.Collect(p.Lines())
			code, err := p.Wait()
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestProcess_LinesSinglePass(t *testing.T) {
	fake := commandtest.New(t, "tool", commandtest.Response{Stdout: "a\nb\n"})
	p, err := New(fake.Path, nil).Start(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, slices.Collect(p.Lines()))
	assert.Empty(t, slices.Collect(p.Lines()))

	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestProcess_WaitAfterEarlyStop(t *testing.T) {
	var sb strings.Builder
	for i := range 50000 {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	fake := commandtest.New(t, "tool", commandtest.Response{Stdout: sb.String(), ExitCode: 2})

	p, err := New(fake.Path, nil).Start(t.Context())
	require.NoError(t, err)

	for line := range p.Lines() {
		assert.Equal(t, "line 0", line)
		break
	}

	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	code, err = p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, code, "wait is idempotent")
}

func TestProcess_WaitWithoutReading(t *testing.T) {
	fake := commandtest.New(t, "tool", commandtest.Response{Stdout: "ignored\n", ExitCode: 1})
	p, err := New(fake.Path, nil).Start(t.Context())
	require.NoError(t, err)

	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestProcess_LargeStderrDoesNotBlock(t *testing.T) {
	captureLogs(t)

	var stdout, stderr strings.Builder
	for i := range 20000 {
		fmt.Fprintf(&stdout, "out %d\n", i)
		fmt.Fprintf(&stderr, "err %d\n", i)
	}
	fake := commandtest.New(t, "tool", commandtest.Response{Stdout: stdout.String(), Stderr: stderr.String()})

	p, err := New(fake.Path, nil).Start(t.Context())
	require.NoError(t, err)

	count := 0
	for range p.Lines() {
		count++
	}
	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, 20000, count)
}

func TestProcess_StderrLoggedAsWarnings(t *testing.T) {
	logs := captureLogs(t)

	fake := commandtest.New(t, "zpool", commandtest.Response{
		Stdout: "ok\n",
		Stderr: "cannot open 'nope': no such pool\n\nsecond\n",
	})
	p, err := New(fake.Path, nil).Start(t.Context())
	require.NoError(t, err)
	_ = slices.Collect(p.Lines())
	_, err = p.Wait()
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `level=WARN msg="zpool: cannot open 'nope': no such pool" command=zpool`)
	assert.Contains(t, out, `level=WARN msg="zpool: second" command=zpool`)
	assert.NotContains(t, out, `msg="zpool: "`, "blank stderr lines are skipped")
}

func TestCommand_StartPassesArgs(t *testing.T) {
	fake := commandtest.New(t, "zfs", commandtest.Response{})
	p, err := New(fake.Path, []string{"get", "-Hp", "all"}).Start(t.Context(), "tank/a", "tank/b")
	require.NoError(t, err)
	_, err = p.Wait()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"get", "-Hp", "all", "tank/a", "tank/b"}}, fake.Calls(t))
}

func TestCommand_StartLaunchFailure(t *testing.T) {
	_, err := New(commandtest.MissingPath(t, "zpool"), nil).Start(t.Context())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeLaunchFailed))
}

func TestCommand_Output(t *testing.T) {
	tests := []struct {
		name     string
		response commandtest.Response
		want     string
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "success",
			response: commandtest.Response{Stdout: "zfs-2.2.2-1\nzfs-kmod-2.2.2-1\n"},
			want:     "zfs-2.2.2-1\nzfs-kmod-2.2.2-1",
		},
		{
			name:     "non-zero exit",
			response: commandtest.Response{Stdout: "zfs-2.2.2-1\n", ExitCode: 1},
			wantCode: apperrors.ErrCodeCommandFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := commandtest.New(t, "zfs", tt.response)
			got, err := New(fake.Path, []string{"version"}).Output(t.Context())
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_OutputLaunchFailure(t *testing.T) {
	_, err := New(commandtest.MissingPath(t, "hostid"), nil).Output(t.Context())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLaunchFailed, apperrors.CodeOf(err))
}

func TestCommand_CancelledContext(t *testing.T) {
	fake := commandtest.New(t, "tool", commandtest.Response{Stdout: "late\n", Delay: 2 * time.Second})

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	p, err := New(fake.Path, nil).Start(ctx)
	require.NoError(t, err)
	_ = slices.Collect(p.Lines())
	code, err := p.Wait()
	require.NoError(t, err)

	assert.Equal(t, -1, code, "killed process reports -1")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCommand_LogFailureThrottlesLaunchErrors(t *testing.T) {
	logs := captureLogs(t)

	c := New(commandtest.MissingPath(t, "zpool"), nil)
	for range 3 {
		_, err := c.Start(t.Context())
		require.Error(t, err)
		c.LogFailure("failed to run zpool", err)
	}

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, `level=WARN msg="failed to run zpool"`))
	assert.Equal(t, 2, strings.Count(out, `level=DEBUG msg="failed to run zpool"`))
}

func TestCommand_CloneHasOwnThrottle(t *testing.T) {
	logs := captureLogs(t)

	c := New(commandtest.MissingPath(t, "zpool"), []string{"get"})
	clone := c.Clone()
	assert.Equal(t, c.String(), clone.String())

	for _, cmd := range []*Command{c, clone, c, clone} {
		_, err := cmd.Start(t.Context())
		require.Error(t, err)
		cmd.LogFailure("failed to run zpool", err)
	}

	out := logs.String()
	assert.Equal(t, 2, strings.Count(out, `level=WARN msg="failed to run zpool"`))
	assert.Equal(t, 2, strings.Count(out, `level=DEBUG msg="failed to run zpool"`))
}

func TestCommand_LogFailureDoesNotThrottleOtherErrors(t *testing.T) {
	logs := captureLogs(t)

	c := New("/usr/sbin/zpool", nil)
	err := apperrors.New(apperrors.ErrCodeCommandFailed, "zpool exited with status 1")
	c.LogFailure("failed to run zpool", err)
	c.LogFailure("failed to run zpool", err)

	assert.Equal(t, 2, strings.Count(logs.String(), `level=WARN msg="failed to run zpool"`))
}
