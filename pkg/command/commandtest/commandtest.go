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

// Package commandtest builds fake command-line tools for tests.
//
// A fake is a small shell script written into a test temp directory. It
// prints fixed standard output and standard error, exits with a fixed
// status and records the arguments of every invocation so tests can assert
// how the tool was called.
package commandtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// argSeparator separates recorded arguments within one invocation.
const argSeparator = "\x1f"

// Response is what a fake tool produces when invoked.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Delay is how long the tool sleeps before printing anything.
	Delay time.Duration
}

// Fake is a fake tool on disk.
type Fake struct {
	Path     string
	argsFile string
}

// New writes a fake tool named name that answers every call with r.
func New(t testing.TB, name string, r Response) *Fake {
	t.Helper()

	dir := t.TempDir()
	f := &Fake{
		Path:     filepath.Join(dir, name),
		argsFile: filepath.Join(dir, name+".args"),
	}

	stdoutFile := filepath.Join(dir, name+".stdout")
	stderrFile := filepath.Join(dir, name+".stderr")
	writeFile(t, stdoutFile, r.Stdout, 0o600)
	writeFile(t, stderrFile, r.Stderr, 0o600)

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("sep=$(printf '\\037')\n")
	sb.WriteString("line=\n")
	sb.WriteString("for a in \"$@\"; do line=\"$line$a$sep\"; done\n")
	fmt.Fprintf(&sb, "printf '%%s\\n' \"$line\" >> %s\n", quote(f.argsFile))
	if r.Delay > 0 {
		fmt.Fprintf(&sb, "sleep %.3f\n", r.Delay.Seconds())
	}
	fmt.Fprintf(&sb, "cat %s\n", quote(stdoutFile))
	fmt.Fprintf(&sb, "cat %s >&2\n", quote(stderrFile))
	fmt.Fprintf(&sb, "exit %d\n", r.ExitCode)

	writeFile(t, f.Path, sb.String(), 0o755)
	return f
}

// Calls returns the arguments of every invocation so far, in order.
func (f *Fake) Calls(t testing.TB) [][]string {
	t.Helper()

	data, err := os.ReadFile(f.argsFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}

	var calls [][]string
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		args := []string{}
		if line != "" {
			args = strings.Split(strings.TrimSuffix(line, argSeparator), argSeparator)
		}
		calls = append(calls, args)
	}
	return calls
}

// MissingPath returns an absolute path where no executable exists.
func MissingPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing", name)
}

func writeFile(t testing.TB, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("failed to chmod %s: %v", path, err)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
