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

// Package command runs external tools and exposes their output as a lazy
// line sequence.
//
// # Overview
//
// A Command describes how to invoke a tool: the executable path and the
// fixed leading arguments. Every call to Start launches a fresh process and
// returns a Process handle; nothing about a running process is stored on
// the Command itself, so one Command can be used by concurrent callers.
//
// Each Process is serviced by two independent consumers:
//
//   - Lines yields standard output one line at a time, on the caller's
//     goroutine, as the tool produces it.
//   - A background goroutine started together with the process drains
//     standard error, logging every line at warning level prefixed with the
//     executable name.
//
// Both pipes are serviced concurrently, so a tool that writes a lot to
// either stream can never block on a full pipe buffer.
//
// Wait is the deferred exit code: it returns only after standard error was
// fully drained and the process terminated. Any standard output the caller
// did not consume is discarded first.
//
// # Consumption Modes
//
// Streaming mode, used for property acquisition:
//
//	p, err := cmd.Start(ctx, "rpool")
//	if err != nil {
//	    // launch failure (LAUNCH_FAILED)
//	}
//	for line := range p.Lines() {
//	    ...
//	}
//	code, err := p.Wait()
//
// Collect mode, used for short outputs:
//
//	out, err := cmd.Output(ctx)
//	// err carries COMMAND_FAILED for a non-zero exit
//
// # Errors
//
// A tool that cannot be started (missing, not executable, permission
// denied) yields an error with code LAUNCH_FAILED. A non-zero exit status is
// only an error in collect mode; streaming callers inspect the code returned
// by Wait themselves.
package command
