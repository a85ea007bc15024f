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

package featurefile

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Header is the generator comment written at the top of every file.
	Header = "# Generated by zfs-feature-discovery"

	// ExpiryPrefix starts the expiry directive comment.
	ExpiryPrefix = "# +expiry-time="

	// ExpiryLayout formats expiry times as UTC with microsecond precision.
	ExpiryLayout = "2006-01-02T15:04:05.000000Z"

	// DefaultMaxSize is the default maximum size of a feature file. A dataset
	// file holds every configured dataset of a pool and can grow large.
	DefaultMaxSize = 16 << 20

	// defaultValue is the value of a label line without '='.
	defaultValue = "true"
)

// Option configures a Reader.
type Option func(*Reader)

// WithMaxSize sets the maximum size in bytes of a feature file.
// Default is DefaultMaxSize.
func WithMaxSize(size int) Option {
	return func(r *Reader) {
		r.maxSize = size
	}
}

// WithPrefix restricts ReadDir to files whose name starts with prefix.
// Default is no restriction.
func WithPrefix(prefix string) Option {
	return func(r *Reader) {
		r.prefix = prefix
	}
}

// Reader parses feature files.
type Reader struct {
	maxSize int
	prefix  string
}

// NewReader creates a Reader with the provided options.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// File is a parsed feature file.
type File struct {
	Path   string            `json:"path" yaml:"path"`
	Labels map[string]string `json:"labels" yaml:"labels"`
	// Expiry is zero when the file has no expiry directive.
	Expiry time.Time `json:"expiry,omitzero" yaml:"expiry,omitempty"`
}

// Expired reports whether the file has an expiry time before now.
func (f *File) Expired(now time.Time) bool {
	return !f.Expiry.IsZero() && now.After(f.Expiry)
}

// ReadFile parses the feature file at path.
func (r *Reader) ReadFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if len(b) > r.maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum size of %d bytes", path, r.maxSize)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("content of file %q is not valid UTF-8", path)
	}

	f := &File{Path: path, Labels: map[string]string{}}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			v, ok := strings.CutPrefix(line, ExpiryPrefix)
			if !ok {
				continue
			}
			expiry, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
			if err != nil {
				slog.Warn("ignoring invalid expiry time", slog.String("path", path), slog.String("value", v))
				continue
			}
			f.Expiry = expiry
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found {
			value = defaultValue
		}
		f.Labels[key] = strings.TrimSpace(value)
	}

	return f, nil
}

// ReadDir parses every regular file in dir whose name starts with the
// configured prefix, in name order. Hidden files are skipped. A file that
// cannot be read is logged and skipped; only a directory read error fails.
func (r *Reader) ReadDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", dir, err)
	}

	var files []*File
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, r.prefix) || !e.Type().IsRegular() {
			continue
		}
		f, err := r.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("skipping unreadable feature file", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// Merge combines the labels of files. Later files win on conflicting keys.
func Merge(files []*File) map[string]string {
	labels := map[string]string{}
	for _, f := range files {
		maps.Copy(labels, f.Labels)
	}
	return labels
}
