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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewReader(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantMax    int
		wantPrefix string
	}{
		{name: "default options", wantMax: DefaultMaxSize},
		{name: "custom max size", opts: []Option{WithMaxSize(10)}, wantMax: 10},
		{name: "prefix", opts: []Option{WithPrefix("zfs-")}, wantMax: DefaultMaxSize, wantPrefix: "zfs-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.opts...)
			assert.Equal(t, tt.wantMax, r.maxSize)
			assert.Equal(t, tt.wantPrefix, r.prefix)
		})
	}
}

func TestReader_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "zfs-zpool.rpool", Header+"\n"+
		"example.io/zpool.rpool.health=ONLINE\n"+
		"example.io/zpool.rpool.comment=\n"+
		"  example.io/zpool.rpool.size = 944892805120  \n"+
		"\n"+
		"# another comment\n"+
		"example.io/flag\n"+
		"example.io/eq=a=b\n"+
		ExpiryPrefix+"2024-02-07T11:42:08.052969Z\n")

	f, err := NewReader().ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, f.Path)
	assert.Equal(t, map[string]string{
		"example.io/zpool.rpool.health":  "ONLINE",
		"example.io/zpool.rpool.comment": "",
		"example.io/zpool.rpool.size":    "944892805120",
		"example.io/flag":                "true",
		"example.io/eq":                  "a=b",
	}, f.Labels)
	assert.Equal(t, time.Date(2024, 2, 7, 11, 42, 8, 52969000, time.UTC), f.Expiry)
	assert.False(t, f.Expired(time.Date(2024, 2, 7, 11, 0, 0, 0, time.UTC)))
	assert.True(t, f.Expired(time.Date(2024, 2, 7, 12, 0, 0, 0, time.UTC)))
}

func TestReader_ReadFileNoExpiry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f", "a=b\n"+ExpiryPrefix+"not-a-time\n")

	f, err := NewReader().ReadFile(path)
	require.NoError(t, err)
	assert.True(t, f.Expiry.IsZero())
	assert.False(t, f.Expired(time.Now()))
}

func TestReader_ReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewReader().ReadFile("")
	assert.Error(t, err)

	_, err = NewReader().ReadFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	big := writeFile(t, dir, "big", strings.Repeat("a=b\n", 100))
	_, err = NewReader(WithMaxSize(10)).ReadFile(big)
	assert.ErrorContains(t, err, "exceeds maximum size")

	bad := writeFile(t, dir, "bad", "a=\xff\n")
	_, err = NewReader().ReadFile(bad)
	assert.ErrorContains(t, err, "not valid UTF-8")
}

func TestReader_ReadDirAndMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zfs-global", "ns/ver=2.2.2\nns/shared=global\n")
	writeFile(t, dir, "zfs-zpool.rpool", "ns/zpool.rpool.health=ONLINE\nns/shared=pool\n")
	writeFile(t, dir, "other", "ns/other=1\n")
	writeFile(t, dir, ".tmp-zfs-zpool.rpool123", "ns/partial=1\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zfs-dir"), 0o755))

	files, err := NewReader(WithPrefix("zfs-")).ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "zfs-global"), files[0].Path)

	assert.Equal(t, map[string]string{
		"ns/ver":                "2.2.2",
		"ns/zpool.rpool.health": "ONLINE",
		"ns/shared":             "pool",
	}, Merge(files))
}

func TestReader_ReadDirSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zfs-global", "ns/ver=2.2.2\n")
	writeFile(t, dir, "zfs-zfs.rpool", strings.Repeat("ns/zfs.rpool.data.type=filesystem\n", 10))
	writeFile(t, dir, "zfs-zpool.rpool", "ns/zpool.rpool.health=\xff\n")

	files, err := NewReader(WithPrefix("zfs-"), WithMaxSize(64)).ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "zfs-global"), files[0].Path)
}

func TestReader_ReadDirMissing(t *testing.T) {
	_, err := NewReader().ReadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
