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

package property

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"

	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
)

// Source is the provenance of a property value.
type Source string

const (
	SourceDefault   Source = "default"
	SourceLocal     Source = "local"
	SourceInherited Source = "inherited"
	SourceTemporary Source = "temporary"
	SourceReceived  Source = "received"
	SourceUnknown   Source = "unknown"
)

// fieldCount is the number of tab-separated fields in one output line.
const fieldCount = 4

// ParseSource maps a source token to a Source. The tool reports inherited
// values as "inherited from <dataset>".
func ParseSource(s string) Source {
	switch src := Source(s); src {
	case SourceDefault, SourceLocal, SourceInherited, SourceTemporary, SourceReceived:
		return src
	}
	if strings.HasPrefix(s, string(SourceInherited)+" from ") {
		return SourceInherited
	}
	return SourceUnknown
}

// Property is one reported property of a pool or dataset.
type Property struct {
	Owner  string `json:"owner" yaml:"owner"`
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value" yaml:"value"`
	Source Source `json:"source" yaml:"source"`
}

func (p Property) String() string {
	return fmt.Sprintf("%s %s=%s (%s)", p.Owner, p.Name, p.Value, p.Source)
}

// Parse parses one output line.
func Parse(line string) (Property, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return Property{}, apperrors.NewWithContext(apperrors.ErrCodeMalformedInput,
			fmt.Sprintf("expected %d tab-separated fields, got %d", fieldCount, len(fields)),
			map[string]any{"line": line},
		)
	}
	return Property{
		Owner:  fields[0],
		Name:   fields[1],
		Value:  fields[2],
		Source: ParseSource(fields[3]),
	}, nil
}

// Stream parses lines lazily. Malformed lines are logged and skipped; blank
// lines are skipped silently.
func Stream(lines iter.Seq[string]) iter.Seq[Property] {
	return func(yield func(Property) bool) {
		for line := range lines {
			if strings.TrimSpace(line) == "" {
				slog.Debug("skipping blank property line")
				continue
			}
			p, err := Parse(line)
			if err != nil {
				slog.Warn("skipping malformed property line",
					slog.String("line", line),
					slog.String("error", err.Error()))
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Set maps property names to properties of a single owner.
type Set map[string]Property

// Value returns the value of the named property and whether it was reported.
func (s Set) Value(name string) (string, bool) {
	p, ok := s[name]
	return p.Value, ok
}

// Collect folds props into a Set. Later duplicates overwrite earlier ones.
func Collect(props iter.Seq[Property]) Set {
	s := Set{}
	for p := range props {
		s[p.Name] = p
	}
	return s
}

// GroupByOwner folds props into one Set per owner. Records for the same
// owner need not be contiguous.
func GroupByOwner(props iter.Seq[Property]) map[string]Set {
	groups := map[string]Set{}
	for p := range props {
		s, ok := groups[p.Owner]
		if !ok {
			s = Set{}
			groups[p.Owner] = s
		}
		s[p.Name] = p
	}
	return groups
}
