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

package features

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/danielkza/zfs-feature-discovery/pkg/featurefile"
	"github.com/danielkza/zfs-feature-discovery/pkg/globals"
	"github.com/danielkza/zfs-feature-discovery/pkg/labels"
	"github.com/danielkza/zfs-feature-discovery/pkg/property"
)

// FormatExpiry formats t as UTC with microsecond precision.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(featurefile.ExpiryLayout)
}

// Label is one key/value pair of a feature file.
type Label struct {
	Key   string
	Value string
}

// Document is the content of one feature file.
type Document struct {
	Name   string
	Labels []Label
}

// Bytes renders the document. Labels are sorted by key.
func (d *Document) Bytes(expiry time.Time, hasExpiry bool) []byte {
	sorted := slices.SortedStableFunc(slices.Values(d.Labels), func(a, b Label) int {
		return cmp.Compare(a.Key, b.Key)
	})

	var sb strings.Builder
	sb.WriteString(featurefile.Header)
	sb.WriteByte('\n')
	for _, l := range sorted {
		sb.WriteString(l.Key)
		sb.WriteByte('=')
		sb.WriteString(l.Value)
		sb.WriteByte('\n')
	}
	if hasExpiry {
		sb.WriteString(featurefile.ExpiryPrefix)
		sb.WriteString(FormatExpiry(expiry))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func (m *Manager) addLabel(log *slog.Logger, doc *Document, f *labels.Format, v labels.Values, value string) {
	key := labels.Key(m.cfg.Namespace, f.Render(v))
	if errs := labels.ValidateKey(key); len(errs) > 0 {
		attrs := []any{
			slog.String("label", key),
			slog.String("file", doc.Name),
			slog.String("reason", strings.Join(errs, "; ")),
		}
		// warn once per key per process
		if _, warned := m.warnedKeys.LoadOrStore(key, struct{}{}); warned {
			log.Debug("label is not a valid qualified name", attrs...)
		} else {
			log.Warn("label is not a valid qualified name", attrs...)
		}
	}
	doc.Labels = append(doc.Labels, Label{Key: key, Value: value})
}

func (m *Manager) renderPool(log *slog.Logger, pool PoolSource, props property.Set) *Document {
	doc := &Document{Name: m.poolFileName(pool)}
	for _, name := range m.cfg.PoolProps {
		value, _ := props.Value(name)
		m.addLabel(log, doc, m.cfg.PoolFormat, labels.Values{Pool: pool.Name(), Property: name}, value)
	}
	return doc
}

func (m *Manager) renderDatasets(log *slog.Logger, pool PoolSource, props map[string]property.Set) *Document {
	doc := &Document{Name: m.datasetFileName(pool)}
	for _, ds := range pool.Datasets() {
		set := props[pool.DatasetPath(ds)]
		for _, name := range m.cfg.DatasetProps {
			value, _ := set.Value(name)
			m.addLabel(log, doc, m.cfg.DatasetFormat, labels.Values{Pool: pool.Name(), Dataset: ds, Property: name}, value)
		}
	}
	return doc
}

func (m *Manager) renderGlobal(log *slog.Logger, props globals.Properties) *Document {
	doc := &Document{Name: m.globalFileName()}
	values := props.Values()
	for _, name := range globals.Names() {
		m.addLabel(log, doc, m.cfg.GlobalFormat, labels.Values{Property: name}, values[name])
	}
	return doc
}
