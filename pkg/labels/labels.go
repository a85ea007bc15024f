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

package labels

import (
	"fmt"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	apperrors "github.com/danielkza/zfs-feature-discovery/pkg/errors"
)

// Placeholder names.
const (
	PoolName     = "pool_name"
	DatasetName  = "dataset_name"
	PropertyName = "property_name"
)

// Kind is the kind of entity a label format describes.
type Kind int

const (
	KindPool Kind = iota
	KindDataset
	KindGlobal
)

func (k Kind) String() string {
	switch k {
	case KindPool:
		return "zpool"
	case KindDataset:
		return "zfs_dataset"
	case KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Placeholders returns the placeholders allowed for the kind.
func (k Kind) Placeholders() []string {
	switch k {
	case KindPool:
		return []string{PoolName, PropertyName}
	case KindDataset:
		return []string{PoolName, DatasetName, PropertyName}
	case KindGlobal:
		return []string{PropertyName}
	default:
		return nil
	}
}

// Values are the placeholder values substituted by Render. Fields not used
// by the format are ignored.
type Values struct {
	Pool     string
	Dataset  string
	Property string
}

func (v Values) get(placeholder string) string {
	switch placeholder {
	case PoolName:
		return v.Pool
	case DatasetName:
		return v.Dataset
	case PropertyName:
		return v.Property
	}
	return ""
}

type segment struct {
	literal     string
	placeholder string
}

// Format is a parsed and validated label template.
type Format struct {
	kind     Kind
	raw      string
	segments []segment
}

// ParseFormat parses s as a template of the given kind.
func ParseFormat(kind Kind, s string) (*Format, error) {
	invalid := func(msg string) error {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid %s label format %q: %s", kind, s, msg),
			map[string]any{"kind": kind.String(), "format": s},
		)
	}

	if s == "" {
		return nil, invalid("format is empty")
	}

	allowed := kind.Placeholders()
	f := &Format{kind: kind, raw: s}
	hasProperty := false

	rest := s
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			open = len(rest)
		}
		if lit := rest[:open]; lit != "" {
			if i := strings.IndexFunc(lit, func(r rune) bool { return !isNameChar(r) }); i >= 0 {
				return nil, invalid(fmt.Sprintf("character %q not allowed", lit[i]))
			}
			f.segments = append(f.segments, segment{literal: lit})
		}
		if open == len(rest) {
			break
		}

		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, invalid("unterminated placeholder")
		}
		name := rest[open+1 : open+end]
		if !slices.Contains(allowed, name) {
			return nil, invalid(fmt.Sprintf("placeholder {%s} not allowed, must be one of %v", name, allowed))
		}
		if name == PropertyName {
			hasProperty = true
		}
		f.segments = append(f.segments, segment{placeholder: name})
		rest = rest[open+end+1:]
	}

	if !hasProperty {
		return nil, invalid("{" + PropertyName + "} is required")
	}

	return f, nil
}

// MustParseFormat is like ParseFormat but panics on error.
func MustParseFormat(kind Kind, s string) *Format {
	f, err := ParseFormat(kind, s)
	if err != nil {
		panic(err)
	}
	return f
}

// Kind returns the kind the format was parsed for.
func (f *Format) Kind() Kind {
	return f.kind
}

func (f *Format) String() string {
	return f.raw
}

// Render substitutes sanitized values into the template.
func (f *Format) Render(v Values) string {
	var sb strings.Builder
	for _, seg := range f.segments {
		if seg.placeholder == "" {
			sb.WriteString(seg.literal)
			continue
		}
		sb.WriteString(Sanitize(v.get(seg.placeholder)))
	}
	return sb.String()
}

// Sanitize replaces every character outside [A-Za-z0-9_.-] with '_'.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isNameChar(r) {
			return r
		}
		return '_'
	}, s)
}

func isNameChar(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '-' || r == '_' || r == '.'
}

// ValidateNamespace checks that ns can prefix a label key.
func ValidateNamespace(ns string) error {
	if errs := validation.IsDNS1123Subdomain(ns); len(errs) > 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid label namespace %q: %s", ns, strings.Join(errs, "; ")),
			map[string]any{"namespace": ns},
		)
	}
	return nil
}

// Key joins a namespace and a rendered label name.
func Key(namespace, name string) string {
	return namespace + "/" + name
}

// ValidateKey reports why key is not a valid qualified label name. It
// returns nil for a valid key.
func ValidateKey(key string) []string {
	return validation.IsQualifiedName(key)
}
