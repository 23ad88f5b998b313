// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"github.com/gomlx/opgen/pkg/support/sets"
	"github.com/gomlx/opgen/pkg/support/xslices"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// The manifest is the machine-parseable record of every generated operation.
// Optional fields are dropped (omitempty) rather than serialized as null, so
// the manifest stays minimal and byte-stable across runs.

type manifestArgument struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Size      int    `yaml:"size,omitempty"`
	Nullable  bool   `yaml:"nullable,omitempty"`
	Output    bool   `yaml:"output,omitempty"`
	KwargOnly bool   `yaml:"kwarg_only,omitempty"`
	Default   string `yaml:"default,omitempty"`
}

type manifestReturn struct {
	Name        string `yaml:"name"`
	DynamicType string `yaml:"dynamic_type"`
}

type manifestEntry struct {
	Name        string             `yaml:"name"`
	Mode        string             `yaml:"mode"`
	Variants    []string           `yaml:"variants"`
	Backends    []string           `yaml:"backends"`
	Inplace     bool               `yaml:"inplace"`
	Deprecated  bool               `yaml:"deprecated,omitempty"`
	ScalarTypes []string           `yaml:"scalar_types,omitempty"`
	Arguments   []manifestArgument `yaml:"arguments"`
	Returns     []manifestReturn   `yaml:"returns"`
	Buffers     []string           `yaml:"buffers,omitempty"`
}

// FormatManifest serializes the postprocessed declarations as the YAML
// manifest. Declarations must already have every return named.
func FormatManifest(decls []*Declaration) (string, error) {
	entries := make([]manifestEntry, 0, len(decls))
	for _, d := range decls {
		entries = append(entries, manifestEntry{
			Name:        d.Name,
			Mode:        d.Mode.String(),
			Variants:    variantNames(d.Variants),
			Backends:    d.Backends,
			Inplace:     d.Inplace,
			Deprecated:  d.Deprecated,
			ScalarTypes: d.ScalarTypes,
			Arguments: xslices.Map(d.Arguments, func(arg *Argument) manifestArgument {
				return manifestArgument{
					Name:      arg.Name,
					Type:      arg.Type.String(),
					Size:      arg.Size,
					Nullable:  arg.Nullable,
					Output:    arg.Output,
					KwargOnly: arg.KwargOnly,
					Default:   arg.Default,
				}
			}),
			Returns: xslices.Map(d.Returns, func(ret *ReturnSlot) manifestReturn {
				return manifestReturn{Name: ret.Name, DynamicType: ret.DynamicType.String()}
			}),
			Buffers: d.Buffers,
		})
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", errors.Wrapf(err, "serializing manifest with %d declarations", len(entries))
	}
	return string(data), nil
}

func variantNames(variants sets.Set[Variant]) []string {
	return xslices.Map(sets.Sorted(variants), func(v Variant) string { return string(v) })
}
