// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFormatManifest(t *testing.T) {
	decls := Normalize([]Raw{{
		Name: "add",
		Arguments: []RawArgument{
			{Spelling: "Tensor self"},
			{Spelling: "Tensor other"},
			{Spelling: "Scalar alpha=1"},
		},
		Returns: []string{"Tensor"},
	}})
	PostprocessOutputDeclarations(decls)

	manifest, err := FormatManifest(decls)
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(manifest), &entries))
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "add", entry["name"])
	assert.Equal(t, "TH", entry["mode"])
	assert.Equal(t, []any{"function", "method"}, entry["variants"])
	assert.Equal(t, []any{"CPU", "CUDA"}, entry["backends"])

	args, ok := entry["arguments"].([]any)
	require.True(t, ok)
	require.Len(t, args, 3)
	alpha := args[2].(map[string]any)
	assert.Equal(t, "alpha", alpha["name"])
	assert.Equal(t, "Scalar", alpha["type"])
	assert.Equal(t, "1", alpha["default"])

	returns := entry["returns"].([]any)
	require.Len(t, returns, 1)
	assert.Equal(t, "out", returns[0].(map[string]any)["name"])

	// Optional fields stay out of the manifest when unset.
	assert.NotContains(t, entry, "buffers")
	assert.NotContains(t, entry, "scalar_types")
}

func TestFormatManifestStable(t *testing.T) {
	decls := Normalize([]Raw{{
		Name:      "zeros",
		Arguments: []RawArgument{{Spelling: "IntList size"}},
		Returns:   []string{"Tensor"},
	}})
	PostprocessOutputDeclarations(decls)

	first, err := FormatManifest(decls)
	require.NoError(t, err)
	second, err := FormatManifest(decls)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
