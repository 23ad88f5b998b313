// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package declparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseNative(t *testing.T) {
	path := writeFile(t, "native_functions.decl", `
# comment line

[NativeFunction]
name: pow
arg: Tensor self
arg: Scalar exponent
return: Tensor
[/NativeFunction]

[NativeFunction]
name: lstm_cell
arg: Tensor input
arg: Tensor hx
return: (Tensor, Tensor), Tensor extra
variants: function
backends: CPU
types: Float, Double
[/NativeFunction]
`)
	raws, err := ParseNative(path)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	pow := raws[0]
	assert.Equal(t, "pow", pow.Name)
	assert.Equal(t, "native", pow.Mode)
	require.Len(t, pow.Arguments, 2)
	assert.Equal(t, "Tensor self", pow.Arguments[0].Spelling)
	assert.Equal(t, []string{"Tensor"}, pow.Returns)

	lstm := raws[1]
	// Tuple returns keep their parentheses, splitting happens at depth zero.
	assert.Equal(t, []string{"(Tensor, Tensor)", "Tensor extra"}, lstm.Returns)
	assert.Equal(t, []string{"function"}, lstm.Variants)
	assert.Equal(t, []string{"CPU"}, lstm.Backends)
	assert.Equal(t, []string{"Float", "Double"}, lstm.ScalarTypes)
}

func TestParseNativeMalformed(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"malformed line", "[NativeFunction]\nname pow\n[/NativeFunction]\n"},
		{"unknown key", "[NativeFunction]\nshape: [2, 2]\n[/NativeFunction]\n"},
		{"unterminated block", "[NativeFunction]\nname: pow\n"},
		{"nested block", "[NativeFunction]\n[NativeFunction]\n"},
		{"end without begin", "[/NativeFunction]\n"},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			path := writeFile(t, "bad.decl", test.contents)
			err := exceptions.TryCatch[error](func() {
				_, parseErr := ParseNative(path)
				require.NoError(t, parseErr)
			})
			require.Error(t, err)
		})
	}
}

func TestParseCwrap(t *testing.T) {
	path := writeFile(t, "Declarations.cwrap", `
[[
  name: add_out
  variants:
    - function
  return: argument 0
  arguments:
    - arg: THTensor* out
      output: true
    - THTensor* self
    - arg: real alpha
      default: AS_REAL(1)
      kwarg_only: true
]]
[[
  name: norm
  types:
    - floating_point
  backends:
    - CPU
  return: real
  arguments:
    - THTensor* self
]]
`)
	raws, err := ParseCwrap(path)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	addOut := raws[0]
	assert.Equal(t, "add_out", addOut.Name)
	assert.Equal(t, []string{"argument 0"}, addOut.Returns)
	require.Len(t, addOut.Arguments, 3)
	assert.True(t, addOut.Arguments[0].Output)
	assert.Equal(t, "THTensor* self", addOut.Arguments[1].Spelling)
	alpha := addOut.Arguments[2]
	assert.True(t, alpha.HasDefault)
	assert.Equal(t, "AS_REAL(1)", alpha.Default)
	assert.True(t, alpha.KwargOnly)

	norm := raws[1]
	assert.Equal(t, []string{"floating_point"}, norm.ScalarTypes)
	assert.Equal(t, []string{"CPU"}, norm.Backends)
}

func TestParseNNHeader(t *testing.T) {
	contents := `
TH_API void THNN_(Threshold_updateOutput)(
    THNNState *state,
    THTensor *input,
    THTensor *output,
    accreal threshold,
    accreal val,
    bool inplace);

TH_API void THNN_(LookupTable_updateOutput)(
    THNNState *state,
    THIndexTensor *input,
    THTensor *output);

TH_API void THNN_(Threshold_helper)(
    THNNState *state,
    THTensor *input);
`
	path := writeFile(t, "THNN.h", contents)
	raws, err := ParseNNHeader(path)
	require.NoError(t, err)
	// Only forward/backward entry points are bound; the exclusion list and
	// the suffix filter drop the other two prototypes.
	require.Len(t, raws, 1)

	threshold := raws[0]
	assert.Equal(t, "Threshold_updateOutput", threshold.Name)
	assert.Equal(t, "NN", threshold.Mode)
	assert.Equal(t, []string{"CPU"}, threshold.Backends)
	assert.Equal(t, []string{"Float", "Double"}, threshold.ScalarTypes)
	// The state argument never appears in the declaration.
	require.Len(t, threshold.Arguments, 5)
	assert.Equal(t, "THTensor* input", threshold.Arguments[0].Spelling)
	assert.Equal(t, "bool inplace", threshold.Arguments[4].Spelling)
}

func TestParseNNHeaderCUDA(t *testing.T) {
	contents := `
TH_API void THNN_(Threshold_updateOutput)(
    THNNState *state,
    THCTensor *input,
    THCIndexTensor *indices,
    [OPTIONAL] THCTensor *weight);
`
	path := writeFile(t, "THCUNN.h", contents)
	raws, err := ParseNNHeader(path)
	require.NoError(t, err)
	require.Len(t, raws, 1)

	raw := raws[0]
	assert.Equal(t, []string{"CUDA"}, raw.Backends)
	// Accelerated spellings translate to the canonical set.
	assert.Equal(t, "THTensor* input", raw.Arguments[0].Spelling)
	assert.Equal(t, "IndexTensor indices", raw.Arguments[1].Spelling)
	weight := raw.Arguments[2]
	assert.True(t, weight.Nullable)
	assert.Equal(t, "THTensor* weight", weight.Spelling)
}

func TestMergeNNDeclarations(t *testing.T) {
	cpu := writeFile(t, "THNN.h",
		"TH_API void THNN_(Abs_updateOutput)(THNNState *state, THTensor *input, THTensor *output);\n")
	cuda := writeFile(t, "THCUNN.h",
		"TH_API void THNN_(Abs_updateOutput)(THCState *state, THCTensor *input, THCTensor *output);\n")

	raws, err := Route([]string{cpu, cuda})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, []string{"CPU", "CUDA"}, raws[0].Backends)
}

func TestRouteOrderAndUnknownSuffix(t *testing.T) {
	native := writeFile(t, "fn.decl",
		"[NativeFunction]\nname: pow\narg: Tensor self\nreturn: Tensor\n[/NativeFunction]\n")
	cwrap := writeFile(t, "Declarations.cwrap",
		"[[\n  name: add\n  return: THTensor*\n  arguments:\n    - THTensor* self\n]]\n")

	// Structured records come first regardless of input order.
	raws, err := Route([]string{native, cwrap})
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "add", raws[0].Name)
	assert.Equal(t, "pow", raws[1].Name)

	_, err = Route([]string{"unknown.yaml"})
	require.Error(t, err)
}
