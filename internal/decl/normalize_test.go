// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBasics(t *testing.T) {
	raws := []Raw{{
		Source: "test:1",
		Name:   "add",
		Arguments: []RawArgument{
			{Spelling: "Tensor self"},
			{Spelling: "Tensor other"},
			{Spelling: "Scalar alpha=1"},
		},
		Returns: []string{"Tensor"},
	}}
	decls := Normalize(raws)
	require.Len(t, decls, 1)
	d := decls[0]
	assert.Equal(t, "add", d.Name)
	assert.False(t, d.Inplace)
	assert.Equal(t, []string{"CPU", "CUDA"}, d.Backends)

	require.Len(t, d.Arguments, 3)
	alpha := d.Arguments[2]
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, TypeScalar, alpha.Type)
	assert.True(t, alpha.HasDefault)
	assert.Equal(t, "1", alpha.Default)

	require.Len(t, d.Returns, 1)
	assert.Equal(t, TypeTensor, d.Returns[0].DynamicType)
}

func TestNormalizeInplace(t *testing.T) {
	decls := Normalize([]Raw{
		{Name: "add_", Arguments: []RawArgument{{Spelling: "Tensor self"}}, Returns: []string{"self"}},
		{Name: "add_out", Arguments: []RawArgument{{Spelling: "output Tensor out"}}, Returns: []string{"argument 0"}},
	})
	assert.True(t, decls[0].Inplace)
	assert.False(t, decls[1].Inplace)
	assert.True(t, decls[1].IsOutVariant())
	assert.Equal(t, "add", decls[1].BaseName())

	// The out variant's return aliases argument 0 and adopts its name.
	require.Len(t, decls[1].Returns, 1)
	assert.Equal(t, "out", decls[1].Returns[0].Name)
	assert.Equal(t, TypeTensor, decls[1].Returns[0].DynamicType)
}

func TestNormalizeKwargOnly(t *testing.T) {
	decls := Normalize([]Raw{{
		Name: "randn",
		Arguments: []RawArgument{
			{Spelling: "IntList size"},
			{Spelling: "*"},
			{Spelling: "Generator? generator=nullptr"},
		},
		Returns: []string{"Tensor"},
	}})
	d := decls[0]
	require.Len(t, d.Arguments, 2)
	assert.False(t, d.Arguments[0].KwargOnly)
	assert.True(t, d.Arguments[1].KwargOnly)
	assert.True(t, d.Arguments[1].Nullable)
	assert.Equal(t, TypeGenerator, d.Arguments[1].Type)
}

func TestNormalizeSizedType(t *testing.T) {
	decls := Normalize([]Raw{{
		Name:      "conv2d",
		Arguments: []RawArgument{{Spelling: "Tensor self"}, {Spelling: "IntList[2] stride=1"}},
		Returns:   []string{"Tensor"},
	}})
	stride := decls[0].Arguments[1]
	assert.Equal(t, TypeIntList, stride.Type)
	assert.Equal(t, 2, stride.Size)
}

func TestNormalizeVariants(t *testing.T) {
	decls := Normalize([]Raw{
		{Name: "threshold", Mode: "NN", Arguments: []RawArgument{{Spelling: "Tensor self"}}, Returns: []string{"Tensor"}},
		{Name: "add", Arguments: []RawArgument{{Spelling: "Tensor self"}}, Returns: []string{"Tensor"}},
		{Name: "t", Variants: []string{"method"}, Arguments: []RawArgument{{Spelling: "Tensor self"}}, Returns: []string{"Tensor"}},
	})

	nn := decls[0]
	assert.True(t, nn.Variants.Has(VariantFunction))
	assert.False(t, nn.Variants.Has(VariantMethod))
	assert.False(t, nn.MethodOf.Has(MethodOfTensor))

	both := decls[1]
	assert.True(t, both.MethodOf.Has(MethodOfTensor))
	assert.True(t, both.MethodOf.Has(MethodOfNamespace))

	methodOnly := decls[2]
	assert.True(t, methodOnly.MethodOf.Has(MethodOfTensor))
	assert.False(t, methodOnly.MethodOf.Has(MethodOfNamespace))
}

func TestNormalizeTupleReturn(t *testing.T) {
	decls := Normalize([]Raw{{
		Name:      "lstm",
		Arguments: []RawArgument{{Spelling: "Tensor self"}},
		Returns:   []string{"(Tensor, Tensor, Tensor)"},
	}})
	require.Len(t, decls[0].Returns, 1)
	assert.Equal(t, TypeTensorTuple3, decls[0].Returns[0].DynamicType)
	assert.Empty(t, decls[0].Returns[0].Name)

	decls = Normalize([]Raw{{
		Name:      "qr",
		Arguments: []RawArgument{{Spelling: "Tensor self"}},
		Returns:   []string{"(Tensor,Tensor)"},
	}})
	assert.Equal(t, TypeTensorTuple2, decls[0].Returns[0].DynamicType)
}

func TestNormalizeRejectsBadRecords(t *testing.T) {
	cases := []struct {
		name string
		raw  Raw
	}{
		{"no name", Raw{Source: "test:1"}},
		{"unknown mode", Raw{Name: "x", Mode: "magic"}},
		{"unknown type", Raw{Name: "x", Arguments: []RawArgument{{Spelling: "Widget w"}}}},
		{"nameless argument", Raw{Name: "x", Arguments: []RawArgument{{Spelling: "Tensor"}}}},
		{"duplicate argument", Raw{Name: "x", Arguments: []RawArgument{
			{Spelling: "Tensor a"}, {Spelling: "Tensor a"}}}},
		{"unknown variant", Raw{Name: "x", Variants: []string{"classmethod"}}},
		{"return out of range", Raw{Name: "x", Returns: []string{"argument 3"}}},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			err := exceptions.TryCatch[error](func() { Normalize([]Raw{test.raw}) })
			require.Error(t, err)
		})
	}
}
