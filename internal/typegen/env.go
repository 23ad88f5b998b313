// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typegen

import (
	"strconv"

	"github.com/x448/float16"
)

// VariantEnv is the specialized environment one Variant Key is rendered
// with: concrete element spellings, conversion helpers, backend headers and
// the symbolic TypeID unique to the variant.
type VariantEnv struct {
	Key VariantKey

	Density       string
	ScalarName    string
	ScalarType    string // native element spelling
	KernelType    string // spelling the kernel family uses
	AccScalarName string
	IsFloating    bool
	IsIntegral    bool

	TypeName     string // e.g. "SparseCUDAFloatType"
	Backend      string // density-qualified, e.g. "SparseCUDA"
	DenseBackend string
	TypeID       string

	KernelNamespace string
	KernelHeaders   []string
	ExtraHeaders    []string
	StorageHeaders  []string
	State           string
	IsCUDA          bool
	GeneratorName   string
	// AsReal converts a scalar literal/value to the element type; half
	// precision on the accelerated backend needs an explicit conversion.
	AsReal string
}

var (
	cpuKernelHeaders = []string{
		"#include <kernels/cpu/Kernels.h>",
		"#include <kernels/cpu/KernelTensor.hpp>",
		"#include <kernels/cpu/NNKernels.h>",
	}
	cudaKernelHeaders = []string{
		"#include <kernels/cuda/Kernels.h>",
		"#include <kernels/cuda/KernelTensor.hpp>",
		"#include <kernels/cuda/NNKernels.h>",
	}
	cudaExtraHeaders = []string{
		"#include <runtime/DeviceGuard.h>",
		"#include <runtime/cuda/CUDADevice.h>",
		"#include <runtime/cuda/CUDATypeDefault.h>",
	}
)

// BuildVariantEnv constructs the environment for one Variant Key and
// appends the variant's TypeID to the shared context. Field values follow
// the variant axes only; declarations are not consulted here.
func BuildVariantEnv(ctx *Context, key VariantKey) *VariantEnv {
	scalar := key.Scalar
	env := &VariantEnv{
		Key:           key,
		Density:       string(key.Density),
		ScalarName:    scalar.Name,
		ScalarType:    scalar.CType,
		KernelType:    scalar.THType,
		AccScalarName: scalar.AccName,
		IsFloating:    scalar.IsFloating,
		IsIntegral:    !scalar.IsFloating,
		TypeName:      key.TypeName(),
		Backend:       key.FullBackend(),
		DenseBackend:  string(key.Backend),
		AsReal:        scalar.CType,
	}

	if key.Density != DensitySparse {
		env.StorageHeaders = []string{"#include <runtime/TensorImpl.h>"}
	}

	tag := key.FullBackend() + scalar.Name
	env.TypeID = "TypeID::" + tag
	ctx.TypeIDs = append(ctx.TypeIDs, tag+",")

	if key.Backend == BackendCUDA {
		env.IsCUDA = true
		env.KernelNamespace = "cuda"
		env.KernelHeaders = cudaKernelHeaders
		env.ExtraHeaders = cudaExtraHeaders
		env.State = "globalContext().getDeviceState()"
		env.GeneratorName = "CUDAGenerator"
	} else {
		env.KernelNamespace = "cpu"
		env.KernelHeaders = cpuKernelHeaders
		env.State = ""
		env.GeneratorName = "CPUGenerator"
	}
	if scalar.Name == "Half" && key.Backend == BackendCUDA {
		env.AsReal = "convert<Half,double>"
	}
	return env
}

// ScalarLiteral renders a default literal in the element type of this
// variant. Half-precision variants round numeric literals to the nearest
// representable half value so the emitted constant matches what the kernels
// will actually see.
func (env *VariantEnv) ScalarLiteral(literal string) string {
	if env.ScalarName != "Half" {
		return literal
	}
	v, err := strconv.ParseFloat(literal, 32)
	if err != nil {
		return literal
	}
	rounded := float16.Fromfloat32(float32(v)).Float32()
	// Format in float64 precision so the literal denotes the exact half
	// value, not the shortest float32 round trip.
	return strconv.FormatFloat(float64(rounded), 'g', -1, 64)
}
