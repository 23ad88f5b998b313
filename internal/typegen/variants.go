// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package typegen expands the canonical declarations across the
// backend × density × element-type cross product, emitting one typed
// dispatch implementation per legal combination plus the whole-program glue
// (registration tables, dispatch switches) accumulated while iterating.
package typegen

// Backend is an execution backend of the typed dispatch layer.
type Backend string

const (
	// BackendCPU is the primary backend: always present, hosts the default
	// kernel family.
	BackendCPU Backend = "CPU"
	// BackendCUDA is the accelerated backend; its artifacts are compiled
	// into a separate translation unit.
	BackendCUDA Backend = "CUDA"
)

// Backends in iteration order.
var Backends = []Backend{BackendCPU, BackendCUDA}

// ExtensionBackends are pluggable backends registered outside the
// backend × density × element-type grid: they get one dispatch-registration
// artifact per backend plus derived per-element-type artifacts, but no
// density axis.
var ExtensionBackends = []Backend{"MSNPU", "XLA"}

// Density is the storage layout axis of the cross product.
type Density string

const (
	DensityDense  Density = "Dense"
	DensitySparse Density = "Sparse"
	// DensityMkldnn is a specialized layout legal only for one
	// backend/element-type pairing.
	DensityMkldnn Density = "Mkldnn"
)

// Densities in iteration order.
var Densities = []Density{DensityDense, DensitySparse, DensityMkldnn}

// Tag returns the density prefix used in generated type names; the dense
// layout is unprefixed.
func (d Density) Tag() string {
	if d == DensityDense {
		return ""
	}
	return string(d)
}

// ScalarType describes one element type of the dispatch layer: its exposed
// name, native spelling, the accumulator kind reductions accumulate into,
// the kernel-family spelling and whether it is floating point.
type ScalarType struct {
	Name       string
	CType      string
	AccName    string
	THType     string
	IsFloating bool
}

// ScalarTypes is the closed element-type axis, in iteration order.
var ScalarTypes = []ScalarType{
	{"Bool", "uint8_t", "BoolAccrealNotDefined", "uint8_t", false},
	{"Byte", "uint8_t", "Long", "uint8_t", false},
	{"Char", "int8_t", "Long", "int8_t", false},
	{"Double", "double", "Double", "double", true},
	{"Float", "float", "Double", "float", true},
	{"Int", "int", "Long", "int32_t", false},
	{"Long", "int64_t", "Long", "int64_t", false},
	{"Short", "int16_t", "Long", "int16_t", false},
	{"Half", "Half", "Double", "at::Half", true},
}

// VariantKey identifies one concrete generated implementation of the typed
// dispatch layer.
type VariantKey struct {
	Backend Backend
	Density Density
	Scalar  ScalarType
}

// legalVariant filters combinations the kernel families don't implement:
// the specialized layout exists only for (CPU, Float), and the sparse
// kernels do not implement half precision.
func legalVariant(backend Backend, density Density, scalar ScalarType) bool {
	if density == DensityMkldnn && (backend != BackendCPU || scalar.Name != "Float") {
		return false
	}
	if density == DensitySparse && scalar.Name == "Half" {
		return false
	}
	return true
}

// IterateVariants materializes every legal VariantKey, iterating backends,
// then densities, then element types. The order is part of the observable
// contract: it fixes the order of registration tables and generated files.
func IterateVariants() []VariantKey {
	var keys []VariantKey
	for _, backend := range Backends {
		for _, density := range Densities {
			for _, scalar := range ScalarTypes {
				if !legalVariant(backend, density, scalar) {
					continue
				}
				keys = append(keys, VariantKey{Backend: backend, Density: density, Scalar: scalar})
			}
		}
	}
	return keys
}

// TypeName returns the name of the generated type implementation for this
// variant, e.g. "SparseCUDAFloatType".
func (k VariantKey) TypeName() string {
	return k.Density.Tag() + string(k.Backend) + k.Scalar.Name + "Type"
}

// FullBackend is the density-qualified backend tag, e.g. "SparseCPU".
func (k VariantKey) FullBackend() string {
	return k.Density.Tag() + string(k.Backend)
}
