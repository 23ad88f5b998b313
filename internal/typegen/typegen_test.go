// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/opgen/internal/decl"
	"github.com/gomlx/opgen/internal/filemanager"
)

func TestIterateVariantsLegality(t *testing.T) {
	keys := IterateVariants()
	for _, key := range keys {
		if key.Density == DensityMkldnn {
			assert.Equal(t, BackendCPU, key.Backend)
			assert.Equal(t, "Float", key.Scalar.Name)
		}
		if key.Density == DensitySparse {
			assert.NotEqual(t, "Half", key.Scalar.Name)
		}
	}

	// 9 dense + 8 sparse per backend, plus the single specialized layout.
	perBackend := len(ScalarTypes) + (len(ScalarTypes) - 1)
	assert.Len(t, keys, 2*perBackend+1)
}

func TestSparseFloatingVariants(t *testing.T) {
	// Of the floating element types only Float and Double survive the sparse
	// axis; half precision is excluded.
	var sparseFloating []string
	for _, key := range IterateVariants() {
		if key.Density == DensitySparse && key.Backend == BackendCPU && key.Scalar.IsFloating {
			sparseFloating = append(sparseFloating, key.Scalar.Name)
		}
	}
	assert.Equal(t, []string{"Double", "Float"}, sparseFloating)
}

func TestVariantNaming(t *testing.T) {
	key := VariantKey{Backend: BackendCUDA, Density: DensitySparse, Scalar: ScalarTypes[4]}
	assert.Equal(t, "SparseCUDAFloatType", key.TypeName())
	assert.Equal(t, "SparseCUDA", key.FullBackend())

	dense := VariantKey{Backend: BackendCPU, Density: DensityDense, Scalar: ScalarTypes[4]}
	assert.Equal(t, "CPUFloatType", dense.TypeName())
	assert.Equal(t, "CPU", dense.FullBackend())
}

func TestBuildVariantEnv(t *testing.T) {
	ctx := NewContext()
	cpuFloat := BuildVariantEnv(ctx, VariantKey{Backend: BackendCPU, Density: DensityDense, Scalar: ScalarTypes[4]})
	assert.Equal(t, "float", cpuFloat.ScalarType)
	assert.Equal(t, "Double", cpuFloat.AccScalarName)
	assert.True(t, cpuFloat.IsFloating)
	assert.False(t, cpuFloat.IsCUDA)
	assert.Equal(t, "TypeID::CPUFloat", cpuFloat.TypeID)
	assert.Equal(t, "float", cpuFloat.AsReal)

	cudaHalf := BuildVariantEnv(ctx, VariantKey{Backend: BackendCUDA, Density: DensityDense, Scalar: ScalarTypes[8]})
	assert.True(t, cudaHalf.IsCUDA)
	// Half on the accelerated backend needs an explicit conversion helper.
	assert.Equal(t, "convert<Half,double>", cudaHalf.AsReal)
	assert.Equal(t, "globalContext().getDeviceState()", cudaHalf.State)

	// TypeIDs accumulate in build order.
	assert.Equal(t, []string{"CPUFloat,", "CUDAHalf,"}, ctx.TypeIDs)
}

func TestScalarLiteralHalfRounding(t *testing.T) {
	ctx := NewContext()
	half := BuildVariantEnv(ctx, VariantKey{Backend: BackendCPU, Density: DensityDense, Scalar: ScalarTypes[8]})
	// 0.1 is not representable in half precision; the emitted constant is the
	// nearest representable value.
	assert.Equal(t, "0.0999755859375", half.ScalarLiteral("0.1"))
	assert.Equal(t, "1", half.ScalarLiteral("1"))
	assert.Equal(t, "{}", half.ScalarLiteral("{}"))

	float := BuildVariantEnv(ctx, VariantKey{Backend: BackendCPU, Density: DensityDense, Scalar: ScalarTypes[4]})
	assert.Equal(t, "0.1", float.ScalarLiteral("0.1"))
}

func testDeclarations(t *testing.T) []*decl.Declaration {
	t.Helper()
	decls := decl.Normalize([]decl.Raw{
		{
			Name: "add",
			Arguments: []decl.RawArgument{
				{Spelling: "Tensor self"},
				{Spelling: "Tensor other"},
				{Spelling: "Scalar alpha=1"},
			},
			Returns: []string{"Tensor"},
		},
		{
			Name:      "norm",
			Backends:  []string{"CPU"},
			Arguments: []decl.RawArgument{{Spelling: "Tensor self"}},
			Returns:   []string{"Tensor"},
		},
		{
			Name:      "pow",
			Mode:      "native",
			Arguments: []decl.RawArgument{{Spelling: "Tensor self"}, {Spelling: "Scalar exponent"}},
			Returns:   []string{"Tensor"},
		},
	})
	decl.PostprocessOutputDeclarations(decls)
	return decls
}

func newTestEmitter(t *testing.T) (*Emitter, string) {
	t.Helper()
	dir := t.TempDir()
	core, err := filemanager.New(filepath.Join(dir, "core"))
	require.NoError(t, err)
	fm, err := filemanager.New(dir)
	require.NoError(t, err)
	cuda, err := filemanager.New(filepath.Join(dir, "cuda"))
	require.NoError(t, err)
	emitter := New(core, fm, cuda)
	emitter.DeclareOutputs()
	return emitter, dir
}

func TestGenerateCompletesDeclaredOutputs(t *testing.T) {
	emitter, _ := newTestEmitter(t)
	require.NoError(t, emitter.Generate(testDeclarations(t)))

	// Every declared output was produced and nothing else.
	err := exceptions.TryCatch[error](func() {
		emitter.Core.CheckAllWritten()
		emitter.FM.CheckAllWritten()
		emitter.CUDA.CheckAllWritten()
	})
	require.NoError(t, err)
}

func TestGenerateVariantArtifacts(t *testing.T) {
	emitter, dir := newTestEmitter(t)
	require.NoError(t, emitter.Generate(testDeclarations(t)))

	cpuFloat, err := os.ReadFile(filepath.Join(dir, "CPUFloatType.cpp"))
	require.NoError(t, err)
	contents := string(cpuFloat)
	assert.Contains(t, contents, "CPUFloatType::CPUFloatType() : TypeDefault(Backend::CPU, ScalarType::Float)")
	assert.Contains(t, contents, "kernels::cpu::add<float>")
	// The CPU-only operation is present here and absent from CUDA variants.
	assert.Contains(t, contents, "CPUFloatType::norm")
	cudaFloat, err := os.ReadFile(filepath.Join(dir, "cuda", "CUDAFloatType.cpp"))
	require.NoError(t, err)
	assert.NotContains(t, string(cudaFloat), "norm")
	// Native-mode operations are implemented once on TypeDefault.
	assert.NotContains(t, contents, "CPUFloatType::pow")
}

func TestGenerateWholeProgramArtifacts(t *testing.T) {
	emitter, dir := newTestEmitter(t)
	require.NoError(t, emitter.Generate(testDeclarations(t)))

	typeH, err := os.ReadFile(filepath.Join(dir, "core", "Type.h"))
	require.NoError(t, err)
	assert.Contains(t, string(typeH), "CPUFloat,")
	assert.Contains(t, string(typeH), "SparseCUDADouble,")
	assert.Contains(t, string(typeH), "MSNPUFloat,")
	assert.Contains(t, string(typeH), "virtual Tensor add(")

	typeDefault, err := os.ReadFile(filepath.Join(dir, "TypeDefault.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(typeDefault), "TypeDefault::pow")
	assert.Contains(t, string(typeDefault), "native::pow(self, exponent)")

	registerCPU, err := os.ReadFile(filepath.Join(dir, "RegisterCPU.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(registerCPU),
		"context->registerType(Backend::CPU, ScalarType::Float, new CPUFloatType());")
	assert.Contains(t, string(registerCPU),
		"context->registerType(Backend::SparseCPU, ScalarType::Double, new SparseCPUDoubleType());")
	assert.NotContains(t, string(registerCPU), "CUDA")

	// Extension backend derived types register through the primary table.
	assert.Contains(t, string(registerCPU),
		"context->registerType(Backend::MSNPU, ScalarType::Float, new MSNPUFloatType());")
	assert.Contains(t, string(registerCPU), "#include \"MSNPUFloatType.h\"")
	assert.Contains(t, string(registerCPU), "#include \"XLAHalfType.h\"")

	registerCUDA, err := os.ReadFile(filepath.Join(dir, "cuda", "RegisterCUDA.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(registerCUDA),
		"context->registerType(Backend::CUDA, ScalarType::Half, new CUDAHalfType());")
}

func TestGenerateRegistrationOrderMatchesIteration(t *testing.T) {
	emitter, dir := newTestEmitter(t)
	require.NoError(t, emitter.Generate(testDeclarations(t)))

	registerCPU, err := os.ReadFile(filepath.Join(dir, "RegisterCPU.cpp"))
	require.NoError(t, err)
	contents := string(registerCPU)
	dense := strings.Index(contents, "new CPUFloatType()")
	sparse := strings.Index(contents, "new SparseCPUFloatType()")
	mkldnn := strings.Index(contents, "new MkldnnCPUFloatType()")
	require.True(t, dense >= 0 && sparse >= 0 && mkldnn >= 0)
	assert.Less(t, dense, sparse)
	assert.Less(t, sparse, mkldnn)
}

func TestGenerateExtensionBackends(t *testing.T) {
	emitter, dir := newTestEmitter(t)
	require.NoError(t, emitter.Generate(testDeclarations(t)))

	msnpu, err := os.ReadFile(filepath.Join(dir, "MSNPUType.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(msnpu), "add is not implemented for backend MSNPU")

	derived, err := os.ReadFile(filepath.Join(dir, "XLAFloatType.h"))
	require.NoError(t, err)
	assert.Contains(t, string(derived), "struct XLAFloatType final : public XLAType")

	registration, err := os.ReadFile(filepath.Join(dir, "ExtensionBackendRegistration.h"))
	require.NoError(t, err)
	assert.Contains(t, string(registration), "case Backend::MSNPU:")
	assert.Contains(t, string(registration), "case Backend::XLA:")
}

func TestGenerateIsIdempotent(t *testing.T) {
	emitter, dir := newTestEmitter(t)
	require.NoError(t, emitter.Generate(testDeclarations(t)))

	path := filepath.Join(dir, "CPUFloatType.cpp")
	before, err := os.Stat(path)
	require.NoError(t, err)

	second, _ := newTestEmitter(t)
	// Point the second emitter's managers at the same directory.
	fm, err := filemanager.New(dir)
	require.NoError(t, err)
	second.FM = fm
	core, err := filemanager.New(filepath.Join(dir, "core"))
	require.NoError(t, err)
	second.Core = core
	cuda, err := filemanager.New(filepath.Join(dir, "cuda"))
	require.NoError(t, err)
	second.CUDA = cuda
	require.NoError(t, second.Generate(testDeclarations(t)))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}
