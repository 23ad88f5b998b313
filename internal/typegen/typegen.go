// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typegen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/opgen/internal/decl"
	"github.com/gomlx/opgen/internal/filemanager"
)

// Emitter drives the cross-product emission: one Type implementation per
// legal Variant Key, extension backend surfaces, and the whole-program glue
// assembled from the accumulated Context.
//
// Core holds the stable interface headers, FM the default (CPU) artifacts
// and CUDA the accelerated ones; the split mirrors the three translation
// units the build compiles them into.
type Emitter struct {
	Context  *Context
	Renderer VariantRenderer

	Core *filemanager.FileManager
	FM   *filemanager.FileManager
	CUDA *filemanager.FileManager
}

// New returns an Emitter with a fresh Context and the default renderer.
func New(core, fm, cuda *filemanager.FileManager) *Emitter {
	return &Emitter{
		Context:  NewContext(),
		Renderer: KernelRenderer{},
		Core:     core,
		FM:       fm,
		CUDA:     cuda,
	}
}

var coreFiles = []string{"Type.h", "Tensor.h", "TensorMethods.h"}

// CoreFiles returns the names of the stable interface headers, the subset
// verified against the checked-in copies after a staged run.
func CoreFiles() []string {
	return append([]string(nil), coreFiles...)
}

var defaultFiles = []string{
	"TypeDefault.h", "TypeDefault.cpp",
	"Functions.h", "NativeFunctions.h",
	"RegisterCPU.h", "RegisterCPU.cpp",
	"ExtensionBackendRegistration.h",
	"CPUGenerator.h",
}

var cudaFiles = []string{
	"RegisterCUDA.h", "RegisterCUDA.cpp",
	"CUDAGenerator.h",
}

// DeclareOutputs registers every file Generate will produce. Declaring the
// full set up front lets the file managers flag both unexpected writes and
// files that were promised but never produced.
func (e *Emitter) DeclareOutputs() {
	for _, name := range coreFiles {
		e.Core.WillWrite(name)
	}
	for _, name := range defaultFiles {
		e.FM.WillWrite(name)
	}
	for _, name := range cudaFiles {
		e.CUDA.WillWrite(name)
	}
	for _, key := range IterateVariants() {
		fm := e.managerFor(key.Backend)
		fm.WillWrite(key.TypeName() + ".h")
		fm.WillWrite(key.TypeName() + ".cpp")
		if key.Density == DensityDense {
			name := dispatcherName(key)
			fm.WillWrite(name + ".h")
			fm.WillWrite(name + ".cpp")
		}
	}
	for _, backend := range ExtensionBackends {
		base := string(backend) + "Type"
		e.FM.WillWrite(base + ".h")
		e.FM.WillWrite(base + ".cpp")
		for _, scalar := range ScalarTypes {
			derived := string(backend) + scalar.Name + "Type"
			e.FM.WillWrite(derived + ".h")
			e.FM.WillWrite(derived + ".cpp")
		}
	}
}

func (e *Emitter) managerFor(backend Backend) *filemanager.FileManager {
	if backend == BackendCUDA {
		return e.CUDA
	}
	return e.FM
}

func dispatcherName(key VariantKey) string {
	return string(key.Backend) + key.Scalar.Name + "KernelDispatcher"
}

// Generate runs the full emission for the given canonical declarations.
// CreateGeneric must see the declarations before any variant so the base
// class surface is complete; variants then append registrations in
// iteration order, and the whole-program artifacts render last.
func (e *Emitter) Generate(decls []*decl.Declaration) error {
	CreateGeneric(e.Context, decls)

	for _, key := range IterateVariants() {
		if err := e.generateVariant(key, decls); err != nil {
			return err
		}
	}
	for _, backend := range ExtensionBackends {
		if err := e.generateExtensionBackend(backend, decls); err != nil {
			return err
		}
	}
	return e.generateWholeProgram()
}

// typeEnv is the render environment of one Type implementation artifact:
// the variant environment plus the method snippets the renderer produced.
type typeEnv struct {
	*VariantEnv
	MethodDeclarations []string
	MethodDefinitions  []string
}

func (e *Emitter) generateVariant(key VariantKey, decls []*decl.Declaration) error {
	env := BuildVariantEnv(e.Context, key)
	declarations, definitions, err := e.Renderer.RenderVariant(env, decls)
	if err != nil {
		return errors.Wrapf(err, "rendering %s", env.TypeName)
	}
	klog.V(1).Infof("variant %s: %d methods", env.TypeName, len(definitions))

	tEnv := &typeEnv{VariantEnv: env, MethodDeclarations: declarations, MethodDefinitions: definitions}
	fm := e.managerFor(key.Backend)
	if err := fm.WriteTemplate(env.TypeName+".h", typeDerivedHTemplate, tEnv); err != nil {
		return err
	}
	cppTemplate := typeDerivedCppTemplate
	if key.Density == DensitySparse {
		cppTemplate = sparseTypeDerivedCppTemplate
	}
	if err := fm.WriteTemplate(env.TypeName+".cpp", cppTemplate, tEnv); err != nil {
		return err
	}

	registration, err := execTemplate(typeRegisterTemplate, env)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("#include \"%s.h\"", env.TypeName)
	if key.Backend == BackendCUDA {
		e.Context.CUDATypeRegistrations = append(e.Context.CUDATypeRegistrations, registration)
		e.Context.CUDATypeHeaders = append(e.Context.CUDATypeHeaders, header)
	} else {
		e.Context.CPUTypeRegistrations = append(e.Context.CPUTypeRegistrations, registration)
		e.Context.CPUTypeHeaders = append(e.Context.CPUTypeHeaders, header)
	}

	if key.Density == DensityDense {
		return e.generateKernelDispatcher(env, decls)
	}
	return nil
}

// generateKernelDispatcher emits the name-to-kernel table of one dense
// variant. Only operations the variant actually implements get an entry.
func (e *Emitter) generateKernelDispatcher(env *VariantEnv, decls []*decl.Declaration) error {
	var entries []string
	for _, d := range decls {
		if d.Mode == decl.ModeNative || !Applicable(env, d) {
			continue
		}
		entries = append(entries, fmt.Sprintf("{\"%s\", (void *)&kernels::%s::%s<%s>},",
			d.Name, env.KernelNamespace, d.Name, env.ScalarType))
	}
	dEnv := struct {
		Backend       string
		ScalarName    string
		Dispatcher    string
		KernelHeaders []string
		Entries       []string
	}{
		Backend:       env.DenseBackend,
		ScalarName:    env.ScalarName,
		Dispatcher:    string(env.Key.Backend) + env.ScalarName + "KernelDispatcher",
		KernelHeaders: env.KernelHeaders,
		Entries:       entries,
	}
	fm := e.managerFor(env.Key.Backend)
	if err := fm.WriteTemplate(dEnv.Dispatcher+".h", kernelDispatcherHTemplate, dEnv); err != nil {
		return err
	}
	return fm.WriteTemplate(dEnv.Dispatcher+".cpp", kernelDispatcherCppTemplate, dEnv)
}

// generateExtensionBackend emits the pluggable backend surface: a base type
// whose methods fail until a kernel is registered, one derived type per
// element type, and the registration switch arm collected for the shared
// dispatch header.
func (e *Emitter) generateExtensionBackend(backend Backend, decls []*decl.Declaration) error {
	base := string(backend) + "Type"
	var methodDecls, methodDefs []string
	for _, d := range decls {
		ret := decl.CppReturnType(d)
		formals := genericFormalList(d, true)
		methodDecls = append(methodDecls,
			fmt.Sprintf("virtual %s %s(%s) const override;", ret, d.Name, formals))
		methodDefs = append(methodDefs, fmt.Sprintf(
			"%s %s::%s(%s) const {\n    throw std::runtime_error(\"%s is not implemented for backend %s\");\n}",
			ret, base, d.Name, genericFormalList(d, false), d.Name, backend))
	}

	baseEnv := struct {
		TypeName           string
		Backend            string
		MethodDeclarations []string
		MethodDefinitions  []string
	}{TypeName: base, Backend: string(backend), MethodDeclarations: methodDecls, MethodDefinitions: methodDefs}
	if err := e.FM.WriteTemplate(base+".h", typeExtensionHTemplate, baseEnv); err != nil {
		return err
	}
	if err := e.FM.WriteTemplate(base+".cpp", typeExtensionCppTemplate, baseEnv); err != nil {
		return err
	}

	for _, scalar := range ScalarTypes {
		derived := string(backend) + scalar.Name + "Type"
		tag := string(backend) + scalar.Name
		e.Context.TypeIDs = append(e.Context.TypeIDs, tag+",")
		dEnv := struct {
			TypeName     string
			BaseTypeName string
			ScalarName   string
			TypeID       string
		}{TypeName: derived, BaseTypeName: base, ScalarName: scalar.Name, TypeID: "TypeID::" + tag}
		if err := e.FM.WriteTemplate(derived+".h", typeExtensionDerivedHTemplate, dEnv); err != nil {
			return err
		}
		if err := e.FM.WriteTemplate(derived+".cpp", typeExtensionDerivedCppTemplate, dEnv); err != nil {
			return err
		}
		// Extension derived types register through the primary table.
		register, err := execTemplate(typeRegisterTemplate, struct {
			Backend    string
			ScalarName string
			TypeName   string
		}{Backend: string(backend), ScalarName: scalar.Name, TypeName: derived})
		if err != nil {
			return err
		}
		e.Context.CPUTypeRegistrations = append(e.Context.CPUTypeRegistrations, register)
		e.Context.CPUTypeHeaders = append(e.Context.CPUTypeHeaders,
			fmt.Sprintf("#include \"%s.h\"", derived))
	}

	e.Context.ExtensionBackendHeaders = append(e.Context.ExtensionBackendHeaders,
		fmt.Sprintf("#include \"%s.h\"", base))
	arm, err := execTemplate(extensionRegisterSwitchTemplate, struct {
		Backend  string
		TypeName string
	}{Backend: string(backend), TypeName: base})
	if err != nil {
		return err
	}
	e.Context.ExtensionBackendRegisterSwitches = append(e.Context.ExtensionBackendRegisterSwitches, arm)
	return nil
}

func (e *Emitter) generateWholeProgram() error {
	ctx := e.Context
	if err := e.Core.WriteTemplate("Type.h", typeHTemplate, ctx); err != nil {
		return err
	}
	if err := e.Core.WriteTemplate("Tensor.h", tensorHTemplate, ctx); err != nil {
		return err
	}
	if err := e.Core.WriteTemplate("TensorMethods.h", tensorMethodsHTemplate, ctx); err != nil {
		return err
	}

	if err := e.FM.WriteTemplate("TypeDefault.h", typeDefaultHTemplate, ctx); err != nil {
		return err
	}
	if err := e.FM.WriteTemplate("TypeDefault.cpp", typeDefaultCppTemplate, ctx); err != nil {
		return err
	}
	if err := e.FM.WriteTemplate("Functions.h", functionsHTemplate, ctx); err != nil {
		return err
	}
	if err := e.FM.WriteTemplate("NativeFunctions.h", nativeFunctionsHTemplate, ctx); err != nil {
		return err
	}
	if err := e.FM.WriteTemplate("ExtensionBackendRegistration.h", extensionBackendRegistrationHTemplate, ctx); err != nil {
		return err
	}

	cpuRegister := registerEnv{Name: "CPU", Lower: "cpu",
		Headers: ctx.CPUTypeHeaders, Registrations: ctx.CPUTypeRegistrations}
	if err := e.FM.WriteTemplate("RegisterCPU.h", registerHTemplate, cpuRegister); err != nil {
		return err
	}
	if err := e.FM.WriteTemplate("RegisterCPU.cpp", registerCppTemplate, cpuRegister); err != nil {
		return err
	}
	cudaRegister := registerEnv{Name: "CUDA", Lower: "cuda",
		Headers: ctx.CUDATypeHeaders, Registrations: ctx.CUDATypeRegistrations}
	if err := e.CUDA.WriteTemplate("RegisterCUDA.h", registerHTemplate, cudaRegister); err != nil {
		return err
	}
	if err := e.CUDA.WriteTemplate("RegisterCUDA.cpp", registerCppTemplate, cudaRegister); err != nil {
		return err
	}

	cpuGenerator := generatorEnv{Name: "CPU", Header: "kernels/cpu/Generator.h",
		StateField: "kernels::cpu::Generator * state;"}
	if err := e.FM.WriteTemplate("CPUGenerator.h", generatorDerivedHTemplate, cpuGenerator); err != nil {
		return err
	}
	cudaGenerator := generatorEnv{Name: "CUDA", Header: "kernels/cuda/Generator.h",
		StateField: "kernels::cuda::Generator * state;"}
	return e.CUDA.WriteTemplate("CUDAGenerator.h", generatorDerivedHTemplate, cudaGenerator)
}

type registerEnv struct {
	Name          string
	Lower         string
	Headers       []string
	Registrations []string
}

type generatorEnv struct {
	Name       string
	Header     string
	StateField string
}

func execTemplate(tmpl *template.Template, env any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, env); err != nil {
		return "", errors.Wrapf(err, "executing template %q", tmpl.Name())
	}
	return sb.String(), nil
}
