// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bindgen compiles the canonical declarations into the overload
// binding layer: one entry point per call-site name, a generated-parser
// signature list per overload group, and inline dispatch functions routing
// each matched overload to the typed dispatch layer.
package bindgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/gomlx/opgen/internal/decl"
	"github.com/gomlx/opgen/internal/filemanager"
	"github.com/gomlx/opgen/pkg/support/xslices"
)

// skipBindings lists operations that get hand-written bindings or are not
// exposed through the binding layer at all. Matched against the full name.
var skipBindings = []*regexp.Regexp{
	regexp.MustCompile(`^alias$`),
	regexp.MustCompile(`^contiguous$`),
	regexp.MustCompile(`^clamp.*$`),
	regexp.MustCompile(`^is_cuda$`),
	regexp.MustCompile(`^is_sparse$`),
	regexp.MustCompile(`^size$`),
	regexp.MustCompile(`^stride$`),
	regexp.MustCompile(`^.*_backward$`),
	regexp.MustCompile(`^.*_backward_out$`),
	regexp.MustCompile(`^.*_forward$`),
	regexp.MustCompile(`^.*_forward_out$`),
}

// factoryLikeSuffix marks operation names that behave like factories even
// though they take a tensor input, e.g. zeros_like. Such operations still
// get a caller-selectable output kind.
var factoryLikeSuffix = "_like"

func shouldBind(d *decl.Declaration) bool {
	for _, pattern := range skipBindings {
		if pattern.MatchString(d.Name) {
			return false
		}
	}
	return true
}

var outputFiles = []string{
	"binding_methods.cpp", "binding_methods_dispatch.h",
	"binding_functions.cpp", "binding_functions_dispatch.h",
	"binding_nn_functions.cpp", "binding_nn_functions.h",
	"binding_nn_functions_dispatch.h",
}

// DeclareOutputs registers every binding artifact with the file manager.
func DeclareOutputs(fm *filemanager.FileManager) {
	for _, name := range outputFiles {
		fm.WillWrite(name)
	}
}

// Generate compiles all three binding surfaces: tensor methods, namespace
// functions and the nn-module functions.
func Generate(fm *filemanager.FileManager, decls []*decl.Declaration) error {
	methods := collect(decls, func(d *decl.Declaration) bool {
		return d.Mode != decl.ModeNN && d.MethodOf.Has(decl.MethodOfTensor)
	})
	b := &binder{hasSelf: true}
	b.processAll(methods)
	if err := fm.WriteTemplate("binding_methods.cpp", methodsCppTemplate, b); err != nil {
		return err
	}
	if err := fm.WriteTemplate("binding_methods_dispatch.h", dispatchHTemplate, b); err != nil {
		return err
	}

	functions := collect(decls, func(d *decl.Declaration) bool {
		return d.Mode != decl.ModeNN &&
			(d.MethodOf.Has(decl.MethodOfNamespace) || d.MethodOf.Has(decl.MethodOfType))
	})
	b = &binder{}
	b.processAll(functions)
	if err := fm.WriteTemplate("binding_functions.cpp", functionsCppTemplate, b); err != nil {
		return err
	}
	if err := fm.WriteTemplate("binding_functions_dispatch.h", dispatchHTemplate, b); err != nil {
		return err
	}

	nn := collect(decls, func(d *decl.Declaration) bool {
		return d.Mode == decl.ModeNN
	})
	b = &binder{isModule: true}
	b.processAll(nn)
	if err := fm.WriteTemplate("binding_nn_functions.cpp", nnFunctionsCppTemplate, b); err != nil {
		return err
	}
	if err := fm.WriteTemplate("binding_nn_functions.h", nnFunctionsHTemplate, b); err != nil {
		return err
	}
	return fm.WriteTemplate("binding_nn_functions_dispatch.h", dispatchHTemplate, b)
}

// collect groups the declarations passing the filter by call-site name,
// filing out variants under their stripped base name.
func collect(decls []*decl.Declaration, filter func(*decl.Declaration) bool) map[string][]*decl.Declaration {
	byName := make(map[string][]*decl.Declaration)
	for _, d := range decls {
		if !shouldBind(d) || !filter(d) {
			continue
		}
		byName[d.BaseName()] = append(byName[d.BaseName()], d)
	}
	return byName
}

// Methods, MethodDefs and MethodDispatch are the template slots of the
// binding surface files.
func (b *binder) Methods() []string        { return b.methods }
func (b *binder) MethodDefs() []string     { return b.methodDefs }
func (b *binder) MethodDispatch() []string { return b.methodDispatch }

// processAll compiles every overload set of one surface in sorted name
// order; the order fixes the method table and dispatch chain layout.
func (b *binder) processAll(byName map[string][]*decl.Declaration) {
	for _, name := range xslices.SortedKeys(byName) {
		b.processOverloadSet(name, byName[name])
	}
	klog.V(1).Infof("bound %d entry points", len(byName))
}

type entryEnv struct {
	BindName     string
	DispatchName string
	Signatures   []string
	MaxArgs      int
	UnpackSelf   string
	Dispatch     []string
}

const unpackSelf = "auto & self_ = unpackTensor(self);"

// processOverloadSet compiles one call-site name: binding-only argument
// injection, signature grouping, the overload dispatch chain and the
// method-table entry.
func (b *binder) processOverloadSet(name string, decls []*decl.Declaration) {
	for _, d := range decls {
		d.BindingArguments = bindingArguments(d)
	}

	env := &entryEnv{
		BindName:     "bind_" + name,
		DispatchName: "dispatch_" + name,
		MaxArgs: xslices.Max(xslices.Map(decls, func(d *decl.Declaration) int {
			return len(d.Arguments) + len(d.BindingArguments)
		})),
	}
	if b.hasSelf {
		env.UnpackSelf = unpackSelf
	}

	for i, g := range groupBySignature(decls) {
		signature := g.Signature
		if b.hasSelf {
			signature = strings.Replace(signature, "Tensor self, ", "", 1)
			signature = strings.Replace(signature, "Tensor self", "", 1)
		} else {
			signature = strings.Replace(signature, "Tensor self", "Tensor input", 1)
		}
		if g.Base.Deprecated && !strings.HasSuffix(signature, "|deprecated") {
			signature += "|deprecated"
		}
		env.Signatures = append(env.Signatures, fmt.Sprintf("%q,", signature))
		env.Dispatch = append(env.Dispatch, b.emitDispatchArm(i, g))
	}
	env.Dispatch = append(env.Dispatch, "}")

	var sb strings.Builder
	flags := "VARARGS | KEYWORDS"
	if len(decls) == 1 && len(decls[0].Arguments) == 1 && b.hasSelf {
		// Single overload taking only the receiver: skip the parser.
		flags = "NOARGS"
		if err := entryPointNoArgsTemplate.Execute(&sb, env); err != nil {
			exceptions.Panicf("rendering entry point %s: %v", name, err)
		}
	} else {
		if err := entryPointTemplate.Execute(&sb, env); err != nil {
			exceptions.Panicf("rendering entry point %s: %v", name, err)
		}
	}
	if !b.isModule && !b.hasSelf {
		flags += " | STATIC"
	}
	b.methods = append(b.methods, sb.String())
	b.methodDefs = append(b.methodDefs,
		fmt.Sprintf("{%q, (BindingFunction)%s, %s, nullptr},", name, env.BindName, flags))
}

// bindingArguments decides whether an operation gets the synthetic
// binding-only arguments. Factory-style operations, those with no
// tensor-shaped input (or a factory-like name) returning a tensor-shaped
// result, get a caller-selectable output kind plus a differentiation flag;
// everything else infers the kind from its inputs and gets none.
func bindingArguments(d *decl.Declaration) []*decl.Argument {
	hasTensorInput := false
	for _, arg := range d.InputArguments() {
		if arg.Type.IsTensorLike() {
			hasTensorInput = true
		}
		if arg.Name == "requires_grad" || arg.Name == "dtype" {
			exceptions.Panicf("op %s: argument name %q is reserved for binding-only arguments", d.Name, arg.Name)
		}
	}
	isFactory := !hasTensorInput || strings.HasSuffix(d.Name, factoryLikeSuffix)
	if !isFactory || !d.HasTensorReturn() {
		return nil
	}
	return []*decl.Argument{
		{
			Name:      "dtype",
			Type:      decl.TypeScalarType,
			RawType:   "dtype",
			KwargOnly: true,
			Default:   "{}", HasDefault: true,
		},
		{
			Name:      "requires_grad",
			Type:      decl.TypeBool,
			RawType:   "bool",
			KwargOnly: true,
			Default:   "False", HasDefault: true,
		},
	}
}
