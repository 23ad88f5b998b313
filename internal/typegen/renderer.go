// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typegen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/opgen/internal/decl"
)

// VariantRenderer produces the per-variant method declaration and definition
// snippets a Type implementation artifact is assembled from. It is an
// explicit collaborator so alternative kernel families can plug in their own
// lowering.
type VariantRenderer interface {
	RenderVariant(env *VariantEnv, decls []*decl.Declaration) (declarations, definitions []string, err error)
}

// KernelRenderer is the default VariantRenderer: every operation lowers to a
// call into the variant's kernel namespace, specialized on the element type.
type KernelRenderer struct{}

// Applicable reports whether the declaration has an implementation in this
// variant: its backends must include the variant's dense backend and its
// element-type restriction, if any, must include the variant's element type.
func Applicable(env *VariantEnv, d *decl.Declaration) bool {
	if !slices.Contains(d.Backends, env.DenseBackend) {
		return false
	}
	if len(d.ScalarTypes) > 0 && !slices.Contains(d.ScalarTypes, env.ScalarName) {
		return false
	}
	return true
}

// RenderVariant implements VariantRenderer.
func (KernelRenderer) RenderVariant(env *VariantEnv, decls []*decl.Declaration) (declarations, definitions []string, err error) {
	for _, d := range decls {
		if d.Mode == decl.ModeNative {
			// Backend-independent: implemented once on TypeDefault.
			continue
		}
		if !Applicable(env, d) {
			continue
		}
		ret := decl.CppReturnType(d)
		declarations = append(declarations,
			fmt.Sprintf("virtual %s %s(%s) const override;", ret, d.Name, formalList(env, d, true)))

		var body strings.Builder
		fmt.Fprintf(&body, "%s %s::%s(%s) const {\n", ret, env.TypeName, d.Name, formalList(env, d, false))
		call := fmt.Sprintf("kernels::%s::%s<%s>(%s)",
			env.KernelNamespace, d.Name, env.ScalarType, actualList(env, d))
		if ret == "void" {
			fmt.Fprintf(&body, "    %s;\n", call)
		} else {
			fmt.Fprintf(&body, "    return %s;\n", call)
		}
		body.WriteString("}")
		definitions = append(definitions, body.String())
	}
	return declarations, definitions, nil
}

// formalList renders the formal parameters of a declaration; withDefaults
// adds default literals (rounded to the variant's element type) to the
// declaration text but never to the definition text.
func formalList(env *VariantEnv, d *decl.Declaration, withDefaults bool) string {
	parts := make([]string, 0, len(d.Arguments))
	for _, arg := range d.Arguments {
		formal := decl.CppFormalType(arg) + " " + arg.Name
		if withDefaults && arg.HasDefault {
			formal += "=" + env.ScalarLiteral(arg.Default)
		}
		parts = append(parts, formal)
	}
	return strings.Join(parts, ", ")
}

func actualList(env *VariantEnv, d *decl.Declaration) string {
	parts := make([]string, 0, len(d.Arguments)+1)
	if env.State != "" {
		parts = append(parts, env.State)
	}
	for _, arg := range d.Arguments {
		parts = append(parts, arg.Name)
	}
	return strings.Join(parts, ", ")
}

// CreateGeneric fills the shared context with the backend-independent glue
// derived from every declaration: pure-virtual declarations for the Type
// base class, tensor method forwarding, namespace functions and native
// declarations. It runs once, before the per-variant emission.
func CreateGeneric(ctx *Context, decls []*decl.Declaration) {
	for _, d := range decls {
		ret := decl.CppReturnType(d)
		formals := genericFormalList(d, true)
		ctx.PureVirtualTypeMethodDeclarations = append(ctx.PureVirtualTypeMethodDeclarations,
			fmt.Sprintf("virtual %s %s(%s) const = 0;", ret, d.Name, formals))

		if d.Mode == decl.ModeNative {
			ctx.NativeFunctionDeclarations = append(ctx.NativeFunctionDeclarations,
				fmt.Sprintf("%s %s(%s);", ret, d.Name, formals))

			// Backend-independent operations get one shared implementation
			// on TypeDefault, forwarding to the native kernel.
			actuals := strings.Join(argumentNames(d), ", ")
			ctx.TypeMethodDeclarations = append(ctx.TypeMethodDeclarations,
				fmt.Sprintf("virtual %s %s(%s) const override;", ret, d.Name, formals))
			forward := fmt.Sprintf("native::%s(%s)", d.Name, actuals)
			if ret == "void" {
				ctx.TypeMethodDefinitions = append(ctx.TypeMethodDefinitions,
					fmt.Sprintf("%s TypeDefault::%s(%s) const {\n    %s;\n}",
						ret, d.Name, genericFormalList(d, false), forward))
			} else {
				ctx.TypeMethodDefinitions = append(ctx.TypeMethodDefinitions,
					fmt.Sprintf("%s TypeDefault::%s(%s) const {\n    return %s;\n}",
						ret, d.Name, genericFormalList(d, false), forward))
			}
		}

		if d.MethodOf.Has(decl.MethodOfTensor) {
			methodFormals, methodActuals := receiverCall(d)
			ctx.TensorMethodDeclarations = append(ctx.TensorMethodDeclarations,
				fmt.Sprintf("%s %s(%s) const;", ret, d.Name, methodFormals))
			ctx.TensorMethodDefinitions = append(ctx.TensorMethodDefinitions,
				fmt.Sprintf("inline %s Tensor::%s(%s) const {\n    return type().%s(%s);\n}",
					ret, d.Name, methodFormals, d.Name, methodActuals))
		}
		if d.MethodOf.Has(decl.MethodOfNamespace) {
			dispatchOn := d.FirstTensorInput()
			var dispatch string
			if dispatchOn == "" {
				dispatch = "getDefaultType()"
			} else {
				dispatch = dispatchOn + ".type()"
			}
			actuals := strings.Join(argumentNames(d), ", ")
			ctx.FunctionDeclarations = append(ctx.FunctionDeclarations,
				fmt.Sprintf("static inline %s %s(%s);", ret, d.Name, formals))
			ctx.FunctionDefinitions = append(ctx.FunctionDefinitions,
				fmt.Sprintf("static inline %s %s(%s) {\n    return %s.%s(%s);\n}",
					ret, d.Name, genericFormalList(d, false), dispatch, d.Name, actuals))
		}
	}
}

func genericFormalList(d *decl.Declaration, withDefaults bool) string {
	parts := make([]string, 0, len(d.Arguments))
	for _, arg := range d.Arguments {
		formal := decl.CppFormalType(arg) + " " + arg.Name
		if withDefaults && arg.HasDefault {
			formal += "=" + arg.Default
		}
		parts = append(parts, formal)
	}
	return strings.Join(parts, ", ")
}

// receiverCall renders a tensor-method signature: the `self` argument binds
// to the receiver and disappears from the formals.
func receiverCall(d *decl.Declaration) (formals, actuals string) {
	var formalParts, actualParts []string
	for _, arg := range d.Arguments {
		if arg.Name == "self" {
			actualParts = append(actualParts, "*this")
			continue
		}
		formalParts = append(formalParts, decl.CppFormalType(arg)+" "+arg.Name)
		actualParts = append(actualParts, arg.Name)
	}
	return strings.Join(formalParts, ", "), strings.Join(actualParts, ", ")
}

func argumentNames(d *decl.Declaration) []string {
	names := make([]string, 0, len(d.Arguments))
	for _, arg := range d.Arguments {
		names = append(names, arg.Name)
	}
	return names
}
