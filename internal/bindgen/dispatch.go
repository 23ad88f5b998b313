// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bindgen

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/opgen/internal/decl"
	"github.com/gomlx/opgen/pkg/support/sets"
)

// supportedReturnTypes is the closed set of shapes the binding runtime's
// wrap() helper can box. A declaration returning anything else is a
// generation-time configuration error.
var supportedReturnTypes = sets.MakeWith(
	"Tensor",
	"std::tuple<Tensor,Tensor>",
	"std::tuple<Tensor,Tensor,Tensor>",
	"std::tuple<Tensor,Tensor,Tensor,Tensor>",
	"std::tuple<Tensor,Tensor,Tensor,Tensor,Tensor>",
	"std::vector<Tensor>",
	"Scalar", "bool", "int64_t", "void*",
)

// accessors maps each argument kind to the parser accessor unpacking it.
var accessors = map[decl.TypeTag]string{
	decl.TypeTensor:     "tensor",
	decl.TypeTensorList: "tensorlist",
	decl.TypeScalar:     "scalar",
	decl.TypeInt64:      "toInt64",
	decl.TypeBool:       "toBool",
	decl.TypeDouble:     "toDouble",
	decl.TypeIntList:    "intlist",
	decl.TypeGenerator:  "generator",
	decl.TypeStorage:    "storage",
	decl.TypeScalarType: "scalartype",
	decl.TypeString:     "string",
}

// withDefaultAccessors maps the argument kinds that support a caller-supplied
// default expression to their defaulting accessor.
var withDefaultAccessors = map[decl.TypeTag]string{
	decl.TypeIntList: "setDefaultIntlist",
	decl.TypeScalar:  "scalarWithDefault",
	decl.TypeInt64:   "toInt64WithDefault",
	decl.TypeBool:    "setDefaultBool",
	decl.TypeDouble:  "setDefaultDouble",
}

// binder accumulates one binding surface: the entry-point bodies, the
// method-definition table entries and the inline dispatch functions.
type binder struct {
	hasSelf  bool
	isModule bool

	methods        []string
	methodDefs     []string
	methodDispatch []string
}

// parseArg renders the accessor expression and the dispatch formal of one
// argument at the given parser slot. When unpackToLocal is set the accessor
// result is bound to a local first, so defaulting accessors can reference
// earlier arguments.
func (b *binder) parseArg(body *[]string, arg *decl.Argument, index int, unpackToLocal bool) (expr, formal string) {
	if arg.BindingDefault != "" {
		accessor, ok := withDefaultAccessors[arg.Type]
		if !ok {
			exceptions.Panicf("argument %q: kind %s does not support a binding default", arg.Name, arg.Type)
		}
		expr = fmt.Sprintf("r.%s(%d, %s)", accessor, index, arg.BindingDefault)
	} else {
		accessor, ok := accessors[arg.Type]
		if !ok {
			exceptions.Panicf("argument %q: kind %s has no parser accessor", arg.Name, arg.Type)
		}
		expr = fmt.Sprintf("r.%s(%d)", accessor, index)
	}

	if unpackToLocal {
		*body = append(*body, fmt.Sprintf("auto %s = %s;", arg.Name, expr))
		expr = arg.Name
	}
	if arg.Type == decl.TypeStorage {
		expr = "*" + expr
	}
	return expr, decl.CppFormalType(arg) + " " + arg.Name
}

// emitSingleDispatch renders the parser-to-dispatch body of one declaration
// and registers its inline dispatch function. outIdx is the parser slot of
// the out argument when the group has an out member, -1 otherwise.
func (b *binder) emitSingleDispatch(d *decl.Declaration, outIdx int) []string {
	returnType := strings.ReplaceAll(decl.CppReturnType(d), " &", "")
	if !supportedReturnTypes.Has(returnType) {
		exceptions.Panicf("op %s returns unsupported type %s", d.Name, returnType)
	}

	var body, actuals, formals []string
	inputs := d.InputArguments()
	outputs := d.OutputArguments()

	unpackToLocal := false
	for _, arg := range inputs {
		if arg.BindingDefault != "" {
			unpackToLocal = true
		}
	}

	argIdx := 0
	for _, arg := range inputs {
		if b.hasSelf && arg.Name == "self" {
			formals = append(formals, "Tensor & self")
			actuals = append(actuals, "self_")
			continue
		}
		expr, formal := b.parseArg(&body, arg, argIdx, unpackToLocal)
		actuals = append(actuals, expr)
		formals = append(formals, formal)
		argIdx++
	}

	switch {
	case len(outputs) == 1:
		expr, formal := b.parseArg(&body, outputs[0], argIdx, false)
		actuals = append(actuals, expr)
		formals = append(formals, formal)
	case len(outputs) > 1:
		body = append(body, fmt.Sprintf("auto results = r.tensorlist_n<%d>(%d);", len(outputs), argIdx))
		for i, arg := range outputs {
			formals = append(formals, "Tensor & "+arg.Name)
			actuals = append(actuals, fmt.Sprintf("results[%d]", i))
		}
	}

	// Binding-only arguments sit after the out slot in the canonical
	// signature, so their parser slots are computed from it when present.
	dtypeIdx := argIdx
	if outIdx >= 0 {
		dtypeIdx = outIdx + 1
	}
	requiresGradIdx := dtypeIdx + 1

	if n := len(d.BindingArguments); n != 0 && n != 2 {
		exceptions.Panicf("op %s: %d binding-only arguments, expected 0 or 2", d.Name, n)
	}
	kindFormal := ""
	requiresGrad := ""
	for _, arg := range d.BindingArguments {
		switch {
		case arg.Name == "dtype" && arg.Type == decl.TypeScalarType:
			// An explicit out determines the kind, so the selector is only
			// passed through when no output argument exists.
			if len(outputs) == 0 {
				expr, formal := b.parseArg(&body, arg, dtypeIdx, false)
				actuals = append(actuals, expr)
				kindFormal = "type"
				formals = append(formals, strings.Replace(formal, " dtype", " "+kindFormal, 1))
			} else if len(outputs) > 1 {
				exceptions.Panicf("op %s: kind selector with multiple outputs is not supported", d.Name)
			}
		case arg.Name == "requires_grad" && arg.Type == decl.TypeBool:
			requiresGrad, _ = b.parseArg(&body, arg, requiresGradIdx, false)
		default:
			exceptions.Panicf("op %s: unsupported binding-only argument %q", d.Name, arg.Name)
		}
	}

	dispatchArgs := make([]string, 0, len(d.Arguments))
	for _, arg := range d.Arguments {
		dispatchArgs = append(dispatchArgs, arg.Name)
	}
	initializeCUDA := ""
	typeConversion := ""
	var dispatchCall string
	switch {
	case d.MethodOf.Has(decl.MethodOfTensor):
		dispatchArgs = removeName(dispatchArgs, "self")
		dispatchCall = "self." + d.Name
	case d.MethodOf.Has(decl.MethodOfNamespace):
		dispatchCall = "op::" + d.Name
		if kindFormal != "" {
			initializeCUDA = "const Type & type_initialized = maybe_initialize_cuda(type);"
			typeConversion = ".toType(type_initialized)"
		}
	case kindFormal != "":
		initializeCUDA = "const Type & type_initialized = maybe_initialize_cuda(type);"
		dispatchCall = "type_initialized." + d.Name
	default:
		dispatchCall = "default_type()." + d.Name
	}

	b.methodDispatch = append(b.methodDispatch, renderDispatchFunction(&dispatchEnv{
		ReturnType:     decl.CppReturnType(d),
		DispatchName:   "dispatch_" + d.BaseName(),
		FormalArgs:     strings.Join(formals, ", "),
		InitializeCUDA: initializeCUDA,
		AutoGPU:        autoGPU(d),
		DispatchCall:   dispatchCall,
		DispatchArgs:   strings.Join(dispatchArgs, ", "),
		TypeConversion: typeConversion,
	}))

	call := fmt.Sprintf("dispatch_%s(%s)", d.BaseName(), strings.Join(actuals, ", "))
	if requiresGrad != "" {
		call = fmt.Sprintf("set_requires_grad(%s, %s)", call, requiresGrad)
	}
	body = append(body, fmt.Sprintf("return wrap(%s);", call))
	return body
}

// emitDispatchArm renders one arm of the overload if/else-if chain. A group
// with an out member branches on whether the out slot was left unset, and
// rejects an explicit out whose kind disagrees with an explicit selector.
func (b *binder) emitDispatchArm(i int, g *group) string {
	var body []string
	if g.Out != nil {
		outIdx := len(g.Out.InputArguments())
		baseBody := b.emitSingleDispatch(g.Base, outIdx)
		outBody := b.emitSingleDispatch(g.Out, outIdx)

		hasKindSelector := false
		for _, arg := range g.Out.BindingArguments {
			if arg.Name == "dtype" {
				hasKindSelector = true
			}
		}
		body = append(body, fmt.Sprintf("if (r.isNone(%d)) {", outIdx))
		body = append(body, indent(baseBody, "  ")...)
		body = append(body, "} else {")
		if hasKindSelector {
			body = append(body, fmt.Sprintf("  if (!r.isNone(%d)) {", outIdx+1))
			body = append(body, fmt.Sprintf("    check_out_dtype_matches(r.tensor(%d), r.scalartype(%d));", outIdx, outIdx+1))
			body = append(body, "  }")
		}
		body = append(body, indent(outBody, "  ")...)
		body = append(body, "}")
	} else {
		body = b.emitSingleDispatch(g.Base, -1)
	}

	cond := "if"
	if i > 0 {
		cond = "} else if"
	}
	lines := []string{fmt.Sprintf("%s (r.idx == %d) {", cond, i)}
	lines = append(lines, indent(body, "  ")...)
	return strings.Join(lines, "\n")
}

// autoGPU pins the device to the first tensor-shaped input for the duration
// of the dispatch; operations without tensor inputs run deviceless.
func autoGPU(d *decl.Declaration) string {
	name := d.FirstTensorInput()
	if name == "" {
		return ""
	}
	return fmt.Sprintf("AutoGPU auto_gpu(%s);", name)
}

func removeName(names []string, drop string) []string {
	kept := names[:0]
	for _, name := range names {
		if name != drop {
			kept = append(kept, name)
		}
	}
	return kept
}

func indent(lines []string, prefix string) []string {
	indented := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			indented = append(indented, line)
			continue
		}
		indented = append(indented, prefix+line)
	}
	return indented
}
