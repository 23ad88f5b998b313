// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package decl defines the canonical declaration records produced by the
// dialect parsers and consumed by the type-dispatch and binding generators.
//
// A Declaration describes one operation: its name, call-ordered arguments,
// named returns and applicability metadata (variants, backends, mode).
// Normalize turns the raw per-dialect records into this canonical shape;
// PostprocessOutputDeclarations guarantees every return is named before the
// manifest is serialized.
package decl

import (
	"fmt"
	"strings"

	"github.com/gomlx/opgen/pkg/support/sets"
)

// Mode tags where a declaration comes from and how it is exposed.
type Mode int

const (
	// ModePlain is a regular operation exposed as tensor method and/or
	// namespace function.
	ModePlain Mode = iota
	// ModeNN is a module operation, exposed only through the nn namespace.
	ModeNN
	// ModeNative is an operation implemented natively, declared in the
	// line-oriented dialect.
	ModeNative
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "TH"
	case ModeNN:
		return "NN"
	case ModeNative:
		return "native"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Variant is a call-site shape a declaration can be exposed as.
type Variant string

const (
	VariantFunction Variant = "function"
	VariantMethod   Variant = "method"
)

// Method-of targets derived from the variants: a declaration may be callable
// as a tensor method, as a type method and/or as a namespace function.
const (
	MethodOfTensor    = "Tensor"
	MethodOfType      = "Type"
	MethodOfNamespace = "namespace"
)

// Argument is one call-ordered parameter of a declaration.
type Argument struct {
	Name string
	Type TypeTag
	// RawType keeps the dialect's original spelling, for diagnostics only.
	RawType string
	// Size is the fixed-length marker of list-typed arguments, 0 if unsized.
	Size      int
	Output    bool
	Nullable  bool
	KwargOnly bool
	// Default is the default literal; only meaningful when HasDefault.
	Default    string
	HasDefault bool
	// BindingDefault is an expression evaluated at binding time to produce
	// the default, for defaults that depend on other arguments.
	BindingDefault string
}

// ReturnSlot is one return of a declaration. Name may be empty until
// PostprocessOutputDeclarations runs.
type ReturnSlot struct {
	Name        string
	DynamicType TypeTag
}

// Declaration is the canonical record describing one operation.
type Declaration struct {
	Name string
	Mode Mode
	// Arguments in call order. Order is significant.
	Arguments []*Argument
	Returns   []*ReturnSlot
	// Variants holds the call-site shapes this declaration is exposed as.
	Variants sets.Set[Variant]
	// MethodOf is derived from Variants: the receivers this operation can
	// be dispatched from.
	MethodOf sets.Set[string]
	// Backends this declaration is valid for.
	Backends []string
	// ScalarTypes restricts the element types, empty means unrestricted.
	ScalarTypes []string
	Inplace     bool
	Deprecated  bool
	// Buffers are intermediate tensors some module operations thread
	// through; dropped from the manifest when empty.
	Buffers []string
	// BindingArguments are synthetic parameters appended only at
	// binding-generation time; never part of the operation's own signature.
	BindingArguments []*Argument
}

// BaseName returns the name with the output-variant suffix stripped.
func (d *Declaration) BaseName() string {
	return strings.TrimSuffix(d.Name, "_out")
}

// IsOutVariant reports whether this declaration is the output-argument
// variant of its base operation.
func (d *Declaration) IsOutVariant() bool {
	return strings.HasSuffix(d.Name, "_out")
}

// InputArguments returns the non-output arguments, in call order.
func (d *Declaration) InputArguments() []*Argument {
	var inputs []*Argument
	for _, arg := range d.Arguments {
		if !arg.Output {
			inputs = append(inputs, arg)
		}
	}
	return inputs
}

// OutputArguments returns the output arguments, in call order.
func (d *Declaration) OutputArguments() []*Argument {
	var outputs []*Argument
	for _, arg := range d.Arguments {
		if arg.Output {
			outputs = append(outputs, arg)
		}
	}
	return outputs
}

// HasTensorInput reports whether any non-output argument is tensor-shaped.
func (d *Declaration) HasTensorInput() bool {
	for _, arg := range d.InputArguments() {
		if arg.Type == TypeTensor || arg.Type == TypeTensorList {
			return true
		}
	}
	return false
}

// FirstTensorInput returns the name of the first tensor-shaped input
// argument, or "" if there is none.
func (d *Declaration) FirstTensorInput() string {
	for _, arg := range d.InputArguments() {
		if arg.Type == TypeTensor || arg.Type == TypeTensorList {
			return arg.Name
		}
	}
	return ""
}

// HasTensorReturn reports whether any return is tensor-shaped.
func (d *Declaration) HasTensorReturn() bool {
	for _, ret := range d.Returns {
		if ret.DynamicType.IsTensorLike() {
			return true
		}
	}
	return false
}

// String returns "name(type name, ...)", for error messages and logs.
func (d *Declaration) String() string {
	parts := make([]string, 0, len(d.Arguments))
	for _, arg := range d.Arguments {
		parts = append(parts, fmt.Sprintf("%s %s", arg.Type, arg.Name))
	}
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
}
