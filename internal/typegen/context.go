// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typegen

// Context is the shared accumulation environment threaded through the whole
// emission pipeline. Every Variant Key and extension backend appends to it
// in iteration order; after all producers ran, the whole-program artifacts
// (registration tables, dispatch switches, base-class declarations) are
// rendered from it. Mutation is strictly sequential, append-only.
type Context struct {
	TypeIDs []string

	CPUTypeRegistrations  []string
	CPUTypeHeaders        []string
	CUDATypeRegistrations []string
	CUDATypeHeaders       []string

	PureVirtualTypeMethodDeclarations []string
	TypeMethodDeclarations            []string
	TypeMethodDefinitions             []string
	TensorMethodDeclarations          []string
	TensorMethodDefinitions           []string
	FunctionDeclarations              []string
	FunctionDefinitions               []string
	NativeFunctionDeclarations        []string

	ExtensionBackendHeaders          []string
	ExtensionBackendRegisterSwitches []string
}

// NewContext returns an empty accumulation context.
func NewContext() *Context {
	return &Context{}
}
