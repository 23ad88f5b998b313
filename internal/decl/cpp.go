// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"strings"

	"github.com/gomlx/exceptions"
)

// Spellings of the semantic types in the emitted glue code. Both the typed
// dispatch layer and the binding layer emit against the same runtime type
// names, so the mapping lives here with the tag set.

// CppFormalType returns the formal-parameter spelling for an argument.
func CppFormalType(arg *Argument) string {
	switch arg.Type {
	case TypeTensor:
		if arg.Output {
			return "Tensor &"
		}
		return "const Tensor &"
	case TypeTensorList:
		return "TensorList"
	case TypeScalar:
		return "Scalar"
	case TypeInt64:
		return "int64_t"
	case TypeBool:
		return "bool"
	case TypeDouble:
		return "double"
	case TypeIntList:
		return "IntList"
	case TypeGenerator:
		return "Generator *"
	case TypeStorage:
		return "Storage &"
	case TypeScalarType:
		return "const Type &"
	case TypeString:
		return "std::string"
	case TypeVoidPtr:
		return "void*"
	}
	exceptions.Panicf("argument %q: no formal spelling for type %s", arg.Name, arg.Type)
	return ""
}

// CppReturnType returns the return spelling for a whole declaration,
// folding multiple return slots into a tuple.
func CppReturnType(d *Declaration) string {
	if len(d.Returns) == 0 {
		return "void"
	}
	if len(d.Returns) == 1 {
		return cppReturnSlotType(d, d.Returns[0])
	}
	parts := make([]string, 0, len(d.Returns))
	for _, ret := range d.Returns {
		parts = append(parts, cppReturnSlotType(d, ret))
	}
	return "std::tuple<" + strings.Join(parts, ",") + ">"
}

func cppReturnSlotType(d *Declaration, ret *ReturnSlot) string {
	switch ret.DynamicType {
	case TypeTensor:
		return "Tensor"
	case TypeTensorList:
		return "std::vector<Tensor>"
	case TypeScalar:
		return "Scalar"
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64_t"
	case TypeDouble:
		return "double"
	case TypeVoidPtr:
		return "void*"
	case TypeTensorTuple2:
		return "std::tuple<Tensor,Tensor>"
	case TypeTensorTuple3:
		return "std::tuple<Tensor,Tensor,Tensor>"
	case TypeTensorTuple4:
		return "std::tuple<Tensor,Tensor,Tensor,Tensor>"
	case TypeTensorTuple5:
		return "std::tuple<Tensor,Tensor,Tensor,Tensor,Tensor>"
	}
	exceptions.Panicf("operation %q: no return spelling for type %s", d.Name, ret.DynamicType)
	return ""
}
