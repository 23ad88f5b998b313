// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
)

// TypeTag enumerates the semantic types an argument or return can have.
//
// Every spelling accepted by the dialect parsers maps to exactly one tag;
// a spelling outside this set is a build-time contract violation.
type TypeTag int

const (
	TypeInvalid TypeTag = iota
	TypeTensor
	TypeTensorList
	TypeScalar
	TypeInt64
	TypeBool
	TypeDouble
	TypeIntList
	TypeGenerator
	TypeStorage
	TypeScalarType // element-kind selector, only valid as a binding argument
	TypeString
	TypeVoidPtr
	TypeTensorTuple2
	TypeTensorTuple3
	TypeTensorTuple4
	TypeTensorTuple5
)

var typeTagNames = map[TypeTag]string{
	TypeTensor:       "Tensor",
	TypeTensorList:   "TensorList",
	TypeScalar:       "Scalar",
	TypeInt64:        "int64_t",
	TypeBool:         "bool",
	TypeDouble:       "double",
	TypeIntList:      "IntList",
	TypeGenerator:    "Generator",
	TypeStorage:      "Storage",
	TypeScalarType:   "ScalarType",
	TypeString:       "string",
	TypeVoidPtr:      "void*",
	TypeTensorTuple2: "TensorTuple2",
	TypeTensorTuple3: "TensorTuple3",
	TypeTensorTuple4: "TensorTuple4",
	TypeTensorTuple5: "TensorTuple5",
}

// String implements fmt.Stringer, returning the canonical spelling of the tag.
func (t TypeTag) String() string {
	if name, found := typeTagNames[t]; found {
		return name
	}
	return "InvalidType"
}

// IsTensorLike reports whether values of this type are tensor-shaped
// (a tensor, a list of tensors or a tuple of tensors).
func (t TypeTag) IsTensorLike() bool {
	switch t {
	case TypeTensor, TypeTensorList, TypeTensorTuple2, TypeTensorTuple3, TypeTensorTuple4, TypeTensorTuple5:
		return true
	}
	return false
}

// typeSpellings unify the scattered spellings used by the declaration
// dialects into the semantic tag set. Legacy index-tensor aliases normalize
// to the generic tensor type.
var typeSpellings = map[string]TypeTag{
	"Tensor":      TypeTensor,
	"THTensor*":   TypeTensor,
	"IndexTensor": TypeTensor,
	"LongTensor":  TypeTensor,
	"TensorList":  TypeTensorList,
	"Scalar":      TypeScalar,
	"real":        TypeScalar,
	"accreal":     TypeScalar,
	"int64_t":     TypeInt64,
	"int":         TypeInt64,
	"long":        TypeInt64,
	"bool":        TypeBool,
	"double":      TypeDouble,
	"float":       TypeDouble,
	"IntList":     TypeIntList,
	"Generator":   TypeGenerator,
	"Generator*":  TypeGenerator,
	"Storage":     TypeStorage,
	"ScalarType":  TypeScalarType,
	"dtype":       TypeScalarType,
	"string":      TypeString,
	"void*":       TypeVoidPtr,
}

// ParseTypeSpelling resolves a raw type spelling into a semantic tag plus the
// fixed-length marker of list-typed spellings (e.g. "IntList[2]" yields
// (TypeIntList, 2)). Size is 0 for unsized types. The second result is false
// for spellings outside the supported set.
func ParseTypeSpelling(spelling string) (tag TypeTag, size int, ok bool) {
	if idx := strings.Index(spelling, "["); idx >= 0 && strings.HasSuffix(spelling, "]") {
		base := spelling[:idx]
		n, err := strconv.Atoi(spelling[idx+1 : len(spelling)-1])
		if err != nil || n <= 0 {
			return TypeInvalid, 0, false
		}
		tag, ok = typeSpellings[base]
		if !ok {
			return TypeInvalid, 0, false
		}
		return tag, n, true
	}
	tag, ok = typeSpellings[spelling]
	return tag, 0, ok
}

// MustParseTypeSpelling is like ParseTypeSpelling but panics with the name of
// the offending operation on unsupported spellings.
func MustParseTypeSpelling(op, spelling string) (TypeTag, int) {
	tag, size, ok := ParseTypeSpelling(spelling)
	if !ok {
		exceptions.Panicf("operation %q: unsupported argument type %q", op, spelling)
	}
	return tag, size
}

// parseReturnSpelling resolves a return spelling, which also accepts
// tuple-of-N-tensors forms spelled "(Tensor, Tensor, ...)".
func parseReturnSpelling(op, spelling string) TypeTag {
	if strings.HasPrefix(spelling, "(") && strings.HasSuffix(spelling, ")") {
		parts := strings.Split(spelling[1:len(spelling)-1], ",")
		for _, p := range parts {
			if strings.TrimSpace(p) != "Tensor" {
				exceptions.Panicf("operation %q: unsupported return type %q", op, spelling)
			}
		}
		switch len(parts) {
		case 2:
			return TypeTensorTuple2
		case 3:
			return TypeTensorTuple3
		case 4:
			return TypeTensorTuple4
		case 5:
			return TypeTensorTuple5
		}
		exceptions.Panicf("operation %q: unsupported return tuple arity %d", op, len(parts))
	}
	tag, _, ok := ParseTypeSpelling(spelling)
	if !ok {
		exceptions.Panicf("operation %q: unsupported return type %q", op, spelling)
	}
	return tag
}
