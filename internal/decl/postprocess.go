// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"strconv"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/pkg/support/sets"
)

// PostprocessOutputDeclarations guarantees every return slot carries a name:
// in-place operations return `self`, a sole unnamed return becomes `out`, and
// multiple unnamed returns become `out0`, `out1`, ... by position.
//
// An unnamed return following an explicitly named one is ambiguous and fatal:
// auto-naming assumes at most one contiguous block of unnamed returns at the
// front of the return list.
func PostprocessOutputDeclarations(decls []*Declaration) {
	for _, d := range decls {
		hasNamed := false
		for n, ret := range d.Returns {
			if ret.Name != "" {
				hasNamed = true
				continue
			}
			if hasNamed {
				exceptions.Panicf("operation %q: unnamed return %d after a named return, cannot auto-name",
					d.Name, n)
			}
			switch {
			case d.Inplace:
				ret.Name = "self"
			case len(d.Returns) == 1:
				ret.Name = "out"
			default:
				ret.Name = "out" + strconv.Itoa(n)
			}
		}
		checkReturnNames(d)
	}
}

func checkReturnNames(d *Declaration) {
	seen := sets.Make[string](len(d.Returns))
	for _, ret := range d.Returns {
		if ret.Name == "" {
			exceptions.Panicf("operation %q: return left unnamed after postprocessing", d.Name)
		}
		if seen.Has(ret.Name) {
			exceptions.Panicf("operation %q: duplicate return name %q", d.Name, ret.Name)
		}
		seen.Insert(ret.Name)
	}
}
