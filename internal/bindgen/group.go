// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bindgen

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/opgen/internal/decl"
	"github.com/gomlx/opgen/pkg/support/xslices"
)

// group pairs a base declaration with its optional out variant. The two are
// compiled into one parser arm: the canonical signature is the out member's
// (it carries the trailing optional out slot) when present, otherwise the
// base member's.
type group struct {
	Base      *decl.Declaration
	Out       *decl.Declaration
	Signature string
}

// groupBySignature splits one overload set (all declarations sharing a base
// name) into groups keyed by the out-less signature text, pairing each out
// variant with its base. Groups are returned sorted by signature so the
// generated dispatch chain order is deterministic.
func groupBySignature(decls []*decl.Declaration) []*group {
	bySignature := make(map[string]*group)
	for _, d := range decls {
		signature := signatureText(d, false)
		g, ok := bySignature[signature]
		if !ok {
			g = &group{}
			bySignature[signature] = g
		}
		if d.IsOutVariant() {
			g.Out = d
			g.Signature = signatureText(d, true)
		} else {
			g.Base = d
			if g.Signature == "" {
				g.Signature = signature
			}
		}
	}

	groups := make([]*group, 0, len(bySignature))
	for _, signature := range xslices.SortedKeys(bySignature) {
		g := bySignature[signature]
		if g.Base == nil {
			exceptions.Panicf("out variant with signature %q has no base declaration", g.Signature)
		}
		groups = append(groups, g)
	}
	return groups
}

// signatureText derives the canonical signature used for argument-parser
// matching: positional parameters, a "*" once the first keyword-only
// parameter is seen, the declared output parameter(s) folded into one
// trailing optional slot when includeOut is set, then any binding-only
// parameters, with a "|deprecated" marker on retired declarations.
func signatureText(d *decl.Declaration, includeOut bool) string {
	var parts []string
	positional := true
	star := func() {
		if positional {
			parts = append(parts, "*")
			positional = false
		}
	}

	var outputs []*decl.Argument
	for _, arg := range d.Arguments {
		if arg.Output {
			outputs = append(outputs, arg)
			continue
		}
		if arg.KwargOnly {
			star()
		}
		parts = append(parts, typedParameter(arg))
	}

	if len(outputs) > 0 && includeOut {
		star()
		var typename string
		if len(outputs) > 1 {
			typename = fmt.Sprintf("TensorList[%d]", len(outputs))
		} else {
			typename = outputs[0].Type.String()
		}
		parts = append(parts, typename+" out=None")
	}

	// Binding-only parameters always trail the out slot.
	for _, arg := range d.BindingArguments {
		if arg.KwargOnly {
			star()
		}
		parts = append(parts, typedParameter(arg))
	}

	signature := fmt.Sprintf("%s(%s)", d.BaseName(), strings.Join(parts, ", "))
	if d.Deprecated {
		signature += "|deprecated"
	}
	return signature
}

// typedParameter renders one "Type name=default" parameter of a signature.
func typedParameter(arg *decl.Argument) string {
	typename := arg.Type.String()
	if arg.Type == decl.TypeScalarType {
		typename = "dtype"
	}
	if arg.Nullable {
		typename += "?"
	}
	if arg.Size > 0 {
		typename = fmt.Sprintf("%s[%d]", typename, arg.Size)
	}
	param := typename + " " + arg.Name
	if arg.BindingDefault != "" {
		return param + "=None"
	}
	if arg.HasDefault {
		value := arg.Default
		if value == "nullptr" || value == "{}" {
			value = "None"
		}
		return param + "=" + value
	}
	return param
}
