// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decl

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/pkg/support/sets"
	"k8s.io/klog/v2"
)

// Raw is the dialect-neutral shape every parser maps its records into.
// Field meanings follow the dialects: spellings are still strings, nothing is
// validated yet. Normalize turns a Raw into a canonical Declaration or dies
// trying.
type Raw struct {
	// Source is "file:line" of the record, for error messages.
	Source string
	Name   string
	// Mode is the dialect-declared mode: "", "TH" or "plain" for regular
	// operations, "NN" for module operations, "native" for the line dialect.
	Mode      string
	Arguments []RawArgument
	// Returns are return spellings: "Tensor", "Tensor hidden",
	// "(Tensor, Tensor)" or "argument N" referring to an argument index.
	Returns     []string
	Variants    []string
	Backends    []string
	ScalarTypes []string
	Deprecated  bool
	Buffers     []string
}

// RawArgument carries one argument spelling plus the flags dialects can
// attach outside the spelling itself.
type RawArgument struct {
	// Spelling is "Type name", "Type[n] name", "Type? name" or any of those
	// with a "=default" suffix.
	Spelling       string
	Output         bool
	Nullable       bool
	KwargOnly      bool
	Default        string
	HasDefault     bool
	BindingDefault string
}

var defaultBackends = []string{"CPU", "CUDA"}

// Normalize maps the raw per-dialect records into canonical Declarations.
//
// It unifies type spellings, attaches variants based on mode (module
// operations are exposed only as namespace functions), resolves returns and
// rejects declarations referencing unsupported semantic types. All failures
// are fatal: the inputs are build artifacts, a bad record means the generator
// and its sources drifted apart.
func Normalize(raws []Raw) []*Declaration {
	decls := make([]*Declaration, 0, len(raws))
	for _, raw := range raws {
		decls = append(decls, normalizeOne(raw))
	}
	klog.V(1).Infof("normalized %d declarations", len(decls))
	return decls
}

func normalizeOne(raw Raw) *Declaration {
	if raw.Name == "" {
		exceptions.Panicf("declaration at %s has no name", raw.Source)
	}
	d := &Declaration{
		Name:        raw.Name,
		Mode:        parseMode(raw),
		Backends:    raw.Backends,
		ScalarTypes: raw.ScalarTypes,
		Deprecated:  raw.Deprecated,
		Buffers:     raw.Buffers,
		Variants:    sets.Make[Variant](),
		MethodOf:    sets.Make[string](),
	}
	if len(d.Backends) == 0 {
		d.Backends = defaultBackends
	}
	d.Inplace = strings.HasSuffix(d.Name, "_") && !d.IsOutVariant()

	kwargOnly := false
	for _, rawArg := range raw.Arguments {
		spelling := strings.TrimSpace(rawArg.Spelling)
		if spelling == "*" {
			// All following arguments are keyword-only.
			kwargOnly = true
			continue
		}
		arg := parseArgument(d.Name, spelling, rawArg)
		arg.KwargOnly = arg.KwargOnly || kwargOnly
		d.Arguments = append(d.Arguments, arg)
	}
	checkArgumentNames(d)

	for _, retSpelling := range raw.Returns {
		d.Returns = append(d.Returns, parseReturn(d, retSpelling))
	}

	attachVariants(d, raw.Variants)
	return d
}

func parseMode(raw Raw) Mode {
	switch strings.ToUpper(raw.Mode) {
	case "", "TH", "PLAIN":
		return ModePlain
	case "NN":
		return ModeNN
	case "NATIVE":
		return ModeNative
	}
	exceptions.Panicf("declaration %q (%s): unknown mode %q", raw.Name, raw.Source, raw.Mode)
	return ModePlain
}

// parseArgument parses "Type name", optionally with a leading "output "
// marker, a "?" nullability marker on the type, a "[n]" size marker and a
// "=literal" default suffix. Flags given outside the spelling are merged in.
func parseArgument(op, spelling string, rawArg RawArgument) *Argument {
	arg := &Argument{
		Output:         rawArg.Output,
		Nullable:       rawArg.Nullable,
		KwargOnly:      rawArg.KwargOnly,
		Default:        rawArg.Default,
		HasDefault:     rawArg.HasDefault,
		BindingDefault: rawArg.BindingDefault,
	}
	if rest, found := strings.CutPrefix(spelling, "output "); found {
		arg.Output = true
		spelling = rest
	}
	typeSpelling, name, found := strings.Cut(spelling, " ")
	if !found {
		exceptions.Panicf("operation %q: malformed argument %q, expected \"Type name\"", op, spelling)
	}
	if nameOnly, defaultLiteral, hasDefault := cutDefault(name); hasDefault {
		name, arg.Default, arg.HasDefault = nameOnly, defaultLiteral, true
	}
	if base, isNullable := strings.CutSuffix(typeSpelling, "?"); isNullable {
		arg.Nullable = true
		typeSpelling = base
	}
	arg.RawType = typeSpelling
	arg.Name = strings.TrimSpace(name)
	arg.Type, arg.Size = MustParseTypeSpelling(op, typeSpelling)
	if arg.Name == "" {
		exceptions.Panicf("operation %q: argument of type %q has no name", op, typeSpelling)
	}
	return arg
}

func cutDefault(name string) (string, string, bool) {
	before, after, found := strings.Cut(name, "=")
	if !found {
		return name, "", false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

func parseReturn(d *Declaration, spelling string) *ReturnSlot {
	spelling = strings.TrimSpace(spelling)
	if argIdx, found := strings.CutPrefix(spelling, "argument "); found {
		// The return aliases an argument: adopt its type and name.
		idx := 0
		for _, c := range argIdx {
			if c < '0' || c > '9' {
				exceptions.Panicf("operation %q: malformed return %q", d.Name, spelling)
			}
			idx = idx*10 + int(c-'0')
		}
		if idx >= len(d.Arguments) {
			exceptions.Panicf("operation %q: return refers to argument %d but there are only %d arguments",
				d.Name, idx, len(d.Arguments))
		}
		arg := d.Arguments[idx]
		return &ReturnSlot{Name: arg.Name, DynamicType: arg.Type}
	}
	if spelling == "self" {
		return &ReturnSlot{Name: "self", DynamicType: TypeTensor}
	}
	if strings.HasPrefix(spelling, "(") {
		// Tuple forms like "(Tensor, Tensor)" contain spaces and never
		// carry a name.
		return &ReturnSlot{DynamicType: parseReturnSpelling(d.Name, spelling)}
	}
	typeSpelling, name, hasName := strings.Cut(spelling, " ")
	ret := &ReturnSlot{DynamicType: parseReturnSpelling(d.Name, typeSpelling)}
	if hasName {
		ret.Name = strings.TrimSpace(name)
	}
	return ret
}

// attachVariants sets Variants and the derived MethodOf set. Module (NN)
// operations are exposed only as namespace functions, never tensor methods.
func attachVariants(d *Declaration, variants []string) {
	if d.Mode == ModeNN {
		d.Variants.Insert(VariantFunction)
	} else if len(variants) == 0 {
		d.Variants.Insert(VariantFunction, VariantMethod)
	} else {
		for _, v := range variants {
			switch Variant(strings.TrimSpace(v)) {
			case VariantFunction:
				d.Variants.Insert(VariantFunction)
			case VariantMethod:
				d.Variants.Insert(VariantMethod)
			default:
				exceptions.Panicf("operation %q: unknown variant %q", d.Name, v)
			}
		}
	}
	if d.Variants.Has(VariantMethod) {
		d.MethodOf.Insert(MethodOfTensor)
	}
	if d.Variants.Has(VariantFunction) {
		d.MethodOf.Insert(MethodOfType, MethodOfNamespace)
	}
}

func checkArgumentNames(d *Declaration) {
	seen := sets.Make[string](len(d.Arguments))
	for _, arg := range d.Arguments {
		if seen.Has(arg.Name) {
			exceptions.Panicf("operation %q: duplicate argument name %q", d.Name, arg.Name)
		}
		seen.Insert(arg.Name)
	}
}
