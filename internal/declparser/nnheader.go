// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package declparser

import (
	"regexp"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/internal/decl"
)

// The header-annotation dialect: C prototypes of module kernel functions,
// spelled `void THNN_(Name)(THNNState *state, args...);`. Only the
// forward/backward entry points are bound; duplicated names across headers
// mean the same operation on another backend.

var (
	nnIncludeOnly = regexp.MustCompile(`(updateOutput|updateGradInput|accGradParameters|backward)$`)
	nnExclude     = regexp.MustCompile(`LookupTable`)

	nnPrototype = regexp.MustCompile(`(?s)THNN_\(\s*(\w+)\s*\)\s*\((.*?)\)\s*;`)
	nnOptional  = regexp.MustCompile(`\[OPTIONAL\]`)
)

// nnTypeTranslations maps kernel-header type spellings that differ from the
// canonical set. The accelerated tensor spelling translates to the plain one:
// the backend axis, not the argument type, records where the kernel runs.
var nnTypeTranslations = map[string]string{
	"THIndex_t":       "long",
	"THCTensor*":      "THTensor*",
	"THIndexTensor*":  "IndexTensor",
	"THCIndexTensor*": "IndexTensor",
}

// ParseNNHeader parses module-kernel prototypes from a C header. Headers
// whose filename suggests the accelerated backend declare the same
// operations for it; ParseNNHeader is per-file, MergeNNDeclarations unifies
// duplicates across headers by unioning backends.
func ParseNNHeader(path string) ([]decl.Raw, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	contents := strings.Join(lines, "\n")
	backend := "CPU"
	if strings.Contains(path, "CUDA") || strings.Contains(path, "THCU") {
		backend = "CUDA"
	}

	var raws []decl.Raw
	for _, match := range nnPrototype.FindAllStringSubmatch(contents, -1) {
		name, argList := match[1], match[2]
		if !nnIncludeOnly.MatchString(name) || nnExclude.MatchString(name) {
			continue
		}
		raw := decl.Raw{
			Source:      sourceAt(path, 1),
			Name:        name,
			Mode:        "NN",
			Backends:    []string{backend},
			ScalarTypes: []string{"Float", "Double"},
			Variants:    []string{"function"},
		}
		args := splitCommaList(argList)
		if len(args) == 0 {
			exceptions.Panicf("%s: kernel prototype %q has no state argument", path, name)
		}
		// First argument is the backend state, never part of the declaration.
		for _, argText := range args[1:] {
			raw.Arguments = append(raw.Arguments, parseNNArgument(path, name, argText))
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func parseNNArgument(path, op, text string) decl.RawArgument {
	arg := decl.RawArgument{}
	if nnOptional.MatchString(text) {
		arg.Nullable = true
		text = nnOptional.ReplaceAllString(text, "")
	}
	fields := strings.Fields(text)
	if len(fields) < 2 {
		exceptions.Panicf("%s: operation %q: malformed kernel argument %q", path, op, text)
	}
	typeSpelling := strings.Join(fields[:len(fields)-1], "")
	name := fields[len(fields)-1]
	// Pointer markers attach to the type, not the name.
	for strings.HasPrefix(name, "*") {
		typeSpelling += "*"
		name = name[1:]
	}
	if translated, found := nnTypeTranslations[typeSpelling]; found {
		typeSpelling = translated
	}
	arg.Spelling = typeSpelling + " " + name
	return arg
}

// MergeNNDeclarations unifies duplicate operation names parsed from several
// headers into one record with the union of their backends, preserving the
// order of first appearance.
func MergeNNDeclarations(raws []decl.Raw) []decl.Raw {
	byName := make(map[string]int)
	var merged []decl.Raw
	for _, raw := range raws {
		if idx, found := byName[raw.Name]; found {
			existing := &merged[idx]
			for _, backend := range raw.Backends {
				if !slices.Contains(existing.Backends, backend) {
					existing.Backends = append(existing.Backends, backend)
				}
			}
			continue
		}
		byName[raw.Name] = len(merged)
		merged = append(merged, raw)
	}
	return merged
}
