// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package declparser

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/internal/decl"
)

const (
	nativeBlockBegin = "[NativeFunction]"
	nativeBlockEnd   = "[/NativeFunction]"
)

// ParseNative parses the line-oriented dialect: blocks delimited by
// [NativeFunction] / [/NativeFunction], one "key: value" pair per line. The
// "arg" key repeats and collects the ordered argument list, the "return" key
// accepts a comma-separated list. The mode of every block is fixed to native.
func ParseNative(path string) ([]decl.Raw, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var raws []decl.Raw
	inBlock := false
	var current decl.Raw
	for lineNo, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == nativeBlockBegin:
			if inBlock {
				exceptions.Panicf("%s: nested %s block", sourceAt(path, lineNo+1), nativeBlockBegin)
			}
			inBlock = true
			current = decl.Raw{Source: sourceAt(path, lineNo+1), Mode: "native"}
		case trimmed == nativeBlockEnd:
			if !inBlock {
				exceptions.Panicf("%s: %s without matching begin", sourceAt(path, lineNo+1), nativeBlockEnd)
			}
			inBlock = false
			raws = append(raws, current)
		case inBlock:
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			key, value := mustSplitKeyValue(path, lineNo+1, line)
			applyNativeKey(&current, path, lineNo+1, key, value)
		}
	}
	if inBlock {
		exceptions.Panicf("%s: unterminated %s block", path, nativeBlockBegin)
	}
	return raws, nil
}

func applyNativeKey(raw *decl.Raw, path string, lineNo int, key, value string) {
	switch key {
	case "name":
		raw.Name = value
	case "arg":
		raw.Arguments = append(raw.Arguments, decl.RawArgument{Spelling: value})
	case "return":
		for _, ret := range splitReturnList(value) {
			raw.Returns = append(raw.Returns, ret)
		}
	case "variants":
		raw.Variants = splitCommaList(value)
	case "backends":
		raw.Backends = splitCommaList(value)
	case "types":
		raw.ScalarTypes = splitCommaList(value)
	case "deprecated":
		raw.Deprecated = value == "true"
	default:
		exceptions.Panicf("%s: unknown declaration key %q", sourceAt(path, lineNo), key)
	}
}

// splitReturnList splits on commas at depth zero, so tuple returns like
// "(Tensor, Tensor)" stay intact.
func splitReturnList(value string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, c := range value {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(value[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(value[start:]); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func splitCommaList(value string) []string {
	var parts []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
