// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package declparser parses the declaration-source dialects into raw
// declaration records (decl.Raw).
//
// There are three independent dialects:
//
//   - a line-oriented tagged-block format (".decl" files), blocks delimited
//     by [NativeFunction] / [/NativeFunction];
//   - a structured format (".cwrap" files), blocks delimited by "[[" / "]]"
//     lines with a YAML document inside;
//   - a header-annotation format (".h" files), C prototypes of module kernel
//     functions.
//
// Parsers never communicate with each other and never mutate shared state;
// routing of an input file to its parser is by extension/name pattern.
package declparser

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/internal/decl"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Route parses every input file with the dialect parser its name selects.
// Records come out grouped by dialect, in input order within each group:
// structured-format records first, then the merged header-annotation
// records, then line-oriented records. The order is part of the observable
// contract, it fixes the order of generated registration tables.
func Route(files []string) ([]decl.Raw, error) {
	var cwrapRaws, nnRaws, nativeRaws []decl.Raw
	for _, file := range files {
		var (
			parsed []decl.Raw
			err    error
		)
		switch {
		case strings.HasSuffix(file, ".cwrap"):
			parsed, err = ParseCwrap(file)
			cwrapRaws = append(cwrapRaws, parsed...)
		case strings.HasSuffix(file, ".h"):
			parsed, err = ParseNNHeader(file)
			nnRaws = append(nnRaws, parsed...)
		case strings.HasSuffix(file, ".decl"):
			parsed, err = ParseNative(file)
			nativeRaws = append(nativeRaws, parsed...)
		default:
			return nil, errors.Errorf("no dialect parser for input file %q", file)
		}
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("parsed %d declarations from %s", len(parsed), file)
	}
	raws := cwrapRaws
	raws = append(raws, MergeNNDeclarations(nnRaws)...)
	raws = append(raws, nativeRaws...)
	return raws, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading declaration source %q", path)
	}
	contents := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(contents, "\n"), nil
}

func sourceAt(path string, line int) string {
	return filepath.Base(path) + ":" + strconv.Itoa(line)
}

// mustSplitKeyValue splits a "key: value" line. A line without exactly one
// colon is fatal: declarations are hand-authored, a malformed line means the
// generator and its sources drifted apart.
func mustSplitKeyValue(path string, lineNo int, line string) (key, value string) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 {
		exceptions.Panicf("%s: malformed declaration line %q, expected \"key: value\"",
			sourceAt(path, lineNo), strings.TrimSpace(line))
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
