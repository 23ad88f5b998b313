// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package declparser

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/internal/decl"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	cwrapBlockBegin = "[["
	cwrapBlockEnd   = "]]"
)

// cwrapRecord is the dialect-specific YAML shape of one "[[ ... ]]" block.
type cwrapRecord struct {
	Name       string      `yaml:"name"`
	Mode       string      `yaml:"mode"`
	Variants   []string    `yaml:"variants"`
	Backends   []string    `yaml:"backends"`
	Types      []string    `yaml:"types"`
	Return     yaml.Node   `yaml:"return"`
	Arguments  []*cwrapArg `yaml:"arguments"`
	Deprecated bool        `yaml:"deprecated"`
	Buffers    []string    `yaml:"buffers"`
}

// cwrapArg accepts either a plain "Type name" string or a mapping with
// explicit fields.
type cwrapArg struct {
	Arg            string  `yaml:"arg"`
	Default        *string `yaml:"default"`
	Output         bool    `yaml:"output"`
	Nullable       bool    `yaml:"nullable"`
	KwargOnly      bool    `yaml:"kwarg_only"`
	BindingDefault string  `yaml:"binding_default"`
}

// UnmarshalYAML lets a scalar string stand in for {arg: "Type name"}.
func (a *cwrapArg) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Arg = node.Value
		return nil
	}
	type plain cwrapArg
	return node.Decode((*plain)(a))
}

// ParseCwrap parses the structured dialect: declarations delimited by lines
// holding "[[" and "]]", the body of each block being one YAML document.
func ParseCwrap(path string) ([]decl.Raw, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var raws []decl.Raw
	inBlock := false
	blockStart := 0
	var body []string
	for lineNo, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == cwrapBlockBegin:
			if inBlock {
				exceptions.Panicf("%s: nested %q block", sourceAt(path, lineNo+1), cwrapBlockBegin)
			}
			inBlock = true
			blockStart = lineNo + 1
			body = body[:0]
		case trimmed == cwrapBlockEnd:
			if !inBlock {
				exceptions.Panicf("%s: %q without matching begin", sourceAt(path, lineNo+1), cwrapBlockEnd)
			}
			inBlock = false
			raw, err := parseCwrapBlock(path, blockStart, strings.Join(body, "\n"))
			if err != nil {
				return nil, err
			}
			raws = append(raws, raw)
		case inBlock:
			body = append(body, line)
		}
	}
	if inBlock {
		exceptions.Panicf("%s: unterminated %q block", path, cwrapBlockBegin)
	}
	return raws, nil
}

func parseCwrapBlock(path string, lineNo int, body string) (decl.Raw, error) {
	var record cwrapRecord
	if err := yaml.Unmarshal([]byte(body), &record); err != nil {
		return decl.Raw{}, errors.Wrapf(err, "parsing declaration block at %s", sourceAt(path, lineNo))
	}
	raw := decl.Raw{
		Source:      sourceAt(path, lineNo),
		Name:        record.Name,
		Mode:        record.Mode,
		Variants:    record.Variants,
		Backends:    record.Backends,
		ScalarTypes: record.Types,
		Deprecated:  record.Deprecated,
		Buffers:     record.Buffers,
	}
	for _, arg := range record.Arguments {
		rawArg := decl.RawArgument{
			Spelling:       arg.Arg,
			Output:         arg.Output,
			Nullable:       arg.Nullable,
			KwargOnly:      arg.KwargOnly,
			BindingDefault: arg.BindingDefault,
		}
		if arg.Default != nil {
			rawArg.Default, rawArg.HasDefault = *arg.Default, true
		}
		raw.Arguments = append(raw.Arguments, rawArg)
	}
	raw.Returns = parseCwrapReturns(path, lineNo, &record.Return)
	return raw, nil
}

// parseCwrapReturns accepts a scalar return spelling or a list of them.
func parseCwrapReturns(path string, lineNo int, node *yaml.Node) []string {
	switch node.Kind {
	case 0:
		return nil
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		returns := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			returns = append(returns, item.Value)
		}
		return returns
	}
	exceptions.Panicf("%s: malformed return, expected string or list", sourceAt(path, lineNo))
	return nil
}
