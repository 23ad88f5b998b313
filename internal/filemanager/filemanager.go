// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package filemanager implements the declare-before-write discipline for
// generated outputs.
//
// A generation run first declares every path it commits to producing
// (WillWrite), then renders and writes (Write / WriteTemplate). Writing an
// undeclared path, or ending the run with a declared path unwritten, is a
// fatal configuration error reported with the full list of offending paths:
// it means the set of declarations and the set of file-writing components
// drifted apart.
//
// A write whose content is byte-identical to the file on disk is a no-op,
// preserving timestamps so downstream build systems are not retriggered by
// no-op regenerations.
package filemanager

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opgen/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// FileManager tracks the declared and written outputs below one install
// directory. Not safe for concurrent use; generation is a strictly ordered
// single-threaded pipeline.
type FileManager struct {
	installDir     string
	pending        sets.Set[string]
	outputsWritten bool
	undeclared     []string

	filesWritten int
	bytesWritten int64
}

// New returns a FileManager rooted at installDir, creating it if needed.
func New(installDir string) (*FileManager, error) {
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating install directory %q", installDir)
	}
	return &FileManager{
		installDir: installDir,
		pending:    sets.Make[string](),
	}, nil
}

// InstallDir returns the directory this manager writes under.
func (fm *FileManager) InstallDir() string { return fm.installDir }

// WillWrite declares that filename will be produced by this run. It must be
// called for every output before any component renders; declaring after
// WriteOutputs ran is a fatal ordering bug in the generator itself.
func (fm *FileManager) WillWrite(filename string) {
	if fm.outputsWritten {
		exceptions.Panicf(
			"WillWrite(%q) called after WriteOutputs; register every output before running the generators",
			filename)
	}
	fm.pending.Insert(filepath.Join(fm.installDir, filename))
}

// Write renders nothing: it commits the given contents to the declared
// filename, skipping the disk write when contents are unchanged.
func (fm *FileManager) Write(filename, contents string) error {
	path := filepath.Join(fm.installDir, filename)
	if !fm.pending.Has(path) {
		fm.undeclared = append(fm.undeclared, path)
	} else {
		delete(fm.pending, path)
	}
	return fm.writeIfChanged(path, contents)
}

// WriteTemplate executes the template with the given environment and commits
// the result to filename.
func (fm *FileManager) WriteTemplate(filename string, tmpl *template.Template, env any) error {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, env); err != nil {
		return errors.Wrapf(err, "rendering template for %q", filename)
	}
	return fm.Write(filename, sb.String())
}

func (fm *FileManager) writeIfChanged(path string, contents string) error {
	old, err := os.ReadFile(path)
	if err == nil && string(old) == contents {
		klog.V(2).Infof("unchanged: %s", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %q", path)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	fm.filesWritten++
	fm.bytesWritten += int64(len(contents))
	klog.V(1).Infof("wrote %s (%d bytes)", path, len(contents))
	return nil
}

// WriteOutputs writes the list of all outputs this run would generate, one
// semicolon-joined sorted list, to the given path. After it runs, no further
// outputs may be declared.
func (fm *FileManager) WriteOutputs(path string) error {
	names := sets.Sorted(fm.pending)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(";")
	}
	fm.outputsWritten = true
	return fm.writeIfChanged(path, sb.String())
}

// CheckAllWritten verifies the two-phase discipline held: every write was
// declared and every declaration was written. Violations are fatal and list
// every offending path.
func (fm *FileManager) CheckAllWritten() {
	if len(fm.undeclared) > 0 {
		exceptions.Panicf(
			"wrote files %v which are not in the declared outputs of this run; declare them with WillWrite",
			fm.undeclared)
	}
	if len(fm.pending) > 0 {
		exceptions.Panicf("outputs declared with WillWrite were never written: %v", sets.Sorted(fm.pending))
	}
}

// Stats returns how many files were actually rewritten and their total size
// in bytes. Unchanged files don't count.
func (fm *FileManager) Stats() (files int, bytes int64) {
	return fm.filesWritten, fm.bytesWritten
}

// NormalizeEOL maps CRLF and bare CR line endings to LF.
func NormalizeEOL(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// CompareDirs compares the named files between directories a and b using
// EOL-normalized contents. It returns the names that match, mismatch, and
// those that could not be read.
func CompareDirs(a, b string, names []string) (match, mismatch, errs []string) {
	for _, name := range names {
		ax, errA := os.ReadFile(filepath.Join(a, name))
		bx, errB := os.ReadFile(filepath.Join(b, name))
		if errA != nil || errB != nil {
			errs = append(errs, name)
			continue
		}
		if NormalizeEOL(string(ax)) == NormalizeEOL(string(bx)) {
			match = append(match, name)
		} else {
			mismatch = append(mismatch, name)
		}
	}
	return
}
