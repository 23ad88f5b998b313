// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package filemanager

import (
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareThenWrite(t *testing.T) {
	fm, err := New(t.TempDir())
	require.NoError(t, err)

	fm.WillWrite("a.h")
	fm.WillWrite("b.h")
	require.NoError(t, fm.Write("a.h", "contents a"))
	require.NoError(t, fm.Write("b.h", "contents b"))
	err = exceptions.TryCatch[error](func() { fm.CheckAllWritten() })
	require.NoError(t, err)

	files, bytes := fm.Stats()
	assert.Equal(t, 2, files)
	assert.Equal(t, int64(len("contents a")+len("contents b")), bytes)
}

func TestUndeclaredWriteIsFatal(t *testing.T) {
	fm, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fm.Write("sneaky.h", "contents"))
	err = exceptions.TryCatch[error](func() { fm.CheckAllWritten() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sneaky.h")
}

func TestUnwrittenDeclarationIsFatal(t *testing.T) {
	fm, err := New(t.TempDir())
	require.NoError(t, err)

	fm.WillWrite("promised.h")
	err = exceptions.TryCatch[error](func() { fm.CheckAllWritten() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "promised.h")
}

func TestIdenticalRewriteKeepsTimestamp(t *testing.T) {
	dir := t.TempDir()
	fm, err := New(dir)
	require.NoError(t, err)
	fm.WillWrite("stable.h")
	require.NoError(t, fm.Write("stable.h", "unchanging"))

	path := filepath.Join(dir, "stable.h")
	before, err := os.Stat(path)
	require.NoError(t, err)

	// A rerun with identical content must not touch the file.
	fm2, err := New(dir)
	require.NoError(t, err)
	fm2.WillWrite("stable.h")
	require.NoError(t, fm2.Write("stable.h", "unchanging"))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	files, _ := fm2.Stats()
	assert.Zero(t, files)
}

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()
	fm, err := New(dir)
	require.NoError(t, err)
	fm.WillWrite("tmpl.h")

	tmpl := template.Must(template.New("test").Parse("lines:\n{{range .}}  {{.}}\n{{end}}"))
	require.NoError(t, fm.WriteTemplate("tmpl.h", tmpl, []string{"one", "two"}))

	data, err := os.ReadFile(filepath.Join(dir, "tmpl.h"))
	require.NoError(t, err)
	assert.Equal(t, "lines:\n  one\n  two\n", string(data))
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	fm, err := New(dir)
	require.NoError(t, err)
	fm.WillWrite("b.h")
	fm.WillWrite("a.h")

	listPath := filepath.Join(dir, "deps.txt")
	require.NoError(t, fm.WriteOutputs(listPath))

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	expected := filepath.Join(dir, "a.h") + ";" + filepath.Join(dir, "b.h") + ";"
	assert.Equal(t, expected, string(data))

	// Declaring after the dependency listing ran is an ordering bug.
	err = exceptions.TryCatch[error](func() { fm.WillWrite("late.h") })
	require.Error(t, err)
}

func TestNormalizeEOL(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", NormalizeEOL("a\r\nb\rc\n"))
}

func TestCompareDirs(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(a, "same.h"), []byte("x\ny\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b, "same.h"), []byte("x\r\ny\r\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a, "diff.h"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b, "diff.h"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a, "only_a.h"), []byte("x"), 0o644))

	match, mismatch, errs := CompareDirs(a, b, []string{"same.h", "diff.h", "only_a.h"})
	assert.Equal(t, []string{"same.h"}, match)
	assert.Equal(t, []string{"diff.h"}, mismatch)
	assert.Equal(t, []string{"only_a.h"}, errs)
}
