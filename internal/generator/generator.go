// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package generator orchestrates one generation run: it routes the input
// declaration files to their dialect parsers, normalizes and postprocesses
// the declarations, then drives the cross-product and binding emitters under
// the declare-before-write discipline.
package generator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/opgen/internal/bindgen"
	"github.com/gomlx/opgen/internal/decl"
	"github.com/gomlx/opgen/internal/declparser"
	"github.com/gomlx/opgen/internal/filemanager"
	"github.com/gomlx/opgen/internal/typegen"
)

// Options configures one generation run.
type Options struct {
	// Files are the declaration source files, routed to dialect parsers by
	// suffix.
	Files []string

	// SourcePath is the root of the checked-in tree holding the committed
	// copies of the stable interface headers.
	SourcePath string

	// InstallDir receives the generated artifacts.
	InstallDir string

	// OutputDependencies, when set, short-circuits the run: only the lists
	// of files the run would have written are emitted, one per output
	// group, at this path plus the "-core" and "-accelerated" suffixes.
	OutputDependencies string

	// GenToSource writes the stable interface headers directly into
	// SourcePath instead of staging them for comparison.
	GenToSource bool
}

const manifestFile = "Declarations.yaml"

// RunStats summarizes what one generation run actually touched. Files whose
// regenerated content was unchanged don't count.
type RunStats struct {
	Declarations int
	FilesWritten int
	BytesWritten int64
}

// Run executes one full generation. All pipeline contract violations
// surface as errors; the pipeline itself panics through exceptions and is
// recovered here.
func Run(opts Options) (RunStats, error) {
	var stats RunStats
	err := exceptions.TryCatch[error](func() { stats = run(opts) })
	return stats, err
}

func run(opts Options) RunStats {
	coreSourceDir := filepath.Join(opts.SourcePath, "core")
	coreDir := coreSourceDir
	if !opts.GenToSource {
		coreDir = filepath.Join(opts.InstallDir, "core_tmp")
	}

	coreFM := mustManager(coreDir)
	fm := mustManager(opts.InstallDir)
	cudaFM := mustManager(filepath.Join(opts.InstallDir, "cuda"))

	// Declare phase: every output of the run is registered before any
	// component renders.
	fm.WillWrite(manifestFile)
	emitter := typegen.New(coreFM, fm, cudaFM)
	emitter.DeclareOutputs()
	bindgen.DeclareOutputs(fm)

	if opts.OutputDependencies != "" {
		check(fm.WriteOutputs(opts.OutputDependencies))
		check(coreFM.WriteOutputs(opts.OutputDependencies + "-core"))
		check(cudaFM.WriteOutputs(opts.OutputDependencies + "-accelerated"))
		return RunStats{}
	}

	raws, err := declparser.Route(opts.Files)
	check(err)
	decls := decl.Normalize(raws)
	decl.PostprocessOutputDeclarations(decls)
	klog.V(1).Infof("parsed %d declarations from %d files", len(decls), len(opts.Files))

	manifest, err := decl.FormatManifest(decls)
	check(err)
	check(fm.Write(manifestFile, manifest))

	check(emitter.Generate(decls))
	check(bindgen.Generate(fm, decls))

	coreFM.CheckAllWritten()
	fm.CheckAllWritten()
	cudaFM.CheckAllWritten()

	if !opts.GenToSource {
		verifyCore(coreDir, coreSourceDir)
	}

	stats := RunStats{Declarations: len(decls)}
	for _, manager := range []*filemanager.FileManager{coreFM, fm, cudaFM} {
		files, bytes := manager.Stats()
		stats.FilesWritten += files
		stats.BytesWritten += bytes
	}
	return stats
}

// verifyCore compares the staged stable interface headers against the
// checked-in copies. A mismatch means the committed headers are stale.
func verifyCore(stagedDir, sourceDir string) {
	_, mismatch, errs := filemanager.CompareDirs(stagedDir, sourceDir, typegen.CoreFiles())
	stale := append(append([]string(nil), mismatch...), errs...)
	if len(stale) == 0 {
		return
	}
	var remediation []string
	for _, name := range stale {
		remediation = append(remediation,
			fmt.Sprintf("cp %s %s", filepath.Join(stagedDir, name), filepath.Join(sourceDir, name)))
	}
	exceptions.Panicf(
		"generated files differ from the checked-in copies: %s; copy the staged files over:\n%s\nor rerun with -gen-to-source",
		strings.Join(stale, ", "), strings.Join(remediation, "\n"))
}

func mustManager(dir string) *filemanager.FileManager {
	fm, err := filemanager.New(dir)
	check(err)
	return fm
}

func check(err error) {
	if err != nil {
		panic(errors.WithStack(err))
	}
}
