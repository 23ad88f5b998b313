// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// opgen compiles tensor-operation declaration files into the typed dispatch
// layer and its binding surfaces: one implementation per backend, storage
// layout and element type, plus the registration tables, overload parsers
// and dispatch glue tying them together.
//
// Input files are routed to dialect parsers by suffix; positional arguments
// name the declaration files:
//
//	opgen -source src -install build/generated Declarations.cwrap NN.h native_functions.decl
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/gomlx/opgen/internal/generator"
)

var (
	flagSource             = flag.String("source", ".", "Root of the checked-in source tree, holding the committed copies of the stable interface headers under core/.")
	flagInstall            = flag.String("install", "generated", "Directory generated files are installed into.")
	flagOutputDependencies = flag.String("output-dependencies", "",
		"Only emit the lists of files a run would write (at this path plus the -core and -accelerated suffixes) and exit, without generating anything.")
	flagGenToSource = flag.Bool("gen-to-source", false,
		"Write the stable interface headers directly into the source tree instead of staging them for comparison.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 && *flagOutputDependencies == "" {
		klog.Errorf("No declaration files given. See 'opgen -help'.")
		os.Exit(1)
	}

	stats, err := generator.Run(generator.Options{
		Files:              files,
		SourcePath:         *flagSource,
		InstallDir:         *flagInstall,
		OutputDependencies: *flagOutputDependencies,
		GenToSource:        *flagGenToSource,
	})
	if err != nil {
		klog.Errorf("generation failed: %+v", err)
		os.Exit(1)
	}
	if *flagOutputDependencies != "" {
		return
	}
	fmt.Printf("opgen: %s declarations, %s files rewritten (%s)\n",
		humanize.Comma(int64(stats.Declarations)),
		humanize.Comma(int64(stats.FilesWritten)),
		humanize.Bytes(uint64(stats.BytesWritten)))
}
