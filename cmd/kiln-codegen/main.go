// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// kiln-codegen compiles a program manifest into native object modules,
// or runs it in-process under JIT mode.
//
// AOT mode (default) reads the manifest, classifies each partition
// against the incremental cache, translates what changed, and prints
// the resulting artifact manifest. JIT mode loads dependency dylibs,
// translates the whole program into one in-memory module, invokes the
// entry symbol, and exits with the program's exit code.
//
// Usage:
//
//	kiln-codegen --manifest prog.jsonc --out build/ --cache-dir .kiln-cache
//	kiln-codegen --manifest prog.jsonc --jit --jit-args "--fast input.txt"
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/config"
	"github.com/kilnproject/kiln/lib/depgraph"
	"github.com/kilnproject/kiln/lib/driver"
	"github.com/kilnproject/kiln/lib/jit"
	"github.com/kilnproject/kiln/lib/manifest"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/version"
	"github.com/kilnproject/kiln/lib/workcache"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run() (int, error) {
	var (
		configPath          string
		manifestPath        string
		outputDir           string
		cacheDir            string
		jitMode             bool
		jitArgs             string
		noIncremental       bool
		timings             bool
		metadataModule      bool
		debugInfo           bool
		metadataCompression string
		verbose             bool
	)

	flagSet := pflag.NewFlagSet("kiln-codegen", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flagSet.StringVar(&manifestPath, "manifest", "", "path to the program manifest (JSONC)")
	flagSet.StringVar(&outputDir, "out", "", "directory for session output artifacts")
	flagSet.StringVar(&cacheDir, "cache-dir", "", "cross-session artifact cache directory")
	flagSet.BoolVar(&jitMode, "jit", false, "execute the program in-process instead of emitting objects")
	flagSet.StringVar(&jitArgs, "jit-args", "", "space-separated extra argv entries for JIT mode")
	flagSet.BoolVar(&noIncremental, "no-incremental", false, "disable the incremental cache")
	flagSet.BoolVar(&timings, "timings", false, "print per-section timing output")
	flagSet.BoolVar(&metadataModule, "metadata-module", false, "emit the compressed crate-metadata module")
	flagSet.BoolVar(&debugInfo, "debuginfo", false, "collect and merge debug info into emitted objects")
	flagSet.StringVar(&metadataCompression, "metadata-compression", "", "metadata compression: none, zstd, or lz4 (default zstd)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("kiln-codegen %s\n", version.Full())
		return 0, nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0, nil
		}
		return 0, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stderr, flagSet.FlagUsages())
		return 0, nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return 0, fmt.Errorf("unexpected argument: %s", args[0])
	}

	file, err := config.LoadFile(configPath)
	if err != nil {
		return 0, err
	}

	// Flags override the file only when actually set on the command
	// line, so a config file remains authoritative for everything the
	// invocation does not mention.
	if flagSet.Changed("manifest") {
		file.Manifest = manifestPath
	}
	if flagSet.Changed("out") {
		file.OutputDir = outputDir
	}
	if flagSet.Changed("cache-dir") {
		file.CacheDir = cacheDir
	}
	if flagSet.Changed("jit") {
		file.JIT = jitMode
	}
	if flagSet.Changed("jit-args") {
		file.JITArgs = jitArgs
	}
	if flagSet.Changed("no-incremental") {
		file.DisableIncrementalCache = noIncremental
	}
	if flagSet.Changed("timings") {
		file.DisplayTimings = timings
	}
	if flagSet.Changed("metadata-module") {
		file.MetadataModule = metadataModule
	}
	if flagSet.Changed("debuginfo") {
		file.DebugInfo = debugInfo
	}
	if flagSet.Changed("metadata-compression") {
		file.MetadataCompression = metadataCompression
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := file.DriverConfig()
	if err != nil {
		return 0, err
	}

	if file.Manifest == "" {
		return 0, fmt.Errorf("a program manifest is required (--manifest)")
	}
	m, err := manifest.ReadFile(file.Manifest)
	if err != nil {
		return 0, err
	}

	if file.OutputDir == "" {
		return 0, fmt.Errorf("an output directory is required (--out)")
	}
	if err := os.MkdirAll(file.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	db, err := m.Database(file.OutputDir)
	if err != nil {
		return 0, err
	}

	if cfg.JIT {
		return runJIT(cfg, db, logger)
	}
	return 0, runAOT(cfg, db, m, logger)
}

// runAOT seeds the dependency graph from the cache store and the
// manifest's change hints, runs the pipeline, and prints the artifact
// manifest.
func runAOT(cfg driver.Config, db program.Database, m *manifest.Manifest, logger *slog.Logger) error {
	graph := depgraph.NewMemoryGraph(!cfg.DisableIncrementalCache)
	if !cfg.DisableIncrementalCache {
		store, err := workcache.NewStore(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("opening incremental cache: %w", err)
		}
		products, err := store.Products()
		if err != nil {
			return fmt.Errorf("scanning incremental cache: %w", err)
		}
		for _, product := range products {
			graph.SetPreviousWorkProduct(product)
		}
		for _, pd := range m.Partitions {
			if pd.Changed {
				continue
			}
			graph.MarkGreenEligible(depgraph.CompileNode(pd.Name))
		}
	}

	be := backend.NewObjectBackendForTarget(db.Target())
	results, err := driver.Run(cfg, db, graph, be, logger)
	if err != nil {
		return err
	}
	printResults(results)
	return nil
}

// runJIT executes the program in-process through the redirect
// backend and propagates its exit code.
func runJIT(cfg driver.Config, db program.Database, logger *slog.Logger) (int, error) {
	be := jit.NewRedirectBackend(program.PointerWidthForTarget(db.Target()))
	return jit.Run(cfg, db, be, logger)
}

func printResults(results *driver.CodegenResults) {
	fmt.Printf("crate %s (%d modules)\n", results.CrateName, len(results.Modules))
	for _, module := range results.Modules {
		fmt.Printf("  %-10s %-24s %s\n", module.Kind, module.Name, module.Object)
	}
	if results.AllocatorModule != nil {
		fmt.Printf("  %-10s %-24s %s\n", results.AllocatorModule.Kind,
			results.AllocatorModule.Name, results.AllocatorModule.Object)
	}
	if results.MetadataModule != nil {
		fmt.Printf("  %-10s %-24s %s\n", results.MetadataModule.Kind,
			results.MetadataModule.Name, results.MetadataModule.Object)
	}
	fmt.Printf("  work products: %d\n", len(results.WorkProducts))
}
