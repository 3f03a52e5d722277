// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package jit

import (
	"fmt"
	"log/slog"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/diag"
	"github.com/kilnproject/kiln/lib/driver"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/synth"
	"github.com/kilnproject/kiln/lib/translate"
)

// Run translates the whole program into one executable in-memory
// module and invokes its entry point. The returned int is the
// program's exit code; the caller owns process termination. On any
// setup or translation failure the exit code is meaningless and the
// error is non-nil.
func Run(cfg driver.Config, db program.Database, be ExecBackend, logger *slog.Logger) (int, error) {
	if !cfg.JIT {
		return 0, fmt.Errorf("jit.Run requires a config with JIT mode enabled")
	}
	if db.CrateType() != program.CrateExecutable {
		return 0, fmt.Errorf("can't jit non-executable crate %s", db.CrateName())
	}
	if program.IsWasmTarget(db.Target()) {
		return 0, fmt.Errorf("JIT mode is not supported on wasm targets")
	}
	if want, have := program.PointerWidthForTarget(db.Target()), be.PointerWidth(); want != have {
		return 0, fmt.Errorf("backend pointer width %d does not match target %s (want %d)", have, db.Target(), want)
	}

	imports, err := resolveImports(db, newLoader(), exportedSymbols)
	if err != nil {
		return 0, err
	}

	module, err := be.NewExecModule("jit", func(symbol string) (uintptr, bool) {
		addr, ok := imports[symbol]
		return addr, ok
	})
	if err != nil {
		return 0, fmt.Errorf("creating jit module: %w", err)
	}

	// The entry symbol is declared up front as an import so its ID is
	// known before translation; the defining declaration upgrades it
	// when the item list reaches it.
	entrySig := program.Signature{
		Params:   []string{"ptr", "ptr"},
		Returns:  []string{"isize"},
		CallConv: be.DefaultCallConv(),
	}
	entryID, err := module.DeclareFunction(db.EntrySymbol(), backend.Import, entrySig)
	if err != nil {
		return 0, fmt.Errorf("declaring entry symbol %s: %w", db.EntrySymbol(), err)
	}

	sink := diag.NewSink(logger)
	items := flattenItems(db)
	if err := translate.Translate(db, be.TrapBody(), module, nil, "jit", items, sink); err != nil {
		return 0, fmt.Errorf("translating program: %w", err)
	}

	if _, err := synth.GenerateAllocatorShim(db, module); err != nil {
		return 0, err
	}

	if err := module.FinalizeDefinitions(); err != nil {
		return 0, fmt.Errorf("finalizing jit module: %w", err)
	}
	if err := sink.AbortIfErrors(); err != nil {
		return 0, err
	}

	entry, err := module.FinalizedAddress(entryID)
	if err != nil {
		return 0, fmt.Errorf("locating entry symbol %s: %w", db.EntrySymbol(), err)
	}

	args := BuildArgs(cfg.JITArgs, db.CrateName())
	if logger != nil {
		logger.Info("invoking jitted entry", "crate", db.CrateName(), "entry", db.EntrySymbol(), "args", args)
	}
	return invokeEntry(entry, args), nil
}

// flattenItems collapses the partitioned item list into one ordered
// list. Partitioning only exists for incremental caching; the JIT
// compiles everything into a single module. Functions and statics are
// deduplicated by symbol, first occurrence wins.
func flattenItems(db program.Database) []program.Item {
	var items []program.Item
	seen := make(map[string]bool)

	for _, partition := range db.Partitions() {
		for _, item := range partition.ItemsInDeterministicOrder() {
			switch item.Kind {
			case program.ItemFunction, program.ItemStatic:
				symbol := item.DisplayName()
				if seen[symbol] {
					continue
				}
				seen[symbol] = true
			}
			items = append(items, item)
		}
	}
	return items
}
