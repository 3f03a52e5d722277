// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/diag"
	"github.com/kilnproject/kiln/lib/program"
)

// context carries per-module translation state. Static initializers
// are deferred into the constant pool and flushed in finalize, so
// their data objects land in the module after every function,
// mirroring how a constant pool accumulates during body generation.
type context struct {
	db      program.Database
	trap    []byte
	module  backend.Module
	debug   backend.DebugContext
	sink    *diag.Sink
	poolIDs []backend.DataID
	pool    [][]byte
}

// Translate converts a partition's ordered item list into the module.
//
// The protocol is strictly two-phase. First every function item is
// predeclared — name, signature, resolved linkage — because bodies
// may reference sibling functions that appear later in iteration
// order. Then the items are walked again in the same order to
// generate bodies, statics, and assembly. Declared order and
// generation order both follow the partition's deterministic item
// ordering, so output is reproducible.
//
// A function whose lowering fails with a recognized
// not-yet-supported condition gets a trap body and a recorded
// diagnostic; translation of the remaining items continues. Every
// other failure aborts the partition.
func Translate(db program.Database, trap []byte, module backend.Module, debug backend.DebugContext, partitionName string, items []program.Item, sink *diag.Sink) error {
	cx := &context{
		db:     db,
		trap:   trap,
		module: module,
		debug:  debug,
		sink:   sink,
	}

	// Predeclaration phase: functions only. Statics and assembly
	// have no forward references to satisfy.
	for _, item := range items {
		if item.Kind != program.ItemFunction {
			continue
		}
		linkage := ResolveLinkage(item.Linkage, item.Visibility)
		if _, err := module.DeclareFunction(item.Instance.Symbol, linkage, item.Instance.Sig); err != nil {
			return fmt.Errorf("predeclaring %s: %w", item.Instance.Symbol, err)
		}
	}

	// Body generation phase, same order.
	for _, item := range items {
		switch item.Kind {
		case program.ItemFunction:
			if err := cx.generateFunction(partitionName, item); err != nil {
				return err
			}

		case program.ItemStatic:
			if err := cx.generateStatic(item); err != nil {
				return err
			}

		case program.ItemGlobalAssembly:
			if err := checkGlobalAssembly(item.Assembly); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown item kind %d", item.Kind)
		}
	}

	return cx.finalize()
}

// generateFunction lowers one function body into the module. The item
// identity is recorded before entering generation and consulted only
// if lowering fails.
func (cx *context) generateFunction(partitionName string, item program.Item) error {
	itemContext := diag.ItemContext{
		Kind:      program.ItemFunction.String(),
		Symbol:    item.Instance.Symbol,
		Partition: partitionName,
	}

	id, err := cx.module.DeclareFunction(item.Instance.Symbol, ResolveLinkage(item.Linkage, item.Visibility), item.Instance.Sig)
	if err != nil {
		return fmt.Errorf("declaring %s: %w", item.Instance.Symbol, err)
	}

	body, err := cx.db.FunctionBody(item.Instance)
	if err != nil {
		if !errors.Is(err, program.ErrUnsupportedConstruct) {
			return fmt.Errorf("generating %s: %w", item.Instance.Symbol, err)
		}
		// Recoverable: substitute the failure marker so the rest of
		// the partition still translates, and let the checkpoint fail
		// the session later.
		cx.sink.Report(itemContext, err)
		body = cx.trap
	}

	if err := cx.module.DefineFunction(id, body); err != nil {
		return fmt.Errorf("defining %s: %w", item.Instance.Symbol, err)
	}

	if cx.debug != nil {
		cx.debug.DefineFunction(item.Instance.Symbol, item.Instance.Symbol)
	}
	return nil
}

// generateStatic computes a global datum's initializer and registers
// it in the module. Contents go through the deferred pool; the
// declaration happens immediately so function bodies can reference
// the symbol.
func (cx *context) generateStatic(item program.Item) error {
	linkage := ResolveLinkage(item.Linkage, item.Visibility)
	id, err := cx.module.DeclareData(item.Static.Symbol, linkage, item.Static.Writable)
	if err != nil {
		return fmt.Errorf("declaring static %s: %w", item.Static.Symbol, err)
	}
	if linkage == backend.Import {
		// Imported statics are definitions elsewhere.
		return nil
	}

	contents, err := cx.db.StaticInitializer(item.Static)
	if err != nil {
		return fmt.Errorf("generating static %s: %w", item.Static.Symbol, err)
	}

	cx.poolIDs = append(cx.poolIDs, id)
	cx.pool = append(cx.pool, contents)
	return nil
}

// checkGlobalAssembly inspects raw assembly text. The stack-probe
// helper is supplied by the runtime, so an item containing only that
// marker is a silent no-op. Anything else is fatal: this backend
// cannot assemble raw machine text.
func checkGlobalAssembly(text string) error {
	if containsStackProbe(text) {
		return nil
	}
	return fmt.Errorf("unimplemented global assembly item %q", text)
}

func containsStackProbe(text string) bool {
	// Substring match, not equality: front ends wrap the helper in
	// directives.
	return strings.Contains(text, program.StackProbeMarker)
}

// finalize flushes deferred per-module state — the constant pool of
// static initializers — into the module.
func (cx *context) finalize() error {
	for i, id := range cx.poolIDs {
		if err := cx.module.DefineData(id, cx.pool[i]); err != nil {
			return fmt.Errorf("flushing constant pool: %w", err)
		}
	}
	cx.poolIDs = nil
	cx.pool = nil
	return nil
}
