// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package jit executes an executable crate in-process instead of
// emitting objects. Dependency dylibs are loaded into the process,
// their exported symbols harvested and primed into the module's
// symbol resolver, all items are translated into one in-memory
// module, and the entry symbol is invoked directly.
//
// JIT execution is a separate top-level mode with its own entry
// point. It shares the translation engine and allocator shim with the
// AOT path but never touches the incremental cache.
package jit

import (
	"github.com/kilnproject/kiln/lib/backend"
)

// SymbolResolver maps an external symbol name to its runtime address.
// Resolvers are primed before translation starts, so every address a
// translated body can reference is known at build time.
type SymbolResolver func(symbol string) (uintptr, bool)

// ExecBackend is a translation backend that can build executable
// in-memory modules.
type ExecBackend interface {
	backend.Backend

	// NewExecModule creates an in-memory module whose external symbol
	// references resolve through the given resolver.
	NewExecModule(name string, resolve SymbolResolver) (ExecModule, error)
}

// ExecModule is an in-memory module whose finalized functions have
// callable addresses. Redeclaring an import with a defining linkage
// upgrades the declaration in place; the entry symbol is declared as
// an import before translation and picks up its definition when the
// item list reaches it.
type ExecModule interface {
	backend.Module

	// FinalizedAddress returns the executable address of a finalized
	// function. The module must be finalized first.
	FinalizedAddress(id backend.FuncID) (uintptr, error)
}

// exportedSymbol is one harvested dynamic-symbol-table entry. Link is
// the name translated code references; Lookup is the spelling handed
// to the dynamic loader, which differs on platforms that mangle with
// a leading underscore.
type exportedSymbol struct {
	Link   string
	Lookup string
}
