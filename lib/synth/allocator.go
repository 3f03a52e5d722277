// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package synth

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/program"
)

// AllocatorShimName is the module name of the synthetic allocator
// shim.
const AllocatorShimName = "allocator_shim"

// allocatorEntry describes one shim function: the exported allocator
// symbol and the runtime function it forwards to.
type allocatorEntry struct {
	symbol  string
	forward string
	sig     program.Signature
}

// allocatorEntries is the fixed shim surface, in declaration order.
var allocatorEntries = []allocatorEntry{
	{
		symbol:  "__kiln_alloc",
		forward: "malloc",
		sig:     program.Signature{Params: []string{"isize", "isize"}, Returns: []string{"ptr"}},
	},
	{
		symbol:  "__kiln_dealloc",
		forward: "free",
		sig:     program.Signature{Params: []string{"ptr", "isize", "isize"}, Returns: nil},
	},
	{
		symbol:  "__kiln_realloc",
		forward: "realloc",
		sig:     program.Signature{Params: []string{"ptr", "isize", "isize", "isize"}, Returns: []string{"ptr"}},
	},
	{
		symbol:  "__kiln_alloc_error_handler",
		forward: "abort",
		sig:     program.Signature{Params: []string{"isize", "isize"}, Returns: nil},
	},
}

// GenerateAllocatorShim populates the module with the allocator shim
// when the program needs one: small exported functions forwarding the
// allocator entry points to the runtime allocator. Reports whether
// anything was emitted — a program that brings its own allocator
// needs no shim, and the caller then skips emitting the module.
func GenerateAllocatorShim(db program.Database, module backend.Module) (bool, error) {
	if !db.NeedsAllocatorShim() {
		return false, nil
	}

	for _, entry := range allocatorEntries {
		id, err := module.DeclareFunction(entry.symbol, backend.Export, entry.sig)
		if err != nil {
			return false, fmt.Errorf("declaring allocator shim %s: %w", entry.symbol, err)
		}
		if err := module.DefineFunction(id, forwardBody(entry.forward)); err != nil {
			return false, fmt.Errorf("defining allocator shim %s: %w", entry.symbol, err)
		}
	}
	return true, nil
}

// forwardBody is the lowered body of a shim function: a tail call to
// the runtime symbol.
func forwardBody(target string) []byte {
	return []byte("tailcall:" + target)
}
