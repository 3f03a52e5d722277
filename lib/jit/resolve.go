// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package jit

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/program"
)

// resolveImports loads every dynamically-linked dependency library,
// harvests its exported symbols, and returns the combined symbol
// address table. A statically-linked dependency is a fatal
// configuration error: the dynamic loader cannot resolve symbols from
// an archive.
func resolveImports(db program.Database, ld loader, exports func(path string) ([]exportedSymbol, error)) (map[string]uintptr, error) {
	table := make(map[string]uintptr)

	for _, dep := range db.DependencyLibraries() {
		switch dep.Linkage {
		case program.DepNotLinked, program.DepIncludedFromDylib:
			continue

		case program.DepStatic:
			return nil, fmt.Errorf("can't load static lib %s: kiln can only load dylibs in JIT mode", dep.Name)

		case program.DepDynamic:
			lib, err := ld.Open(dep.Path)
			if err != nil {
				return nil, err
			}
			symbols, err := exports(dep.Path)
			if err != nil {
				return nil, err
			}
			for _, sym := range symbols {
				if _, seen := table[sym.Link]; seen {
					continue
				}
				addr, err := lib.Symbol(sym.Lookup)
				if err != nil {
					return nil, err
				}
				table[sym.Link] = addr
			}

		default:
			return nil, fmt.Errorf("dependency %s: unknown linkage %d", dep.Name, dep.Linkage)
		}
	}
	return table, nil
}
