// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin

package jit

import (
	"debug/macho"
	"fmt"
	"strings"
)

// exportedSymbols reads a Mach-O dylib's symbol table. Mach-O mangles
// C symbols with a leading underscore; dlsym wants the unmangled
// spelling, while translated code links against the table name.
func exportedSymbols(path string) ([]exportedSymbol, error) {
	file, err := macho.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading dylib %s: %w", path, err)
	}
	defer file.Close()

	if file.Symtab == nil {
		return nil, nil
	}

	var exported []exportedSymbol
	for _, sym := range file.Symtab.Syms {
		const nExt = 0x01
		if sym.Type&nExt == 0 {
			continue
		}
		if sym.Sect == 0 {
			continue
		}
		if sym.Name == "" {
			continue
		}
		exported = append(exported, exportedSymbol{
			Link:   sym.Name,
			Lookup: strings.TrimPrefix(sym.Name, "_"),
		})
	}
	return exported, nil
}
