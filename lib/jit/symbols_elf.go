// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || freebsd

package jit

import (
	"debug/elf"
	"errors"
	"fmt"
)

// exportedSymbols reads a dylib's dynamic symbol table and returns
// its exported symbols. On ELF the link name and the dlsym spelling
// are the same.
func exportedSymbols(path string) ([]exportedSymbol, error) {
	file, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading dylib %s: %w", path, err)
	}
	defer file.Close()

	symbols, err := file.DynamicSymbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading dynamic symbols of %s: %w", path, err)
	}
	return filterDynamicSymbols(symbols), nil
}

// filterDynamicSymbols keeps globally visible, defined, named
// symbols. Undefined entries are the library's own imports and must
// not be offered as exports.
func filterDynamicSymbols(symbols []elf.Symbol) []exportedSymbol {
	var exported []exportedSymbol
	for _, sym := range symbols {
		if elf.ST_BIND(sym.Info) != elf.STB_GLOBAL {
			continue
		}
		if sym.Section == elf.SHN_UNDEF {
			continue
		}
		if sym.Name == "" {
			continue
		}
		exported = append(exported, exportedSymbol{Link: sym.Name, Lookup: sym.Name})
	}
	return exported
}
