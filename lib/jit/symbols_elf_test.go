// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || freebsd

package jit

import (
	"debug/elf"
	"testing"
)

func elfSymbol(name string, bind elf.SymBind, section elf.SectionIndex) elf.Symbol {
	return elf.Symbol{
		Name:    name,
		Info:    uint8(bind)<<4 | uint8(elf.STT_FUNC),
		Section: section,
	}
}

func TestFilterDynamicSymbols(t *testing.T) {
	symbols := []elf.Symbol{
		elfSymbol("exported", elf.STB_GLOBAL, elf.SectionIndex(1)),
		elfSymbol("local_only", elf.STB_LOCAL, elf.SectionIndex(1)),
		elfSymbol("weak_sym", elf.STB_WEAK, elf.SectionIndex(1)),
		elfSymbol("their_import", elf.STB_GLOBAL, elf.SHN_UNDEF),
		elfSymbol("", elf.STB_GLOBAL, elf.SectionIndex(1)),
		elfSymbol("another", elf.STB_GLOBAL, elf.SectionIndex(2)),
	}

	exported := filterDynamicSymbols(symbols)
	if len(exported) != 2 {
		t.Fatalf("got %d exported symbols, want 2: %v", len(exported), exported)
	}
	for i, want := range []string{"exported", "another"} {
		if exported[i].Link != want {
			t.Errorf("symbol %d = %q, want %q", i, exported[i].Link, want)
		}
		if exported[i].Lookup != want {
			t.Errorf("ELF lookup spelling should equal the link name")
		}
	}
}

func TestFilterDynamicSymbolsEmpty(t *testing.T) {
	if got := filterDynamicSymbols(nil); len(got) != 0 {
		t.Errorf("empty table should filter to nothing, got %v", got)
	}
}
