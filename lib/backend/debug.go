// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"github.com/kilnproject/kiln/lib/codec"
)

// debugEntry is one function's debug metadata.
type debugEntry struct {
	Symbol     string `cbor:"symbol"`
	SourceName string `cbor:"source_name"`
}

// objectDebugContext collects per-function debug entries during
// translation. The serialized payload is opaque to the emission
// pipeline — it is merged into the product as-is, the way a DWARF
// writer would splice sections into a real object.
type objectDebugContext struct {
	pointerWidth int
	entries      []debugEntry
}

func (d *objectDebugContext) DefineFunction(symbol, sourceName string) {
	d.entries = append(d.entries, debugEntry{Symbol: symbol, SourceName: sourceName})
}

func (d *objectDebugContext) Finish() []byte {
	payload := struct {
		PointerWidth int          `cbor:"pointer_width"`
		Entries      []debugEntry `cbor:"entries"`
	}{
		PointerWidth: d.pointerWidth,
		Entries:      d.entries,
	}
	data, err := codec.Marshal(payload)
	if err != nil {
		// Deterministic encoding of plain structs cannot fail; an
		// error here is a codec bug.
		panic("backend: debug payload encoding failed: " + err.Error())
	}
	return data
}
