// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package synth

import (
	"fmt"
	"os"

	"github.com/kilnproject/kiln/lib/emit"
	"github.com/kilnproject/kiln/lib/metadata"
	"github.com/kilnproject/kiln/lib/program"
)

// MetadataModuleName returns the module name of the synthetic
// metadata module for a crate.
func MetadataModuleName(crateName string) string {
	return crateName + ".metadata"
}

// GenerateMetadataModule serializes the crate metadata through the
// writer and wraps the written file as a metadata CompiledModule.
// Metadata modules carry no debug info and are never registered with
// the incremental cache.
func GenerateMetadataModule(db program.Database, writer metadata.Writer) (emit.CompiledModule, error) {
	name := MetadataModuleName(db.CrateName())

	framed, err := writer.WriteMetadata(db.CrateName(), db.CrateHash(), db.EncodedMetadata())
	if err != nil {
		return emit.CompiledModule{}, fmt.Errorf("writing crate metadata: %w", err)
	}

	path := db.TempPath(program.OutputMetadata, name)
	if err := os.WriteFile(path, framed, 0o644); err != nil {
		return emit.CompiledModule{}, fmt.Errorf("writing metadata module %s: %w", name, err)
	}

	return emit.CompiledModule{Name: name, Kind: emit.KindMetadata, Object: path}, nil
}
