// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"github.com/kilnproject/kiln/lib/contenthash"
	"github.com/kilnproject/kiln/lib/emit"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/workcache"
)

// CodegenResults is the final artifact manifest of an AOT run,
// constructed and owned exclusively by the orchestrator and handed to
// the caller by value.
type CodegenResults struct {
	CrateName string

	// Modules are the partition modules in partition order.
	Modules []emit.CompiledModule

	// AllocatorModule is present when the allocator shim generator
	// emitted content.
	AllocatorModule *emit.CompiledModule

	// MetadataModule is present when the caller requested one.
	MetadataModule *emit.CompiledModule

	CrateHash contenthash.Hash

	// Metadata is the front end's encoded crate metadata.
	Metadata []byte

	LinkerInfo program.LinkerInfo
	CrateInfo  program.CrateInfo

	// WindowsSubsystem is always empty: Windows is not a supported
	// target. The field exists for manifest parity.
	WindowsSubsystem string

	// WorkProducts is the session's final work-product map, keyed by
	// partition identity.
	WorkProducts map[workcache.WorkProductID]*workcache.WorkProduct
}
