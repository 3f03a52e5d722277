// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package emit finalizes native modules and writes them out: seal the
// module, extract the product, merge debug metadata, serialize to the
// session temp path, and register the object with the cross-session
// artifact cache.
package emit

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/workcache"
)

// ModuleKind classifies an emitted module in the final manifest.
type ModuleKind uint8

const (
	// KindRegular modules hold translated partition items.
	KindRegular ModuleKind = iota
	// KindAllocator is the synthetic allocator shim.
	KindAllocator
	// KindMetadata is the compressed crate-metadata module.
	KindMetadata
)

// String returns the manifest spelling of a module kind.
func (k ModuleKind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindAllocator:
		return "allocator"
	case KindMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// CompiledModule is one emitted module in the final manifest. Object
// is empty when no object file exists (a failed reuse copy). The
// bytecode fields exist only for format parity with manifests from
// bytecode-producing backends; kiln never populates them.
type CompiledModule struct {
	Name   string
	Kind   ModuleKind
	Object string

	Bytecode           *string
	BytecodeCompressed *string
}

// Module seals the native module and writes its object file to the
// session temp path for name. When store is non-nil and caching is
// not disabled, the object is also persisted into the cross-session
// cache and the resulting work product returned; persistence failure
// is logged and swallowed, since the in-session object file already
// exists. The returned CompiledModule's object path is readable by
// the time Module returns without error.
func Module(db program.Database, name string, kind ModuleKind, module backend.Module, debug backend.DebugContext, store *workcache.Store, id workcache.WorkProductID, disableCache bool, logger *slog.Logger) (CompiledModule, *workcache.WorkProduct, error) {
	if err := module.FinalizeDefinitions(); err != nil {
		return CompiledModule{}, nil, fmt.Errorf("finalizing module %s: %w", name, err)
	}

	product, err := module.Finish()
	if err != nil {
		return CompiledModule{}, nil, fmt.Errorf("finishing module %s: %w", name, err)
	}

	if debug != nil {
		if err := product.MergeDebugInfo(debug.Finish()); err != nil {
			return CompiledModule{}, nil, fmt.Errorf("merging debug info into %s: %w", name, err)
		}
	}

	object, err := product.Emit()
	if err != nil {
		return CompiledModule{}, nil, fmt.Errorf("emitting module %s: %w", name, err)
	}

	// An earlier reuse copy may have left this path as a hard link
	// into the cache; writing through it would mutate the cached
	// object behind its recorded digest. Remove first so the write
	// lands in a fresh inode.
	objectPath := db.TempPath(program.OutputObject, name)
	if err := os.Remove(objectPath); err != nil && !os.IsNotExist(err) {
		return CompiledModule{}, nil, fmt.Errorf("removing stale object for %s: %w", name, err)
	}
	if err := os.WriteFile(objectPath, object, 0o644); err != nil {
		return CompiledModule{}, nil, fmt.Errorf("writing object for %s: %w", name, err)
	}

	var workProduct *workcache.WorkProduct
	if store != nil && !disableCache {
		workProduct, err = store.PersistObject(name, id, objectPath)
		if err != nil {
			// Not fatal: the session object exists; only the next
			// session's reuse opportunity is lost.
			if logger != nil {
				logger.Warn("work product persistence failed", "module", name, "error", err)
			}
			workProduct = nil
		}
	}

	return CompiledModule{Name: name, Kind: kind, Object: objectPath}, workProduct, nil
}
