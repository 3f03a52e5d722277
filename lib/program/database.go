// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/contenthash"
)

// CrateType is the kind of output the crate being compiled produces.
type CrateType uint8

const (
	// CrateExecutable crates have an entry symbol and can run under
	// the JIT.
	CrateExecutable CrateType = iota
	// CrateLibrary crates are linked into other crates.
	CrateLibrary
)

// String returns the manifest spelling of a crate type.
func (t CrateType) String() string {
	switch t {
	case CrateExecutable:
		return "executable"
	case CrateLibrary:
		return "library"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// OutputType selects the session temp path family for an emitted
// artifact.
type OutputType uint8

const (
	// OutputObject is a native object file.
	OutputObject OutputType = iota
	// OutputMetadata is a crate metadata container.
	OutputMetadata
)

// Extension returns the file extension for an output type.
func (t OutputType) Extension() string {
	switch t {
	case OutputObject:
		return ".o"
	case OutputMetadata:
		return ".kmeta"
	default:
		return ".bin"
	}
}

// DependencyLinkage is how a dependency crate is linked into the
// program.
type DependencyLinkage uint8

const (
	// DepNotLinked dependencies contribute no library at link time.
	DepNotLinked DependencyLinkage = iota
	// DepStatic dependencies are linked from a static archive. The
	// JIT cannot resolve symbols from these.
	DepStatic
	// DepDynamic dependencies are linked from a shared library.
	DepDynamic
	// DepIncludedFromDylib dependencies are already present inside
	// another dynamic library.
	DepIncludedFromDylib
)

// DependencyLibrary describes one dependency crate and the library
// file it is linked from.
type DependencyLibrary struct {
	Name    string
	Path    string
	Linkage DependencyLinkage
}

// LinkerInfo carries the link-relevant facts the orchestrator gathers
// for the final manifest. Kiln does not link; this is handed through
// to whoever does.
type LinkerInfo struct {
	ExportedSymbols []string
}

// CrateInfo summarizes the crate and its dependency crates for the
// final manifest.
type CrateInfo struct {
	Name         string
	Dependencies []string
}

// Database is the narrow interface to the front-end compiler: the
// partitioned item list, per-item lowering, crate-level facts, and
// the session temp-path builder. Implementations must return
// partitions and items in deterministic order.
type Database interface {
	// CrateName returns the name of the crate being compiled.
	CrateName() string

	// CrateType returns the kind of output the crate produces.
	CrateType() CrateType

	// Target returns the target triple ("x86_64-linux",
	// "wasm32-unknown", ...).
	Target() string

	// Partitions returns the partitioned item list in deterministic
	// order.
	Partitions() []*Partition

	// EncodedMetadata returns the serialized crate metadata produced
	// by the front end.
	EncodedMetadata() []byte

	// CrateHash returns the crate content hash.
	CrateHash() contenthash.Hash

	// NeedsAllocatorShim reports whether the program requires the
	// synthetic allocator module.
	NeedsAllocatorShim() bool

	// EntrySymbol returns the program entry symbol name for
	// executable crates.
	EntrySymbol() string

	// FunctionBody lowers a function instance to backend code bytes.
	// Returns an error wrapping ErrUnsupportedConstruct when the
	// instance uses constructs the backend cannot translate.
	FunctionBody(inst *Instance) ([]byte, error)

	// StaticInitializer produces the initializer bytes for a global
	// datum.
	StaticInitializer(data *StaticData) ([]byte, error)

	// DependencyLibraries lists the dependency crates and their
	// library files, for JIT symbol resolution.
	DependencyLibraries() []DependencyLibrary

	// TempPath returns the session-temporary output path for the
	// given artifact kind and logical name.
	TempPath(kind OutputType, name string) string

	// LinkerInfo returns link-relevant facts for the final manifest.
	LinkerInfo() LinkerInfo

	// CrateInfo returns the crate summary for the final manifest.
	CrateInfo() CrateInfo
}
