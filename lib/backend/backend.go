// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/program"
)

// Linkage is the final native linkage of a declared symbol, resolved
// from the front end's (linkage, visibility) pair.
type Linkage uint8

const (
	// Import symbols are referenced here and defined elsewhere.
	Import Linkage = iota
	// Local symbols are private to the module.
	Local
	// Hidden symbols are defined here but not exported from the
	// final link.
	Hidden
	// Export symbols are defined here and externally visible.
	Export
	// Weak symbols are exported but may be overridden at link time.
	Weak
)

// String returns a short name for the linkage.
func (l Linkage) String() string {
	switch l {
	case Import:
		return "import"
	case Local:
		return "local"
	case Hidden:
		return "hidden"
	case Export:
		return "export"
	case Weak:
		return "weak"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// FuncID identifies a declared function within one module.
type FuncID int

// DataID identifies a declared data object within one module.
type DataID int

// Backend is the translation-backend capability: module creation plus
// the target facts the orchestrator needs for sanity checks.
type Backend interface {
	// NewModule creates an empty native module with the given name.
	NewModule(name string) (Module, error)

	// NewDebugContext creates a debug-info collector for one module,
	// or nil if the backend has no debug-info support.
	NewDebugContext() DebugContext

	// PointerWidth returns the target pointer width in bytes.
	PointerWidth() int

	// DefaultCallConv returns the target's default calling
	// convention name.
	DefaultCallConv() string

	// TrapBody returns the failure-marker body substituted for a
	// function whose generation failed recoverably. Executing it
	// traps.
	TrapBody() []byte
}

// Module is an in-memory native module under construction. Symbol
// declaration must complete before body definition for symbols that
// reference each other, and no declaration or definition is permitted
// after FinalizeDefinitions.
type Module interface {
	// Name returns the module name.
	Name() string

	// DeclareFunction declares a function symbol without a body.
	// Redeclaring an already-declared symbol returns the existing ID.
	DeclareFunction(symbol string, linkage Linkage, sig program.Signature) (FuncID, error)

	// DefineFunction attaches a body to a previously declared
	// function.
	DefineFunction(id FuncID, code []byte) error

	// DeclareData declares a data object symbol.
	DeclareData(symbol string, linkage Linkage, writable bool) (DataID, error)

	// DefineData attaches contents to a previously declared data
	// object.
	DefineData(id DataID, contents []byte) error

	// FinalizeDefinitions checks that every non-import declaration
	// has a definition and seals the module. No further declarations
	// or definitions are permitted afterward.
	FinalizeDefinitions() error

	// Finish extracts the finished native product. The module must be
	// finalized first.
	Finish() (Product, error)
}

// Product is a finished native module ready for serialization.
type Product interface {
	// MergeDebugInfo merges serialized debug metadata into the
	// product in place.
	MergeDebugInfo(debug []byte) error

	// Emit serializes the product to object-file bytes.
	Emit() ([]byte, error)
}

// DebugContext collects per-function debug metadata during
// translation and serializes it for merging into the product.
type DebugContext interface {
	// DefineFunction records debug metadata for one translated
	// function.
	DefineFunction(symbol, sourceName string)

	// Finish serializes the collected metadata.
	Finish() []byte
}
