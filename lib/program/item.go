// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConstruct is returned by body lowering when a function
// uses a construct the backend cannot translate yet. The translation
// engine recognizes this error, substitutes a trap body, records a
// diagnostic, and continues with the rest of the partition. Any other
// lowering error aborts the run.
var ErrUnsupportedConstruct = errors.New("construct not yet supported")

// StackProbeMarker is the one piece of global assembly the backend
// recognizes. The stack-probe helper is supplied by the runtime, so an
// assembly item containing this marker produces no code. Any other
// assembly text is a fatal error: kiln has no assembler.
const StackProbeMarker = "__kiln_probestack"

// Linkage is the linkage declared on a program item by the front end.
type Linkage uint8

const (
	// LinkageExternal symbols participate in cross-module linking.
	LinkageExternal Linkage = iota
	// LinkageInternal symbols are local to their module.
	LinkageInternal
	// LinkageWeak symbols may be overridden by a non-weak definition
	// at link time.
	LinkageWeak
	// LinkageImport symbols are declared here but defined in another
	// module or library.
	LinkageImport
)

// String returns the manifest spelling of a linkage.
func (l Linkage) String() string {
	switch l {
	case LinkageExternal:
		return "external"
	case LinkageInternal:
		return "internal"
	case LinkageWeak:
		return "weak"
	case LinkageImport:
		return "import"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Visibility describes external symbol exposure.
type Visibility uint8

const (
	// VisibilityDefault symbols are visible to other modules.
	VisibilityDefault Visibility = iota
	// VisibilityHidden symbols are not exported from the final link.
	VisibilityHidden
	// VisibilityProtected symbols are exported but always resolve
	// locally.
	VisibilityProtected
)

// String returns the manifest spelling of a visibility.
func (v Visibility) String() string {
	switch v {
	case VisibilityDefault:
		return "default"
	case VisibilityHidden:
		return "hidden"
	case VisibilityProtected:
		return "protected"
	default:
		return fmt.Sprintf("unknown(%d)", v)
	}
}

// ItemKind discriminates the program item variants.
type ItemKind uint8

const (
	// ItemFunction is a function carrying a resolved instantiation.
	ItemFunction ItemKind = iota
	// ItemStatic is a global datum with an initializer.
	ItemStatic
	// ItemGlobalAssembly carries raw machine-specific text.
	ItemGlobalAssembly
)

// String returns the manifest spelling of an item kind.
func (k ItemKind) String() string {
	switch k {
	case ItemFunction:
		return "function"
	case ItemStatic:
		return "static"
	case ItemGlobalAssembly:
		return "global_asm"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Signature is a function's call signature as the backend sees it:
// abstract parameter and return type tags plus the calling convention.
// Type tags are backend-level ("ptr", "i64", "isize"), not front-end
// types.
type Signature struct {
	Params   []string `cbor:"params" json:"params"`
	Returns  []string `cbor:"returns" json:"returns"`
	CallConv string   `cbor:"call_conv" json:"call_conv,omitempty"`
}

// Instance is a resolved function instantiation: the external symbol
// name and the signature the front end computed for it.
type Instance struct {
	Symbol string
	Sig    Signature
}

// StaticData describes a global datum. The initializer bytes are
// produced on demand by the program database.
type StaticData struct {
	Symbol   string
	Writable bool
}

// Item is a unit of translation. Exactly one of Instance, Static, or
// Assembly is meaningful, selected by Kind. Every item carries the
// (linkage, visibility) pair describing its external exposure.
type Item struct {
	Kind       ItemKind
	Instance   *Instance
	Static     *StaticData
	Assembly   string
	Linkage    Linkage
	Visibility Visibility
}

// DisplayName returns the identity used in diagnostics: the symbol
// for functions and statics, a fixed tag for assembly items.
func (it Item) DisplayName() string {
	switch it.Kind {
	case ItemFunction:
		return it.Instance.Symbol
	case ItemStatic:
		return it.Static.Symbol
	case ItemGlobalAssembly:
		return "<global_asm>"
	default:
		return fmt.Sprintf("<unknown item kind %d>", it.Kind)
	}
}
