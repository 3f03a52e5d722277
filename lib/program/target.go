// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package program

import "strings"

// PointerWidthForTarget returns the pointer width in bytes implied by
// a target triple. The orchestrator asserts this against the
// backend's own pointer width before translating anything into it.
func PointerWidthForTarget(target string) int {
	switch {
	case strings.HasPrefix(target, "wasm32"),
		strings.HasPrefix(target, "i686"),
		strings.HasPrefix(target, "armv7"):
		return 4
	default:
		return 8
	}
}

// IsWasmTarget reports whether the target is a wasm triple. The JIT
// cannot run on wasm.
func IsWasmTarget(target string) bool {
	return strings.HasPrefix(target, "wasm32") || strings.HasPrefix(target, "wasm64")
}
