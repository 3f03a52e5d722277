// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package jit

import "strings"

// BuildArgs assembles the argv handed to the jitted entry point: the
// extra arguments split on spaces, then the crate name as the final
// entry. An empty extra string contributes nothing.
func BuildArgs(extra, crateName string) []string {
	args := strings.Fields(extra)
	return append(args, crateName)
}
