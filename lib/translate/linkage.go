// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/program"
)

// ResolveLinkage computes the final native linkage for an item from
// its declared (linkage, visibility) pair. Visibility only narrows
// external symbols; internal and weak linkage win regardless of
// visibility.
func ResolveLinkage(declared program.Linkage, visibility program.Visibility) backend.Linkage {
	switch declared {
	case program.LinkageImport:
		return backend.Import
	case program.LinkageInternal:
		return backend.Local
	case program.LinkageWeak:
		return backend.Weak
	case program.LinkageExternal:
		if visibility == program.VisibilityDefault {
			return backend.Export
		}
		return backend.Hidden
	default:
		return backend.Local
	}
}
