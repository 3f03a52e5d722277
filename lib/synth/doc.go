// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package synth generates the two non-partition modules every build
// may carry: the allocator shim and the compressed crate-metadata
// module. Both are independent of partition processing and of each
// other.
package synth
