// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package metadata produces the compressed crate-metadata module: the
// front end's encoded metadata framed in a self-describing container
// with zstd or lz4 compression. Metadata modules are emitted alongside
// the regular partitions but carry no debug info and are never
// incrementally cached.
package metadata
