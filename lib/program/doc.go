// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package program defines the data model shared by every stage of the
// codegen backend: program items, partitions, and the Database
// interface through which the front-end compiler is consumed.
//
// The backend never reimplements front-end analysis. Everything it
// needs — the partitioned item list, lowered function bodies, crate
// metadata, dependency formats — arrives through Database. The
// MemoryDatabase implementation backs tests and the manifest-driven
// CLI.
package program
