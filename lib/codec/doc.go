// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides kiln's standard CBOR encoding configuration.
//
// All on-disk records (work products, object containers, metadata
// frames) use Core Deterministic Encoding so that identical input
// always serializes to identical bytes. Reproducibility of emitted
// artifacts depends on this property.
package codec
