// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend defines the translation-backend capability consumed
// by the codegen pipeline — module creation, symbol declaration and
// definition, finalization, product extraction — and provides the
// reference ObjectBackend, a deterministic serializer that enforces
// the full protocol without doing instruction selection.
//
// Real instruction-selecting backends implement the same interfaces
// and are out of scope here.
package backend
