// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"github.com/kilnproject/kiln/lib/contenthash"
)

// Writer serializes crate metadata into an object-shaped byte buffer.
// The front end may supply its own implementation; DefaultWriter
// frames the metadata into a kiln container.
type Writer interface {
	WriteMetadata(crateName string, crateHash contenthash.Hash, encoded []byte) ([]byte, error)
}

// DefaultWriter wraps crate metadata in the kiln container format
// with the configured compression.
type DefaultWriter struct {
	Compression CompressionTag
}

// NewDefaultWriter returns a writer using zstd compression.
func NewDefaultWriter() *DefaultWriter {
	return &DefaultWriter{Compression: CompressionZstd}
}

// WriteMetadata implements Writer.
func (w *DefaultWriter) WriteMetadata(crateName string, crateHash contenthash.Hash, encoded []byte) ([]byte, error) {
	return WriteContainer(crateName, crateHash, encoded, w.Compression)
}
