// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kilnproject/kiln/lib/codec"
	"github.com/kilnproject/kiln/lib/contenthash"
)

// ContainerMagic prefixes every metadata container.
var ContainerMagic = []byte("KMET\x01")

// Container is the object-shaped frame the metadata module carries:
// enough self-description for a consumer to validate and decompress
// the crate metadata without any other context.
type Container struct {
	CrateName        string           `cbor:"crate_name"`
	CrateHash        contenthash.Hash `cbor:"crate_hash"`
	Compression      CompressionTag   `cbor:"compression"`
	UncompressedSize int              `cbor:"uncompressed_size"`
	Payload          []byte           `cbor:"payload"`
}

// WriteContainer frames encoded crate metadata into container bytes,
// compressing the payload with the requested algorithm. Falls back to
// CompressionNone when the payload is incompressible.
func WriteContainer(crateName string, crateHash contenthash.Hash, encoded []byte, tag CompressionTag) ([]byte, error) {
	payload, err := compress(encoded, tag)
	if err != nil {
		if !errors.Is(err, errIncompressible) {
			return nil, fmt.Errorf("compressing metadata for %s: %w", crateName, err)
		}
		payload = encoded
		tag = CompressionNone
	}

	container := Container{
		CrateName:        crateName,
		CrateHash:        crateHash,
		Compression:      tag,
		UncompressedSize: len(encoded),
		Payload:          payload,
	}
	framed, err := codec.Marshal(container)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata container for %s: %w", crateName, err)
	}

	result := make([]byte, 0, len(ContainerMagic)+len(framed))
	result = append(result, ContainerMagic...)
	result = append(result, framed...)
	return result, nil
}

// ReadContainer parses container bytes and returns the frame plus the
// decompressed crate metadata.
func ReadContainer(data []byte) (*Container, []byte, error) {
	if len(data) < len(ContainerMagic) || !bytes.Equal(data[:len(ContainerMagic)], ContainerMagic) {
		return nil, nil, fmt.Errorf("not a kiln metadata container: bad magic")
	}

	var container Container
	if err := codec.Unmarshal(data[len(ContainerMagic):], &container); err != nil {
		return nil, nil, fmt.Errorf("decoding metadata container: %w", err)
	}

	decoded, err := decompress(container.Payload, container.Compression, container.UncompressedSize)
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing metadata for %s: %w", container.CrateName, err)
	}
	return &container, decoded, nil
}
