// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package workcache

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/contenthash"
	"github.com/kilnproject/kiln/lib/program"
)

// ArtifactKind is the kind of file a work product maps to. Only
// objects exist in this backend; the bytecode kinds are carried for
// record-format parity and rejected everywhere they appear.
type ArtifactKind uint8

const (
	// ArtifactObject is a native object file.
	ArtifactObject ArtifactKind = iota
	// ArtifactBytecode is an intermediate bytecode file. Unsupported.
	ArtifactBytecode
	// ArtifactBytecodeCompressed is compressed bytecode. Unsupported.
	ArtifactBytecodeCompressed
)

// String returns the record spelling of an artifact kind.
func (k ArtifactKind) String() string {
	switch k {
	case ArtifactObject:
		return "object"
	case ArtifactBytecode:
		return "bytecode"
	case ArtifactBytecodeCompressed:
		return "bytecode_compressed"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// WorkProductID is the cache key for one partition's artifacts,
// stable across sessions.
type WorkProductID string

// ProductID derives the work-product identity from a partition.
func ProductID(p *program.Partition) WorkProductID {
	return ProductIDForName(p.Name())
}

// ProductIDForName derives a work-product identity from a module
// name. The ID embeds the name for debuggability and the
// partition-domain fingerprint so renames never alias.
func ProductIDForName(name string) WorkProductID {
	fingerprint := contenthash.Format(contenthash.HashPartition(name))
	return WorkProductID(name + "-" + fingerprint[:16])
}

// WorkProduct links a partition identity to its previously generated
// artifact files. SavedFiles paths are relative to the cache root.
type WorkProduct struct {
	ID            WorkProductID           `cbor:"id"`
	PartitionName string                  `cbor:"partition"`
	SavedFiles    map[ArtifactKind]string `cbor:"saved_files"`
	ObjectDigest  contenthash.Hash        `cbor:"object_digest"`
}
