// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package contenthash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest. Crate hashes, partition
// fingerprints, and object digests are all this size.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same bytes hash differently in different
// contexts, so a partition fingerprint can never collide with an
// object digest.
type domainKey [32]byte

// Domain separation keys. Fixed protocol constants — changing them
// invalidates every hash in that domain. The byte values are the
// ASCII encoding of the domain name, zero-padded to 32 bytes, which
// keeps the keys readable in hex dumps.
var (
	crateDomainKey = domainKey{
		'k', 'i', 'l', 'n', '.', 'c', 'r', 'a', 't', 'e',
	}

	partitionDomainKey = domainKey{
		'k', 'i', 'l', 'n', '.', 'p', 'a', 'r', 't', 'i', 't', 'i', 'o', 'n',
	}

	objectDomainKey = domainKey{
		'k', 'i', 'l', 'n', '.', 'o', 'b', 'j', 'e', 'c', 't',
	}
)

// HashCrate computes the crate-domain hash of the crate's encoded
// metadata. This is the crate content hash carried in codegen results.
func HashCrate(encodedMetadata []byte) Hash {
	return keyedHash(crateDomainKey, encodedMetadata)
}

// HashPartition computes the partition-domain hash of a partition
// name. Work-product identities are derived from this.
func HashPartition(name string) Hash {
	return keyedHash(partitionDomainKey, []byte(name))
}

// HashObject computes the object-domain hash of serialized object
// bytes. Stored in work-product records so a later session can detect
// cache corruption before reusing an artifact.
func HashObject(object []byte) Hash {
	return keyedHash(objectDomainKey, object)
}

// HashObjectFile computes the object-domain hash of the file at path,
// streaming it through the hasher to keep memory constant.
func HashObjectFile(path string) (Hash, error) {
	file, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher, err := blake3.NewKeyed(objectDomainKey[:])
	if err != nil {
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	if _, err := io.Copy(hasher, file); err != nil {
		return Hash{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash, nil
}

// Format returns the canonical hex representation of a hash, used in
// manifests, logs, and work-product records.
func Format(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// Parse parses a 64-character hex string into a Hash.
func Parse(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing content hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("content hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// keyedHash computes the BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Hash {
	// NewKeyed only fails for a wrong key length, which domainKey
	// makes impossible.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
