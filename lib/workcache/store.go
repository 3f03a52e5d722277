// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package workcache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilnproject/kiln/lib/codec"
	"github.com/kilnproject/kiln/lib/contenthash"
	"github.com/kilnproject/kiln/lib/diag"
)

// Directory names within the cache root.
const (
	objectsDir  = "objects"
	productsDir = "products"
	tmpDir      = "tmp"
)

// Store is the cross-session artifact cache: object files under
// objects/, work-product records under products/, staged writes under
// tmp/. Each partition owns a disjoint key, so per-partition writes
// never conflict.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given cache directory,
// creating the directory structure if needed.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{
		root,
		filepath.Join(root, objectsDir),
		filepath.Join(root, productsDir),
		filepath.Join(root, tmpDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// AbsolutePath resolves a cache-relative saved-file path.
func (s *Store) AbsolutePath(saved string) string {
	return filepath.Join(s.root, saved)
}

// PersistObject copies the session object file at objectPath into the
// cache under the partition's work-product identity and writes the
// work-product record. Both writes go through tmp/ and an atomic
// rename, so a crashed session never leaves a half-written cache
// entry.
//
// Persistence failure is not fatal to the session — the in-session
// object file still exists — so callers typically log the error and
// carry on without a work product.
func (s *Store) PersistObject(partitionName string, id WorkProductID, objectPath string) (*WorkProduct, error) {
	digest, err := contenthash.HashObjectFile(objectPath)
	if err != nil {
		return nil, fmt.Errorf("hashing object for %s: %w", id, err)
	}

	saved := filepath.Join(objectsDir, string(id)+".o")
	if err := s.stageFile(objectPath, filepath.Join(s.root, saved)); err != nil {
		return nil, fmt.Errorf("persisting object for %s: %w", id, err)
	}

	product := &WorkProduct{
		ID:            id,
		PartitionName: partitionName,
		SavedFiles:    map[ArtifactKind]string{ArtifactObject: saved},
		ObjectDigest:  digest,
	}

	if err := s.writeProductRecord(product); err != nil {
		return nil, err
	}
	return product, nil
}

// FetchProduct reads a previous-session work-product record.
func (s *Store) FetchProduct(id WorkProductID) (*WorkProduct, error) {
	data, err := os.ReadFile(s.productRecordPath(id))
	if err != nil {
		return nil, fmt.Errorf("reading work product %s: %w", id, err)
	}
	var product WorkProduct
	if err := codec.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("decoding work product %s: %w", id, err)
	}
	return &product, nil
}

// Products lists every work-product record in the cache, for a later
// session to seed its dependency graph with.
func (s *Store) Products() (map[WorkProductID]*WorkProduct, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, productsDir))
	if err != nil {
		return nil, fmt.Errorf("listing work products: %w", err)
	}

	products := make(map[WorkProductID]*WorkProduct)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cbor" {
			continue
		}
		id := WorkProductID(entry.Name()[:len(entry.Name())-len(".cbor")])
		product, err := s.FetchProduct(id)
		if err != nil {
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

// CopyIntoSession materializes a cached work product in the current
// session: for each saved file, the object kind is verified against
// the record's digest and then linked or copied to the session temp
// path for the partition name; any bytecode kind is an unconditional
// failure, since this backend never produces or consumes bytecode.
//
// Copy failures are recorded in the sink as session errors rather
// than returned — the batch keeps going, and the session fails at the
// next checkpoint. The returned object path is empty when the copy
// failed.
func (s *Store) CopyIntoSession(product *WorkProduct, tempPath func(name string) string, sink *diag.Sink) (string, error) {
	var objectPath string
	for kind, saved := range product.SavedFiles {
		switch kind {
		case ArtifactObject:
			destination := tempPath(product.PartitionName)
			source := s.AbsolutePath(saved)
			digest, err := contenthash.HashObjectFile(source)
			if err != nil {
				sink.Errorf("unable to copy %s to %s: %v", source, destination, err)
				continue
			}
			if digest != product.ObjectDigest {
				sink.Errorf("cached object %s does not match its recorded digest, refusing to reuse", source)
				continue
			}
			if err := linkOrCopy(source, destination); err != nil {
				sink.Errorf("unable to copy %s to %s: %v", source, destination, err)
				continue
			}
			objectPath = destination

		default:
			return "", fmt.Errorf("work product %s contains unsupported artifact kind %s: kiln does not use bytecode", product.ID, kind)
		}
	}
	return objectPath, nil
}

// stageFile copies src into the cache at destination via tmp/ and an
// atomic rename.
func (s *Store) stageFile(src, destination string) error {
	staged, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "stage-*")
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	stagedPath := staged.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(stagedPath)
		}
	}()

	if err := copyContents(src, staged); err != nil {
		staged.Close()
		return err
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("closing staging file: %w", err)
	}

	if err := os.Rename(stagedPath, destination); err != nil {
		return fmt.Errorf("renaming into cache: %w", err)
	}
	success = true
	return nil
}

// writeProductRecord writes a work-product record via tmp/ and an
// atomic rename.
func (s *Store) writeProductRecord(product *WorkProduct) error {
	data, err := codec.Marshal(product)
	if err != nil {
		return fmt.Errorf("encoding work product %s: %w", product.ID, err)
	}

	staged, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "product-*.cbor")
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	stagedPath := staged.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(stagedPath)
		}
	}()

	if _, err := staged.Write(data); err != nil {
		staged.Close()
		return fmt.Errorf("writing work product %s: %w", product.ID, err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("closing work product %s: %w", product.ID, err)
	}

	if err := os.Rename(stagedPath, s.productRecordPath(product.ID)); err != nil {
		return fmt.Errorf("renaming work product %s: %w", product.ID, err)
	}
	success = true
	return nil
}

func (s *Store) productRecordPath(id WorkProductID) string {
	return filepath.Join(s.root, productsDir, string(id)+".cbor")
}
