// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package workcache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilnproject/kiln/lib/contenthash"
	"github.com/kilnproject/kiln/lib/diag"
)

func writeSessionObject(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPersistAndFetchRoundtrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	contents := []byte("object container bytes")
	objectPath := writeSessionObject(t, t.TempDir(), "cgu-0.o", contents)
	id := ProductIDForName("cgu-0")

	product, err := store.PersistObject("cgu-0", id, objectPath)
	if err != nil {
		t.Fatalf("PersistObject failed: %v", err)
	}
	if product.ID != id || product.PartitionName != "cgu-0" {
		t.Errorf("product identity mismatch: %+v", product)
	}
	if product.ObjectDigest != contenthash.HashObject(contents) {
		t.Error("object digest does not match contents")
	}

	fetched, err := store.FetchProduct(id)
	if err != nil {
		t.Fatalf("FetchProduct failed: %v", err)
	}
	if fetched.ID != product.ID || fetched.PartitionName != product.PartitionName {
		t.Errorf("fetched product differs: got %+v, want %+v", fetched, product)
	}
	if fetched.SavedFiles[ArtifactObject] == "" {
		t.Fatal("fetched product has no saved object file")
	}

	cached, err := os.ReadFile(store.AbsolutePath(fetched.SavedFiles[ArtifactObject]))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cached, contents) {
		t.Error("cached object bytes differ from the session object")
	}
}

func TestProductsScansEveryRecord(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sessionDir := t.TempDir()

	for _, name := range []string{"cgu-0", "cgu-1", "cgu-2"} {
		path := writeSessionObject(t, sessionDir, name+".o", []byte("object for "+name))
		if _, err := store.PersistObject(name, ProductIDForName(name), path); err != nil {
			t.Fatalf("PersistObject(%s) failed: %v", name, err)
		}
	}

	products, err := store.Products()
	if err != nil {
		t.Fatalf("Products failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}
	for _, name := range []string{"cgu-0", "cgu-1", "cgu-2"} {
		if _, ok := products[ProductIDForName(name)]; !ok {
			t.Errorf("product for %s missing from scan", name)
		}
	}
}

func TestCopyIntoSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	contents := []byte("reusable object")
	objectPath := writeSessionObject(t, t.TempDir(), "cgu-0.o", contents)
	product, err := store.PersistObject("cgu-0", ProductIDForName("cgu-0"), objectPath)
	if err != nil {
		t.Fatal(err)
	}

	sessionDir := t.TempDir()
	sink := diag.NewSink(nil)
	copied, err := store.CopyIntoSession(product, func(name string) string {
		return filepath.Join(sessionDir, name+".o")
	}, sink)
	if err != nil {
		t.Fatalf("CopyIntoSession failed: %v", err)
	}
	if sink.ErrorCount() != 0 {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}

	got, err := os.ReadFile(copied)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, contents) {
		t.Error("copied object differs from cached object")
	}
}

func TestCopyIntoSessionRecordsCopyFailure(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// Product whose saved file does not exist in the cache.
	product := &WorkProduct{
		ID:            ProductIDForName("cgu-0"),
		PartitionName: "cgu-0",
		SavedFiles:    map[ArtifactKind]string{ArtifactObject: "objects/missing.o"},
	}

	sink := diag.NewSink(nil)
	copied, err := store.CopyIntoSession(product, func(name string) string {
		return filepath.Join(t.TempDir(), name+".o")
	}, sink)
	if err != nil {
		t.Fatalf("copy failure must be recorded, not returned: %v", err)
	}
	if copied != "" {
		t.Errorf("failed copy should yield an empty object path, got %q", copied)
	}
	if sink.ErrorCount() != 1 {
		t.Fatalf("got %d diagnostics, want 1", sink.ErrorCount())
	}
	if !strings.Contains(sink.Diagnostics()[0].Err.Error(), "unable to copy") {
		t.Errorf("unexpected diagnostic %q", sink.Diagnostics()[0].Err.Error())
	}
}

func TestCopyIntoSessionRejectsCorruptObject(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	objectPath := writeSessionObject(t, t.TempDir(), "cgu-0.o", []byte("original object bytes"))
	product, err := store.PersistObject("cgu-0", ProductIDForName("cgu-0"), objectPath)
	if err != nil {
		t.Fatal(err)
	}

	// Mutate the cached object behind the record.
	cached := store.AbsolutePath(product.SavedFiles[ArtifactObject])
	if err := os.WriteFile(cached, []byte("DIFFERENT object bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := diag.NewSink(nil)
	copied, err := store.CopyIntoSession(product, func(name string) string {
		return filepath.Join(t.TempDir(), name+".o")
	}, sink)
	if err != nil {
		t.Fatalf("corruption must be recorded, not returned: %v", err)
	}
	if copied != "" {
		t.Errorf("corrupt object should yield an empty object path, got %q", copied)
	}
	if sink.ErrorCount() != 1 {
		t.Fatalf("got %d diagnostics, want 1", sink.ErrorCount())
	}
	if !strings.Contains(sink.Diagnostics()[0].Err.Error(), "digest") {
		t.Errorf("unexpected diagnostic %q", sink.Diagnostics()[0].Err.Error())
	}
}

func TestCopyIntoSessionRejectsBytecode(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	product := &WorkProduct{
		ID:            ProductIDForName("cgu-0"),
		PartitionName: "cgu-0",
		SavedFiles:    map[ArtifactKind]string{ArtifactBytecode: "objects/cgu-0.bc"},
	}

	_, err = store.CopyIntoSession(product, func(name string) string { return name }, diag.NewSink(nil))
	if err == nil {
		t.Fatal("bytecode artifact kind should be fatal")
	}
	if !strings.Contains(err.Error(), "bytecode") {
		t.Errorf("error should name bytecode: %v", err)
	}
}

func TestProductIDEmbedsNameAndFingerprint(t *testing.T) {
	id := ProductIDForName("cgu-0")
	if !strings.HasPrefix(string(id), "cgu-0-") {
		t.Errorf("product ID %q should start with the partition name", id)
	}
	if id == ProductIDForName("cgu-1") {
		t.Error("different partitions produced the same product ID")
	}
}

func TestSessionRegisterAndProducts(t *testing.T) {
	session := NewSession()
	if len(session.Products()) != 0 {
		t.Fatal("fresh session should be empty")
	}

	first := &WorkProduct{ID: ProductIDForName("cgu-0"), PartitionName: "cgu-0"}
	session.Register(first)

	// Re-registering the same identity overwrites.
	second := &WorkProduct{ID: ProductIDForName("cgu-0"), PartitionName: "cgu-0", ObjectDigest: contenthash.HashObject([]byte("x"))}
	session.Register(second)

	products := session.Products()
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if products[first.ID] != second {
		t.Error("later registration should win")
	}
}
