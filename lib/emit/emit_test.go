// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"os"
	"testing"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/contenthash"
	"github.com/kilnproject/kiln/lib/diag"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/workcache"
)

func emitDB(t *testing.T) *program.MemoryDatabase {
	t.Helper()
	return program.NewMemoryDatabase(program.MemoryDatabaseConfig{
		CrateName: "demo",
		Target:    "x86_64-linux",
		OutputDir: t.TempDir(),
	})
}

func populatedModule(t *testing.T) backend.Module {
	return moduleWithBody(t, []byte("code"))
}

func moduleWithBody(t *testing.T, body []byte) backend.Module {
	t.Helper()
	module, err := backend.NewObjectBackend().NewModule("cgu-0")
	if err != nil {
		t.Fatal(err)
	}
	id, err := module.DeclareFunction("f", backend.Export, program.Signature{})
	if err != nil {
		t.Fatal(err)
	}
	if err := module.DefineFunction(id, body); err != nil {
		t.Fatal(err)
	}
	return module
}

func TestModuleWritesObjectAndPersists(t *testing.T) {
	db := emitDB(t)
	store, err := workcache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := workcache.ProductIDForName("cgu-0")

	compiled, product, err := Module(db, "cgu-0", KindRegular, populatedModule(t), nil, store, id, false, nil)
	if err != nil {
		t.Fatalf("Module failed: %v", err)
	}

	if compiled.Name != "cgu-0" || compiled.Kind != KindRegular {
		t.Errorf("unexpected compiled module %+v", compiled)
	}
	object, err := os.ReadFile(compiled.Object)
	if err != nil {
		t.Fatalf("object path %q is not readable: %v", compiled.Object, err)
	}
	if _, err := backend.DecodeObject(object); err != nil {
		t.Errorf("written object does not decode: %v", err)
	}

	if product == nil {
		t.Fatal("expected a work product")
	}
	if product.ID != id {
		t.Errorf("product ID = %q, want %q", product.ID, id)
	}
	fetched, err := store.FetchProduct(id)
	if err != nil {
		t.Fatalf("persisted product not fetchable: %v", err)
	}
	if fetched.PartitionName != "cgu-0" {
		t.Errorf("PartitionName = %q, want %q", fetched.PartitionName, "cgu-0")
	}
}

// A reuse copy can materialize the session object as a hard link into
// the cache. Re-emitting the same partition into that path must not
// write through the link and mutate the cached object.
func TestModuleRebuildLeavesCachedObjectIntact(t *testing.T) {
	db := emitDB(t)
	store, err := workcache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := workcache.ProductIDForName("cgu-0")

	_, product, err := Module(db, "cgu-0", KindRegular, populatedModule(t), nil, store, id, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Materialize the cached object at the same session temp path a
	// later translation of the partition will write to.
	sink := diag.NewSink(nil)
	copied, err := store.CopyIntoSession(product, func(name string) string {
		return db.TempPath(program.OutputObject, name)
	}, sink)
	if err != nil || copied == "" || sink.ErrorCount() != 0 {
		t.Fatalf("reuse copy failed: path %q, err %v, diagnostics %v", copied, err, sink.Diagnostics())
	}

	if _, _, err := Module(db, "cgu-0", KindRegular, moduleWithBody(t, []byte("fresh different code")), nil, nil, "", false, nil); err != nil {
		t.Fatalf("re-emission failed: %v", err)
	}

	cached, err := os.ReadFile(store.AbsolutePath(product.SavedFiles[workcache.ArtifactObject]))
	if err != nil {
		t.Fatal(err)
	}
	if contenthash.HashObject(cached) != product.ObjectDigest {
		t.Error("re-emission mutated the cached object behind its recorded digest")
	}
}

func TestModuleSkipsPersistenceWhenCacheDisabled(t *testing.T) {
	db := emitDB(t)
	store, err := workcache.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, product, err := Module(db, "cgu-0", KindRegular, populatedModule(t), nil, store, workcache.ProductIDForName("cgu-0"), true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if product != nil {
		t.Error("disabled cache must not produce a work product")
	}
}

func TestModuleWithNilStore(t *testing.T) {
	db := emitDB(t)
	compiled, product, err := Module(db, "cgu-0", KindAllocator, populatedModule(t), nil, nil, "", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if product != nil {
		t.Error("nil store must not produce a work product")
	}
	if compiled.Kind != KindAllocator {
		t.Errorf("Kind = %v, want %v", compiled.Kind, KindAllocator)
	}
}

func TestModuleMergesDebugInfo(t *testing.T) {
	db := emitDB(t)
	be := backend.NewObjectBackend()
	module, _ := be.NewModule("cgu-0")
	id, _ := module.DeclareFunction("f", backend.Export, program.Signature{})
	module.DefineFunction(id, []byte("code"))
	debug := be.NewDebugContext()
	debug.DefineFunction("f", "f")

	compiled, _, err := Module(db, "cgu-0", KindRegular, module, debug, nil, "", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	object, err := os.ReadFile(compiled.Object)
	if err != nil {
		t.Fatal(err)
	}
	container, err := backend.DecodeObject(object)
	if err != nil {
		t.Fatal(err)
	}
	if len(container.Debug) == 0 {
		t.Error("emitted object should carry debug info")
	}
}

func TestModuleFailsOnUndefinedFunction(t *testing.T) {
	db := emitDB(t)
	module, _ := backend.NewObjectBackend().NewModule("cgu-0")
	module.DeclareFunction("f", backend.Local, program.Signature{})

	if _, _, err := Module(db, "cgu-0", KindRegular, module, nil, nil, "", false, nil); err == nil {
		t.Error("emitting a module with an undefined function should fail")
	}
}
