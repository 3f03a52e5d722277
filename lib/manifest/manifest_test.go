// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/kilnproject/kiln/lib/program"
)

const sampleManifest = `// demo program manifest
{
	"crate": "demo",
	"crate_type": "executable",
	"target": "x86_64-linux",
	"entry": "main",
	"needs_allocator_shim": true,
	"metadata": "` + "bWV0YWRhdGE=" + `", // base64 "metadata"
	"dependencies": [
		{"name": "runtime", "path": "/lib/libruntime.so", "linkage": "dynamic"},
	],
	"partitions": [
		{
			"name": "cgu-0",
			"changed": true,
			"items": [
				{
					"kind": "function",
					"symbol": "main",
					"linkage": "external",
					"sig": {"params": ["ptr", "ptr"], "returns": ["isize"]},
					"code": "` + "Y29kZQ==" + `",
				},
				{"kind": "function", "symbol": "broken", "unsupported": true},
				{"kind": "static", "symbol": "GREETING", "linkage": "internal", "init": "` + "aGVsbG8=" + `"},
				{"kind": "global_asm", "asm": "__kiln_probestack"},
			],
		},
	],
}
`

func TestParseJSONCManifest(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if m.Crate != "demo" || m.CrateType != "executable" || m.Target != "x86_64-linux" {
		t.Errorf("unexpected header %+v", m)
	}
	if len(m.Partitions) != 1 || len(m.Partitions[0].Items) != 4 {
		t.Fatalf("unexpected partition shape %+v", m.Partitions)
	}
	if !m.Partitions[0].Changed {
		t.Error("changed hint lost in parsing")
	}
}

func TestDatabaseFromManifest(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}

	db, err := m.Database(t.TempDir())
	if err != nil {
		t.Fatalf("Database failed: %v", err)
	}

	if db.CrateName() != "demo" || db.CrateType() != program.CrateExecutable {
		t.Errorf("crate identity mismatch: %s %v", db.CrateName(), db.CrateType())
	}
	if !db.NeedsAllocatorShim() {
		t.Error("allocator shim flag lost")
	}
	if !bytes.Equal(db.EncodedMetadata(), []byte("metadata")) {
		t.Errorf("metadata = %q, want %q", db.EncodedMetadata(), "metadata")
	}

	partitions := db.Partitions()
	if len(partitions) != 1 || partitions[0].Name() != "cgu-0" {
		t.Fatalf("unexpected partitions %v", partitions)
	}
	items := partitions[0].ItemsInDeterministicOrder()
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	if items[0].Kind != program.ItemFunction || items[0].Instance.Symbol != "main" {
		t.Errorf("item 0 = %+v", items[0])
	}
	if len(items[0].Instance.Sig.Params) != 2 {
		t.Errorf("main signature lost: %+v", items[0].Instance.Sig)
	}

	body, err := db.FunctionBody(items[0].Instance)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(body, []byte("code")) {
		t.Errorf("body = %q, want %q", body, "code")
	}

	if _, err := db.FunctionBody(&program.Instance{Symbol: "broken"}); err == nil {
		t.Error("unsupported item should fail body lowering")
	}

	init, err := db.StaticInitializer(&program.StaticData{Symbol: "GREETING"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(init, []byte("hello")) {
		t.Errorf("initializer = %q, want %q", init, "hello")
	}

	deps := db.DependencyLibraries()
	if len(deps) != 1 || deps[0].Linkage != program.DepDynamic {
		t.Errorf("unexpected dependencies %v", deps)
	}
}

func TestDatabaseValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"missing crate", `{"crate_type": "executable", "target": "x", "partitions": []}`},
		{"missing target", `{"crate": "c", "crate_type": "executable", "partitions": []}`},
		{"bad crate type", `{"crate": "c", "crate_type": "plugin", "target": "x", "partitions": []}`},
		{"unnamed partition", `{"crate": "c", "crate_type": "library", "target": "x", "partitions": [{"items": []}]}`},
		{"unknown item kind", `{"crate": "c", "crate_type": "library", "target": "x", "partitions": [{"name": "p", "items": [{"kind": "thunk"}]}]}`},
		{"unknown linkage", `{"crate": "c", "crate_type": "library", "target": "x", "partitions": [{"name": "p", "items": [{"kind": "function", "symbol": "f", "linkage": "common"}]}]}`},
		{"bad dependency linkage", `{"crate": "c", "crate_type": "library", "target": "x", "dependencies": [{"name": "d", "linkage": "plugin"}], "partitions": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.manifest))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if _, err := m.Database(t.TempDir()); err == nil {
				t.Error("Database should reject the manifest")
			}
		})
	}
}

func TestBase64Decoding(t *testing.T) {
	if _, err := decodeBytes("not-base64!!!", "code"); err == nil {
		t.Error("invalid base64 should fail")
	}
	data, err := decodeBytes(base64.StdEncoding.EncodeToString([]byte{1, 2}), "code")
	if err != nil || len(data) != 2 {
		t.Errorf("decodeBytes roundtrip failed: %v %v", data, err)
	}
	empty, err := decodeBytes("", "code")
	if err != nil || empty != nil {
		t.Errorf("empty string should decode to nil, got %v %v", empty, err)
	}
}
