// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilnproject/kiln/lib/metadata"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiln.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
manifest: /work/demo.manifest
output_dir: /work/out
cache_dir: /work/cache
jit: true
jit_args: "--fast input.txt"
display_timings: true
metadata_module: true
metadata_compression: lz4
`)
	file, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if file.Manifest != "/work/demo.manifest" || file.CacheDir != "/work/cache" {
		t.Errorf("unexpected paths: %+v", file)
	}
	if !file.JIT || file.JITArgs != "--fast input.txt" {
		t.Errorf("JIT settings lost: %+v", file)
	}
	if !file.DisplayTimings || !file.MetadataModule {
		t.Errorf("boolean settings lost: %+v", file)
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	file, err := LoadFile("")
	if err != nil {
		t.Fatalf("empty path should succeed: %v", err)
	}
	if *file != (File{}) {
		t.Errorf("empty path should yield zero config, got %+v", file)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeConfig(t, "jit: [not, a, bool]")
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed config should fail")
	}
}

func TestDriverConfigDefaults(t *testing.T) {
	cfg, err := (&File{CacheDir: "/work/cache"}).DriverConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MetadataCompression != metadata.CompressionZstd {
		t.Errorf("default compression = %v, want zstd", cfg.MetadataCompression)
	}
	if cfg.CacheDir != "/work/cache" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
}

func TestDriverConfigCompressionTags(t *testing.T) {
	for tag, want := range map[string]metadata.CompressionTag{
		"none": metadata.CompressionNone,
		"zstd": metadata.CompressionZstd,
		"lz4":  metadata.CompressionLZ4,
	} {
		cfg, err := (&File{MetadataCompression: tag}).DriverConfig()
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if cfg.MetadataCompression != want {
			t.Errorf("%s mapped to %v", tag, cfg.MetadataCompression)
		}
	}

	if _, err := (&File{MetadataCompression: "brotli"}).DriverConfig(); err == nil {
		t.Error("unknown compression tag should fail")
	}
}
