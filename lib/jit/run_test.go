// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package jit

import (
	"strings"
	"testing"

	"github.com/kilnproject/kiln/lib/driver"
	"github.com/kilnproject/kiln/lib/program"
)

func jitConfig() driver.Config {
	return driver.Config{JIT: true, DisableIncrementalCache: true}
}

func executableDB(cfg program.MemoryDatabaseConfig) *program.MemoryDatabase {
	cfg.CrateName = "demo"
	cfg.CrateType = program.CrateExecutable
	if cfg.Target == "" {
		cfg.Target = "x86_64-linux"
	}
	return program.NewMemoryDatabase(cfg)
}

func TestRunRequiresJITConfig(t *testing.T) {
	db := executableDB(program.MemoryDatabaseConfig{})
	if _, err := Run(driver.Config{}, db, NewRedirectBackend(8), nil); err == nil {
		t.Error("Run without JIT enabled should fail")
	}
}

func TestRunRejectsNonExecutableCrate(t *testing.T) {
	db := program.NewMemoryDatabase(program.MemoryDatabaseConfig{
		CrateName: "lib",
		CrateType: program.CrateLibrary,
		Target:    "x86_64-linux",
	})
	_, err := Run(jitConfig(), db, NewRedirectBackend(8), nil)
	if err == nil || !strings.Contains(err.Error(), "non-executable") {
		t.Errorf("library crate should be rejected, got %v", err)
	}
}

func TestRunRejectsWasmTarget(t *testing.T) {
	db := executableDB(program.MemoryDatabaseConfig{Target: "wasm32-unknown"})
	_, err := Run(jitConfig(), db, NewRedirectBackend(4), nil)
	if err == nil || !strings.Contains(err.Error(), "wasm") {
		t.Errorf("wasm target should be rejected, got %v", err)
	}
}

// A statically-linked dependency aborts the run before any item is
// translated.
func TestRunStaticDependencyFailsBeforeTranslation(t *testing.T) {
	db := executableDB(program.MemoryDatabaseConfig{
		Partitions: []*program.Partition{
			program.NewPartition("cgu-0", []program.Item{
				{Kind: program.ItemFunction, Instance: &program.Instance{Symbol: "main"}, Linkage: program.LinkageExternal},
			}),
		},
		Bodies: map[string][]byte{"main": []byte("tailcall:puts")},
		Dependencies: []program.DependencyLibrary{
			{Name: "native-helpers", Path: "/lib/libnative.a", Linkage: program.DepStatic},
		},
	})

	_, err := Run(jitConfig(), db, NewRedirectBackend(8), nil)
	if err == nil {
		t.Fatal("static dependency must abort the run")
	}
	if !strings.Contains(err.Error(), "native-helpers") {
		t.Errorf("error should name the dependency: %v", err)
	}
	if db.BodyLowerings() != 0 {
		t.Errorf("resolution failure must precede translation, but %d bodies were lowered", db.BodyLowerings())
	}
}

func TestRunFailsWhenEntryIsNotExecutable(t *testing.T) {
	db := executableDB(program.MemoryDatabaseConfig{
		Partitions: []*program.Partition{
			program.NewPartition("cgu-0", []program.Item{
				{Kind: program.ItemFunction, Instance: &program.Instance{Symbol: "main"}, Linkage: program.LinkageExternal},
			}),
		},
		// Real lowered code, which the redirect backend cannot run.
		Bodies: map[string][]byte{"main": {0x55, 0x48, 0x89, 0xe5}},
	})

	_, err := Run(jitConfig(), db, NewRedirectBackend(8), nil)
	if err == nil {
		t.Fatal("entry without an executable address must fail before invocation")
	}
}
