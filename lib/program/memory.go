// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/kilnproject/kiln/lib/contenthash"
)

// MemoryDatabase is an in-memory Database. The manifest loader builds
// one from a program manifest; tests build them directly.
type MemoryDatabase struct {
	crateName    string
	crateType    CrateType
	target       string
	entry        string
	needsShim    bool
	metadata     []byte
	partitions   []*Partition
	bodies       map[string][]byte
	unsupported  map[string]bool
	initializers map[string][]byte
	dependencies []DependencyLibrary
	outputDir    string

	// lowerings counts FunctionBody calls. Reuse tests assert that a
	// reused partition never reaches body lowering.
	lowerings atomic.Int64
}

// MemoryDatabaseConfig collects the inputs for NewMemoryDatabase.
type MemoryDatabaseConfig struct {
	CrateName string
	CrateType CrateType
	Target    string

	// Entry is the program entry symbol for executable crates.
	// Defaults to "main".
	Entry string

	NeedsAllocatorShim bool

	// Metadata is the front end's encoded crate metadata. The crate
	// hash is derived from it.
	Metadata []byte

	// Partitions must already be in deterministic order.
	Partitions []*Partition

	// Bodies maps function symbol to lowered code bytes.
	Bodies map[string][]byte

	// Unsupported marks function symbols whose lowering fails with
	// ErrUnsupportedConstruct.
	Unsupported map[string]bool

	// Initializers maps static symbol to initializer bytes.
	Initializers map[string][]byte

	Dependencies []DependencyLibrary

	// OutputDir is where TempPath places session artifacts.
	OutputDir string
}

// NewMemoryDatabase constructs an in-memory program database.
func NewMemoryDatabase(cfg MemoryDatabaseConfig) *MemoryDatabase {
	entry := cfg.Entry
	if entry == "" {
		entry = "main"
	}
	return &MemoryDatabase{
		crateName:    cfg.CrateName,
		crateType:    cfg.CrateType,
		target:       cfg.Target,
		entry:        entry,
		needsShim:    cfg.NeedsAllocatorShim,
		metadata:     cfg.Metadata,
		partitions:   cfg.Partitions,
		bodies:       cfg.Bodies,
		unsupported:  cfg.Unsupported,
		initializers: cfg.Initializers,
		dependencies: cfg.Dependencies,
		outputDir:    cfg.OutputDir,
	}
}

// CrateName implements Database.
func (db *MemoryDatabase) CrateName() string { return db.crateName }

// CrateType implements Database.
func (db *MemoryDatabase) CrateType() CrateType { return db.crateType }

// Target implements Database.
func (db *MemoryDatabase) Target() string { return db.target }

// Partitions implements Database.
func (db *MemoryDatabase) Partitions() []*Partition { return db.partitions }

// EncodedMetadata implements Database.
func (db *MemoryDatabase) EncodedMetadata() []byte { return db.metadata }

// CrateHash implements Database.
func (db *MemoryDatabase) CrateHash() contenthash.Hash {
	return contenthash.HashCrate(db.metadata)
}

// NeedsAllocatorShim implements Database.
func (db *MemoryDatabase) NeedsAllocatorShim() bool { return db.needsShim }

// EntrySymbol implements Database.
func (db *MemoryDatabase) EntrySymbol() string { return db.entry }

// FunctionBody implements Database.
func (db *MemoryDatabase) FunctionBody(inst *Instance) ([]byte, error) {
	db.lowerings.Add(1)
	if db.unsupported[inst.Symbol] {
		return nil, fmt.Errorf("lowering %s: %w", inst.Symbol, ErrUnsupportedConstruct)
	}
	body, ok := db.bodies[inst.Symbol]
	if !ok {
		return nil, fmt.Errorf("no body recorded for function %s", inst.Symbol)
	}
	return body, nil
}

// StaticInitializer implements Database.
func (db *MemoryDatabase) StaticInitializer(data *StaticData) ([]byte, error) {
	init, ok := db.initializers[data.Symbol]
	if !ok {
		return nil, fmt.Errorf("no initializer recorded for static %s", data.Symbol)
	}
	return init, nil
}

// DependencyLibraries implements Database.
func (db *MemoryDatabase) DependencyLibraries() []DependencyLibrary {
	return db.dependencies
}

// TempPath implements Database.
func (db *MemoryDatabase) TempPath(kind OutputType, name string) string {
	return filepath.Join(db.outputDir, name+kind.Extension())
}

// LinkerInfo implements Database. Exported symbols are the externally
// visible function symbols across all partitions, in partition order.
func (db *MemoryDatabase) LinkerInfo() LinkerInfo {
	var exported []string
	for _, partition := range db.partitions {
		for _, item := range partition.ItemsInDeterministicOrder() {
			if item.Kind != ItemFunction {
				continue
			}
			if item.Linkage == LinkageExternal && item.Visibility == VisibilityDefault {
				exported = append(exported, item.Instance.Symbol)
			}
		}
	}
	return LinkerInfo{ExportedSymbols: exported}
}

// CrateInfo implements Database.
func (db *MemoryDatabase) CrateInfo() CrateInfo {
	deps := make([]string, 0, len(db.dependencies))
	for _, dep := range db.dependencies {
		deps = append(deps, dep.Name)
	}
	return CrateInfo{Name: db.crateName, Dependencies: deps}
}

// BodyLowerings returns how many times FunctionBody has been called.
// Used by reuse tests to prove a cached partition skipped translation.
func (db *MemoryDatabase) BodyLowerings() int64 {
	return db.lowerings.Load()
}

// SetOutputDir redirects TempPath to a new session directory. A fresh
// session over the same program reuses the database but not its
// output directory.
func (db *MemoryDatabase) SetOutputDir(dir string) {
	db.outputDir = dir
}
