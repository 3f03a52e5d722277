// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"
	"log/slog"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/depgraph"
	"github.com/kilnproject/kiln/lib/diag"
	"github.com/kilnproject/kiln/lib/emit"
	"github.com/kilnproject/kiln/lib/metadata"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/reuse"
	"github.com/kilnproject/kiln/lib/synth"
	"github.com/kilnproject/kiln/lib/translate"
	"github.com/kilnproject/kiln/lib/workcache"
)

// aotSession bundles the per-run state threaded through the AOT
// pipeline.
type aotSession struct {
	cfg     Config
	db      program.Database
	graph   depgraph.Graph
	backend backend.Backend
	store   *workcache.Store
	session *workcache.Session
	sink    *diag.Sink
	logger  *slog.Logger
}

// Run performs an ahead-of-time codegen session: classify every
// partition, translate or reuse it, emit the synthetic modules, and
// return the artifact manifest plus the session work-product map.
//
// Run is AOT-only. A Config with JIT set is rejected here — JIT is a
// distinct execution mode with its own entry point (lib/jit), and the
// AOT orchestrator must never be able to reach it.
func Run(cfg Config, db program.Database, graph depgraph.Graph, be backend.Backend, logger *slog.Logger) (*CodegenResults, error) {
	if cfg.JIT {
		return nil, fmt.Errorf("driver.Run is the AOT entry point; use jit.Run for JIT mode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid codegen config: %w", err)
	}

	if want, have := program.PointerWidthForTarget(db.Target()), be.PointerWidth(); want != have {
		return nil, fmt.Errorf("backend pointer width %d does not match target %s (want %d)", have, db.Target(), want)
	}

	var store *workcache.Store
	if !cfg.DisableIncrementalCache {
		var err error
		store, err = workcache.NewStore(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("opening incremental cache: %w", err)
		}
	}

	s := &aotSession{
		cfg:     cfg,
		db:      db,
		graph:   graph,
		backend: be,
		store:   store,
		session: workcache.NewSession(),
		sink:    diag.NewSink(logger),
		logger:  logger,
	}

	partitions := db.Partitions()
	modules := make([]emit.CompiledModule, 0, len(partitions))

	err := s.timed("codegen partitions", func() error {
		for _, partition := range partitions {
			module, err := s.compileOrReuse(partition)
			if err != nil {
				return err
			}
			modules = append(modules, module)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Checkpoint: copy failures and unsupported-construct traps were
	// recorded, not raised. No synthetic modules, no manifest, once
	// anything went wrong.
	if err := s.sink.AbortIfErrors(); err != nil {
		return nil, err
	}

	allocatorModule, err := s.generateAllocator()
	if err != nil {
		return nil, err
	}

	var metadataModule *emit.CompiledModule
	if cfg.NeedMetadataModule {
		err := s.timed("write compressed metadata", func() error {
			writer := &metadata.DefaultWriter{Compression: cfg.MetadataCompression}
			module, err := synth.GenerateMetadataModule(db, writer)
			if err != nil {
				return err
			}
			metadataModule = &module
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Final checkpoint before handing out the manifest.
	if err := s.sink.AbortIfErrors(); err != nil {
		return nil, err
	}

	return &CodegenResults{
		CrateName:        db.CrateName(),
		Modules:          modules,
		AllocatorModule:  allocatorModule,
		MetadataModule:   metadataModule,
		CrateHash:        db.CrateHash(),
		Metadata:         db.EncodedMetadata(),
		LinkerInfo:       db.LinkerInfo(),
		CrateInfo:        db.CrateInfo(),
		WindowsSubsystem: "",
		WorkProducts:     s.session.Products(),
	}, nil
}

// compileOrReuse runs one partition through the reuse decision and
// either copies its cached artifact into the session or translates
// and emits it fresh.
func (s *aotSession) compileOrReuse(partition *program.Partition) (emit.CompiledModule, error) {
	decision := reuse.NotReusable
	if !s.cfg.DisableIncrementalCache {
		decision = reuse.Decide(s.graph, partition)
	}

	if s.logger != nil {
		s.logger.Debug("partition reuse decision",
			"partition", partition.Name(), "decision", decision.String())
	}

	return s.dispatchDecision(decision, partition)
}

func (s *aotSession) dispatchDecision(decision reuse.Decision, partition *program.Partition) (emit.CompiledModule, error) {
	switch decision {
	case reuse.ReusablePreFinal:
		return s.reusePartition(partition)

	case reuse.ReusablePostFinal:
		// Post-LTO reuse does not exist in this backend.
		return emit.CompiledModule{}, fmt.Errorf("partition %s: post-LTO reuse decision is unreachable", partition.Name())

	case reuse.NotReusable:
		return s.translatePartition(partition)

	default:
		return emit.CompiledModule{}, fmt.Errorf("partition %s: unknown reuse decision %d", partition.Name(), decision)
	}
}

// reusePartition copies the previous session's artifact into this
// session's temp path and registers the work product.
func (s *aotSession) reusePartition(partition *program.Partition) (emit.CompiledModule, error) {
	product, ok := s.graph.PreviousWorkProduct(workcache.ProductID(partition))
	if !ok {
		// Decide only returns ReusablePreFinal after finding one.
		return emit.CompiledModule{}, fmt.Errorf("partition %s: reusable but no previous work product", partition.Name())
	}

	objectPath, err := s.store.CopyIntoSession(product, func(name string) string {
		return s.db.TempPath(program.OutputObject, name)
	}, s.sink)
	if err != nil {
		return emit.CompiledModule{}, err
	}

	s.session.Register(product)

	return emit.CompiledModule{
		Name:   partition.Name(),
		Kind:   emit.KindRegular,
		Object: objectPath,
	}, nil
}

// translatePartition generates the partition's module from scratch
// and emits it. The dependency node is registered first: executing
// the partition's codegen is the node's one-time side effect this
// session.
func (s *aotSession) translatePartition(partition *program.Partition) (emit.CompiledModule, error) {
	s.graph.RegisterNode(depgraph.CompileNode(partition.Name()))

	module, err := s.backend.NewModule(partition.Name())
	if err != nil {
		return emit.CompiledModule{}, fmt.Errorf("creating module for %s: %w", partition.Name(), err)
	}

	var debugCtx backend.DebugContext
	if s.cfg.DebugInfo {
		debugCtx = s.backend.NewDebugContext()
	}

	items := partition.ItemsInDeterministicOrder()
	if err := translate.Translate(s.db, s.backend.TrapBody(), module, debugCtx, partition.Name(), items, s.sink); err != nil {
		return emit.CompiledModule{}, fmt.Errorf("translating partition %s: %w", partition.Name(), err)
	}

	compiled, product, err := emit.Module(s.db, partition.Name(), emit.KindRegular, module, debugCtx,
		s.store, workcache.ProductID(partition), s.cfg.DisableIncrementalCache, s.logger)
	if err != nil {
		return emit.CompiledModule{}, err
	}
	if product != nil {
		s.session.Register(product)
	}
	return compiled, nil
}

// generateAllocator runs the allocator shim generator and emits the
// module when it produced content.
func (s *aotSession) generateAllocator() (*emit.CompiledModule, error) {
	module, err := s.backend.NewModule(synth.AllocatorShimName)
	if err != nil {
		return nil, fmt.Errorf("creating allocator module: %w", err)
	}

	created, err := synth.GenerateAllocatorShim(s.db, module)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}

	compiled, product, err := emit.Module(s.db, synth.AllocatorShimName, emit.KindAllocator, module, nil,
		s.store, workcache.ProductIDForName(synth.AllocatorShimName), s.cfg.DisableIncrementalCache, s.logger)
	if err != nil {
		return nil, err
	}
	if product != nil {
		s.session.Register(product)
	}
	return &compiled, nil
}
