// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"errors"
	"fmt"

	"github.com/kilnproject/kiln/lib/metadata"
)

// Config is the codegen configuration, constructed once at startup
// and passed into every component. Nothing in the pipeline reads the
// process environment; what the flags said at startup is what the
// whole session sees.
type Config struct {
	// JIT switches to in-process execution instead of AOT emission.
	// Only valid for executable crates on non-wasm targets. The AOT
	// orchestrator rejects a Config with JIT set; dispatch happens in
	// the command.
	JIT bool

	// JITArgs is a space-separated string of synthetic argv entries
	// inserted before the crate-name argument in JIT mode.
	JITArgs string

	// DisableIncrementalCache forces every reuse decision to
	// not-reusable and skips all work-product registration and
	// persistence.
	DisableIncrementalCache bool

	// DisplayTimings wraps named sections of the run with start/end
	// timing log output.
	DisplayTimings bool

	// NeedMetadataModule requests the synthetic compressed-metadata
	// module.
	NeedMetadataModule bool

	// DebugInfo enables per-module debug contexts and merges their
	// output into the emitted objects.
	DebugInfo bool

	// CacheDir is the cross-session artifact cache directory.
	// Required unless DisableIncrementalCache is set.
	CacheDir string

	// MetadataCompression selects the metadata payload compression.
	// Zero value is CompressionNone; the command defaults it to zstd.
	MetadataCompression metadata.CompressionTag
}

// Validate checks the configuration for contradictions before any
// work starts.
func (c Config) Validate() error {
	var errs []error

	if !c.DisableIncrementalCache && c.CacheDir == "" {
		errs = append(errs, fmt.Errorf("cache directory is required unless the incremental cache is disabled"))
	}
	if c.JIT && c.NeedMetadataModule {
		errs = append(errs, fmt.Errorf("JIT mode produces no metadata module"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
