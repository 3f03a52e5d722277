// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads kiln-codegen configuration files.
//
// Configuration comes from exactly one YAML file named by the
// --config flag, overlaid by command-line flags. Nothing reads the
// process environment; what the file and flags said at startup is
// what the whole session sees.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilnproject/kiln/lib/driver"
	"github.com/kilnproject/kiln/lib/metadata"
)

// File is the on-disk configuration. Every field has a flag
// equivalent; flags win when both are set.
type File struct {
	// Manifest is the program manifest path.
	Manifest string `yaml:"manifest"`

	// OutputDir is where session artifacts are written.
	OutputDir string `yaml:"output_dir"`

	// CacheDir is the cross-session artifact cache directory.
	CacheDir string `yaml:"cache_dir"`

	// JIT switches to in-process execution.
	JIT bool `yaml:"jit"`

	// JITArgs is the space-separated extra argv string for JIT mode.
	JITArgs string `yaml:"jit_args"`

	// DisableIncrementalCache turns off work-product reuse and
	// persistence.
	DisableIncrementalCache bool `yaml:"disable_incremental_cache"`

	// DisplayTimings wraps named sections with timing log output.
	DisplayTimings bool `yaml:"display_timings"`

	// MetadataModule requests the synthetic compressed-metadata
	// module.
	MetadataModule bool `yaml:"metadata_module"`

	// DebugInfo enables debug-info collection and merging.
	DebugInfo bool `yaml:"debug_info"`

	// MetadataCompression is "none", "zstd", or "lz4". Defaults to
	// zstd.
	MetadataCompression string `yaml:"metadata_compression"`
}

// LoadFile loads a configuration file. A missing path returns an
// empty File so the caller can run on flags alone.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &file, nil
}

// DriverConfig converts the file into the pipeline's Config. The
// caller applies flag overrides to the File before calling this.
func (f *File) DriverConfig() (driver.Config, error) {
	compression := metadata.CompressionZstd
	if f.MetadataCompression != "" {
		var err error
		compression, err = metadata.ParseCompressionTag(f.MetadataCompression)
		if err != nil {
			return driver.Config{}, err
		}
	}

	return driver.Config{
		JIT:                     f.JIT,
		JITArgs:                 f.JITArgs,
		DisableIncrementalCache: f.DisableIncrementalCache,
		DisplayTimings:          f.DisplayTimings,
		NeedMetadataModule:      f.MetadataModule,
		DebugInfo:               f.DebugInfo,
		CacheDir:                f.CacheDir,
		MetadataCompression:     compression,
	}, nil
}
