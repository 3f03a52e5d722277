// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads program manifests: JSONC descriptions of a
// crate's partitions, items, lowered bodies, and dependencies. The
// manifest is the file-based stand-in for a live front-end connection;
// the loader turns one into a program.MemoryDatabase the pipeline can
// compile.
//
// The format is JSON extended with // line comments, /* block
// comments */, and trailing commas.
package manifest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/kilnproject/kiln/lib/program"
)

// Manifest is the on-disk program description.
type Manifest struct {
	Crate              string         `json:"crate"`
	CrateType          string         `json:"crate_type"`
	Target             string         `json:"target"`
	Entry              string         `json:"entry,omitempty"`
	NeedsAllocatorShim bool           `json:"needs_allocator_shim,omitempty"`
	Metadata           string         `json:"metadata,omitempty"`
	Dependencies       []Dependency   `json:"dependencies,omitempty"`
	Partitions         []PartitionDef `json:"partitions"`
}

// Dependency names one dependency crate and how it is linked.
type Dependency struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Linkage string `json:"linkage"`
}

// PartitionDef is one partition and its items, in the order the front
// end assigned.
type PartitionDef struct {
	Name  string    `json:"name"`
	Items []ItemDef `json:"items"`

	// Changed is the front end's hint that the partition's inputs
	// differ from the previous session, making its cached artifact
	// ineligible for reuse.
	Changed bool `json:"changed,omitempty"`
}

// ItemDef is one translatable item. Code, Init, and Asm are
// kind-specific; Code and Init are base64-encoded bytes.
type ItemDef struct {
	Kind        string             `json:"kind"`
	Symbol      string             `json:"symbol,omitempty"`
	Linkage     string             `json:"linkage,omitempty"`
	Visibility  string             `json:"visibility,omitempty"`
	Sig         *program.Signature `json:"sig,omitempty"`
	Code        string             `json:"code,omitempty"`
	Unsupported bool               `json:"unsupported,omitempty"`
	Writable    bool               `json:"writable,omitempty"`
	Init        string             `json:"init,omitempty"`
	Asm         string             `json:"asm,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var m Manifest
	if err := json.Unmarshal(stripped, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// ReadFile reads a JSONC manifest from disk and parses it.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Database builds a program database from the manifest. outputDir is
// where the session's temp artifacts go.
func (m *Manifest) Database(outputDir string) (*program.MemoryDatabase, error) {
	crateType, err := parseCrateType(m.CrateType)
	if err != nil {
		return nil, err
	}
	if m.Crate == "" {
		return nil, fmt.Errorf("manifest: crate name is required")
	}
	if m.Target == "" {
		return nil, fmt.Errorf("manifest: target is required")
	}

	metadata, err := decodeBytes(m.Metadata, "metadata")
	if err != nil {
		return nil, err
	}

	dependencies := make([]program.DependencyLibrary, 0, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		linkage, err := parseDependencyLinkage(dep.Linkage)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", dep.Name, err)
		}
		dependencies = append(dependencies, program.DependencyLibrary{
			Name:    dep.Name,
			Path:    dep.Path,
			Linkage: linkage,
		})
	}

	bodies := make(map[string][]byte)
	unsupported := make(map[string]bool)
	initializers := make(map[string][]byte)
	partitions := make([]*program.Partition, 0, len(m.Partitions))

	for _, pd := range m.Partitions {
		if pd.Name == "" {
			return nil, fmt.Errorf("manifest: partition without a name")
		}
		items := make([]program.Item, 0, len(pd.Items))
		for _, id := range pd.Items {
			item, err := id.item(bodies, unsupported, initializers)
			if err != nil {
				return nil, fmt.Errorf("partition %s: %w", pd.Name, err)
			}
			items = append(items, item)
		}
		partitions = append(partitions, program.NewPartition(pd.Name, items))
	}

	return program.NewMemoryDatabase(program.MemoryDatabaseConfig{
		CrateName:          m.Crate,
		CrateType:          crateType,
		Target:             m.Target,
		Entry:              m.Entry,
		NeedsAllocatorShim: m.NeedsAllocatorShim,
		Metadata:           metadata,
		Partitions:         partitions,
		Bodies:             bodies,
		Unsupported:        unsupported,
		Initializers:       initializers,
		Dependencies:       dependencies,
		OutputDir:          outputDir,
	}), nil
}

// item converts one ItemDef, filling the lowering maps as a side
// effect.
func (id ItemDef) item(bodies map[string][]byte, unsupported map[string]bool, initializers map[string][]byte) (program.Item, error) {
	linkage, err := parseLinkage(id.Linkage)
	if err != nil {
		return program.Item{}, err
	}
	visibility, err := parseVisibility(id.Visibility)
	if err != nil {
		return program.Item{}, err
	}

	switch id.Kind {
	case "function":
		if id.Symbol == "" {
			return program.Item{}, fmt.Errorf("function item without a symbol")
		}
		sig := program.Signature{}
		if id.Sig != nil {
			sig = *id.Sig
		}
		if id.Unsupported {
			unsupported[id.Symbol] = true
		} else if linkage != program.LinkageImport {
			code, err := decodeBytes(id.Code, id.Symbol)
			if err != nil {
				return program.Item{}, err
			}
			bodies[id.Symbol] = code
		}
		return program.Item{
			Kind:       program.ItemFunction,
			Instance:   &program.Instance{Symbol: id.Symbol, Sig: sig},
			Linkage:    linkage,
			Visibility: visibility,
		}, nil

	case "static":
		if id.Symbol == "" {
			return program.Item{}, fmt.Errorf("static item without a symbol")
		}
		if linkage != program.LinkageImport {
			init, err := decodeBytes(id.Init, id.Symbol)
			if err != nil {
				return program.Item{}, err
			}
			initializers[id.Symbol] = init
		}
		return program.Item{
			Kind:       program.ItemStatic,
			Static:     &program.StaticData{Symbol: id.Symbol, Writable: id.Writable},
			Linkage:    linkage,
			Visibility: visibility,
		}, nil

	case "global_asm":
		return program.Item{
			Kind:       program.ItemGlobalAssembly,
			Assembly:   id.Asm,
			Linkage:    linkage,
			Visibility: visibility,
		}, nil

	default:
		return program.Item{}, fmt.Errorf("unknown item kind %q", id.Kind)
	}
}

func decodeBytes(encoded, what string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding %s bytes: %w", what, err)
	}
	return data, nil
}

func parseCrateType(s string) (program.CrateType, error) {
	switch s {
	case "executable":
		return program.CrateExecutable, nil
	case "library":
		return program.CrateLibrary, nil
	default:
		return 0, fmt.Errorf("manifest: unknown crate type %q", s)
	}
}

func parseDependencyLinkage(s string) (program.DependencyLinkage, error) {
	switch s {
	case "not_linked":
		return program.DepNotLinked, nil
	case "static":
		return program.DepStatic, nil
	case "dynamic":
		return program.DepDynamic, nil
	case "included_from_dylib":
		return program.DepIncludedFromDylib, nil
	default:
		return 0, fmt.Errorf("unknown dependency linkage %q", s)
	}
}

func parseLinkage(s string) (program.Linkage, error) {
	switch s {
	case "", "external":
		return program.LinkageExternal, nil
	case "internal":
		return program.LinkageInternal, nil
	case "weak":
		return program.LinkageWeak, nil
	case "import":
		return program.LinkageImport, nil
	default:
		return 0, fmt.Errorf("unknown linkage %q", s)
	}
}

func parseVisibility(s string) (program.Visibility, error) {
	switch s {
	case "", "default":
		return program.VisibilityDefault, nil
	case "hidden":
		return program.VisibilityHidden, nil
	case "protected":
		return program.VisibilityProtected, nil
	default:
		return 0, fmt.Errorf("unknown visibility %q", s)
	}
}
