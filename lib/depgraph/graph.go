// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"fmt"
	"sync"

	"github.com/kilnproject/kiln/lib/workcache"
)

// Node identifies one dependency-graph node. Kiln only creates
// compile-partition nodes; everything upstream of them belongs to the
// front end's own graph.
type Node string

// CompileNode returns the dependency node for a partition's codegen.
func CompileNode(partitionName string) Node {
	return Node("compile-partition/" + partitionName)
}

// Graph is the handle to the dependency-tracking service. It is
// threaded explicitly through the reuse engine and the orchestrator —
// never accessed ambiently — because marking is a one-time
// side-effecting operation per session.
type Graph interface {
	// IsFullyEnabled reports whether incremental tracking is active.
	// When false, every reuse decision is NotReusable.
	IsFullyEnabled() bool

	// PreviousWorkProduct looks up the previous session's work
	// product for a partition identity.
	PreviousWorkProduct(id workcache.WorkProductID) (*workcache.WorkProduct, bool)

	// NodeExists reports whether the node has already been registered
	// or marked in this session.
	NodeExists(node Node) bool

	// TryMarkGreen attempts to prove that nothing the node depends on
	// has changed since the previous session. On success the node is
	// registered as green and true is returned.
	TryMarkGreen(node Node) bool

	// RegisterNode records that the node's work is being executed
	// fresh in this session. Registering a node that already exists
	// is a programming error and panics.
	RegisterNode(node Node)
}

// MemoryGraph is an in-memory Graph. The green set and the
// previous-session product map are injected by whoever owns the real
// dependency data: tests configure them directly, the CLI seeds them
// from the cache store and the manifest's change hints.
type MemoryGraph struct {
	enabled bool

	mu       sync.Mutex
	green    map[Node]bool
	nodes    map[Node]bool
	previous map[workcache.WorkProductID]*workcache.WorkProduct
}

// NewMemoryGraph creates a graph. When enabled is false the graph
// behaves as if incremental tracking were globally disabled.
func NewMemoryGraph(enabled bool) *MemoryGraph {
	return &MemoryGraph{
		enabled:  enabled,
		green:    make(map[Node]bool),
		nodes:    make(map[Node]bool),
		previous: make(map[workcache.WorkProductID]*workcache.WorkProduct),
	}
}

// SetPreviousWorkProduct seeds a previous-session work product.
func (g *MemoryGraph) SetPreviousWorkProduct(product *workcache.WorkProduct) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.previous[product.ID] = product
}

// MarkGreenEligible declares that the node's transitive inputs are
// unchanged, so TryMarkGreen will succeed for it.
func (g *MemoryGraph) MarkGreenEligible(node Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.green[node] = true
}

// IsFullyEnabled implements Graph.
func (g *MemoryGraph) IsFullyEnabled() bool {
	return g.enabled
}

// PreviousWorkProduct implements Graph.
func (g *MemoryGraph) PreviousWorkProduct(id workcache.WorkProductID) (*workcache.WorkProduct, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	product, ok := g.previous[id]
	return product, ok
}

// NodeExists implements Graph.
func (g *MemoryGraph) NodeExists(node Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[node]
}

// TryMarkGreen implements Graph. Success registers the node.
func (g *MemoryGraph) TryMarkGreen(node Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.green[node] {
		return false
	}
	g.nodes[node] = true
	return true
}

// RegisterNode implements Graph. A disabled graph records nothing.
func (g *MemoryGraph) RegisterNode(node Node) {
	if !g.enabled {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nodes[node] {
		panic(fmt.Sprintf("depgraph: node %q already exists before registration", node))
	}
	g.nodes[node] = true
}
