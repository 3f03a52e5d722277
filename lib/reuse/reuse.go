// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

// Package reuse classifies each partition as reusable from the
// artifact cache or requiring fresh translation, by consulting the
// dependency-tracking service.
package reuse

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/depgraph"
	"github.com/kilnproject/kiln/lib/program"
	"github.com/kilnproject/kiln/lib/workcache"
)

// Decision is the per-partition reuse classification.
type Decision uint8

const (
	// NotReusable partitions go through translation and emission.
	NotReusable Decision = iota
	// ReusablePreFinal partitions are copied from the previous
	// session's cached artifact without invoking translation.
	ReusablePreFinal
	// ReusablePostFinal exists for link-time-optimized reuse, which
	// this backend never performs. It is never produced here, and
	// any consumer that observes it must fail loudly.
	ReusablePostFinal
)

// String returns a short name for the decision.
func (d Decision) String() string {
	switch d {
	case NotReusable:
		return "not_reusable"
	case ReusablePreFinal:
		return "reusable_pre_final"
	case ReusablePostFinal:
		return "reusable_post_final"
	default:
		return fmt.Sprintf("unknown(%d)", d)
	}
}

// Decide classifies one partition.
//
// If incremental tracking is disabled, the partition is never
// reusable. If the previous session recorded no work product for the
// partition's identity (first compile, or the partition did not exist
// before), it is not reusable. Otherwise the partition's dependency
// node is marked green: success proves nothing it transitively
// depends on has changed, so the cached artifact is valid.
//
// Marking is a one-time side effect per session. The partition's node
// must not already exist in the graph; calling Decide twice for the
// same partition is a programming error and panics.
func Decide(graph depgraph.Graph, partition *program.Partition) Decision {
	if !graph.IsFullyEnabled() {
		return NotReusable
	}

	if _, ok := graph.PreviousWorkProduct(workcache.ProductID(partition)); !ok {
		return NotReusable
	}

	node := depgraph.CompileNode(partition.Name())
	if graph.NodeExists(node) {
		panic(fmt.Sprintf("reuse: dependency node for partition %q already exists before marking", partition.Name()))
	}

	if graph.TryMarkGreen(node) {
		return ReusablePreFinal
	}
	return NotReusable
}
