// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"github.com/kilnproject/kiln/lib/contenthash"
)

// Partition is a named, deterministically ordered set of program
// items destined for one native module. The item order is fixed at
// construction by the program database and affects symbol declaration
// order, so it must be identical across runs with identical input.
type Partition struct {
	name  string
	items []Item
}

// NewPartition creates a partition. The caller (the program database)
// is responsible for supplying items in deterministic order.
func NewPartition(name string, items []Item) *Partition {
	return &Partition{name: name, items: items}
}

// Name returns the partition name.
func (p *Partition) Name() string {
	return p.name
}

// Fingerprint returns the partition-domain content hash of the
// partition name. Work-product identities derive from this, so a
// partition keeps its cache key across sessions as long as its name
// is stable.
func (p *Partition) Fingerprint() contenthash.Hash {
	return contenthash.HashPartition(p.name)
}

// ItemsInDeterministicOrder returns the partition's items in their
// fixed order. The returned slice is a copy; callers may not mutate
// partition state through it.
func (p *Partition) ItemsInDeterministicOrder() []Item {
	items := make([]Item, len(p.items))
	copy(items, p.items)
	return items
}
