// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package workcache

import "sync"

// Session is the in-session work-product map. Both freshly produced
// and reused products are registered here; the orchestrator returns
// the final map alongside the artifact manifest.
type Session struct {
	mu       sync.Mutex
	products map[WorkProductID]*WorkProduct
}

// NewSession creates an empty session map.
func NewSession() *Session {
	return &Session{products: make(map[WorkProductID]*WorkProduct)}
}

// Register inserts or overwrites the session entry for the product's
// identity.
func (s *Session) Register(product *WorkProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

// Products returns a copy of the session map.
func (s *Session) Products() map[WorkProductID]*WorkProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make(map[WorkProductID]*WorkProduct, len(s.products))
	for id, product := range s.products {
		products[id] = product
	}
	return products
}
