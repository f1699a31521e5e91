// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package catalog

import (
	"log/slog"
	"sync"
)

// Store publishes immutable Catalog snapshots. Readers get whichever
// snapshot was current when they called Current and complete their work
// against it; Reload swaps the pointer atomically so no reader ever
// observes a half-updated catalog.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
}

// NewStore creates a Store seeded with an initial snapshot.
func NewStore(initial *Catalog) *Store {
	return &Store{current: initial}
}

// Current returns the currently published snapshot.
func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap atomically publishes a new snapshot and returns the previous one.
func (s *Store) Swap(next *Catalog) *Catalog {
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()

	slog.Info("catalog snapshot swapped",
		"providers", len(next.providers),
		"roles", len(next.roles),
		"aliases", len(next.aliases),
	)
	return prev
}
