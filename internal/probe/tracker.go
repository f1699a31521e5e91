// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package probe

import (
	"sync"
	"time"

	"github.com/openclaw/clawroute/pkg/health"
)

// Tracker caches the latest probe result per provider. Entries are
// created as unknown, overwritten on every probe, and never deleted.
// Results older than the TTL degrade to unknown when read, so a stale
// verdict is treated as unverified rather than authoritative.
type Tracker struct {
	ttl     time.Duration
	nowFunc func() time.Time

	mu         sync.RWMutex
	byProvider map[string]health.Provider
}

// NewTracker creates a Tracker with the given freshness bound.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:        ttl,
		nowFunc:    time.Now,
		byProvider: make(map[string]health.Provider),
	}
}

// SetNowFunc overrides the time source (for testing).
func (t *Tracker) SetNowFunc(fn func() time.Time) {
	t.mu.Lock()
	t.nowFunc = fn
	t.mu.Unlock()
}

// Record stores a probe result for a provider.
func (t *Tracker) Record(providerName string, h health.Provider) {
	t.mu.Lock()
	t.byProvider[providerName] = h
	t.mu.Unlock()
}

// Status returns the provider's effective status with the TTL applied.
// Providers never probed report unknown.
func (t *Tracker) Status(providerName string) health.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.byProvider[providerName]
	if !ok {
		return health.StatusUnknown
	}
	return h.Effective(t.nowFunc(), t.ttl)
}

// Get returns the raw cached entry for a provider.
func (t *Tracker) Get(providerName string) (health.Provider, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.byProvider[providerName]
	return h, ok
}

// SnapshotAll returns a copy of every cached entry.
func (t *Tracker) SnapshotAll() map[string]health.Provider {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]health.Provider, len(t.byProvider))
	for name, h := range t.byProvider {
		out[name] = h
	}
	return out
}
