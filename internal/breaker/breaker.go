// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package breaker implements a per-provider circuit breaker. State
// transitions are evaluated lazily at query time from stored counters
// and timestamps, so behavior is deterministic under an injected clock
// and no background timers are needed.
package breaker

import (
	"log/slog"
	"sync"
	"time"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
	"github.com/openclaw/clawroute/pkg/health"
)

// Config controls when a provider's breaker opens and recovers.
type Config struct {
	// Threshold is the number of consecutive provider-attributed
	// failures that opens the breaker.
	Threshold int
	// Cooldown is how long an open breaker blocks before permitting a
	// half-open trial, and the width of each trial window after that.
	Cooldown time.Duration
}

// Registry tracks one breaker per provider. Each provider's state is
// guarded independently so one provider's transitions never block
// queries about another.
type Registry struct {
	cfg     Config
	nowFunc func() time.Time

	mu        sync.RWMutex
	providers map[string]*providerBreaker
}

type providerBreaker struct {
	mu          sync.Mutex
	failures    int
	open        bool
	openedAt    time.Time
	trialTaken  bool
	lastTrialAt time.Time
}

// NewRegistry creates a Registry. Returns an error if the threshold or
// cooldown is not positive.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Threshold <= 0 {
		return nil, clawerr.Errorf(clawerr.CodeBreakerInvalidConfig,
			"breaker threshold must be positive, got %d", cfg.Threshold)
	}
	if cfg.Cooldown <= 0 {
		return nil, clawerr.Errorf(clawerr.CodeBreakerInvalidConfig,
			"breaker cooldown must be positive, got %s", cfg.Cooldown)
	}
	return &Registry{
		cfg:       cfg,
		nowFunc:   time.Now,
		providers: make(map[string]*providerBreaker),
	}, nil
}

// SetNowFunc overrides the time source (for testing).
func (r *Registry) SetNowFunc(fn func() time.Time) {
	r.mu.Lock()
	r.nowFunc = fn
	r.mu.Unlock()
}

func (r *Registry) now() time.Time {
	r.mu.RLock()
	fn := r.nowFunc
	r.mu.RUnlock()
	return fn()
}

func (r *Registry) get(provider string) *providerBreaker {
	r.mu.RLock()
	b, ok := r.providers[provider]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.providers[provider]; ok {
		return b
	}
	b = &providerBreaker{}
	r.providers[provider] = b
	return b
}

// stateLocked derives the current state. The caller must hold b.mu.
func (b *providerBreaker) stateLocked(now time.Time, cooldown time.Duration) health.BreakerState {
	if !b.open {
		return health.BreakerClosed
	}
	if now.Sub(b.openedAt) >= cooldown {
		return health.BreakerHalfOpen
	}
	return health.BreakerOpen
}

// State returns the provider's current breaker state without consuming
// a half-open trial.
func (r *Registry) State(provider string) health.BreakerState {
	b := r.get(provider)
	now := r.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(now, r.cfg.Cooldown)
}

// Allow reports whether a candidate for this provider may proceed.
// Closed always allows; open never does. Half-open allows exactly one
// trial per cooldown window, and calling Allow consumes that trial.
func (r *Registry) Allow(provider string) bool {
	b := r.get(provider)
	now := r.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked(now, r.cfg.Cooldown) {
	case health.BreakerClosed:
		return true
	case health.BreakerOpen:
		return false
	default: // half-open
		if b.trialTaken && now.Sub(b.lastTrialAt) < r.cfg.Cooldown {
			return false
		}
		b.trialTaken = true
		b.lastTrialAt = now
		return true
	}
}

// ReportSuccess records a successful provider call. Any state returns
// to closed and the consecutive-failure counter resets to zero.
func (r *Registry) ReportSuccess(provider string) {
	b := r.get(provider)

	b.mu.Lock()
	wasOpen := b.open
	b.failures = 0
	b.open = false
	b.trialTaken = false
	b.mu.Unlock()

	if wasOpen {
		slog.Info("breaker closed after successful trial", "provider", provider)
	}
}

// ReportFailure records a provider-attributed failure. In the closed
// state it increments the consecutive-failure counter and opens the
// breaker at the threshold. During a half-open trial it re-opens the
// breaker and restarts the cooldown.
func (r *Registry) ReportFailure(provider string) {
	b := r.get(provider)
	now := r.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		// Failed half-open trial, or a straggler failure while open.
		b.openedAt = now
		b.trialTaken = false
		slog.Warn("breaker re-opened", "provider", provider)
		return
	}

	b.failures++
	if b.failures >= r.cfg.Threshold {
		b.open = true
		b.openedAt = now
		b.trialTaken = false
		slog.Warn("breaker opened",
			"provider", provider,
			"consecutive_failures", b.failures,
			"cooldown", r.cfg.Cooldown,
		)
	}
}

// Snapshot returns a point-in-time view of one provider's breaker.
func (r *Registry) Snapshot(provider string) health.Breaker {
	b := r.get(provider)
	now := r.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	snap := health.Breaker{
		State:               b.stateLocked(now, r.cfg.Cooldown),
		ConsecutiveFailures: b.failures,
	}
	if b.open {
		openedAt := b.openedAt
		snap.OpenedAt = &openedAt
	}
	return snap
}

// SnapshotAll returns breaker snapshots for every provider seen so far.
func (r *Registry) SnapshotAll() map[string]health.Breaker {
	r.mu.RLock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	out := make(map[string]health.Breaker, len(names))
	for _, name := range names {
		out[name] = r.Snapshot(name)
	}
	return out
}
