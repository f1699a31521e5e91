// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package probe performs lightweight liveness/credential checks against
// configured providers and caches the results for the resolver.
package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/provider"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
	"github.com/openclaw/clawroute/pkg/health"
)

// Prober runs provider probes bounded by a per-call timeout and records
// the outcomes in a Tracker.
type Prober struct {
	registry *provider.Registry
	tracker  *Tracker
	timeout  time.Duration
	nowFunc  func() time.Time
}

// NewProber creates a Prober. Probes time out after the given duration;
// a timed-out probe is recorded as unhealthy, not retried.
func NewProber(registry *provider.Registry, tracker *Tracker, timeout time.Duration) *Prober {
	return &Prober{
		registry: registry,
		tracker:  tracker,
		timeout:  timeout,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (p *Prober) SetNowFunc(fn func() time.Time) {
	p.nowFunc = fn
}

// Probe checks a single provider and records the result. A provider
// missing from the registry is recorded unhealthy with that reason.
func (p *Prober) Probe(ctx context.Context, providerName string) health.Provider {
	result := p.probe(ctx, providerName)
	p.tracker.Record(providerName, result)

	if result.Status == health.StatusHealthy {
		slog.Debug("probe succeeded", "provider", providerName, "models", len(result.Models))
	} else {
		slog.Warn("probe failed", "provider", providerName, "reason", result.Reason)
	}
	return result
}

func (p *Prober) probe(ctx context.Context, providerName string) health.Provider {
	checkedAt := p.nowFunc()

	prov, err := p.registry.Get(providerName)
	if err != nil {
		return health.Provider{
			Status:    health.StatusUnhealthy,
			CheckedAt: checkedAt,
			Reason:    string(clawerr.CodeOf(err)),
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	models, err := prov.Probe(probeCtx)
	if err != nil {
		reason := string(clawerr.CodeOf(err))
		if reason == "" {
			reason = string(clawerr.CodeProbeUpstreamFailure)
		}
		return health.Provider{
			Status:    health.StatusUnhealthy,
			CheckedAt: checkedAt,
			Reason:    reason,
		}
	}

	return health.Provider{
		Status:    health.StatusHealthy,
		CheckedAt: checkedAt,
		Models:    models,
	}
}

// ProbeAll probes every distinct provider referenced by any chain in
// the catalog, in parallel. Each probe is independently bounded by the
// timeout, so one slow provider never blocks the others.
func (p *Prober) ProbeAll(ctx context.Context, cat *catalog.Catalog) map[string]health.Provider {
	names := cat.ChainProviders()

	var (
		mu      sync.Mutex
		results = make(map[string]health.Provider, len(names))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			result := p.Probe(gctx, name)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	// Probes never return errors through the group; failures are health
	// results, not fan-out failures.
	_ = g.Wait()

	return results
}

// Tracker returns the prober's backing tracker.
func (p *Prober) Tracker() *Tracker {
	return p.tracker
}
