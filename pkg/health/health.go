// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package health

import "time"

// Status is the observed availability of a provider.
type Status string

const (
	// StatusUnknown means no fresh probe result exists. Unknown providers
	// remain eligible for resolution; they are unverified, not unavailable.
	StatusUnknown Status = "unknown"
	StatusHealthy Status = "healthy"

	// StatusUnhealthy means the last probe within the freshness window
	// failed. Unhealthy providers are skipped during resolution.
	StatusUnhealthy Status = "unhealthy"
)

// Provider exposes the current health state of a provider for monitoring
// and operator visibility. All fields are point-in-time snapshots safe
// to serialize to JSON.
type Provider struct {
	Status    Status    `json:"status"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
	Reason    string    `json:"reason,omitempty"`
	Models    []string  `json:"models,omitempty"`
}

// Effective applies the freshness bound: a result older than ttl degrades
// to StatusUnknown rather than carrying a stale verdict forward.
func (p Provider) Effective(now time.Time, ttl time.Duration) Status {
	if p.Status == StatusUnknown {
		return StatusUnknown
	}
	if ttl > 0 && now.Sub(p.CheckedAt) > ttl {
		return StatusUnknown
	}
	return p.Status
}

// BreakerState names a circuit breaker state for reporting.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// Breaker is a point-in-time snapshot of one provider's circuit breaker.
type Breaker struct {
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	OpenedAt            *time.Time   `json:"opened_at,omitempty"`
}
