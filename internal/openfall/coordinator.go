// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package openfall runs the degrade, log, notify, hold sequence when a
// role's entire fallback chain is exhausted. Each step is best-effort:
// a failure in one step never prevents the later steps.
package openfall

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/openclaw/clawroute/internal/alert"
	"github.com/openclaw/clawroute/internal/resolve"
)

// Holder is the work-queue side of the hold step. Hold pauses
// acceptance of new work for a role; Release resumes it.
type Holder interface {
	Hold(role string)
	Release(role string)
}

// Compile-time interface check.
var _ resolve.FallHandler = (*Coordinator)(nil)

// roleState carries one role's degraded flag under its own lock so
// unrelated roles never contend.
type roleState struct {
	mu       sync.Mutex
	degraded bool
}

// Coordinator owns the per-role degraded flags and drives the open-fall
// sequence. Recorder, Notifier, and Holder may each be nil; a nil
// collaborator skips its step.
type Coordinator struct {
	recorder Recorder
	notifier alert.Notifier
	holder   Holder

	mu    sync.Mutex
	roles map[string]*roleState
}

func NewCoordinator(recorder Recorder, notifier alert.Notifier, holder Holder) *Coordinator {
	return &Coordinator{
		recorder: recorder,
		notifier: notifier,
		holder:   holder,
		roles:    make(map[string]*roleState),
	}
}

func (c *Coordinator) state(role string) *roleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.roles[role]
	if !ok {
		rs = &roleState{}
		c.roles[role] = rs
	}
	return rs
}

// Exhausted runs the open-fall sequence for the exhausted role.
func (c *Coordinator) Exhausted(ctx context.Context, report *resolve.ExhaustionReport) {
	role := report.Name

	// Degrade.
	rs := c.state(role)
	rs.mu.Lock()
	already := rs.degraded
	rs.degraded = true
	rs.mu.Unlock()
	if !already {
		slog.Warn("role degraded", "role", role)
	}

	// Log.
	if c.recorder != nil {
		ev := Event{Role: role, Report: report, PID: os.Getpid()}
		if err := c.recorder.Append(ctx, ev); err != nil {
			slog.Error("open-fall log append failed", "role", role, "error", err)
		}
	}

	// Notify.
	if c.notifier != nil {
		details := map[string]string{
			"role":        role,
			"occurred_at": time.Now().UTC().Format(time.RFC3339),
			"pid":         fmt.Sprint(os.Getpid()),
		}
		for _, rej := range report.Rejected {
			details[rej.Candidate.String()] = string(rej.Reason)
		}
		err := c.notifier.Notify(ctx, alert.Event{
			Title:       "Open Fall Triggered",
			Description: fmt.Sprintf("every candidate for role %q was rejected", role),
			Details:     details,
		})
		if err != nil {
			slog.Error("open-fall alert failed", "role", role, "error", err)
		}
	}

	// Hold.
	if c.holder != nil {
		c.holder.Hold(role)
	}
}

// Recovered clears the degraded flag after a successful resolve.
func (c *Coordinator) Recovered(_ context.Context, role string) {
	rs := c.state(role)
	rs.mu.Lock()
	wasDegraded := rs.degraded
	rs.degraded = false
	rs.mu.Unlock()

	if wasDegraded {
		slog.Info("role recovered", "role", role)
		if c.holder != nil {
			c.holder.Release(role)
		}
	}
}

// Degraded reports whether role is currently degraded.
func (c *Coordinator) Degraded(role string) bool {
	c.mu.Lock()
	rs, ok := c.roles[role]
	c.mu.Unlock()
	if !ok {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.degraded
}

// DegradedRoles lists every currently degraded role.
func (c *Coordinator) DegradedRoles() []string {
	c.mu.Lock()
	states := make(map[string]*roleState, len(c.roles))
	for role, rs := range c.roles {
		states[role] = rs
	}
	c.mu.Unlock()

	var out []string
	for role, rs := range states {
		rs.mu.Lock()
		if rs.degraded {
			out = append(out, role)
		}
		rs.mu.Unlock()
	}
	return out
}
