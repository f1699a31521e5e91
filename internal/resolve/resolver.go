// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package resolve turns a role or alias name into a concrete
// (provider, model) target by walking the name's fallback chain and
// skipping candidates that are already tried, breaker-open, or
// unhealthy. Resolution is a pure decision over known catalog, health,
// and breaker state; it performs no network calls. The Runner in this
// package owns the side effects: invoking the chosen provider,
// reporting the outcome to the circuit breaker, and retrying with an
// updated attempt set.
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openclaw/clawroute/internal/breaker"
	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/probe"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
	"github.com/openclaw/clawroute/pkg/health"
)

// SkipReason explains why a chain candidate was passed over.
type SkipReason string

const (
	SkipAlreadyTried SkipReason = "already_tried"
	SkipBreakerOpen  SkipReason = "breaker_open"
	SkipUnhealthy    SkipReason = "unhealthy"
)

// Rejection records one skipped candidate and why.
type Rejection struct {
	Candidate catalog.ProviderModel `json:"candidate"`
	Reason    SkipReason            `json:"reason"`
}

// ExhaustionReport is returned when every candidate in a chain was
// rejected. It is an error so callers can branch on it explicitly
// rather than treating exhaustion as an unexpected failure.
type ExhaustionReport struct {
	Name     string             `json:"name"`
	Kind     catalog.LookupKind `json:"kind"`
	Rejected []Rejection        `json:"rejected"`
}

func (r *ExhaustionReport) Error() string {
	parts := make([]string, 0, len(r.Rejected))
	for _, rej := range r.Rejected {
		parts = append(parts, fmt.Sprintf("%s (%s)", rej.Candidate, rej.Reason))
	}
	return fmt.Sprintf("%s %q exhausted: %s", r.Kind, r.Name, strings.Join(parts, ", "))
}

// Exhaustion unwraps err into an ExhaustionReport if it carries one.
func Exhaustion(err error) (*ExhaustionReport, bool) {
	var report *ExhaustionReport
	if errors.As(err, &report) {
		return report, true
	}
	return nil, false
}

// AttemptSet tracks the (provider, model) pairs already tried within
// one logical request. The Runner grows it across retries so a failed
// candidate is never reselected for the same request.
type AttemptSet map[catalog.ProviderModel]struct{}

// NewAttemptSet builds an AttemptSet from the given targets.
func NewAttemptSet(targets ...catalog.ProviderModel) AttemptSet {
	s := make(AttemptSet, len(targets))
	for _, t := range targets {
		s.Add(t)
	}
	return s
}

func (s AttemptSet) Add(t catalog.ProviderModel) { s[t] = struct{}{} }

func (s AttemptSet) Has(t catalog.ProviderModel) bool {
	_, ok := s[t]
	return ok
}

// Targets returns the set members in unspecified order.
func (s AttemptSet) Targets() []catalog.ProviderModel {
	out := make([]catalog.ProviderModel, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// Decision is a successful resolution: the chosen target, its position
// in the chain, and whether it is the chain's primary or a fallback.
type Decision struct {
	Name     string                `json:"name"`
	Kind     catalog.LookupKind    `json:"kind"`
	Target   catalog.ProviderModel `json:"target"`
	Position int                   `json:"position"`
	Fallback bool                  `json:"fallback"`
}

// Resolver walks fallback chains against current breaker and health
// state. It never mutates either; outcome reporting is the caller's
// job (see Runner).
type Resolver struct {
	store    *catalog.Store
	breakers *breaker.Registry
	tracker  *probe.Tracker
}

func New(store *catalog.Store, breakers *breaker.Registry, tracker *probe.Tracker) *Resolver {
	return &Resolver{store: store, breakers: breakers, tracker: tracker}
}

// Resolve returns the first viable candidate in the chain for name, in
// chain order. An empty name resolves the catalog's default role. If
// every candidate is rejected the returned error is an
// *ExhaustionReport listing each candidate with its skip reason.
func (r *Resolver) Resolve(name string, tried AttemptSet) (Decision, error) {
	cat := r.store.Current()

	if name == "" {
		name = cat.DefaultRole()
		if name == "" {
			return Decision{}, clawerr.New(clawerr.CodeResolveInvalidRequest,
				"no name given and no default role configured")
		}
	}

	lookup, err := cat.ChainFor(name)
	if err != nil {
		return Decision{}, err
	}

	return r.walk(lookup.Name, lookup.Kind, lookup.Chain, tried)
}

// ResolveTarget resolves an explicit provider/model pair. The pair
// must be declared in the catalog; the default role's chain sits
// behind it so a pinned target still degrades gracefully when it is
// unavailable.
func (r *Resolver) ResolveTarget(target catalog.ProviderModel, tried AttemptSet) (Decision, error) {
	cat := r.store.Current()

	if !cat.HasTarget(target) {
		return Decision{}, clawerr.New(clawerr.CodeCatalogLookupUnknownName,
			"target not declared in catalog",
			clawerr.FieldProvider(target.Provider), clawerr.FieldModel(target.Model))
	}

	chain := catalog.Chain{target}
	if role := cat.DefaultRole(); role != "" {
		if lookup, err := cat.ChainFor(role); err == nil {
			for _, c := range lookup.Chain {
				if c != target {
					chain = append(chain, c)
				}
			}
		}
	}

	return r.walk(target.String(), catalog.LookupTarget, chain, tried)
}

// walk applies the skip rules to each candidate in chain order and
// returns the first survivor.
func (r *Resolver) walk(name string, kind catalog.LookupKind, chain catalog.Chain, tried AttemptSet) (Decision, error) {
	rejected := make([]Rejection, 0, len(chain))
	for i, candidate := range chain {
		if tried.Has(candidate) {
			rejected = append(rejected, Rejection{Candidate: candidate, Reason: SkipAlreadyTried})
			continue
		}
		if r.breakers.State(candidate.Provider) == health.BreakerOpen {
			rejected = append(rejected, Rejection{Candidate: candidate, Reason: SkipBreakerOpen})
			continue
		}
		if r.tracker.Status(candidate.Provider) == health.StatusUnhealthy {
			rejected = append(rejected, Rejection{Candidate: candidate, Reason: SkipUnhealthy})
			continue
		}

		d := Decision{
			Name:     name,
			Kind:     kind,
			Target:   candidate,
			Position: i,
			Fallback: i > 0,
		}
		slog.Info("resolved",
			"name", d.Name,
			"kind", string(d.Kind),
			"target", d.Target.String(),
			"position", d.Position,
			"fallback", d.Fallback)
		return d, nil
	}

	report := &ExhaustionReport{Name: name, Kind: kind, Rejected: rejected}
	slog.Warn("chain exhausted", "name", report.Name, "kind", string(report.Kind), "rejected", len(rejected))
	return Decision{}, report
}
