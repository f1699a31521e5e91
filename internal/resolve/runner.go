// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package resolve

import (
	"context"
	"log/slog"

	"github.com/openclaw/clawroute/internal/breaker"
	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/provider"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// FallHandler receives chain-exhaustion and recovery notifications.
// The open-fall coordinator implements it; a nil handler disables
// notification without changing resolution behavior.
type FallHandler interface {
	// Exhausted is called when a role's chain is exhausted. It must not
	// return an error; every step inside it is best-effort.
	Exhausted(ctx context.Context, report *ExhaustionReport)
	// Recovered is called when a resolve for the role succeeds again.
	Recovered(ctx context.Context, role string)
}

// Outcome is the result of a successful Run: the decision that was
// invoked, the provider's output, and how many attempts it took.
type Outcome struct {
	Decision Decision
	Output   string
	Attempts int
}

// Runner drives the resolve-invoke-report loop. Resolution itself is
// pure; the Runner owns the side effects around it and bounds the
// number of attempts across the whole chain.
type Runner struct {
	resolver   *Resolver
	providers  *provider.Registry
	breakers   *breaker.Registry
	fall       FallHandler
	maxRetries int
}

func NewRunner(resolver *Resolver, providers *provider.Registry, breakers *breaker.Registry, fall FallHandler, maxRetries int) *Runner {
	return &Runner{
		resolver:   resolver,
		providers:  providers,
		breakers:   breakers,
		fall:       fall,
		maxRetries: maxRetries,
	}
}

// Run resolves name and invokes the chosen target with prompt,
// retrying down the chain on provider failure until success, chain
// exhaustion, or the retry bound. Provider-attributable failures are
// reported to the circuit breaker; config-level failures (for example
// a model the upstream does not serve) are not.
func (r *Runner) Run(ctx context.Context, name, prompt string) (Outcome, error) {
	tried := NewAttemptSet()

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		decision, err := r.resolver.Resolve(name, tried)
		if err != nil {
			if report, ok := Exhaustion(err); ok {
				// Alias exhaustion means the configured binding is
				// unusable, a config defect rather than transient
				// unavailability. It fails loudly and never degrades.
				if report.Kind == catalog.LookupAlias {
					return Outcome{}, clawerr.Wrap(report, clawerr.CodeOpenFallAliasFatal,
						"alias binding unusable", clawerr.FieldAlias(report.Name))
				}
				r.exhausted(ctx, report)
				return Outcome{}, clawerr.Wrap(report, clawerr.CodeResolveChainExhausted,
					"every candidate rejected", clawerr.FieldRole(report.Name))
			}
			return Outcome{}, err
		}

		target := decision.Target

		// A half-open breaker admits one trial per cooldown window.
		// If this candidate's provider has already spent it, skip the
		// candidate without treating that as a failure.
		if !r.breakers.Allow(target.Provider) {
			tried.Add(target)
			continue
		}

		prov, err := r.providers.Get(target.Provider)
		if err != nil {
			tried.Add(target)
			slog.Warn("resolved provider not registered", "provider", target.Provider)
			continue
		}

		output, err := prov.Invoke(ctx, target.Model, prompt)
		if err == nil {
			r.breakers.ReportSuccess(target.Provider)
			r.recovered(ctx, decision)
			return Outcome{Decision: decision, Output: output, Attempts: attempt}, nil
		}

		if clawerr.IsProviderAttributable(err) {
			r.breakers.ReportFailure(target.Provider)
		}
		tried.Add(target)
		slog.Warn("invocation failed",
			"target", target.String(),
			"attempt", attempt,
			"error", err)
	}

	return Outcome{}, clawerr.New(clawerr.CodeResolveRetriesExceeded,
		"retry bound reached without a successful invocation",
		clawerr.Field("name", name),
		clawerr.Field("max_retries", r.maxRetries))
}

func (r *Runner) exhausted(ctx context.Context, report *ExhaustionReport) {
	if r.fall == nil {
		return
	}
	r.fall.Exhausted(ctx, report)
}

func (r *Runner) recovered(ctx context.Context, decision Decision) {
	if r.fall == nil || decision.Kind != catalog.LookupRole {
		return
	}
	r.fall.Recovered(ctx, decision.Name)
}
