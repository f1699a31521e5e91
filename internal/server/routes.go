// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/resolve"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
	"github.com/openclaw/clawroute/pkg/health"
)

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status        string   `json:"status" example:"ok" doc:"ok or degraded"`
	DegradedRoles []string `json:"degraded_roles,omitempty" doc:"Roles currently held by open-fall"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// ResolveInput asks for a decision for a role or alias.
type ResolveInput struct {
	Body struct {
		Name  string   `json:"name" doc:"Role or alias; empty uses the default role"`
		Tried []string `json:"tried,omitempty" doc:"provider/model refs already attempted"`
	}
}

// ResolveBody carries either a decision or an exhaustion report.
type ResolveBody struct {
	Decision *resolve.Decision         `json:"decision,omitempty"`
	Report   *resolve.ExhaustionReport `json:"report,omitempty"`
}

type ResolveResponse struct {
	Body ResolveBody
}

// InvokeInput runs the full resolve-invoke-retry loop.
type InvokeInput struct {
	Body struct {
		Name   string `json:"name" doc:"Role or alias; empty uses the default role"`
		Prompt string `json:"prompt" minLength:"1"`
	}
}

type InvokeBody struct {
	Target   string `json:"target"`
	Position int    `json:"position"`
	Fallback bool   `json:"fallback"`
	Attempts int    `json:"attempts"`
	Output   string `json:"output"`
}

type InvokeResponse struct {
	Body InvokeBody
}

// PreflightProvider is one provider's preflight verdict.
type PreflightProvider struct {
	Status        string   `json:"status"`
	Reason        string   `json:"reason,omitempty"`
	Breaker       string   `json:"breaker"`
	Models        []string `json:"models,omitempty" doc:"Models the endpoint reports serving"`
	MissingModels []string `json:"missing_models,omitempty" doc:"Configured models the endpoint does not serve"`
}

type PreflightBody struct {
	Status    string                       `json:"status" doc:"ok, degraded, or failed"`
	Providers map[string]PreflightProvider `json:"providers"`
}

type PreflightResponse struct {
	Body PreflightBody
}

type StatusBody struct {
	Providers     map[string]ProviderStatus `json:"providers"`
	Roles         []string                  `json:"roles"`
	Aliases       []string                  `json:"aliases"`
	DefaultRole   string                    `json:"default_role,omitempty"`
	DegradedRoles []string                  `json:"degraded_roles,omitempty"`
}

// ProviderStatus combines cached health with breaker state.
type ProviderStatus struct {
	Health    string    `json:"health"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
	Breaker   string    `json:"breaker"`
	Failures  int       `json:"consecutive_failures"`
}

type StatusResponse struct {
	Body StatusBody
}

type EventsInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"500"`
}

type EventRecord struct {
	ID         string                    `json:"id"`
	OccurredAt time.Time                 `json:"occurred_at"`
	Role       string                    `json:"role"`
	PID        int                       `json:"pid"`
	Report     *resolve.ExhaustionReport `json:"report"`
}

type EventsResponse struct {
	Body struct {
		Events []EventRecord `json:"events"`
	}
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolve",
		Method:      http.MethodPost,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve a role or alias to a provider/model target",
		Tags:        []string{"resolution"},
	}, s.handleResolve)

	huma.Register(s.api, huma.Operation{
		OperationID: "invoke",
		Method:      http.MethodPost,
		Path:        "/api/v1/invoke",
		Summary:     "Resolve and invoke with fallback retries",
		Tags:        []string{"resolution"},
	}, s.handleInvoke)

	huma.Register(s.api, huma.Operation{
		OperationID: "preflight",
		Method:      http.MethodPost,
		Path:        "/api/v1/preflight",
		Summary:     "Probe every configured provider and report readiness",
		Tags:        []string{"diagnostics"},
	}, s.handlePreflight)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Current health, breaker, and degradation state",
		Tags:        []string{"diagnostics"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "open-fall-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/events",
		Summary:     "Recent open-fall events",
		Tags:        []string{"diagnostics"},
	}, s.handleEvents)
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthResponse, error) {
	degraded := s.svc.Coordinator.DegradedRoles()
	status := "ok"
	if len(degraded) > 0 {
		status = "degraded"
	}
	return &HealthResponse{Body: HealthBody{Status: status, DegradedRoles: degraded}}, nil
}

func (s *Server) handleResolve(_ context.Context, in *ResolveInput) (*ResolveResponse, error) {
	tried := resolve.NewAttemptSet()
	for _, ref := range in.Body.Tried {
		pm, err := catalog.ParseRef(ref)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid tried ref "+ref, err)
		}
		tried.Add(pm)
	}

	decision, err := s.svc.Resolver.Resolve(in.Body.Name, tried)
	if err != nil {
		if report, ok := resolve.Exhaustion(err); ok {
			return &ResolveResponse{Body: ResolveBody{Report: report}}, nil
		}
		return nil, huma.NewError(clawerr.HTTPStatus(err), err.Error())
	}
	return &ResolveResponse{Body: ResolveBody{Decision: &decision}}, nil
}

func (s *Server) handleInvoke(ctx context.Context, in *InvokeInput) (*InvokeResponse, error) {
	if s.svc.Gate != nil && in.Body.Name != "" && !s.svc.Gate.Accepting(in.Body.Name) {
		return nil, huma.Error503ServiceUnavailable("role is held pending recovery")
	}

	outcome, err := s.svc.Runner.Run(ctx, in.Body.Name, in.Body.Prompt)
	if err != nil {
		return nil, huma.NewError(clawerr.HTTPStatus(err), err.Error())
	}
	return &InvokeResponse{Body: InvokeBody{
		Target:   outcome.Decision.Target.String(),
		Position: outcome.Decision.Position,
		Fallback: outcome.Decision.Fallback,
		Attempts: outcome.Attempts,
		Output:   outcome.Output,
	}}, nil
}

func (s *Server) handlePreflight(ctx context.Context, _ *struct{}) (*PreflightResponse, error) {
	cat := s.svc.Store.Current()
	results := s.svc.Prober.ProbeAll(ctx, cat)

	body := PreflightBody{Providers: make(map[string]PreflightProvider, len(results))}
	healthy, total := 0, 0
	for name, result := range results {
		total++
		entry := PreflightProvider{
			Status:  string(result.Status),
			Reason:  result.Reason,
			Breaker: string(s.svc.Breakers.State(name)),
			Models:  result.Models,
		}
		if spec, ok := cat.Provider(name); ok && result.Status == health.StatusHealthy && len(result.Models) > 0 {
			entry.MissingModels = missingModels(spec, result.Models)
		}
		if result.Status == health.StatusHealthy && len(entry.MissingModels) == 0 {
			healthy++
		}
		body.Providers[name] = entry
	}

	switch {
	case healthy == total:
		body.Status = "ok"
	case healthy > 0:
		body.Status = "degraded"
	default:
		body.Status = "failed"
	}
	return &PreflightResponse{Body: body}, nil
}

func missingModels(spec catalog.ProviderSpec, served []string) []string {
	have := make(map[string]struct{}, len(served))
	for _, m := range served {
		have[m] = struct{}{}
	}
	var missing []string
	for _, m := range spec.Models {
		if _, ok := have[m]; !ok {
			missing = append(missing, m)
		}
	}
	return missing
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*StatusResponse, error) {
	cat := s.svc.Store.Current()

	body := StatusBody{
		Providers:     make(map[string]ProviderStatus),
		Roles:         cat.Roles(),
		Aliases:       cat.Aliases(),
		DefaultRole:   cat.DefaultRole(),
		DegradedRoles: s.svc.Coordinator.DegradedRoles(),
	}

	for _, name := range cat.ChainProviders() {
		ps := ProviderStatus{Health: string(health.StatusUnknown)}
		if cached, ok := s.svc.Tracker.Get(name); ok {
			ps.Health = string(s.svc.Tracker.Status(name))
			ps.Reason = cached.Reason
			ps.CheckedAt = cached.CheckedAt
		}
		snap := s.svc.Breakers.Snapshot(name)
		ps.Breaker = string(snap.State)
		ps.Failures = snap.ConsecutiveFailures
		body.Providers[name] = ps
	}

	return &StatusResponse{Body: body}, nil
}

func (s *Server) handleEvents(ctx context.Context, in *EventsInput) (*EventsResponse, error) {
	resp := &EventsResponse{}
	resp.Body.Events = []EventRecord{}
	if s.svc.EventLog == nil {
		return resp, nil
	}

	events, err := s.svc.EventLog.Recent(ctx, in.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("reading event log", err)
	}
	for _, ev := range events {
		resp.Body.Events = append(resp.Body.Events, EventRecord{
			ID:         ev.ID,
			OccurredAt: ev.OccurredAt,
			Role:       ev.Role,
			PID:        ev.PID,
			Report:     ev.Report,
		})
	}
	return resp, nil
}
