// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package provider

import (
	"context"
	"errors"
	"net/http"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Provider is the uniform capability interface over the closed set of
// provider variants. Adding a provider means adding one variant
// implementation; nothing in the resolver changes.
type Provider interface {
	Name() string

	// Probe performs a minimal liveness/credential check. Where the
	// provider API reports its served models, Probe returns their IDs
	// so preflight can flag configured models the endpoint is missing.
	// The caller bounds the call with a context deadline.
	Probe(ctx context.Context) (models []string, err error)

	// Invoke sends a single prompt to the given model and returns the
	// text of the reply.
	Invoke(ctx context.Context, model, prompt string) (string, error)
}

// ClassifyHTTP maps an upstream HTTP status to the error taxonomy.
// Zero status means no HTTP response was received (transport failure).
func ClassifyHTTP(providerName string, status int, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return clawerr.Wrap(err, clawerr.CodeProbeTimeout, "request timed out",
			clawerr.FieldProvider(providerName))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return clawerr.Wrap(err, clawerr.CodeProbeAuthFailure, "credential rejected",
			clawerr.FieldProvider(providerName))
	case status == http.StatusNotFound:
		return clawerr.Wrap(err, clawerr.CodeProviderModelUnknown, "model not found",
			clawerr.FieldProvider(providerName))
	default:
		return clawerr.Wrap(err, clawerr.CodeProbeUpstreamFailure, "upstream failure",
			clawerr.FieldProvider(providerName))
	}
}
