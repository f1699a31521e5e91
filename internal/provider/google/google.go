// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package google

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/openclaw/clawroute/internal/provider"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Config holds Google provider configuration.
type Config struct {
	Name   string
	APIKey string
}

// Provider implements provider.Provider using the Google Gemini API.
type Provider struct {
	name   string
	client *genai.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Google provider. Returns an error if the API key is
// missing.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, clawerr.New(clawerr.CodeProviderRequestInvalid,
			"google: missing api_key", clawerr.FieldProvider(cfg.Name))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, clawerr.Wrapf(err, clawerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	name := cfg.Name
	if name == "" {
		name = "google"
	}

	return &Provider{name: name, client: client}, nil
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Probe(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, &genai.ListModelsConfig{})
	if err != nil {
		return nil, provider.ClassifyHTTP(p.name, statusOf(err), err)
	}

	models := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		// The API reports fully-qualified names like "models/gemini-2.5-flash".
		models = append(models, strings.TrimPrefix(m.Name, "models/"))
	}
	return models, nil
}

func (p *Provider) Invoke(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", provider.ClassifyHTTP(p.name, statusOf(err), err)
	}
	return resp.Text(), nil
}

// statusOf extracts the HTTP status from a genai error chain, or 0 when
// no HTTP response was received.
func statusOf(err error) int {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return apierr.Code
	}
	return 0
}
