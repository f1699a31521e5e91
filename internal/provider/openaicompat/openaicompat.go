// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package openaicompat serves any OpenAI-compatible chat endpoint: the
// hosted OpenAI API, or a local Ollama instance through its /v1 surface.
package openaicompat

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/openclaw/clawroute/internal/provider"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Config holds OpenAI-compatible provider configuration. APIKey may be
// empty for local endpoints (Ollama ignores it); BaseURL may be empty
// for the hosted OpenAI API.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
}

// Provider implements provider.Provider against an OpenAI-compatible
// API. The probe lists served models, which for Ollama reflects the
// models actually pulled on the machine.
type Provider struct {
	name   string
	client openaisdk.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new OpenAI-compatible provider. A hosted endpoint
// (no BaseURL) requires an API key; local endpoints do not.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, clawerr.New(clawerr.CodeProviderRequestInvalid,
			"openai: missing api_key for hosted endpoint", clawerr.FieldProvider(cfg.Name))
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &Provider{name: name, client: openaisdk.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Probe(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, provider.ClassifyHTTP(p.name, statusOf(err), err)
	}

	models := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

func (p *Provider) Invoke(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", provider.ClassifyHTTP(p.name, statusOf(err), err)
	}

	if len(resp.Choices) == 0 {
		return "", clawerr.New(clawerr.CodeProviderUpstreamFailure,
			"empty completion response", clawerr.FieldProvider(p.name), clawerr.FieldModel(model))
	}
	return resp.Choices[0].Message.Content, nil
}

// statusOf extracts the HTTP status from an SDK error chain, or 0 when
// no HTTP response was received.
func statusOf(err error) int {
	var apierr *openaisdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode
	}
	return 0
}
