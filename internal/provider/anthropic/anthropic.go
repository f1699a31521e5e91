// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/openclaw/clawroute/internal/provider"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Config holds Anthropic provider configuration.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.Provider using the Anthropic Messages API.
// The probe is an authenticated models-list call, which verifies both
// reachability and credential validity in one round trip.
type Provider struct {
	name   string
	client anthropicsdk.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Anthropic provider. Returns an error if the API key
// is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, clawerr.New(clawerr.CodeProviderRequestInvalid,
			"anthropic: missing api_key", clawerr.FieldProvider(cfg.Name))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}

	return &Provider{name: name, client: anthropicsdk.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Probe(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, anthropicsdk.ModelListParams{})
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
	msg, err := p.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: 1024,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", provider.ClassifyHTTP(p.name, statusOf(err), err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// statusOf extracts the HTTP status from an SDK error chain, or 0 when
// no HTTP response was received.
func statusOf(err error) int {
	var apierr *anthropicsdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode
	}
	return 0
}
