// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/config"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

const sampleYAML = `
listen: 127.0.0.1:9000

providers:
  anthropic:
    variant: anthropic
    api_key: sk-ant-test
    models:
      - claude-sonnet-4-5
      - claude-haiku-4-5
  ollama:
    variant: openai
    endpoint: http://localhost:11434/v1
    models:
      - qwen3:14b
      - qwen2.5-coder:14b

roles:
  worker:
    - ollama/qwen3:14b
    - ollama/qwen2.5-coder:14b
    - anthropic/claude-haiku-4-5

default_role: worker

aliases:
  fast:
    target: ollama/qwen3:14b

policy:
  probe_timeout: 2s
  breaker_threshold: 5
  breaker_cooldown: 30s
  health_ttl: 120s
  max_retries: 4

alert:
  discord_webhook: https://discord.example/hook
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clawroute.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullDocument(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "worker", cfg.DefaultRole)
	assert.Equal(t, 2*time.Second, cfg.Policy.ProbeTimeout)
	assert.Equal(t, 5, cfg.Policy.BreakerThreshold)
	assert.Equal(t, "https://discord.example/hook", cfg.Alert.DiscordWebhook)
	assert.Equal(t, "sk-ant-test", cfg.Providers["anthropic"].APIKey)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Providers["ollama"].Endpoint)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8400", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.Policy.ProbeTimeout)
	assert.Equal(t, 3, cfg.Policy.BreakerThreshold)
	assert.Equal(t, time.Minute, cfg.Policy.BreakerCooldown)
	assert.Equal(t, 5*time.Minute, cfg.Policy.HealthTTL)
	assert.Equal(t, 3, cfg.Policy.MaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Equal(t, clawerr.CodeCatalogLoadReadFailure, clawerr.CodeOf(err))
}

func TestCatalogFromConfig(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	cat, err := cfg.Catalog()
	require.NoError(t, err)

	lookup, err := cat.ChainFor("worker")
	require.NoError(t, err)
	assert.Len(t, lookup.Chain, 3)
	assert.Equal(t, catalog.ProviderModel{Provider: "ollama", Model: "qwen3:14b"}, lookup.Chain[0])

	assert.Equal(t, "worker", cat.DefaultRole())
	assert.Equal(t, 4, cat.Policy().MaxRetries)
	assert.Equal(t, "https://discord.example/hook", cat.Policy().AlertWebhook)

	alias, err := cat.ChainFor("fast")
	require.NoError(t, err)
	assert.Equal(t, catalog.LookupAlias, alias.Kind)
}

func TestCatalogRejectsBadRef(t *testing.T) {
	yaml := `
providers:
  ollama:
    variant: openai
    models: [qwen3:14b]
roles:
  worker:
    - no-slash-here
policy:
  probe_timeout: 1s
  breaker_threshold: 1
  breaker_cooldown: 1s
  health_ttl: 1s
`
	cfg, err := config.Load(writeConfig(t, yaml), nil)
	require.NoError(t, err)

	_, err = cfg.Catalog()
	require.Error(t, err)
	assert.Equal(t, clawerr.CodeCatalogParseInvalidFormat, clawerr.CodeOf(err))
}

func TestCatalogRejectsModelOutsideProviderList(t *testing.T) {
	yaml := `
providers:
  anthropic:
    variant: anthropic
    models: [claude-haiku-4-5]
aliases:
  legacy:
    target: anthropic/claude-3-7-sonnet-latest
policy:
  probe_timeout: 1s
  breaker_threshold: 1
  breaker_cooldown: 1s
  health_ttl: 1s
`
	cfg, err := config.Load(writeConfig(t, yaml), nil)
	require.NoError(t, err)

	_, err = cfg.Catalog()
	require.Error(t, err)
	assert.Equal(t, clawerr.CodeCatalogValidateInvalidValue, clawerr.CodeOf(err))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CLAWROUTE_LISTEN", "0.0.0.0:9999")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Listen)
}

func TestDisabledProviderIsMarked(t *testing.T) {
	yaml := `
providers:
  ollama:
    variant: openai
    disabled: true
    models: [qwen3:14b]
policy:
  probe_timeout: 1s
  breaker_threshold: 1
  breaker_cooldown: 1s
  health_ttl: 1s
`
	cfg, err := config.Load(writeConfig(t, yaml), nil)
	require.NoError(t, err)

	cat, err := cfg.Catalog()
	require.NoError(t, err)

	spec, ok := cat.Provider("ollama")
	require.True(t, ok)
	assert.False(t, spec.Enabled)
}
