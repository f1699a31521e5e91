// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
listen: 127.0.0.1:9400

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
  breaker_threshold: 3
  breaker_cooldown: 30s
  health_ttl: 120s
  max_retries: 3
`

// writeConfigFile writes content into a temp dir and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clawroute.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// writeTestConfig writes a complete config file into a temp dir and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	return writeConfigFile(t, testConfigYAML)
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestResolveCommandPrintsPrimary(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "resolve", "worker", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "ollama/qwen3:14b")
	assert.Contains(t, out, "primary")
}

func TestResolveCommandDefaultsRole(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "resolve", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "ollama/qwen3:14b")
}

func TestResolveCommandSkipsTried(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "resolve", "worker", "--config", cfg,
		"--tried", "ollama/qwen3:14b")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama/qwen2.5-coder:14b")
	assert.Contains(t, out, "fallback")
}

func TestResolveCommandExhaustionExitsTwo(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "resolve", "worker", "--config", cfg,
		"--tried", "ollama/qwen3:14b",
		"--tried", "ollama/qwen2.5-coder:14b",
		"--tried", "anthropic/claude-haiku-4-5")
	require.Error(t, err)

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.code)
	assert.Contains(t, out, "exhausted")
	assert.Contains(t, out, "already_tried")
}

func TestResolveCommandJSON(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "resolve", "fast", "--config", cfg, "--json")
	require.NoError(t, err)

	var body struct {
		Decision struct {
			Name   string `json:"name"`
			Kind   string `json:"kind"`
			Target struct {
				Provider string `json:"provider"`
				Model    string `json:"model"`
			} `json:"target"`
		} `json:"decision"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "fast", body.Decision.Name)
	assert.Equal(t, "alias", body.Decision.Kind)
	assert.Equal(t, "ollama", body.Decision.Target.Provider)
}

func TestResolveCommandUnknownName(t *testing.T) {
	cfg := writeTestConfig(t)

	_, err := runCommand(t, "resolve", "nonexistent", "--config", cfg)
	require.Error(t, err)

	var exit *exitError
	assert.False(t, errors.As(err, &exit), "unknown name is a hard failure, not a degradation")
}

func TestResolveCommandExplicitTarget(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCommand(t, "resolve", "--config", cfg,
		"--provider", "ollama", "--model", "qwen2.5-coder:14b")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama/qwen2.5-coder:14b")
}

func TestResolveCommandExplicitTargetNeedsBothFlags(t *testing.T) {
	cfg := writeTestConfig(t)

	_, err := runCommand(t, "resolve", "--config", cfg, "--provider", "ollama")
	require.Error(t, err)
}
