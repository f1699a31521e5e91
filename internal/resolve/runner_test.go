// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package resolve_test

import (
	"context"
	"sync"
	"testing"

	"github.com/openclaw/clawroute/internal/provider"
	"github.com/openclaw/clawroute/internal/resolve"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
	"github.com/openclaw/clawroute/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned results per model, recording what
// was invoked.
type scriptedProvider struct {
	name    string
	results map[string]invokeResult
	mu      sync.Mutex
	invoked []string
}

type invokeResult struct {
	output string
	err    error
}

var _ provider.Provider = (*scriptedProvider)(nil)

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Probe(context.Context) ([]string, error) { return nil, nil }

func (p *scriptedProvider) Invoke(_ context.Context, model, _ string) (string, error) {
	p.mu.Lock()
	p.invoked = append(p.invoked, model)
	p.mu.Unlock()
	r := p.results[model]
	return r.output, r.err
}

// recordingFall records coordinator notifications.
type recordingFall struct {
	exhausted []*resolve.ExhaustionReport
	recovered []string
}

func (f *recordingFall) Exhausted(_ context.Context, report *resolve.ExhaustionReport) {
	f.exhausted = append(f.exhausted, report)
}

func (f *recordingFall) Recovered(_ context.Context, role string) {
	f.recovered = append(f.recovered, role)
}

type runnerFixture struct {
	*fixture
	providers *provider.Registry
	fall      *recordingFall
	ollama    *scriptedProvider
	anthropic *scriptedProvider
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	rf := &runnerFixture{
		fixture:   newFixture(t),
		providers: provider.NewRegistry(),
		fall:      &recordingFall{},
		ollama:    &scriptedProvider{name: "ollama", results: map[string]invokeResult{}},
		anthropic: &scriptedProvider{name: "anthropic", results: map[string]invokeResult{}},
	}
	rf.providers.Register("ollama", rf.ollama)
	rf.providers.Register("anthropic", rf.anthropic)
	return rf
}

func (rf *runnerFixture) runner(maxRetries int) *resolve.Runner {
	return resolve.NewRunner(rf.resolver, rf.providers, rf.breakers, rf.fall, maxRetries)
}

func TestRunFirstAttemptSucceeds(t *testing.T) {
	rf := newRunnerFixture(t)
	rf.ollama.results["qwen3:14b"] = invokeResult{output: "ok"}

	outcome, err := rf.runner(3).Run(context.Background(), "worker", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", outcome.Output)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, ollamaQwen3, outcome.Decision.Target)
	assert.Equal(t, []string{"worker"}, rf.fall.recovered)
}

func TestRunFallsBackAfterProviderFailure(t *testing.T) {
	rf := newRunnerFixture(t)
	rf.ollama.results["qwen3:14b"] = invokeResult{
		err: clawerr.New(clawerr.CodeProviderUpstreamFailure, "502"),
	}
	rf.ollama.results["qwen2.5-coder:14b"] = invokeResult{output: "fallback ok"}

	outcome, err := rf.runner(3).Run(context.Background(), "worker", "hello")
	require.NoError(t, err)
	assert.Equal(t, "fallback ok", outcome.Output)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, ollamaCoder, outcome.Decision.Target)

	// The success on the second attempt resets the failure counter.
	assert.Equal(t, 0, rf.breakers.Snapshot("ollama").ConsecutiveFailures)
}

func TestRunAttributableFailureFeedsBreaker(t *testing.T) {
	rf := newRunnerFixture(t)
	rf.ollama.results["qwen3:14b"] = invokeResult{
		err: clawerr.New(clawerr.CodeProviderUpstreamFailure, "502"),
	}
	rf.ollama.results["qwen2.5-coder:14b"] = invokeResult{
		err: clawerr.New(clawerr.CodeProbeTimeout, "timed out"),
	}
	rf.anthropic.results["claude-haiku-4-5"] = invokeResult{output: "rescued"}

	outcome, err := rf.runner(5).Run(context.Background(), "worker", "hello")
	require.NoError(t, err)
	assert.Equal(t, "rescued", outcome.Output)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 2, rf.breakers.Snapshot("ollama").ConsecutiveFailures)
}

func TestRunModelUnknownDoesNotFeedBreaker(t *testing.T) {
	rf := newRunnerFixture(t)
	rf.ollama.results["qwen3:14b"] = invokeResult{
		err: clawerr.New(clawerr.CodeProviderModelUnknown, "no such model"),
	}
	rf.ollama.results["qwen2.5-coder:14b"] = invokeResult{output: "ok"}

	_, err := rf.runner(3).Run(context.Background(), "worker", "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, rf.breakers.Snapshot("ollama").ConsecutiveFailures,
		"a missing model is a config defect, not provider unavailability")
}

func TestRunRoleExhaustionNotifiesFallHandler(t *testing.T) {
	rf := newRunnerFixture(t)
	for i := 0; i < 3; i++ {
		rf.breakers.ReportFailure("ollama")
		rf.breakers.ReportFailure("anthropic")
	}

	_, err := rf.runner(3).Run(context.Background(), "worker", "hello")
	require.Error(t, err)
	assert.True(t, clawerr.IsExhausted(err))
	require.Len(t, rf.fall.exhausted, 1)
	assert.Equal(t, "worker", rf.fall.exhausted[0].Name)
	assert.Empty(t, rf.fall.recovered)
}

func TestRunAliasExhaustionIsFatalAndSkipsFallHandler(t *testing.T) {
	rf := newRunnerFixture(t)
	for i := 0; i < 3; i++ {
		rf.breakers.ReportFailure("ollama")
	}

	_, err := rf.runner(3).Run(context.Background(), "fast", "hello")
	require.Error(t, err)
	assert.True(t, clawerr.HasCode(err, clawerr.CodeOpenFallAliasFatal))
	assert.Empty(t, rf.fall.exhausted, "alias exhaustion is a config failure, not degradation")
}

func TestRunRetryBound(t *testing.T) {
	rf := newRunnerFixture(t)
	boom := clawerr.New(clawerr.CodeProviderUpstreamFailure, "boom")
	rf.ollama.results["qwen3:14b"] = invokeResult{err: boom}
	rf.ollama.results["qwen2.5-coder:14b"] = invokeResult{err: boom}
	rf.anthropic.results["claude-haiku-4-5"] = invokeResult{output: "never reached"}

	_, err := rf.runner(2).Run(context.Background(), "worker", "hello")
	require.Error(t, err)
	assert.True(t, clawerr.HasCode(err, clawerr.CodeResolveRetriesExceeded))
	assert.Len(t, rf.anthropic.invoked, 0)
}

func TestRunOpensBreakerAfterThreshold(t *testing.T) {
	rf := newRunnerFixture(t)
	boom := clawerr.New(clawerr.CodeProviderUpstreamFailure, "boom")
	rf.ollama.results["qwen3:14b"] = invokeResult{err: boom}
	rf.ollama.results["qwen2.5-coder:14b"] = invokeResult{err: boom}
	rf.anthropic.results["claude-haiku-4-5"] = invokeResult{err: boom}

	_, err := rf.runner(10).Run(context.Background(), "worker", "hello")
	require.Error(t, err)

	// ollama takes two failures in this run; a later run pushes it over
	// the threshold and the chain exhausts through the open breaker.
	_, err = rf.runner(10).Run(context.Background(), "worker", "hello")
	require.Error(t, err)
	assert.Equal(t, health.BreakerOpen, rf.breakers.State("ollama"))
}
