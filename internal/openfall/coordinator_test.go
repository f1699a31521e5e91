// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package openfall_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openclaw/clawroute/internal/alert"
	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/openfall"
	"github.com/openclaw/clawroute/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu     sync.Mutex
	events []openfall.Event
	err    error
}

func (r *memRecorder) Append(_ context.Context, ev openfall.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []alert.Event
	err    error
}

func (n *memNotifier) Notify(_ context.Context, ev alert.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func workerReport() *resolve.ExhaustionReport {
	return &resolve.ExhaustionReport{
		Name: "worker",
		Kind: catalog.LookupRole,
		Rejected: []resolve.Rejection{
			{Candidate: catalog.ProviderModel{Provider: "ollama", Model: "qwen3:14b"}, Reason: resolve.SkipBreakerOpen},
			{Candidate: catalog.ProviderModel{Provider: "anthropic", Model: "claude-haiku-4-5"}, Reason: resolve.SkipUnhealthy},
		},
	}
}

func TestExhaustedRunsFullSequence(t *testing.T) {
	recorder := &memRecorder{}
	notifier := &memNotifier{}
	gate := openfall.NewGate()
	c := openfall.NewCoordinator(recorder, notifier, gate)

	c.Exhausted(context.Background(), workerReport())

	assert.True(t, c.Degraded("worker"))
	assert.False(t, gate.Accepting("worker"))

	require.Len(t, recorder.events, 1)
	ev := recorder.events[0]
	assert.Equal(t, "worker", ev.Role)
	assert.NotEmpty(t, ev.PID)
	require.NotNil(t, ev.Report)
	assert.Len(t, ev.Report.Rejected, 2)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "Open Fall Triggered", notifier.events[0].Title)
	assert.Equal(t, string(resolve.SkipBreakerOpen), notifier.events[0].Details["ollama/qwen3:14b"])
	assert.Equal(t, "worker", notifier.events[0].Details["role"])

	occurred, err := time.Parse(time.RFC3339, notifier.events[0].Details["occurred_at"])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), occurred, time.Minute)
}

func TestExhaustedStepFailureDoesNotStopLaterSteps(t *testing.T) {
	recorder := &memRecorder{err: errors.New("disk full")}
	notifier := &memNotifier{}
	gate := openfall.NewGate()
	c := openfall.NewCoordinator(recorder, notifier, gate)

	c.Exhausted(context.Background(), workerReport())

	assert.True(t, c.Degraded("worker"), "degrade happens despite log failure")
	assert.Len(t, notifier.events, 1, "notify happens despite log failure")
	assert.False(t, gate.Accepting("worker"), "hold happens despite log failure")
}

func TestExhaustedNilCollaborators(t *testing.T) {
	c := openfall.NewCoordinator(nil, nil, nil)
	c.Exhausted(context.Background(), workerReport())
	assert.True(t, c.Degraded("worker"))
}

func TestRecoveredClearsDegradedFlagAndReleasesGate(t *testing.T) {
	gate := openfall.NewGate()
	c := openfall.NewCoordinator(&memRecorder{}, &memNotifier{}, gate)

	c.Exhausted(context.Background(), workerReport())
	require.True(t, c.Degraded("worker"))

	c.Recovered(context.Background(), "worker")
	assert.False(t, c.Degraded("worker"))
	assert.True(t, gate.Accepting("worker"))
}

func TestRecoveredOnHealthyRoleIsNoop(t *testing.T) {
	c := openfall.NewCoordinator(nil, nil, nil)
	c.Recovered(context.Background(), "worker")
	assert.False(t, c.Degraded("worker"))
}

func TestDegradedRoles(t *testing.T) {
	c := openfall.NewCoordinator(nil, nil, nil)

	report := workerReport()
	c.Exhausted(context.Background(), report)

	other := workerReport()
	other.Name = "ace"
	c.Exhausted(context.Background(), other)

	roles := c.DegradedRoles()
	assert.ElementsMatch(t, []string{"worker", "ace"}, roles)

	c.Recovered(context.Background(), "ace")
	assert.ElementsMatch(t, []string{"worker"}, c.DegradedRoles())
}

func TestDegradedFlagsAreIndependentAcrossRoles(t *testing.T) {
	c := openfall.NewCoordinator(nil, nil, nil)

	var wg sync.WaitGroup
	for _, role := range []string{"worker", "ace", "scout"} {
		wg.Add(1)
		go func(role string) {
			defer wg.Done()
			report := workerReport()
			report.Name = role
			for i := 0; i < 50; i++ {
				c.Exhausted(context.Background(), report)
				c.Recovered(context.Background(), role)
			}
		}(role)
	}
	wg.Wait()

	assert.Empty(t, c.DegradedRoles())
}
