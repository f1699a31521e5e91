// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"

	"github.com/openclaw/clawroute/internal/provider"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullProvider struct{ name string }

func (n *nullProvider) Name() string { return n.name }

func (n *nullProvider) Probe(context.Context) ([]string, error) { return nil, nil }

func (n *nullProvider) Invoke(context.Context, string, string) (string, error) { return "", nil }

func TestRegistryGet(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("ollama", &nullProvider{name: "ollama"})

	p, err := reg.Get("ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := provider.NewRegistry()

	_, err := reg.Get("ghost")
	require.Error(t, err)
	assert.Equal(t, clawerr.CodeProviderNotFound, clawerr.CodeOf(err))
}

func TestRegistryRegisterReplaces(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("ollama", &nullProvider{name: "first"})
	reg.Register("ollama", &nullProvider{name: "second"})

	p, err := reg.Get("ollama")
	require.NoError(t, err)
	assert.Equal(t, "second", p.Name())

	names := reg.Names()
	sort.Strings(names)
	assert.Equal(t, []string{"ollama"}, names)
}

func TestClassifyHTTP(t *testing.T) {
	base := errors.New("upstream said no")

	tests := []struct {
		name   string
		status int
		err    error
		want   clawerr.Code
	}{
		{"nil error", 200, nil, ""},
		{"deadline", 0, context.DeadlineExceeded, clawerr.CodeProbeTimeout},
		{"unauthorized", http.StatusUnauthorized, base, clawerr.CodeProbeAuthFailure},
		{"forbidden", http.StatusForbidden, base, clawerr.CodeProbeAuthFailure},
		{"model missing", http.StatusNotFound, base, clawerr.CodeProviderModelUnknown},
		{"server error", http.StatusBadGateway, base, clawerr.CodeProbeUpstreamFailure},
		{"transport failure", 0, base, clawerr.CodeProbeUpstreamFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := provider.ClassifyHTTP("ollama", tt.status, tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.want, clawerr.CodeOf(got))
		})
	}
}
