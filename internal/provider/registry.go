// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package provider

import (
	"sync"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Registry holds the constructed provider variants by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry, replacing any previous
// entry of the same name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, clawerr.New(
			clawerr.CodeProviderNotFound,
			"provider not found: "+name,
			clawerr.FieldProvider(name),
		)
	}
	return p, nil
}

// Names returns every registered provider name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}
