// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package openfall

import "sync"

// Compile-time interface check.
var _ Holder = (*Gate)(nil)

// Gate is an in-process work gate. While a role is held, callers that
// consult Accepting before taking on new work for the role back off.
type Gate struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewGate() *Gate {
	return &Gate{held: make(map[string]bool)}
}

func (g *Gate) Hold(role string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held[role] = true
}

func (g *Gate) Release(role string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, role)
}

// Accepting reports whether new work for role may be accepted.
func (g *Gate) Accepting(role string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.held[role]
}
