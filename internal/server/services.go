// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package server

import (
	"github.com/openclaw/clawroute/internal/breaker"
	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/openfall"
	"github.com/openclaw/clawroute/internal/probe"
	"github.com/openclaw/clawroute/internal/resolve"
)

// Services carries the collaborators the route handlers need. EventLog
// and Gate may be nil; the corresponding routes then report empty data.
type Services struct {
	Store       *catalog.Store
	Resolver    *resolve.Resolver
	Runner      *resolve.Runner
	Prober      *probe.Prober
	Breakers    *breaker.Registry
	Tracker     *probe.Tracker
	Coordinator *openfall.Coordinator
	Gate        *openfall.Gate
	EventLog    *openfall.EventLog
}
