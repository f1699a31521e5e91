// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openclaw/clawroute/internal/alert"
	"github.com/openclaw/clawroute/internal/breaker"
	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/config"
	"github.com/openclaw/clawroute/internal/openfall"
	"github.com/openclaw/clawroute/internal/probe"
	"github.com/openclaw/clawroute/internal/provider"
	anthropicprov "github.com/openclaw/clawroute/internal/provider/anthropic"
	googleprov "github.com/openclaw/clawroute/internal/provider/google"
	openaiprov "github.com/openclaw/clawroute/internal/provider/openaicompat"
	"github.com/openclaw/clawroute/internal/resolve"
	"github.com/openclaw/clawroute/internal/server"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// App holds every wired subsystem and manages its lifecycle.
type App struct {
	Store       *catalog.Store
	Providers   *provider.Registry
	Breakers    *breaker.Registry
	Tracker     *probe.Tracker
	Prober      *probe.Prober
	Resolver    *resolve.Resolver
	Runner      *resolve.Runner
	Coordinator *openfall.Coordinator
	Gate        *openfall.Gate
	EventLog    *openfall.EventLog
	Server      *server.Server
}

// wireOptions toggles the optional subsystems. Short-lived commands
// skip the HTTP server and the durable event log.
type wireOptions struct {
	withServer   bool
	withEventLog bool
}

// wireApp validates the config into a catalog and constructs the
// resolution stack around it.
func wireApp(ctx context.Context, cfg *config.Config, opts wireOptions) (*App, error) {
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	policy := cat.Policy()

	breakers, err := breaker.NewRegistry(breaker.Config{
		Threshold: policy.BreakerThreshold,
		Cooldown:  policy.BreakerCooldown,
	})
	if err != nil {
		return nil, clawerr.Wrap(err, clawerr.CodeCLISetupFailure, "configuring circuit breaker")
	}

	app := &App{
		Store:    catalog.NewStore(cat),
		Breakers: breakers,
		Tracker:  probe.NewTracker(policy.HealthTTL),
		Gate:     openfall.NewGate(),
	}

	app.Providers = provider.NewRegistry()
	registerProviders(ctx, cat, app.Providers)

	app.Prober = probe.NewProber(app.Providers, app.Tracker, policy.ProbeTimeout)
	app.Resolver = resolve.New(app.Store, app.Breakers, app.Tracker)

	var notifier alert.Notifier
	if policy.AlertWebhook != "" {
		hook, err := alert.NewDiscordWebhook(policy.AlertWebhook, nil)
		if err != nil {
			return nil, clawerr.Wrap(err, clawerr.CodeCLISetupFailure, "configuring alert webhook")
		}
		notifier = hook
	}

	if opts.withEventLog {
		stateDir := cfg.StateDir
		if stateDir == "" {
			if stateDir, err = config.DefaultStateDir(); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(stateDir, 0o700); err != nil {
			return nil, clawerr.Wrap(err, clawerr.CodeCLISetupFailure, "creating state directory")
		}
		app.EventLog, err = openfall.NewEventLog(filepath.Join(stateDir, "openfall.db"))
		if err != nil {
			return nil, clawerr.Wrap(err, clawerr.CodeCLISetupFailure, "opening event log")
		}
	}

	// EventLog may be nil; the coordinator treats a nil Recorder as a
	// skipped step, but an interface holding a nil pointer would not be
	// nil, so only pass it when present.
	var recorder openfall.Recorder
	if app.EventLog != nil {
		recorder = app.EventLog
	}
	app.Coordinator = openfall.NewCoordinator(recorder, notifier, app.Gate)
	app.Runner = resolve.NewRunner(app.Resolver, app.Providers, app.Breakers, app.Coordinator, policy.MaxRetries)

	if opts.withServer {
		app.Server, err = server.New(server.Config{ListenAddr: cfg.Listen}, &server.Services{
			Store:       app.Store,
			Resolver:    app.Resolver,
			Runner:      app.Runner,
			Prober:      app.Prober,
			Breakers:    app.Breakers,
			Tracker:     app.Tracker,
			Coordinator: app.Coordinator,
			Gate:        app.Gate,
			EventLog:    app.EventLog,
		})
		if err != nil {
			app.closeQuietly()
			return nil, clawerr.Wrap(err, clawerr.CodeServerStartFailure, "creating server")
		}
	}

	return app, nil
}

// Reload validates cfg into a new catalog and atomically swaps it in.
// In-flight resolutions finish against the snapshot they started with.
// On validation failure the running snapshot is kept and the error is
// returned. Adapters for providers added or changed by the new config
// are (re)registered; removed providers simply stop being referenced
// by any chain.
func (a *App) Reload(ctx context.Context, cfg *config.Config) error {
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	registerProviders(ctx, cat, a.Providers)
	a.Store.Swap(cat)
	slog.Info("catalog reloaded",
		"providers", len(cat.Providers()),
		"roles", len(cat.Roles()),
		"aliases", len(cat.Aliases()))
	return nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) closeQuietly() {
	if err := a.Close(); err != nil {
		slog.Debug("cleanup error", "error", err)
	}
}

// variantFactory builds a provider.Provider for one catalog variant.
type variantFactory func(ctx context.Context, spec catalog.ProviderSpec) (provider.Provider, error)

// variantFactories maps catalog variants to their constructors.
// Declared as a variable so tests can inject failing factories.
var variantFactories = map[catalog.Variant]variantFactory{
	catalog.VariantAnthropic: func(_ context.Context, spec catalog.ProviderSpec) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{Name: spec.Name, APIKey: spec.APIKey, BaseURL: spec.Endpoint})
	},
	catalog.VariantOpenAI: func(_ context.Context, spec catalog.ProviderSpec) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{Name: spec.Name, APIKey: spec.APIKey, BaseURL: spec.Endpoint})
	},
	catalog.VariantGoogle: func(ctx context.Context, spec catalog.ProviderSpec) (provider.Provider, error) {
		return googleprov.New(ctx, googleprov.Config{Name: spec.Name, APIKey: spec.APIKey})
	},
}

// registerProviders constructs an adapter per enabled provider.
// Construction failures are logged and skipped; the resolver then
// simply never finds the provider and preflight flags it.
func registerProviders(ctx context.Context, cat *catalog.Catalog, reg *provider.Registry) {
	for _, spec := range cat.Providers() {
		if !spec.Enabled {
			slog.Info("provider disabled in config", "provider", spec.Name)
			continue
		}
		factory, ok := variantFactories[spec.Variant]
		if !ok {
			slog.Warn("no adapter for provider variant", "provider", spec.Name, "variant", spec.Variant)
			continue
		}
		p, err := factory(ctx, spec)
		if err != nil {
			slog.Warn("failed to construct provider", "provider", spec.Name, "error", err)
			continue
		}
		reg.Register(spec.Name, p)
		slog.Debug("registered provider", "provider", spec.Name, "variant", string(spec.Variant))
	}
}
