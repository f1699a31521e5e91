// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawroute/internal/config"
	"github.com/openclaw/clawroute/internal/secrets"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clawroute daemon",
		Long:  "Load configuration, probe every configured provider, and serve the resolution API over HTTP until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wireApp(ctx, cfg, wireOptions{withServer: true, withEventLog: true})
	if err != nil {
		return err
	}
	defer app.closeQuietly()

	// Warm the health cache so early resolutions see real state.
	app.Prober.ProbeAll(ctx, app.Store.Current())

	// SIGHUP swaps in a freshly validated catalog; a rejected reload
	// keeps the running snapshot.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			next, err := config.Load(cfgPath, secrets.NewKeyring())
			if err != nil {
				slog.Error("config reload failed", "path", cfgPath, "error", err)
				continue
			}
			if err := app.Reload(ctx, next); err != nil {
				slog.Error("config reload rejected", "path", cfgPath, "error", err)
			}
		}
	}()

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "clawroute listening on %s (config: %s)\n", cfg.Listen, cfgPath); err != nil {
		return err
	}

	return app.Server.Start(ctx)
}
