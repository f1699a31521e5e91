// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawroute/internal/config"
	"github.com/openclaw/clawroute/internal/secrets"
)

// NewRootCmd creates the root clawroute command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clawroute",
		Short:         "clawroute resolves roles and aliases to provider/model targets with fallback",
		Long:          "Clawroute resolves logical roles and aliases to concrete (provider, model) targets,\nwalking fallback chains and skipping unhealthy or circuit-broken providers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newInvokeCmd(),
		newPreflightCmd(),
		newStatusCmd(),
		newSecretCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig resolves the config path (flag, then standard locations,
// bootstrapping a default when nothing exists) and loads it with
// keyring resolution.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = discoverConfigPath()
	}
	if path == "" {
		path = config.Bootstrap()
	}

	config.WarnInsecurePermissions(path)

	cfg, err := config.Load(path, secrets.NewKeyring())
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func discoverConfigPath() string {
	candidates := []string{"clawroute.yaml"}
	if home, err := config.DefaultConfigPath(); err == nil {
		candidates = append(candidates, home)
	}
	candidates = append(candidates, filepath.Join("/etc", "clawroute", "clawroute.yaml"))

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
