// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

//go:embed clawroute.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/clawroute/clawroute.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", clawerr.Errorf(clawerr.CodeCatalogLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clawroute", "clawroute.yaml"), nil
}

// DefaultStateDir returns ~/.local/state/clawroute, the home of the
// open-fall event log.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", clawerr.Errorf(clawerr.CodeCatalogLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "clawroute"), nil
}

// Bootstrap writes the default commented config to the default path if
// nothing exists there yet. Returns the path written, or empty string
// if the file already existed or writing failed (non-fatal, logged).
func Bootstrap() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
