// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

//go:build !windows

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawroute/internal/config"
)

// WarnInsecurePermissions only logs; these exercise the stat paths so
// a refactor that starts returning errors gets caught.
func TestWarnInsecurePermissions(t *testing.T) {
	dir := t.TempDir()

	private := filepath.Join(dir, "private.yaml")
	require.NoError(t, os.WriteFile(private, []byte("listen: x"), 0o600))
	config.WarnInsecurePermissions(private)

	open := filepath.Join(dir, "open.yaml")
	require.NoError(t, os.WriteFile(open, []byte("listen: x"), 0o644))
	config.WarnInsecurePermissions(open)

	config.WarnInsecurePermissions(filepath.Join(dir, "missing.yaml"))
	config.WarnInsecurePermissions("")
}
