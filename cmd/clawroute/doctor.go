// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check binary health, configuration, provider credentials, daemon reachability, and disk space.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "127.0.0.1:8400", "daemon address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Daemon", func() string { return checkDaemon(addr) }},
		{"Config", func() string { return checkConfig(cmd) }},
		{"Disk Space", checkDiskSpace},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-14s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("clawroute %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkDaemon(addr string) string {
	gw := newGatewayClient(addr)
	var body struct {
		Status        string   `json:"status"`
		DegradedRoles []string `json:"degraded_roles"`
	}
	if err := gw.getJSON("/health", &body); err != nil {
		if clawerr.HasCode(err, clawerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'clawroute serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	if len(body.DegradedRoles) > 0 {
		return fmt.Sprintf("%s at %s (degraded roles: %s)", body.Status, addr, strings.Join(body.DegradedRoles, ", "))
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkConfig(cmd *cobra.Command) string {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	if _, err := cfg.Catalog(); err != nil {
		return fmt.Sprintf("invalid: %s", err)
	}
	if path == "" {
		return "using defaults (no config file found)"
	}

	missingKeys := 0
	for _, p := range cfg.Providers {
		if strings.HasPrefix(p.APIKey, "keyring://") {
			missingKeys++
		}
	}
	if missingKeys > 0 {
		return fmt.Sprintf("valid (%s), %d credential(s) unresolved", path, missingKeys)
	}
	return fmt.Sprintf("valid (%s)", path)
}

func checkDiskSpace() string {
	path, err := os.UserHomeDir()
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
