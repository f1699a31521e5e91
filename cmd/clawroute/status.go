// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long:  "Query the running daemon's status endpoint and display provider health, breaker state, and degraded roles.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8400", "daemon address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	gw := newGatewayClient(addr)
	var body struct {
		Providers map[string]struct {
			Health    string    `json:"health"`
			Reason    string    `json:"reason"`
			CheckedAt time.Time `json:"checked_at"`
			Breaker   string    `json:"breaker"`
			Failures  int       `json:"consecutive_failures"`
		} `json:"providers"`
		Roles         []string `json:"roles"`
		Aliases       []string `json:"aliases"`
		DefaultRole   string   `json:"default_role"`
		DegradedRoles []string `json:"degraded_roles"`
	}
	if err := gw.getJSON("/api/v1/status", &body); err != nil {
		if clawerr.HasCode(err, clawerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Daemon at %s is not running (connection refused)\n", addr)
			return nil
		}
		return err
	}

	names := make([]string, 0, len(body.Providers))
	for name := range body.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Providers:")
	for _, name := range names {
		p := body.Providers[name]
		line := fmt.Sprintf("  %-12s %-10s breaker=%s", name, p.Health, p.Breaker)
		if p.Failures > 0 {
			line += fmt.Sprintf(" failures=%d", p.Failures)
		}
		if p.Reason != "" {
			line += " (" + p.Reason + ")"
		}
		if !p.CheckedAt.IsZero() {
			line += " checked " + p.CheckedAt.Format(time.RFC3339)
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(out, "Roles: %s (default: %s)\n", strings.Join(body.Roles, ", "), body.DefaultRole)
	if len(body.Aliases) > 0 {
		fmt.Fprintf(out, "Aliases: %s\n", strings.Join(body.Aliases, ", "))
	}
	if len(body.DegradedRoles) > 0 {
		fmt.Fprintf(out, "DEGRADED roles: %s\n", strings.Join(body.DegradedRoles, ", "))
	}
	return nil
}
