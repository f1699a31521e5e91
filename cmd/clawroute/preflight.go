// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawroute/internal/resolve"
	"github.com/openclaw/clawroute/pkg/health"
)

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Probe every configured provider and report readiness",
		Long: "Probe each provider in parallel, compare served models against the configured\n" +
			"lists, and dry-run every role chain. Exits 0 when everything resolves, 2 when\n" +
			"degraded (some chains resolve), 1 when nothing resolves.",
		RunE: runPreflight,
	}
}

func runPreflight(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	app, err := wireApp(cmd.Context(), cfg, wireOptions{})
	if err != nil {
		return err
	}
	defer app.closeQuietly()

	cat := app.Store.Current()
	out := cmd.OutOrStdout()

	results := app.Prober.ProbeAll(cmd.Context(), cat)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	anyUnhealthy := false
	fmt.Fprintln(out, "Providers:")
	for _, name := range names {
		result := results[name]
		line := fmt.Sprintf("  %-12s %s", name, result.Status)
		if result.Reason != "" {
			line += " (" + result.Reason + ")"
		}
		if state := app.Breakers.State(name); state != health.BreakerClosed {
			line += fmt.Sprintf(" [breaker %s]", state)
		}
		if result.Status != health.StatusHealthy {
			anyUnhealthy = true
		}

		if spec, ok := cat.Provider(name); ok && result.Status == health.StatusHealthy && len(result.Models) > 0 {
			var missing []string
			for _, m := range spec.Models {
				if !contains(result.Models, m) {
					missing = append(missing, m)
				}
			}
			if len(missing) > 0 {
				line += " | missing models: " + strings.Join(missing, ", ")
				anyUnhealthy = true
			}
		}
		fmt.Fprintln(out, line)
	}

	roles := cat.Roles()
	sort.Strings(roles)

	resolved, total := 0, len(roles)
	fmt.Fprintln(out, "Roles:")
	for _, role := range roles {
		decision, err := app.Resolver.Resolve(role, resolve.NewAttemptSet())
		if err != nil {
			fmt.Fprintf(out, "  %-12s exhausted\n", role)
			continue
		}
		resolved++
		fmt.Fprintf(out, "  %-12s %s\n", role, fmtTarget(decision.Target.String(), decision.Position, decision.Fallback))
	}

	switch {
	case total > 0 && resolved == 0:
		return &exitError{code: 1, msg: "preflight failed: no role chain resolves"}
	case resolved < total || anyUnhealthy:
		return &exitError{code: 2, msg: "preflight degraded"}
	default:
		_, err = fmt.Fprintln(out, "Preflight OK")
		return err
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
