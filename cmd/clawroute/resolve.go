// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/resolve"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [role-or-alias]",
		Short: "Resolve a role or alias to a provider/model target",
		Long: "Walk the fallback chain for a role or alias and print the first viable target.\n" +
			"Exits 0 with a decision, 2 when the chain is exhausted, 1 on error.",
		Args: cobra.MaximumNArgs(1),
		RunE: runResolve,
	}

	cmd.Flags().String("provider", "", "resolve an explicit provider (requires --model)")
	cmd.Flags().String("model", "", "resolve an explicit model (requires --provider)")
	cmd.Flags().StringSlice("tried", nil, "provider/model refs already attempted (repeatable)")
	cmd.Flags().Bool("probe", false, "probe providers first so health state is current")
	cmd.Flags().Bool("json", false, "print the decision or report as JSON")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	app, err := wireApp(cmd.Context(), cfg, wireOptions{})
	if err != nil {
		return err
	}
	defer app.closeQuietly()

	if doProbe, _ := cmd.Flags().GetBool("probe"); doProbe {
		app.Prober.ProbeAll(cmd.Context(), app.Store.Current())
	}

	tried := resolve.NewAttemptSet()
	refs, _ := cmd.Flags().GetStringSlice("tried")
	for _, ref := range refs {
		pm, err := catalog.ParseRef(ref)
		if err != nil {
			return err
		}
		tried.Add(pm)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	providerName, _ := cmd.Flags().GetString("provider")
	modelName, _ := cmd.Flags().GetString("model")

	var decision resolve.Decision
	switch {
	case providerName != "" || modelName != "":
		if providerName == "" || modelName == "" {
			return clawerr.New(clawerr.CodeCLIInputInvalid,
				"--provider and --model must be given together")
		}
		if name != "" {
			return clawerr.New(clawerr.CodeCLIInputInvalid,
				"an explicit --provider/--model pair replaces the role argument")
		}
		decision, err = app.Resolver.ResolveTarget(
			catalog.ProviderModel{Provider: providerName, Model: modelName}, tried)
	default:
		decision, err = app.Resolver.Resolve(name, tried)
	}
	if err != nil {
		report, ok := resolve.Exhaustion(err)
		if !ok {
			return err
		}
		if asJSON {
			if encErr := json.NewEncoder(out).Encode(map[string]any{"report": report}); encErr != nil {
				return encErr
			}
			return &exitError{code: 2}
		}
		fmt.Fprintf(out, "%s %q exhausted:\n", report.Kind, report.Name)
		for _, rej := range report.Rejected {
			fmt.Fprintf(out, "  %-40s %s\n", rej.Candidate.String(), rej.Reason)
		}
		return &exitError{code: 2}
	}

	if asJSON {
		return json.NewEncoder(out).Encode(map[string]any{"decision": decision})
	}
	_, err = fmt.Fprintln(out, fmtTarget(decision.Target.String(), decision.Position, decision.Fallback))
	return err
}
