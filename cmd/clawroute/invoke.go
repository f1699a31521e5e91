// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

func newInvokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke [role-or-alias]",
		Short: "Resolve and invoke with fallback retries",
		Long:  "Resolve a role or alias, send the prompt to the chosen target, and retry down the chain on provider failure.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInvoke,
	}

	cmd.Flags().StringP("prompt", "p", "", "prompt to send (required)")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func runInvoke(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	prompt, _ := cmd.Flags().GetString("prompt")

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	app, err := wireApp(cmd.Context(), cfg, wireOptions{withEventLog: true})
	if err != nil {
		return err
	}
	defer app.closeQuietly()

	// Probe first so resolution sees real health instead of unknowns.
	app.Prober.ProbeAll(cmd.Context(), app.Store.Current())

	outcome, err := app.Runner.Run(cmd.Context(), name, prompt)
	if err != nil {
		if clawerr.IsExhausted(err) {
			return &exitError{code: 2, msg: err.Error()}
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s, %d attempt(s)\n\n",
		fmtTarget(outcome.Decision.Target.String(), outcome.Decision.Position, outcome.Decision.Fallback),
		outcome.Attempts)
	_, err = fmt.Fprintln(out, outcome.Output)
	return err
}
