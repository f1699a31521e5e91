// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.msg != "" {
			fmt.Fprintln(os.Stderr, exit.msg)
		}
		os.Exit(exit.code)
	}

	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// exitError carries a specific process exit code out of a command.
// Preflight and resolve use it to distinguish degradation (2) from
// hard failure (1).
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
