// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package demo implements `lineprof demo`, a zero-flag shortcut over
// `lineprof run -m fib` for quickly exercising the engine end-to-end
// (SPEC_FULL.md's SUPPLEMENTED FEATURES item 3).
package demo

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DataDog/dd-line-profiler/cmd/lineprof/subcommands/run"
)

// NewCommand builds the `demo` subcommand.
func NewCommand(log *zap.SugaredLogger) *cobra.Command {
	var program string
	var fibN int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a bundled demo program under the profiler and print a text report",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &run.Options{
				Format:   "text",
				Threads:  1,
				Program:  program,
				FibN:     fibN,
				Duration: 200 * time.Millisecond,
			}
			return run.Execute(log, opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&program, "program", "fib", "Demo program to run: fib, sleeper, busyloop")
	cmd.Flags().IntVar(&fibN, "fib-n", 10, "Argument to the fib demo program")

	return cmd
}
