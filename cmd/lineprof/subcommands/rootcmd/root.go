// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package rootcmd builds the top-level `lineprof` cobra.Command that the
// other subcommand packages attach themselves to, matching the teacher's
// `cmd/<tool>/subcommands/<name>` layout.
package rootcmd

import "github.com/spf13/cobra"

// New builds the bare root command; callers add subcommands via
// cmd.AddCommand.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lineprof",
		Short:         "Line-granularity profiler",
		Long:          "lineprof collects per-line hit counts and timings for a profiled run and renders them as an annotated listing or a Callgrind profile.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return cmd
}
