// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Command lineprof is the CLI launcher described in spec.md §6. It wires
// the pkg/lineprof engine to a concrete source of events; since a real
// host-interpreter launcher is explicitly out of scope (§1), `run` and
// `demo` both drive the bundled internal/scriptvm demo programs instead
// of a real target.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/DataDog/dd-line-profiler/cmd/lineprof/subcommands/config"
	"github.com/DataDog/dd-line-profiler/cmd/lineprof/subcommands/demo"
	"github.com/DataDog/dd-line-profiler/cmd/lineprof/subcommands/rootcmd"
	"github.com/DataDog/dd-line-profiler/cmd/lineprof/subcommands/run"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lineprof: failed to initialize logger:", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	cmd := rootcmd.New()
	cmd.AddCommand(run.NewCommand(sugar))
	cmd.AddCommand(demo.NewCommand(sugar))
	cmd.AddCommand(config.NewCommand(sugar))

	if err := cmd.Execute(); err != nil {
		os.Exit(exitCodeOf(err))
	}
}

// exitCodeOf implements §7's exit-code taxonomy: configuration errors
// exit 2; a target/demo program's own exit code, when one is carried by
// run.ExitError, is propagated unchanged.
func exitCodeOf(err error) int {
	var exitErr *run.ExitError
	if ok := asExitError(err, &exitErr); ok {
		return exitErr.Code
	}
	return 2
}

func asExitError(err error, target **run.ExitError) bool {
	for err != nil {
		if e, ok := err.(*run.ExitError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
