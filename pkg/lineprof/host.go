// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

// This file names the boundary interfaces a host embedding lineprof is
// responsible for, per spec.md §1's scope cut. None of them is
// implemented by this package beyond the thin defaults noted below; they
// exist so the boundary has a concrete Go shape instead of only prose.

// EventSource is whatever drives a host interpreter's trace hook. A
// conforming embedder calls Tracer.OnLine/OnCall/OnReturn/OnException (or
// registers a StackWalker with a Sampler) directly; there is no adapter
// type here because the call shape is the interpreter's own, not ours to
// define generically. internal/scriptvm plays this role for this
// repository's own tests and CLI demo.
type EventSource interface {
	// Drive calls whichever of Tracer's On* methods correspond to the
	// events the embedded interpreter reports.
	Drive(t *Tracer)
}

// LineReader is a raw (path, lineno) -> (text, ok) read primitive.
// Nothing in this package implements or consults it: SourceProvider
// (source.go) reads whole files through an afero.Fs instead. Embedders
// whose source lives somewhere other than a normal filesystem (a database,
// a zipapp, an in-memory module) can implement it themselves.
type LineReader interface {
	Line(path string, lineno int) (text string, ok bool)
}

// Launcher loads and executes the profiled target and reports its exit
// status. Out of scope for this module per §1; internal/scriptvm's demo
// programs and cmd/lineprof's run subcommand stand in for it in this
// repository.
type Launcher interface {
	Run(cmdline []string) (exitCode int, err error)
}
