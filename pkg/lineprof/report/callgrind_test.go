// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/dd-line-profiler/pkg/lineprof"
	"github.com/DataDog/dd-line-profiler/pkg/lineprof/report"
)

func twoCallableProfile() *lineprof.GlobalProfile {
	caller := lineprof.Site{File: "fib.demo", Line: 1}
	callee := lineprof.Site{File: "fib.demo", Line: 5}
	edge := lineprof.Edge{Caller: caller, Callee: callee}

	return &lineprof.GlobalProfile{
		Sites: map[lineprof.Site]lineprof.LineStat{
			caller: {Hits: 10, Nanos: 1000},
			callee: {Hits: 5, Nanos: 300},
		},
		Edges: map[lineprof.Edge]lineprof.EdgeStat{
			edge: {Hits: 5, Nanos: 300},
		},
		Callables: map[lineprof.Site]lineprof.CallableID{
			caller: {File: "fib.demo", FirstLine: 1, Name: "fib"},
			callee: {File: "fib.demo", FirstLine: 5, Name: "fib_base"},
		},
		Duration: time.Microsecond,
	}
}

func TestCallgrindEmitterSelfCostExcludesEdgeCost(t *testing.T) {
	e := report.NewCallgrindEmitter()
	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, twoCallableProfile()))

	out := buf.String()
	// the caller's own cost line (1000ns) excludes the callee's cost
	// (300ns); only the cfl/cfn/calls block re-states the 300ns as an
	// outbound edge cost, per §4.8's self+outbound==inclusive invariant.
	assert.Contains(t, out, "1 10 1000")
	assert.Contains(t, out, "calls=5 5")
	assert.Contains(t, out, "cfn=fib_base")
}

func TestCallgrindEmitterWriteIsDeterministic(t *testing.T) {
	e := report.NewCallgrindEmitter()
	profile := twoCallableProfile()

	var buf1, buf2 bytes.Buffer
	require.NoError(t, e.Write(&buf1, profile))
	require.NoError(t, e.Write(&buf2, profile))
	assert.Equal(t, buf1.String(), buf2.String())
}

func TestCallgrindEmitterOmitsZeroHitLines(t *testing.T) {
	site := lineprof.Site{File: "a.demo", Line: 1}
	zeroSite := lineprof.Site{File: "a.demo", Line: 2}
	profile := &lineprof.GlobalProfile{
		Sites: map[lineprof.Site]lineprof.LineStat{
			site:     {Hits: 1, Nanos: 10},
			zeroSite: {Hits: 0, Nanos: 0},
		},
		Edges:     map[lineprof.Edge]lineprof.EdgeStat{},
		Callables: map[lineprof.Site]lineprof.CallableID{},
	}

	e := report.NewCallgrindEmitter()
	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, profile))
	assert.NotContains(t, buf.String(), "2 0 0")
}

func TestCallgrindEmitterEmitsFallbackCostLineForEmptyCallable(t *testing.T) {
	callable := lineprof.CallableID{File: "a.demo", FirstLine: 7, Name: "empty_fn"}
	caller := lineprof.Site{File: "a.demo", Line: 1}
	callee := lineprof.Site{File: "a.demo", Line: 7}
	edge := lineprof.Edge{Caller: caller, Callee: callee}

	profile := &lineprof.GlobalProfile{
		Sites: map[lineprof.Site]lineprof.LineStat{
			caller: {Hits: 1, Nanos: 10},
		},
		Edges: map[lineprof.Edge]lineprof.EdgeStat{
			edge: {Hits: 1, Nanos: 0},
		},
		Callables: map[lineprof.Site]lineprof.CallableID{
			callee: callable,
		},
	}

	e := report.NewCallgrindEmitter()
	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, profile))

	out := buf.String()
	assert.True(t, strings.Contains(out, "fn=empty_fn"))
	assert.Contains(t, out, "7 0 0")
}
