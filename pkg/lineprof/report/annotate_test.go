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

type fakeSource struct {
	lines []string
}

func (f fakeSource) LineCount(string) int { return len(f.lines) }
func (f fakeSource) Line(_ string, lineno int) string {
	if lineno < 1 || lineno > len(f.lines) {
		return ""
	}
	return f.lines[lineno-1]
}

func sampleProfile() *lineprof.GlobalProfile {
	site1 := lineprof.Site{File: "fib.demo", Line: 1}
	site2 := lineprof.Site{File: "fib.demo", Line: 2}
	edge := lineprof.Edge{Caller: site1, Callee: site2}
	return &lineprof.GlobalProfile{
		Sites: map[lineprof.Site]lineprof.LineStat{
			site1: {Hits: 10, Nanos: 1000},
			site2: {Hits: 5, Nanos: 500},
		},
		Edges: map[lineprof.Edge]lineprof.EdgeStat{
			edge: {Hits: 5, Nanos: 500},
		},
		Callables: map[lineprof.Site]lineprof.CallableID{},
		Duration:  time.Microsecond * 2,
	}
}

func TestAnnotatorWriteIsIdempotent(t *testing.T) {
	src := fakeSource{lines: []string{"def fib(n):", "    return n"}}
	a := report.NewAnnotator(src)
	profile := sampleProfile()

	var buf1, buf2 bytes.Buffer
	require.NoError(t, a.Write(&buf1, profile))
	require.NoError(t, a.Write(&buf2, profile))
	assert.Equal(t, buf1.String(), buf2.String())
}

func TestAnnotatorIncludesViolationsHeader(t *testing.T) {
	src := fakeSource{lines: []string{"x = 1"}}
	a := report.NewAnnotator(src)
	profile := sampleProfile()
	profile.Violations = 3

	var buf bytes.Buffer
	require.NoError(t, a.Write(&buf, profile))
	assert.True(t, strings.HasPrefix(buf.String(), "# 3 recoverable"))
}

func TestAnnotatorCallRowIncludesCalleeName(t *testing.T) {
	src := fakeSource{lines: []string{"def fib(n):", "    return n"}}
	a := report.NewAnnotator(src)
	profile := sampleProfile()
	profile.Callables[lineprof.Site{File: "fib.demo", Line: 2}] = lineprof.CallableID{
		File: "fib.demo", FirstLine: 2, Name: "fib",
	}

	var buf bytes.Buffer
	require.NoError(t, a.Write(&buf, profile))
	assert.Contains(t, buf.String(), "# fib.demo:2 fib")
}

func TestAnnotatorCallRowFallsBackToModuleName(t *testing.T) {
	src := fakeSource{lines: []string{"def fib(n):", "    return n"}}
	a := report.NewAnnotator(src)
	profile := sampleProfile()

	var buf bytes.Buffer
	require.NoError(t, a.Write(&buf, profile))
	assert.Contains(t, buf.String(), "# fib.demo:2 <module>")
}

func TestAnnotatorZeroDurationDoesNotDivideByZero(t *testing.T) {
	src := fakeSource{lines: []string{"pass"}}
	a := report.NewAnnotator(src)
	profile := sampleProfile()
	profile.Duration = 0

	var buf bytes.Buffer
	require.NoError(t, a.Write(&buf, profile))
	assert.Contains(t, buf.String(), "0.00%")
}
