// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DataDog/dd-line-profiler/pkg/lineprof"
)

func TestThreadStoreRecordLineAccumulates(t *testing.T) {
	s := lineprof.NewThreadStore()
	site := lineprof.Site{File: "a.demo", Line: 1}

	s.RecordLine(site, 100)
	s.RecordLine(site, 50)

	var got lineprof.LineStat
	s.IterSites(func(sg lineprof.Site, st lineprof.LineStat) {
		if sg == site {
			got = st
		}
	})
	assert.EqualValues(t, 2, got.Hits)
	assert.EqualValues(t, 150, got.Nanos)
}

func TestThreadStoreAddEdgeNanosDoesNotDoubleCountHits(t *testing.T) {
	s := lineprof.NewThreadStore()
	edge := lineprof.Edge{
		Caller: lineprof.Site{File: "a.demo", Line: 1},
		Callee: lineprof.Site{File: "b.demo", Line: 1},
	}

	s.RecordEdge(edge, 0)
	s.AddEdgeNanos(edge, 42)

	var got lineprof.EdgeStat
	s.IterEdges(func(eg lineprof.Edge, st lineprof.EdgeStat) {
		if eg == edge {
			got = st
		}
	})
	assert.EqualValues(t, 1, got.Hits)
	assert.EqualValues(t, 42, got.Nanos)
}
