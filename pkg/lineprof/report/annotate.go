// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package report renders a lineprof.GlobalProfile as an annotated text
// listing (C7, §4.7) or a Callgrind-format profile (C8, §4.8).
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/DataDog/dd-line-profiler/pkg/lineprof"
)

// SourceLookup is the subset of lineprof.SourceProvider the renderers
// need; kept as an interface so tests can supply a fixture without
// touching a filesystem.
type SourceLookup interface {
	LineCount(path string) int
	Line(path string, lineno int) string
}

// Annotator renders the text listing described in §4.7.
type Annotator struct {
	Source SourceLookup
}

// NewAnnotator builds an Annotator over the given source lookup.
func NewAnnotator(src SourceLookup) *Annotator {
	return &Annotator{Source: src}
}

// Write renders one annotated block per file present in profile, in
// alphabetical path order (making Write idempotent across calls on the
// same profile, per §8's "Idempotent render" property).
func (a *Annotator) Write(w io.Writer, profile *lineprof.GlobalProfile) error {
	if profile.Violations > 0 {
		if _, err := fmt.Fprintf(w, "# %d recoverable profiling-invariant violation(s) were dropped this session\n\n", profile.Violations); err != nil {
			return err
		}
	}

	files := profile.Files()
	sort.Strings(files)

	totalNanos := float64(profile.Duration.Nanoseconds())

	for _, file := range files {
		fileNanos := profile.FileDuration(file).Nanoseconds()
		pct := percent(float64(fileNanos), totalNanos)
		if _, err := fmt.Fprintf(w, "File: %s\n", file); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "File duration: %ss (%s%%)\n", seconds(float64(fileNanos)), pct); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Line #|      Hits|         Time| Time per hit|      %%|Source code\n"); err != nil {
			return err
		}

		n := a.Source.LineCount(file)
		for line := 1; line <= n; line++ {
			site := lineprof.Site{File: file, Line: line}
			stat := profile.Sites[site]
			text := a.Source.Line(file, line)

			var perHit float64
			if stat.Hits > 0 {
				perHit = float64(stat.Nanos) / float64(stat.Hits)
			}
			linePct := percent(float64(stat.Nanos), totalNanos)

			if _, err := fmt.Fprintf(w, "%6d|%10d|%13ss|%13ss|%6s%%|%s\n",
				line, stat.Hits, seconds(float64(stat.Nanos)), seconds(perHit), linePct, text); err != nil {
				return err
			}

			edges := profile.OutgoingEdges(site)
			sort.Slice(edges, func(i, j int) bool {
				return profile.Edges[edges[i]].Hits > profile.Edges[edges[j]].Hits
			})
			for _, e := range edges {
				es := profile.Edges[e]
				var ePerHit float64
				if es.Hits > 0 {
					ePerHit = float64(es.Nanos) / float64(es.Hits)
				}
				ePct := percent(float64(es.Nanos), totalNanos)
				calleeName := profile.CallableOf(e.Callee).Name
				if _, err := fmt.Fprintf(w, "%6s|%10d|%13ss|%13ss|%6s%%|# %s:%d %s\n",
					"(call)", es.Hits, seconds(float64(es.Nanos)), seconds(ePerHit), ePct,
					e.Callee.File, e.Callee.Line, calleeName); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// percent formats a fraction of total as a string with two decimal
// places. Zero total yields "0.00" uniformly (§4.5: sampled profiles have
// nanos == 0 throughout, and a zero-total report must not divide by zero).
func percent(part, total float64) string {
	if total <= 0 {
		return "0.00"
	}
	return strconv.FormatFloat(part/total*100, 'f', 2, 64)
}

// seconds formats a nanosecond count as seconds, switching to scientific
// notation for very small nonzero values so sub-microsecond costs stay
// legible (§4.7: "fixed or scientific form as needed to be legible").
func seconds(nanos float64) string {
	s := nanos / 1e9
	if s != 0 && s < 1e-6 {
		return strconv.FormatFloat(s, 'e', 3, 64)
	}
	return strconv.FormatFloat(s, 'f', 6, 64)
}
