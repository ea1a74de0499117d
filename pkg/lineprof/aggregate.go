// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

import "time"

// GlobalProfile is C6's output: the union of all sites across threads,
// summed LineStat/EdgeStat, the total wall-clock duration of the profiled
// region, and the recorded command line (§3).
type GlobalProfile struct {
	Sites    map[Site]LineStat
	Edges    map[Edge]EdgeStat
	Duration time.Duration
	Cmdline  []string
	// Callables maps a Site to the callable it was last seen executing
	// under, for the Callgrind emitter's fn= grouping (not part of §3's
	// core data model, which only requires Site as a key).
	Callables map[Site]CallableID
	// Violations is the sum of each thread's recoverable invariant-break
	// counter (§7): "Aggregation surfaces these counters in the header of
	// the report."
	Violations uint64
}

// ModuleCallable is the synthetic CallableID used to group sites that
// execute outside any known callable (top-level module code, or sites
// observed before the owning call's CallableID was recorded).
func ModuleCallable(file string) CallableID {
	return CallableID{File: file, FirstLine: 0, Name: "<module>"}
}

// CallableOf returns the callable g.Callables records for site, falling
// back to ModuleCallable(site.File) if none was recorded.
func (g *GlobalProfile) CallableOf(site Site) CallableID {
	if c, ok := g.Callables[site]; ok && c != (CallableID{}) {
		return c
	}
	return ModuleCallable(site.File)
}

// FileDuration sums nanos over every site belonging to path. Per §4.6 this
// may exceed Duration when multiple threads are profiled concurrently;
// that is a documented property (§8 scenario 2), not a bug.
func (g *GlobalProfile) FileDuration(path string) time.Duration {
	var total uint64
	for site, stat := range g.Sites {
		if site.File == path {
			total += stat.Nanos
		}
	}
	return time.Duration(total)
}

// Files returns the distinct file paths present in the profile, in no
// particular order; callers that need deterministic output should sort.
func (g *GlobalProfile) Files() []string {
	seen := make(map[string]struct{})
	var files []string
	for site := range g.Sites {
		if _, ok := seen[site.File]; !ok {
			seen[site.File] = struct{}{}
			files = append(files, site.File)
		}
	}
	return files
}

// OutgoingEdges returns every Edge whose caller is exactly site.
func (g *GlobalProfile) OutgoingEdges(site Site) []Edge {
	var out []Edge
	for e := range g.Edges {
		if e.Caller == site {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate implements C6: it merges a set of ThreadStores, commutatively
// summing LineStat and EdgeStat per key (§5, "aggregation is commutative"),
// and applies the filter a second time so a file that was traced but
// should not be reported (e.g. --exclude-syspath) is omitted entirely
// (§4.6).
func Aggregate(stores []*ThreadStore, filter *Filter, duration time.Duration, cmdline []string) *GlobalProfile {
	if filter == nil {
		filter = AllowAllFilter()
	}
	g := &GlobalProfile{
		Sites:     make(map[Site]LineStat),
		Edges:     make(map[Edge]EdgeStat),
		Callables: make(map[Site]CallableID),
		Duration:  duration,
		Cmdline:   cmdline,
	}
	for _, s := range stores {
		g.Violations += s.Violations()
		s.IterSites(func(site Site, stat LineStat) {
			if !filter.Tracked(site.File) {
				return
			}
			cur := g.Sites[site]
			cur.Hits += stat.Hits
			cur.Nanos += stat.Nanos
			g.Sites[site] = cur
		})
		s.IterEdges(func(edge Edge, stat EdgeStat) {
			if !filter.Tracked(edge.Caller.File) {
				return
			}
			cur := g.Edges[edge]
			cur.Hits += stat.Hits
			cur.Nanos += stat.Nanos
			g.Edges[edge] = cur
		})
		s.IterCallables(func(site Site, c CallableID) {
			if !filter.Tracked(site.File) {
				return
			}
			g.Callables[site] = c
		})
	}
	return g
}
