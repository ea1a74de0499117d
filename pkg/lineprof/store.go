// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

// LineStat accumulates hits and time for one Site. In deterministic mode
// hits == 0 implies nanos == 0; in statistical mode nanos is always 0 and
// hits counts samples (§3).
type LineStat struct {
	Hits  uint64
	Nanos uint64
}

// EdgeStat accumulates hits and time for one Edge. Cost posted here is
// included in the callee's own line cost already (§4.4's discount
// mechanism); a renderer must not add EdgeStat.Nanos to the callee's
// LineStat.Nanos a second time.
type EdgeStat struct {
	Hits  uint64
	Nanos uint64
}

// Frame is pushed once per CALL event and popped once per RETURN or
// EXCEPTION event (§3). It is never shared across goroutines: it lives
// entirely on the ThreadStore that owns it.
type Frame struct {
	SiteEntered Site
	LastTick    uint64
	Discount    uint64
	CallerSite  Site
	HasCaller   bool
	// Callable identifies the function this frame activated, used to post
	// the edge cost on RETURN (§4.4) and to group the frame's sites under
	// a Callgrind fn= block.
	Callable CallableID
	// calleeNanos accumulates the time credited to this frame's own sites
	// plus the totals of the calls it made, i.e. its inclusive time since
	// it was pushed; RETURN posts it to the caller as the edge's cost (§4.4).
	calleeNanos uint64
}

// ThreadStore holds one goroutine's accumulated cost. It is created lazily
// on a goroutine's first event and is written only by that goroutine
// during a profiling session; it is read only after Disable (§4.3).
type ThreadStore struct {
	lines []lineEntry
	edges []edgeEntry
	index map[Site]int
	eidx  map[Edge]int
	stack []Frame

	// owners maps a Site to the CallableID it was executing under, the
	// last time it was recorded. This isn't part of the core data model
	// of §3, but the Callgrind emitter (C8) needs to group sites into
	// fn= blocks and the aggregated LineStat map alone can't recover that
	// grouping once per-thread stores are merged.
	owners map[Site]CallableID

	// violations counts recoverable invariant breaks observed on this
	// thread (§7): stack underflow on RETURN, or a backward clock delta.
	// Each dropped delta is recorded as 0, per §7's propagation policy.
	violations uint64
}

type lineEntry struct {
	site Site
	stat LineStat
}

type edgeEntry struct {
	edge Edge
	stat EdgeStat
}

// NewThreadStore allocates an empty store. Capacity hints keep the common
// case (a few hundred distinct sites per thread) from reallocating the
// backing slices repeatedly on the hot path.
func NewThreadStore() *ThreadStore {
	return &ThreadStore{
		index:  make(map[Site]int, 256),
		eidx:   make(map[Edge]int, 64),
		owners: make(map[Site]CallableID, 256),
	}
}

// SetCallable records which callable a Site belongs to, for the Callgrind
// emitter's fn= grouping. A zero-value CallableID is accepted for
// module-level sites that execute outside any callable.
func (s *ThreadStore) SetCallable(site Site, callable CallableID) {
	s.owners[site] = callable
}

// IterCallables calls fn once per Site that has a known owning callable.
func (s *ThreadStore) IterCallables(fn func(Site, CallableID)) {
	for site, c := range s.owners {
		fn(site, c)
	}
}

// RecordLine implements C3.record_line: hits += 1, nanos += delta.
func (s *ThreadStore) RecordLine(site Site, deltaNanos uint64) {
	i, ok := s.index[site]
	if !ok {
		i = len(s.lines)
		s.lines = append(s.lines, lineEntry{site: site})
		s.index[site] = i
	}
	s.lines[i].stat.Hits++
	s.lines[i].stat.Nanos += deltaNanos
}

// RecordEdge implements C3.record_edge: hits += 1, nanos += delta.
func (s *ThreadStore) RecordEdge(edge Edge, deltaNanos uint64) {
	i, ok := s.eidx[edge]
	if !ok {
		i = len(s.edges)
		s.edges = append(s.edges, edgeEntry{edge: edge})
		s.eidx[edge] = i
	}
	s.edges[i].stat.Hits++
	s.edges[i].stat.Nanos += deltaNanos
}

// AddEdgeNanos adds nanos to an edge without incrementing its hit count.
// The tracer uses this to post a callee's total inclusive time (§4.4,
// RETURN step 2) after already recording the hit itself at CALL time
// (§4.4, CALL step 3); recording both as full RecordEdge calls would count
// each activation twice.
func (s *ThreadStore) AddEdgeNanos(edge Edge, nanos uint64) {
	i, ok := s.eidx[edge]
	if !ok {
		i = len(s.edges)
		s.edges = append(s.edges, edgeEntry{edge: edge})
		s.eidx[edge] = i
	}
	s.edges[i].stat.Nanos += nanos
}

// addLineNanos adds nanos to a site without incrementing its hit count.
// The tracer uses this when a CALL suspends the caller's current line.
func (s *ThreadStore) addLineNanos(site Site, nanos uint64) {
	i, ok := s.index[site]
	if !ok {
		i = len(s.lines)
		s.lines = append(s.lines, lineEntry{site: site})
		s.index[site] = i
	}
	s.lines[i].stat.Nanos += nanos
}

// IterSites calls fn once per distinct Site recorded on this store, in
// first-seen order. Read-only; intended for the aggregator (C6).
func (s *ThreadStore) IterSites(fn func(Site, LineStat)) {
	for _, e := range s.lines {
		fn(e.site, e.stat)
	}
}

// IterEdges calls fn once per distinct Edge recorded on this store.
func (s *ThreadStore) IterEdges(fn func(Edge, EdgeStat)) {
	for _, e := range s.edges {
		fn(e.edge, e.stat)
	}
}

// Violations reports the number of recoverable invariant breaks observed
// on this thread since creation (§7).
func (s *ThreadStore) Violations() uint64 {
	return s.violations
}

// top returns the current Frame, or nil if the stack is empty (before the
// first CALL, or after a stack-underflow violation has been absorbed).
func (s *ThreadStore) top() *Frame {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

func (s *ThreadStore) push(f Frame) {
	s.stack = append(s.stack, f)
}

// pop removes and returns the top Frame. ok is false on stack underflow,
// which the caller records as a violation rather than panicking (§7).
func (s *ThreadStore) pop() (Frame, bool) {
	if len(s.stack) == 0 {
		s.violations++
		return Frame{}, false
	}
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return f, true
}

// Flush flushes any frames still on the stack at teardown, crediting each
// one's time-since-last-tick to the site it entered (§3's lifecycle
// invariant: "residual frames are flushed"). Stores fed only by the
// Sampler never push a Frame, so Flush is a no-op for them.
func (s *ThreadStore) Flush(now uint64) {
	for len(s.stack) > 0 {
		f, _ := s.pop()
		if f.SiteEntered.IsZero() {
			continue
		}
		dt := saturatingSub(now, f.LastTick+f.Discount)
		if dt > 0 {
			s.RecordLine(f.SiteEntered, dt)
		}
	}
}

// saturatingSub returns a-b clamped to 0, used wherever §4.4 says "clamp to
// 0 if negative" for a delta computation.
func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
