// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// StackWalker is how the Sampler inspects a thread's live call stack
// without going through the deterministic LINE/CALL/RETURN events (§4.5).
// The host runtime's barrier (a GIL-equivalent, or sampling only while the
// owning thread is stalled) is the embedder's responsibility; in the Go
// translation, the registry mutex taken during Snapshot is that barrier
// (§5, "Sampler cross-thread access").
type StackWalker interface {
	// Snapshot returns the chain of sites currently active on the thread,
	// ordered bottom (outermost) to top (innermost), along with the
	// CallableID each site belongs to so edges can be built between
	// adjacent frames.
	Snapshot() []SampledFrame
}

// SampledFrame is one entry of a StackWalker snapshot.
type SampledFrame struct {
	Site     Site
	Callable CallableID
}

// Sampler is C5: a periodic goroutine that walks live call stacks and
// updates ThreadStores with hit-count-only records, without interpreter
// instrumentation. Sampling and the deterministic Tracer are mutually
// exclusive within one session (§4.5).
type Sampler struct {
	period time.Duration
	single bool
	filter *Filter

	mu      sync.Mutex
	walkers map[*ThreadStore]StackWalker
	main    *ThreadStore

	stop chan struct{}
	done chan struct{}

	ticks atomic.Uint64
}

// SetMain designates the invoking thread's store, consulted when single is
// true so sampling has a deterministic target instead of a random pick
// from the registration map (§6 --threads 0).
func (s *Sampler) SetMain(store *ThreadStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.main = store
}

// NewSampler constructs a Sampler with the given period (default 1ms if
// period <= 0, §4.5) and single-thread restriction.
func NewSampler(period time.Duration, single bool, filter *Filter) *Sampler {
	if period <= 0 {
		period = time.Millisecond
	}
	if filter == nil {
		filter = AllowAllFilter()
	}
	return &Sampler{
		period:  period,
		single:  single,
		filter:  filter,
		walkers: make(map[*ThreadStore]StackWalker),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Register associates a ThreadStore with the StackWalker the sampler uses
// to snapshot that thread. Safe to call concurrently with Run.
func (s *Sampler) Register(store *ThreadStore, walker StackWalker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walkers[store] = walker
}

// Unregister removes a thread from the sampling set, e.g. when it exits.
func (s *Sampler) Unregister(store *ThreadStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.walkers, store)
}

// Run drives the sampling loop until Stop is called. It is meant to be
// started with `go sampler.Run()`; cancellation is a shared stop channel
// checked each period (§4.5, §5). Cadence is best-effort: drift under
// scheduler pressure is expected and tolerated.
func (s *Sampler) Run() {
	defer close(s.done)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Stop signals the sampler to exit at the next period boundary and blocks
// until it has (§5's cancellation semantics).
func (s *Sampler) Stop() {
	close(s.stop)
	<-s.done
}

// Ticks reports how many sampling periods have elapsed, for diagnostics.
func (s *Sampler) Ticks() uint64 {
	return s.ticks.Load()
}

func (s *Sampler) tick() {
	s.ticks.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	walk := func(store *ThreadStore, walker StackWalker) {
		frames := walker.Snapshot()
		if len(frames) == 0 {
			return
		}
		top := frames[len(frames)-1]
		if s.filter.Tracked(top.Site.File) {
			store.RecordLine(top.Site, 0)
			store.SetCallable(top.Site, top.Callable)
		}
		for i := 1; i < len(frames); i++ {
			caller := frames[i-1]
			callee := frames[i]
			if !s.filter.Tracked(caller.Site.File) {
				continue
			}
			store.RecordEdge(Edge{Caller: caller.Site, Callee: callee.Callable.Site()}, 0)
		}
	}

	if s.single {
		// §6 --threads 0: only the invoking thread's stack is ever walked.
		if s.main != nil {
			if w, ok := s.walkers[s.main]; ok {
				walk(s.main, w)
			}
		}
		return
	}
	for store, walker := range s.walkers {
		walk(store, walker)
	}
}
