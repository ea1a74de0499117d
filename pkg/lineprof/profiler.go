// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Config selects between deterministic tracing and statistical sampling
// for a Profiler session, and carries the filter policy and the recorded
// command line that ends up in GlobalProfile (§3, §6).
type Config struct {
	// Statistical, if non-zero, switches the session to the sampler at
	// this period instead of the deterministic tracer (§6 --statistic).
	Statistical time.Duration
	// PropagateThreads is --threads 1 (default): newly spawned threads are
	// traced too. False is --threads 0: only the thread that calls Enable
	// is ever traced (§6).
	PropagateThreads bool
	Filter           *Filter
	Cmdline          []string
}

// Profiler owns the process-wide registry described in §9: a registry of
// thread → store, and the active sampler, if any. It is created on Enable
// and torn down on Disable; re-entrant Enable is forbidden.
type Profiler struct {
	cfg Config
	log *zap.SugaredLogger

	mu       sync.Mutex
	enabled  bool
	stores   []*ThreadStore
	sampler  *Sampler
	mainSite *ThreadStore

	// calleeIDSeq is the shared monotonic counter §5 allows for edge/
	// callable identifiers, handed out by NextCallableSeq without a lock.
	// The Callgrind emitter does not use it; it names functions instead.
	calleeIDSeq atomic.Uint64

	startedAt uint64
	startWall time.Time
}

// New creates a Profiler in the disabled state.
func New(cfg Config, log *zap.SugaredLogger) *Profiler {
	if cfg.Filter == nil {
		cfg.Filter = AllowAllFilter()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Profiler{cfg: cfg, log: log}
}

// Enable starts a profiling session. It is an error to call Enable twice
// without an intervening Disable (§9).
func (p *Profiler) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return ErrAlreadyEnabled
	}
	p.enabled = true
	p.startedAt = defaultClock.now()
	p.startWall = time.Now()
	if p.cfg.Statistical > 0 {
		p.sampler = NewSampler(p.cfg.Statistical, !p.cfg.PropagateThreads, p.cfg.Filter)
		go p.sampler.Run()
	}
	p.log.Debugw("profiler enabled", "statistical", p.cfg.Statistical, "propagate_threads", p.cfg.PropagateThreads)
	return nil
}

// NewTracer creates a Tracer for the calling thread and registers its
// store so Disable can collect it. Only valid in deterministic mode.
//
// isMain should be true for the thread that called Enable; it is used to
// honor --threads 0: with PropagateThreads false, a Tracer created with
// isMain false is not registered. GlobalProfile's total duration does not
// depend on it; it is the wall-clock span between Enable and Disable.
func (p *Profiler) NewTracer(isMain bool) (*Tracer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return nil, ErrNotEnabled
	}
	if p.cfg.Statistical > 0 {
		return nil, ErrSamplingActive
	}
	if !isMain && !p.cfg.PropagateThreads {
		// §6 --threads 0 / §8 thread-propagation opt-out: a non-main
		// thread gets a Tracer that is never registered, so its writes
		// never reach the aggregator. It still functions so the embedder
		// doesn't need a conditional at every call site.
		t := NewTracer(p.cfg.Filter)
		return t, nil
	}
	t := NewTracer(p.cfg.Filter)
	p.stores = append(p.stores, t.Store())
	if isMain {
		p.mainSite = t.Store()
	}
	return t, nil
}

// NewSampledStore registers a ThreadStore fed by the Sampler via walker.
// Only valid in statistical mode.
func (p *Profiler) NewSampledStore(walker StackWalker, isMain bool) (*ThreadStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return nil, ErrNotEnabled
	}
	if p.sampler == nil {
		return nil, ErrSamplingActive
	}
	store := NewThreadStore()
	p.stores = append(p.stores, store)
	p.sampler.Register(store, walker)
	if isMain {
		p.mainSite = store
		p.sampler.SetMain(store)
	}
	return store, nil
}

// NextCallableSeq returns a process-wide monotonically increasing id,
// useful for assigning stable Callgrind function ids across threads
// (§5's "shared monotonic counter").
func (p *Profiler) NextCallableSeq() uint64 {
	return p.calleeIDSeq.Inc()
}

// Disable ends the session, flushes residual frames on every registered
// Tracer-backed store, and returns the merged GlobalProfile (§4.6, §9).
func (p *Profiler) Disable() (*GlobalProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return nil, ErrNotEnabled
	}
	if p.sampler != nil {
		p.sampler.Stop()
		p.sampler = nil
	}
	now := defaultClock.now()
	for _, s := range p.stores {
		s.Flush(now)
	}
	duration := time.Since(p.startWall)
	profile := Aggregate(p.stores, p.cfg.Filter, duration, p.cfg.Cmdline)

	p.enabled = false
	p.stores = nil
	p.mainSite = nil
	if profile.Violations > 0 {
		p.log.Warnw("recoverable profiling-invariant violations", "violations", profile.Violations)
	}
	p.log.Debugw("profiler disabled", "duration", duration, "violations", profile.Violations)
	return profile, nil
}
