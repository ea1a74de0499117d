// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

// Tracer is C4: a per-thread handler for the three event kinds the host
// interpreter's trace hook supplies (LINE, CALL, RETURN/EXCEPTION, §4.4).
// A Tracer is created lazily for each goroutine that reports an event and
// is never touched by any other goroutine, so its hot path takes no locks.
//
// Open question resolution (SPEC_FULL.md): this implementation re-reads
// now() for LastTick immediately after crediting a delta, both on LINE and
// on the CALL-closes-caller-line step, rather than reusing the timestamp
// read at the top of the handler. This keeps "time spent in the handler
// itself" out of the next interval consistently in both cases; the spec
// permits either choice so long as it is applied consistently.
type Tracer struct {
	store  *ThreadStore
	filter *Filter
}

// NewTracer creates a Tracer over a fresh ThreadStore, with an implicit
// root Frame standing in for "module top level, before any CALL event"
// (§3's entry sentinel).
func NewTracer(filter *Filter) *Tracer {
	if filter == nil {
		filter = AllowAllFilter()
	}
	s := NewThreadStore()
	s.push(Frame{LastTick: defaultClock.now()})
	return &Tracer{store: s, filter: filter}
}

// Store returns the underlying ThreadStore, for registration with a
// Profiler session and for the aggregator to read after Disable.
func (t *Tracer) Store() *ThreadStore { return t.store }

// closeCurrentLine performs the shared "compute dt, credit it, reset
// discount" step used by LINE (§4.4 steps 1-4), by CALL closing out the
// caller's line (§4.4 CALL step 1), and by RETURN closing out the
// callee's final line (§4.4 RETURN step 1). hit is false only for the
// CALL case: suspending a line for a call credits its time so far without
// a hit, so each execution of a line is hit once, when LINE or RETURN
// closes it.
func (t *Tracer) closeCurrentLine(f *Frame, now uint64, hit bool) {
	if f.SiteEntered.IsZero() {
		// Degenerate case: the very first event ever seen on this thread,
		// before any line has executed. There is no site to credit and no
		// caller to fall back to (this is the root frame); the elapsed
		// time is startup overhead and is dropped.
		return
	}
	if now < f.LastTick+f.Discount {
		// Backward delta: counted as a violation and recorded as 0 (§7).
		t.store.violations++
	}
	dt := saturatingSub(now, f.LastTick+f.Discount)
	f.Discount = 0
	if t.filter.Tracked(f.SiteEntered.File) {
		if hit {
			t.store.RecordLine(f.SiteEntered, dt)
		} else {
			t.store.addLineNanos(f.SiteEntered, dt)
		}
		t.store.SetCallable(f.SiteEntered, f.Callable)
	}
	f.calleeNanos += dt
}

// OnLine handles a LINE event: a source line is about to execute in the
// thread's current frame (§4.4).
func (t *Tracer) OnLine(file string, line int) {
	now := defaultClock.now()
	top := t.store.top()
	t.closeCurrentLine(top, now, true)
	top.SiteEntered = Site{File: file, Line: line}
	top.LastTick = defaultClock.now()
}

// OnCall handles a CALL event: control enters calleeName, first defined at
// (calleeFile, calleeFirstLine) (§4.4).
func (t *Tracer) OnCall(calleeFile string, calleeFirstLine int, calleeName string) {
	now := defaultClock.now()
	top := t.store.top()
	callerSite := top.SiteEntered
	t.closeCurrentLine(top, now, false)
	// The caller resumes bookkeeping from this instant; the eventual
	// RETURN posts the callee's total as a discount so the caller's next
	// LINE event does not also count the time spent inside the call.
	top.LastTick = defaultClock.now()

	calleeSite := Site{File: calleeFile, Line: calleeFirstLine}
	if !callerSite.IsZero() {
		// Edge hit is recorded now so a crashed or never-returning call
		// still shows up with a hit; its nanos are added on RETURN (§4.4
		// CALL step 3, RETURN step 2).
		t.store.RecordEdge(Edge{Caller: callerSite, Callee: calleeSite}, 0)
	}
	t.store.push(Frame{
		SiteEntered: calleeSite,
		LastTick:    defaultClock.now(),
		CallerSite:  callerSite,
		HasCaller:   !callerSite.IsZero(),
		Callable:    CallableID{File: calleeFile, FirstLine: calleeFirstLine, Name: calleeName},
	})
}

// OnReturn handles a RETURN event: control leaves the thread's current
// frame normally (§4.4).
func (t *Tracer) OnReturn() {
	t.onLeave()
}

// OnException handles an EXCEPTION event. §4.4 specifies identical
// handling to RETURN: the frame is popped and its total time posted to the
// caller regardless of how control left it.
func (t *Tracer) OnException() {
	t.onLeave()
}

func (t *Tracer) onLeave() {
	now := defaultClock.now()
	callee := t.store.top()
	if callee != nil {
		t.closeCurrentLine(callee, now, true)
	}

	f, ok := t.store.pop()
	if !ok {
		// Stack underflow: a RETURN with no matching CALL. Recorded as a
		// violation by pop() itself; nothing further to post (§7).
		return
	}
	if !f.HasCaller {
		return
	}
	caller := t.store.top()
	if caller == nil {
		return
	}
	edge := Edge{Caller: f.CallerSite, Callee: f.Callable.Site()}
	t.store.AddEdgeNanos(edge, f.calleeNanos)
	caller.Discount += f.calleeNanos
	caller.calleeNanos += f.calleeNanos
}

// Flush credits any still-open frames to the sites they last entered, for
// use at profiling teardown (§3's residual-frame lifecycle invariant).
func (t *Tracer) Flush() {
	t.store.Flush(defaultClock.now())
}
