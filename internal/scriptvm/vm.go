// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package scriptvm is a minimal scripted interpreter used as the stand-in
// for "the host interpreter's tracing/profiling hook" and "the
// command-line launcher that loads and executes a target program", both
// explicitly out of scope per spec.md §1. It exists only so this repo's
// tests and its `lineprof demo` subcommand can drive pkg/lineprof
// end-to-end without a real interpreter; it is not a second profiling
// engine.
package scriptvm

import (
	"sync"

	"github.com/DataDog/dd-line-profiler/pkg/lineprof"
)

// Sink is the subset of lineprof.Tracer the VM drives. In deterministic
// mode it is a real *lineprof.Tracer; in statistical mode it is nil and
// the VM only tracks its own stack for Snapshot.
type Sink interface {
	OnLine(file string, line int)
	OnCall(calleeFile string, calleeFirstLine int, calleeName string)
	OnReturn()
	OnException()
}

// VM tracks one thread's live call stack, driving a Sink on every
// operation and/or exposing the stack to the Sampler via Snapshot
// (implements lineprof.StackWalker).
type VM struct {
	sink Sink

	mu    sync.Mutex
	stack []lineprof.SampledFrame
}

// New creates a VM. sink may be nil when the VM will only be sampled
// (§4.5's mutual exclusion between the deterministic tracer and the
// sampler).
func New(sink Sink) *VM {
	return &VM{sink: sink}
}

// Call enters a callable defined at (file, firstLine) named name.
func (vm *VM) Call(file string, firstLine int, name string) {
	if vm.sink != nil {
		vm.sink.OnCall(file, firstLine, name)
	}
	vm.mu.Lock()
	vm.stack = append(vm.stack, lineprof.SampledFrame{
		Site:     lineprof.Site{File: file, Line: firstLine},
		Callable: lineprof.CallableID{File: file, FirstLine: firstLine, Name: name},
	})
	vm.mu.Unlock()
}

// Line executes line within the callable the VM is currently in.
func (vm *VM) Line(file string, line int) {
	if vm.sink != nil {
		vm.sink.OnLine(file, line)
	}
	vm.mu.Lock()
	if n := len(vm.stack); n > 0 {
		vm.stack[n-1].Site.Line = line
	}
	vm.mu.Unlock()
}

// Return leaves the current callable normally.
func (vm *VM) Return() {
	if vm.sink != nil {
		vm.sink.OnReturn()
	}
	vm.pop()
}

// Raise leaves the current callable via an exception.
func (vm *VM) Raise() {
	if vm.sink != nil {
		vm.sink.OnException()
	}
	vm.pop()
}

func (vm *VM) pop() {
	vm.mu.Lock()
	if n := len(vm.stack); n > 0 {
		vm.stack = vm.stack[:n-1]
	}
	vm.mu.Unlock()
}

// Snapshot implements lineprof.StackWalker: it returns a copy of the
// current stack, bottom to top, under the VM's own lock. A real
// interpreter's equivalent barrier is a GIL acquisition or similar; here
// the per-VM mutex plays that role for this single thread's stack.
func (vm *VM) Snapshot() []lineprof.SampledFrame {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]lineprof.SampledFrame, len(vm.stack))
	copy(out, vm.stack)
	return out
}
