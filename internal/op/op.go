// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package op defines the executable operator interface the DAG engine
// schedules, plus base plumbing shared by operator implementations.
//
// The engine never looks inside an operator: it sees declared input and
// output blob names for dependency wiring, a device affinity for chain
// compilation, Run/RunAsync for execution, and an event for cross-device
// synchronization. Kernel packages provide concrete operators; Func and
// StreamFunc wrap plain closures for hosts and accelerator streams.
package op

import "github.com/born-ml/dagnet/internal/device"

// Operator is one executable unit of work in a computation graph.
//
// Run and RunAsync report success as a bool rather than an error: a
// failing operator logs its own diagnostics, and the scheduler only
// needs the verdict to flip the run-level success flag.
type Operator interface {
	// Name returns the operator's instance name, used in logs.
	Name() string

	// Type returns the operator's kind (e.g. "Conv", "FC"), used in logs.
	Type() string

	// Device returns the compute device the operator is bound to.
	Device() device.Device

	// Inputs returns the blob names the operator consumes.
	Inputs() []string

	// Outputs returns the blob names the operator produces.
	Outputs() []string

	// ControlInputs returns blob names that are pure ordering
	// dependencies: the operator must run after their producers but
	// does not read them.
	ControlInputs() []string

	// Run executes the operator synchronously and reports success.
	Run() bool

	// RunAsync dispatches the operator's device work without waiting
	// for it to retire and reports dispatch success. Host-synchronous
	// operators complete their work inline.
	RunAsync() bool

	// Event returns the operator's completion event.
	Event() *device.Event

	// WaitFor makes the operator's device work wait on a parent's
	// recorded event. Same-device waits are free (stream ordering);
	// cross-device waits block until the parent event finishes.
	WaitFor(parent Operator)

	// Record places a completion marker for the operator's dispatched
	// work on its event.
	Record()
}

// Stream is the device command stream an accelerator operator submits
// work through. Marker returns the retirement-wait closure recorded on
// the operator's event.
type Stream interface {
	Marker() func() error
}

// Def describes an operator's static attributes: identity, device
// affinity and declared blob dependencies.
type Def struct {
	Name          string
	Type          string
	Device        device.Device
	Inputs        []string
	Outputs       []string
	ControlInputs []string
}

// Base implements the static and synchronization parts of Operator.
// Concrete operators embed it and provide Run/RunAsync.
type Base struct {
	def    Def
	ev     *device.Event
	stream Stream // nil for host-synchronous devices
}

// NewBase constructs operator plumbing from a definition. stream may be
// nil for host-synchronous devices.
func NewBase(def Def, stream Stream) Base {
	return Base{def: def, ev: device.NewEvent(), stream: stream}
}

// Name returns the operator's instance name.
func (b *Base) Name() string { return b.def.Name }

// Type returns the operator's kind.
func (b *Base) Type() string { return b.def.Type }

// Device returns the operator's device affinity.
func (b *Base) Device() device.Device { return b.def.Device }

// Inputs returns the consumed blob names.
func (b *Base) Inputs() []string { return b.def.Inputs }

// Outputs returns the produced blob names.
func (b *Base) Outputs() []string { return b.def.Outputs }

// ControlInputs returns the pure ordering dependencies.
func (b *Base) ControlInputs() []string { return b.def.ControlInputs }

// Event returns the operator's completion event.
func (b *Base) Event() *device.Event { return b.ev }

// WaitFor blocks the operator's upcoming device work on a parent's
// recorded event. A retirement error on the parent's device surfaces
// through the final event finish at the end of the run, so it is not
// propagated here.
func (b *Base) WaitFor(parent Operator) {
	if parent.Device() == b.def.Device {
		// Same stream: submission order already serializes the work.
		return
	}
	_ = parent.Event().Finish()
}

// Record marks the operator's event recorded, capturing a device-level
// retirement marker when the operator is bound to a stream.
func (b *Base) Record() {
	if b.stream != nil {
		b.ev.Record(b.stream.Marker())
		return
	}
	b.ev.Record(nil)
}

// Func is a host-synchronous operator wrapping a plain closure.
// Its RunAsync completes the work inline, matching host semantics.
type Func struct {
	Base
	fn func() bool
}

// NewFunc wraps fn as a host-synchronous operator.
func NewFunc(def Def, fn func() bool) *Func {
	return &Func{Base: NewBase(def, nil), fn: fn}
}

// Run executes the closure.
func (f *Func) Run() bool { return f.fn() }

// RunAsync executes the closure inline; host work has no deferred part.
func (f *Func) RunAsync() bool { return f.fn() }

// StreamFunc is an accelerator operator whose closure encodes and
// submits device work through a stream without waiting for retirement.
type StreamFunc struct {
	Base
	fn func() bool
}

// NewStreamFunc wraps fn as a stream-bound operator. fn must only
// dispatch: it submits command buffers through the stream and returns
// without blocking on the device.
func NewStreamFunc(def Def, stream Stream, fn func() bool) *StreamFunc {
	return &StreamFunc{Base: NewBase(def, stream), fn: fn}
}

// Run dispatches the work and blocks until it retires. The operator's
// event is left untouched; only the async scheduler records events.
func (f *StreamFunc) Run() bool {
	if !f.fn() {
		return false
	}
	return f.stream.Marker()() == nil
}

// RunAsync dispatches the work without waiting.
func (f *StreamFunc) RunAsync() bool { return f.fn() }

// Compile-time interface checks.
var (
	_ Operator = (*Func)(nil)
	_ Operator = (*StreamFunc)(nil)
)
