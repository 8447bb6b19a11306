// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package device

import "sync"

// EventState describes the lifecycle of an Event.
type EventState int32

// Event lifecycle states.
const (
	// Unrecorded means no device work has been associated with the event.
	Unrecorded EventState = iota
	// Recorded means device work has been enqueued and a completion
	// marker placed in the device's command stream.
	Recorded
	// Finished means the marker has been confirmed complete.
	Finished
)

// String returns a human-readable state name.
func (s EventState) String() string {
	switch s {
	case Unrecorded:
		return "unrecorded"
	case Recorded:
		return "recorded"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is a per-operator completion marker supporting record, wait and
// finish semantics. A child operator waits on the recorded event of each
// parent before starting its own device work.
//
// Events are reused across runs; Reset returns an event to the
// unrecorded state before a new run begins.
type Event struct {
	mu     sync.Mutex
	state  EventState
	marker func() error // Device-level retirement wait, set on Record.
	err    error        // Retirement error, sticky once Finished.
}

// NewEvent returns an event in the unrecorded state.
func NewEvent() *Event {
	return &Event{}
}

// Record transitions the event to the recorded state. The marker is the
// device-level retirement wait and may be nil for host-synchronous
// devices, where recorded work is already complete by the time Record
// is called.
//
// Recording an already-recorded event indicates a scheduling bug and
// panics.
func (e *Event) Record(marker func() error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Unrecorded {
		panic("device: event recorded twice without reset")
	}
	e.state = Recorded
	e.marker = marker
}

// Finish blocks until the recorded device work has retired and returns
// the retirement error, if any. Finishing an unrecorded event is a
// no-op: nothing was dispatched, so there is nothing to wait for.
// Finish is idempotent; later calls return the original error.
func (e *Event) Finish() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Unrecorded:
		return nil
	case Finished:
		return e.err
	}
	if e.marker != nil {
		e.err = e.marker()
	}
	e.state = Finished
	return e.err
}

// Query returns the current state without blocking.
func (e *Event) Query() EventState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Reset returns the event to the unrecorded state so it can be recorded
// again on the next run.
func (e *Event) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Unrecorded
	e.marker = nil
	e.err = nil
}
