// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device exposes compute-device identity and the event
// primitive used for cross-device synchronization.
//
// An Event is a lightweight completion marker with three observable
// states: unrecorded, recorded (device work enqueued and a marker
// placed in the device's command stream) and finished (the marker has
// confirmed completion). The DAG engine waits on parent events before
// dispatching children, which is what allows chains on different
// devices to overlap.
//
// Example:
//
//	ev := device.NewEvent()
//	ev.Record(stream.Marker()) // after dispatching device work
//	...
//	if err := ev.Finish(); err != nil {
//	    log.Fatal(err)
//	}
package device

import "github.com/born-ml/dagnet/internal/device"

// Device represents the compute device an operator is bound to.
type Device = device.Device

// Supported compute devices.
const (
	CPU    = device.CPU
	CUDA   = device.CUDA
	Vulkan = device.Vulkan
	Metal  = device.Metal
	WebGPU = device.WebGPU
)

// Event is a per-operator completion marker supporting record, wait and
// finish semantics.
type Event = device.Event

// EventState describes the lifecycle of an Event.
type EventState = device.EventState

// Event lifecycle states.
const (
	Unrecorded = device.Unrecorded
	Recorded   = device.Recorded
	Finished   = device.Finished
)

// NewEvent returns an event in the unrecorded state.
func NewEvent() *Event {
	return device.NewEvent()
}
