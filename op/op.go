// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package op exposes the executable operator interface the DAG engine
// schedules.
//
// Kernel packages implement Operator for their device-specific
// operators; Func and StreamFunc wrap plain closures for hosts and
// accelerator streams. The engine never looks inside an operator: it
// sees declared blob names for dependency wiring, a device affinity for
// chain compilation, Run/RunAsync for execution, and an event for
// cross-device synchronization.
//
// Example:
//
//	relu := op.NewFunc(op.Def{
//	    Name:    "relu1",
//	    Type:    "Relu",
//	    Device:  device.CPU,
//	    Inputs:  []string{"conv1_out"},
//	    Outputs: []string{"relu1_out"},
//	}, func() bool {
//	    return applyRelu() == nil
//	})
package op

import "github.com/born-ml/dagnet/internal/op"

// Operator is one executable unit of work in a computation graph.
type Operator = op.Operator

// Def describes an operator's static attributes: identity, device
// affinity and declared blob dependencies.
type Def = op.Def

// Base implements the static and synchronization parts of Operator;
// concrete operators embed it and provide Run/RunAsync.
type Base = op.Base

// Stream is the device command stream an accelerator operator submits
// work through.
type Stream = op.Stream

// Func is a host-synchronous operator wrapping a plain closure.
type Func = op.Func

// StreamFunc is an accelerator operator whose closure dispatches device
// work through a stream without waiting for retirement.
type StreamFunc = op.StreamFunc

// NewBase constructs operator plumbing from a definition. stream may be
// nil for host-synchronous devices.
func NewBase(def Def, stream Stream) Base {
	return op.NewBase(def, stream)
}

// NewFunc wraps fn as a host-synchronous operator.
func NewFunc(def Def, fn func() bool) *Func {
	return op.NewFunc(def, fn)
}

// NewStreamFunc wraps fn as a stream-bound operator. fn must only
// dispatch: it submits command buffers through the stream and returns
// without blocking on the device.
func NewStreamFunc(def Def, stream Stream, fn func() bool) *StreamFunc {
	return op.NewStreamFunc(def, stream, fn)
}
