// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU command stream for
// accelerator-bound operators.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via Dawn/D3D12)
//   - macOS (via Dawn/Metal)
//   - Linux (via Dawn/Vulkan)
//
// Example:
//
//	stream, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Release()
//
//	conv := op.NewStreamFunc(op.Def{
//	    Name:    "conv1",
//	    Type:    "Conv",
//	    Device:  device.WebGPU,
//	    Inputs:  []string{"data"},
//	    Outputs: []string{"conv1_out"},
//	}, stream, dispatchConv)
package webgpu

import internalwebgpu "github.com/born-ml/dagnet/internal/device/webgpu"

// Stream wraps a WebGPU device queue as an ordered command stream.
type Stream = internalwebgpu.Stream

// New creates a stream on the default high-performance adapter.
//
// This function initializes the WebGPU device and returns a stream
// ready for command submission. Call Release() when done to free GPU
// resources. Returns an error if WebGPU initialization fails (e.g. no
// compatible GPU).
func New() (*Stream, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It attempts to initialize a WebGPU adapter to verify that a
// compatible GPU and drivers are present, which is useful for graceful
// fallback to CPU-only execution:
//
//	if webgpu.IsAvailable() {
//	    stream, _ = webgpu.New()
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
