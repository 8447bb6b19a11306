// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU command stream used by
// accelerator-bound operators. The stream owns the WebGPU device and
// queue; operators encode their work against the device and submit it
// through the stream, and the scheduler records completion markers on
// the stream to implement event semantics.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Stream wraps a WebGPU device queue as an ordered command stream.
// Submissions through one stream retire in submission order, which is
// what makes same-device event waits free.
type Stream struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfoGo

	// Serializes queue submissions from concurrent worker goroutines.
	mu sync.Mutex
}

// New creates a stream on the default high-performance adapter.
// Returns an error if WebGPU is not available or initialization fails.
func New() (stream *Stream, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			stream = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	adapterInfo, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get adapter info: %w", infoErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Stream{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: adapterInfo,
	}, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Device returns the underlying WebGPU device for operators that need
// to encode command buffers.
func (s *Stream) Device() *wgpu.Device {
	return s.device
}

// AdapterInfo returns information about the adapter backing the stream.
func (s *Stream) AdapterInfo() *wgpu.AdapterInfoGo {
	return s.adapterInfo
}

// Submit enqueues command buffers on the stream in order.
func (s *Stream) Submit(commands ...*wgpu.CommandBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Submit(commands...)
}

// Marker submits an empty command buffer that acts as a completion
// marker for all work submitted so far, and returns a wait closure that
// blocks until the marker retires. The closure is handed to
// Event.Record; the event is finished by calling it.
func (s *Stream) Marker() func() error {
	s.mu.Lock()
	encoder := s.device.CreateCommandEncoder(nil)
	cmdBuffer := encoder.Finish(nil)
	s.queue.Submit(cmdBuffer)
	s.mu.Unlock()

	return s.Sync
}

// Sync blocks until all previously submitted work has retired.
// Uses a staging-buffer map round trip: mapping a staging buffer for
// read forces the queue to drain everything submitted before the copy.
func (s *Stream) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const size = 4

	srcBuffer := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:  size,
	})
	defer srcBuffer.Release()

	stagingBuffer := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := s.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	s.queue.Submit(cmdBuffer)

	if err := stagingBuffer.MapAsync(s.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map sync buffer: %w", err)
	}
	// The mapped contents are irrelevant; mapping itself is the fence.
	_ = (*byte)(unsafe.Pointer(stagingBuffer.GetMappedRange(0, size)))
	stagingBuffer.Unmap()

	return nil
}

// Release frees all WebGPU resources owned by the stream.
// Must be called when the stream is no longer needed.
func (s *Stream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		s.device.Release()
		s.device = nil
	}
	if s.adapter != nil {
		s.adapter.Release()
		s.adapter = nil
	}
	if s.instance != nil {
		s.instance.Release()
		s.instance = nil
	}
	s.queue = nil
}
