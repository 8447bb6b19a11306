// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"sync"
	"time"

	"github.com/born-ml/dagnet/internal/device"
)

// DeviceStats aggregates chain timing for one device across runs.
type DeviceStats struct {
	// Chains is the number of chains executed on the device.
	Chains int64

	// QueueWait is the total time chains spent between being queued and
	// being picked up by a worker.
	QueueWait time.Duration

	// RunTime is the total time workers spent executing chains.
	RunTime time.Duration
}

// statsCollector accumulates per-device timing when stats collection is
// enabled. Chain IDs are unique per run and a chain is queued at most
// once per run, so the queued-timestamp map never collides.
type statsCollector struct {
	mu        sync.Mutex
	queuedAt  map[int]time.Time
	perDevice map[device.Device]*DeviceStats
}

func newStatsCollector() *statsCollector {
	return &statsCollector{
		queuedAt:  make(map[int]time.Time),
		perDevice: make(map[device.Device]*DeviceStats),
	}
}

func (c *statsCollector) markQueued(chainID int) {
	c.mu.Lock()
	c.queuedAt[chainID] = time.Now()
	c.mu.Unlock()
}

func (c *statsCollector) markStarted(chainID int, dev device.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.statsFor(dev)
	stats.Chains++
	if queued, ok := c.queuedAt[chainID]; ok {
		stats.QueueWait += time.Since(queued)
		delete(c.queuedAt, chainID)
	}
}

func (c *statsCollector) observeRun(dev device.Device, d time.Duration) {
	c.mu.Lock()
	c.statsFor(dev).RunTime += d
	c.mu.Unlock()
}

func (c *statsCollector) statsFor(dev device.Device) *DeviceStats {
	stats, ok := c.perDevice[dev]
	if !ok {
		stats = &DeviceStats{}
		c.perDevice[dev] = stats
	}
	return stats
}

func (c *statsCollector) snapshot() map[device.Device]DeviceStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[device.Device]DeviceStats, len(c.perDevice))
	for dev, stats := range c.perDevice {
		out[dev] = *stats
	}
	return out
}
