// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"fmt"
	"time"
)

// Benchmark runs warmupRuns untimed iterations followed by mainRuns
// timed ones and returns average wall-clock milliseconds per main
// iteration. Any failed run aborts the benchmark.
func (n *dagNet) Benchmark(warmupRuns, mainRuns int) (float64, error) {
	if warmupRuns < 0 {
		return 0, fmt.Errorf("net %q: warmup runs must be non-negative, got %d", n.name, warmupRuns)
	}
	if mainRuns <= 0 {
		return 0, fmt.Errorf("net %q: main runs must be positive, got %d", n.name, mainRuns)
	}

	n.logger.Info("starting benchmark", "warmup_runs", warmupRuns, "main_runs", mainRuns)
	for i := 0; i < warmupRuns; i++ {
		if !n.Run() {
			return 0, fmt.Errorf("net %q: warmup run %d failed", n.name, i)
		}
	}

	start := time.Now()
	for i := 0; i < mainRuns; i++ {
		if !n.Run() {
			return 0, fmt.Errorf("net %q: main run %d failed", n.name, i)
		}
	}
	elapsed := time.Since(start)

	msPerIter := float64(elapsed.Nanoseconds()) / 1e6 / float64(mainRuns)
	n.logger.Info("benchmark finished",
		"ms_per_iter", msPerIter,
		"iters_per_sec", float64(mainRuns)/elapsed.Seconds())
	return msPerIter, nil
}
