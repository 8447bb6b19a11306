// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package net exposes the DAG execution engine.
//
// A net is a compiled operator graph plus a persistent worker pool.
// NewDAG builds the synchronous variant: each execution chain runs to
// completion inside a worker before its children are released.
// NewAsyncDAG builds the asynchronous variant: chains dispatch device
// work without waiting, record completion events, and synchronize
// across devices through event waits, so cross-device work overlaps
// instead of serializing on every chain boundary.
//
// Example:
//
//	g, err := graph.Build(ops, graph.BuildOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := net.NewDAG(g, net.Config{Name: "train", NumWorkers: 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer n.Shutdown()
//
//	if !n.Run() {
//	    log.Fatal("run failed, see logs for the failing operator")
//	}
package net

import (
	"github.com/born-ml/dagnet/internal/config"
	"github.com/born-ml/dagnet/internal/graph"
	"github.com/born-ml/dagnet/internal/net"
)

// Net is a runnable compiled graph.
type Net = net.Net

// Config controls how a net schedules its graph.
type Config = config.Config

// DeviceStats aggregates chain timing for one device across runs.
type DeviceStats = net.DeviceStats

// DefaultConfig returns the configuration used when the caller
// specifies nothing: one worker, chaining enabled, stats off.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a net configuration from a YAML file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewDAG compiles the graph into a synchronous DAG net.
func NewDAG(g *graph.Graph, cfg Config) (Net, error) {
	return net.NewDAG(g, cfg)
}

// NewAsyncDAG compiles the graph into an asynchronous DAG net.
func NewAsyncDAG(g *graph.Graph, cfg Config) (Net, error) {
	return net.NewAsyncDAG(g, cfg)
}
