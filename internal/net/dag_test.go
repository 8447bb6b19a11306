// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/born-ml/dagnet/internal/config"
	"github.com/born-ml/dagnet/internal/device"
	"github.com/born-ml/dagnet/internal/graph"
	"github.com/born-ml/dagnet/internal/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder tracks operator execution across worker goroutines.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.all() {
		if e == event {
			n++
		}
	}
	return n
}

// indexOf returns the position of the first occurrence, or -1.
func (r *recorder) indexOf(event string) int {
	for i, e := range r.all() {
		if e == event {
			return i
		}
	}
	return -1
}

// tracedOp builds a host operator that records its execution.
func tracedOp(rec *recorder, name string, inputs, outputs []string, ok bool) op.Operator {
	return op.NewFunc(op.Def{
		Name:    name,
		Type:    "Trace",
		Device:  device.CPU,
		Inputs:  inputs,
		Outputs: outputs,
	}, func() bool {
		rec.record(name)
		return ok
	})
}

func mustBuild(t *testing.T, ops []op.Operator) *graph.Graph {
	t.Helper()
	g, err := graph.Build(ops, graph.BuildOptions{})
	require.NoError(t, err)
	return g
}

func quietConfig(workers int) config.Config {
	return config.Config{
		Name:       "test",
		NumWorkers: workers,
		Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
}

func TestDAG_LinearChain(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, []string{"y"}, true),
		tracedOp(rec, "c", []string{"y"}, nil, true),
	})
	assert.Equal(t, []int{0}, g.InitialFrontier())

	cfg := quietConfig(2)
	cfg.CollectStats = true
	n, err := NewDAG(g, cfg)
	require.NoError(t, err)
	defer n.Shutdown()

	assert.True(t, n.Run())
	assert.Equal(t, []string{"a", "b", "c"}, rec.all())

	// The whole linear run collapses into one chain on one device.
	stats := n.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats[device.CPU].Chains)

	// All parent counts must have drained to zero.
	for _, node := range g.Nodes {
		assert.Equal(t, int32(0), node.RuntimeParentCount.Load())
	}
}

func TestDAG_DiamondOrdering(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, []string{"y"}, true),
		tracedOp(rec, "c", []string{"x"}, []string{"z"}, true),
		tracedOp(rec, "d", []string{"y", "z"}, nil, true),
	})

	n, err := NewDAG(g, quietConfig(4))
	require.NoError(t, err)
	defer n.Shutdown()

	for i := 0; i < 20; i++ {
		rec.mu.Lock()
		rec.events = nil
		rec.mu.Unlock()

		require.True(t, n.Run())
		events := rec.all()
		require.Len(t, events, 4)
		assert.Equal(t, "a", events[0])
		// d must never start until both b and c have completed.
		assert.Equal(t, "d", events[3])
	}
}

func TestDAG_FailureStopsChain(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, []string{"y"}, false),
		tracedOp(rec, "c", []string{"y"}, nil, true),
	})

	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)
	defer n.Shutdown()

	assert.False(t, n.Run())
	assert.Equal(t, 1, rec.count("a"))
	assert.Equal(t, 1, rec.count("b"))
	assert.Equal(t, 0, rec.count("c"), "c must never execute after b fails")
}

func TestDAG_FailureDoesNotRunDependents(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, false),
		tracedOp(rec, "b", []string{"x"}, nil, true),
		tracedOp(rec, "c", []string{"x"}, nil, true),
	})

	n, err := NewDAG(g, quietConfig(4))
	require.NoError(t, err)
	defer n.Shutdown()

	assert.False(t, n.Run())
	assert.Equal(t, 0, rec.count("b"))
	assert.Equal(t, 0, rec.count("c"))
}

func TestDAG_RunAfterFailureRecovers(t *testing.T) {
	rec := &recorder{}
	var failing bool
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		op.NewFunc(op.Def{
			Name: "b", Type: "Trace", Device: device.CPU,
			Inputs: []string{"x"},
		}, func() bool {
			rec.record("b")
			return !failing
		}),
	})

	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)
	defer n.Shutdown()

	failing = true
	assert.False(t, n.Run())

	// The worker pool was torn down by the failure; the next run must
	// rebuild it and succeed.
	failing = false
	assert.True(t, n.Run())
	assert.Equal(t, 2, rec.count("b"))
}

func TestDAG_Idempotence(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, []string{"y"}, true),
		tracedOp(rec, "c", []string{"y"}, nil, true),
	})

	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)
	defer n.Shutdown()

	assert.True(t, n.Run())
	assert.True(t, n.Run())
	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, 2, rec.count(name))
	}
}

func TestDAG_SingleAndMaximalChainModesAgree(t *testing.T) {
	build := func() []op.Operator {
		rec := &recorder{}
		return []op.Operator{
			tracedOp(rec, "a", nil, []string{"x"}, true),
			tracedOp(rec, "b", []string{"x"}, []string{"y"}, true),
			tracedOp(rec, "c", []string{"x"}, []string{"z"}, true),
			tracedOp(rec, "d", []string{"y", "z"}, []string{"w"}, true),
			tracedOp(rec, "e", []string{"w"}, nil, false),
		}
	}

	for _, disableChaining := range []bool{false, true} {
		cfg := quietConfig(3)
		cfg.DisableChaining = disableChaining

		n, err := NewDAG(mustBuild(t, build()), cfg)
		require.NoError(t, err)

		// Chaining is an optimization, not a semantic change: both
		// modes must agree on the end-to-end verdict.
		assert.False(t, n.Run(), "disable_chaining=%v", disableChaining)
		n.Shutdown()
	}
}

func TestDAG_WideGraphManyWorkers(t *testing.T) {
	rec := &recorder{}
	ops := []op.Operator{tracedOp(rec, "src", nil, []string{"x"}, true)}
	mids := make([]string, 0, 16)
	for i := 0; i < 16; i++ {
		name := "mid" + string(rune('a'+i))
		out := "y" + string(rune('a'+i))
		ops = append(ops, tracedOp(rec, name, []string{"x"}, []string{out}, true))
		mids = append(mids, out)
	}
	ops = append(ops, tracedOp(rec, "sink", mids, nil, true))

	n, err := NewDAG(mustBuild(t, ops), quietConfig(8))
	require.NoError(t, err)
	defer n.Shutdown()

	require.True(t, n.Run())
	assert.Len(t, rec.all(), 18)
	assert.Equal(t, "src", rec.all()[0])
	assert.Equal(t, "sink", rec.all()[17])
}

func TestDAG_MoreWorkersThanChains(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, nil, true),
	})

	// Extra workers idle; this must be benign.
	n, err := NewDAG(g, quietConfig(16))
	require.NoError(t, err)
	defer n.Shutdown()
	assert.True(t, n.Run())
}

func TestDAG_NegativeWorkersRejected(t *testing.T) {
	g := mustBuild(t, []op.Operator{tracedOp(&recorder{}, "a", nil, nil, true)})
	_, err := NewDAG(g, config.Config{NumWorkers: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_workers")
}

func TestDAG_UnsetWorkersDefaultsToOneWithWarning(t *testing.T) {
	var buf bytes.Buffer
	g := mustBuild(t, []op.Operator{tracedOp(&recorder{}, "a", nil, nil, true)})

	cfg := config.Config{
		Name:   "test",
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
	}
	n, err := NewDAG(g, cfg)
	require.NoError(t, err)
	defer n.Shutdown()

	assert.Contains(t, buf.String(), "num_workers not set")
	assert.Contains(t, buf.String(), "number of workers is 1")
	assert.True(t, n.Run())
}

func TestDAG_EmptyGraph(t *testing.T) {
	g, err := graph.Build(nil, graph.BuildOptions{})
	require.NoError(t, err)

	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)
	defer n.Shutdown()
	assert.True(t, n.Run())
}

func TestDAG_ConcurrentRunsSerialize(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, nil, true),
	})

	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)
	defer n.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, n.Run())
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, rec.count("a"))
	assert.Equal(t, 4, rec.count("b"))
}

func TestDAG_ShutdownIsIdempotent(t *testing.T) {
	g := mustBuild(t, []op.Operator{tracedOp(&recorder{}, "a", nil, nil, true)})
	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)

	require.True(t, n.Run())
	n.Shutdown()
	assert.NotPanics(t, func() { n.Shutdown() })
}

func TestDAG_RunAfterShutdownPanics(t *testing.T) {
	g := mustBuild(t, []op.Operator{tracedOp(&recorder{}, "a", nil, nil, true)})
	n, err := NewDAG(g, quietConfig(2))
	require.NoError(t, err)

	n.Shutdown()
	assert.Panics(t, func() { n.Run() })
}

func TestDAG_StatsDisabledReturnsNil(t *testing.T) {
	g := mustBuild(t, []op.Operator{tracedOp(&recorder{}, "a", nil, nil, true)})
	n, err := NewDAG(g, quietConfig(1))
	require.NoError(t, err)
	defer n.Shutdown()

	require.True(t, n.Run())
	assert.Nil(t, n.Stats())
}

func TestDAG_StatsCountChainsAcrossRuns(t *testing.T) {
	rec := &recorder{}
	g := mustBuild(t, []op.Operator{
		tracedOp(rec, "a", nil, []string{"x"}, true),
		tracedOp(rec, "b", []string{"x"}, []string{"y"}, true),
		tracedOp(rec, "c", []string{"x"}, []string{"z"}, true),
		tracedOp(rec, "d", []string{"y", "z"}, nil, true),
	})

	cfg := quietConfig(4)
	cfg.CollectStats = true
	n, err := NewDAG(g, cfg)
	require.NoError(t, err)
	defer n.Shutdown()

	require.True(t, n.Run())
	require.True(t, n.Run())

	stats := n.Stats()
	require.NotNil(t, stats)
	// The diamond compiles to 4 chains; two runs execute 8.
	assert.Equal(t, int64(8), stats[device.CPU].Chains)
}
