// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"github.com/born-ml/dagnet/internal/config"
	"github.com/born-ml/dagnet/internal/graph"
)

// NewAsyncDAG compiles the graph into an asynchronous DAG net. Chains
// dispatch their operators' device work without waiting, record a
// completion event on the chain's last operator, and wait on parent
// events before dispatching, so cross-device execution overlaps instead
// of serializing on every chain boundary.
func NewAsyncDAG(g *graph.Graph, cfg config.Config) (Net, error) {
	n, err := newDAGNet(g, cfg)
	if err != nil {
		return nil, err
	}
	n.runner = &asyncRunner{
		n:        n,
		recorded: make([]bool, g.NumNodes()),
	}
	return n, nil
}

// asyncRunner dispatches chains in non-blocking mode and tracks which
// operators have recorded completion events.
type asyncRunner struct {
	n *dagNet

	// recorded flags which node indices have recorded an event this
	// run. Guarded by n.state.mu.
	recorded []bool
}

// beforeRun clears event tracking from the previous iteration.
func (r *asyncRunner) beforeRun() {
	r.n.state.mu.Lock()
	for i := range r.recorded {
		r.recorded[i] = false
	}
	r.n.state.mu.Unlock()

	for _, node := range r.n.graph.Nodes {
		node.Op.Event().Reset()
	}
}

func (r *asyncRunner) runChain(chainID int, chain []int) bool {
	n := r.n
	enforce(len(chain) > 0, "net %q: chain %d is empty", n.name, chainID)

	first := chain[0]
	firstNode := n.graph.Nodes[first]

	// Verify the chain compiler didn't skip a dependency: a ready chain
	// with parents must have at least one parent event recorded.
	if len(firstNode.Parents) > 0 {
		enforce(r.anyRecorded(firstNode.Parents),
			"net %q: chain %d is ready but none of its parents recorded an event", n.name, chainID)
	}

	// Wait on every parent before dispatching our own device work.
	for _, parent := range firstNode.Parents {
		firstNode.Op.WaitFor(n.graph.Nodes[parent].Op)
	}

	// Dispatch every node without synchronous waiting. A failed
	// dispatch must not short-circuit the rest of the chain: the
	// remaining operators still dispatch so their events stay coherent.
	success := true
	for _, idx := range chain {
		o := n.graph.Nodes[idx].Op
		ok := o.RunAsync()
		if !ok {
			n.logger.Error("operator dispatch failed", "op", o.Name(), "op_type", o.Type())
		}
		success = success && ok
	}

	// Record an event for the sink of the chain.
	sink := chain[len(chain)-1]
	n.state.mu.Lock()
	alreadyRecorded := r.recorded[sink]
	r.recorded[sink] = true
	n.state.mu.Unlock()
	enforce(!alreadyRecorded,
		"net %q: an event for op %d is already recorded", n.name, sink)
	n.graph.Nodes[sink].Op.Record()

	return success
}

// afterRun performs the final blocking wait on the terminal event of
// every chain, closing the gap between "dispatched" and "complete"
// that async dispatch leaves open. Tails that never recorded (because
// the run failed early) finish as a no-op.
func (r *asyncRunner) afterRun() bool {
	ok := true
	for _, chain := range r.n.chains {
		tail := chain[len(chain)-1]
		o := r.n.graph.Nodes[tail].Op
		if err := o.Event().Finish(); err != nil {
			r.n.logger.Error("terminal event failed to retire",
				"op", o.Name(), "op_type", o.Type(), "error", err)
			ok = false
		}
	}
	return ok
}

func (r *asyncRunner) anyRecorded(parents []int) bool {
	r.n.state.mu.Lock()
	defer r.n.state.mu.Unlock()
	for _, p := range parents {
		if r.recorded[p] {
			return true
		}
	}
	return false
}
