// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph builds the operator dependency graph the DAG engine
// executes. Nodes live in an arena indexed by declaration order, with
// parent/child edges stored as integer indices; this keeps the graph
// free of pointer cycles and makes per-run bookkeeping a flat array
// walk.
package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/dagnet/internal/op"
)

// OperatorNode is one vertex of the dependency graph. Parents and
// Children are indices into the owning Graph's node arena, ordered by
// discovery. RuntimeParentCount is the per-run countdown of unsatisfied
// parents; it is reset at the start of every run and is the single
// point of truth for readiness.
type OperatorNode struct {
	Op       op.Operator
	Parents  []int
	Children []int

	// RuntimeParentCount is decremented by workers as parent chains
	// complete. Reaching zero makes the node ready.
	RuntimeParentCount atomic.Int32

	// IsChainStart marks the node as the head of an execution chain.
	// Set by the chain compiler.
	IsChainStart bool
}

// Graph is an arena of operator nodes wired by blob-name dependencies.
type Graph struct {
	Nodes []*OperatorNode

	frontier []int
}

// BuildOptions controls graph construction.
type BuildOptions struct {
	// ExternalInputs lists blobs supplied by the caller before the run.
	// Consuming one of them does not create an edge.
	ExternalInputs []string
}

// Build wires parent/child edges between operators by blob name: an
// operator is a child of the most recent producer of each blob it
// consumes, whether as a data input or a control input. A blob consumed
// before any operator produces it must be declared an external input,
// otherwise construction fails.
//
// Two edges between the same pair of operators indicate a malformed
// definition (a single edge already orders the pair) and fail
// construction.
func Build(ops []op.Operator, opts BuildOptions) (*Graph, error) {
	g := &Graph{Nodes: make([]*OperatorNode, 0, len(ops))}
	for _, o := range ops {
		g.Nodes = append(g.Nodes, &OperatorNode{Op: o})
	}

	// lastProducer maps a blob name to the index of the node that most
	// recently produced it; external inputs map to -1.
	lastProducer := make(map[string]int)
	for _, blob := range opts.ExternalInputs {
		lastProducer[blob] = -1
	}

	edgeSeen := make(map[[2]int]bool)
	addEdge := func(parent, child int) error {
		key := [2]int{parent, child}
		if edgeSeen[key] {
			return fmt.Errorf(
				"graph: duplicate dependency between op %q (#%d) and op %q (#%d)",
				g.Nodes[parent].Op.Name(), parent, g.Nodes[child].Op.Name(), child)
		}
		edgeSeen[key] = true
		g.Nodes[parent].Children = append(g.Nodes[parent].Children, child)
		g.Nodes[child].Parents = append(g.Nodes[child].Parents, parent)
		return nil
	}

	for idx, o := range ops {
		consumed := make([]string, 0, len(o.Inputs())+len(o.ControlInputs()))
		consumed = append(consumed, o.Inputs()...)
		consumed = append(consumed, o.ControlInputs()...)

		for _, blob := range consumed {
			producer, ok := lastProducer[blob]
			if !ok {
				return nil, fmt.Errorf(
					"graph: op %q (%s) consumes blob %q before any op produces it; "+
						"declare it as an external input if it is supplied by the caller",
					o.Name(), o.Type(), blob)
			}
			if producer < 0 {
				continue // External input, no edge.
			}
			if producer == idx {
				continue // In-place consumption of our own output.
			}
			if err := addEdge(producer, idx); err != nil {
				return nil, err
			}
		}

		// Outputs are registered after inputs are wired, so an in-place
		// op (input == output) chains to the previous producer.
		for _, blob := range o.Outputs() {
			lastProducer[blob] = idx
		}
	}

	// The initial frontier is the zero-parent nodes in declaration
	// order, independent of worker count.
	for idx, node := range g.Nodes {
		if len(node.Parents) == 0 {
			g.frontier = append(g.frontier, idx)
		}
	}

	return g, nil
}

// InitialFrontier returns the indices of zero-parent nodes in
// declaration order. The returned slice is owned by the graph.
func (g *Graph) InitialFrontier() []int {
	return g.frontier
}

// NumNodes returns the number of operator nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.Nodes)
}

// ResetRuntimeParentCounts reinitializes every node's countdown to its
// static parent count. Called at the start of each run.
func (g *Graph) ResetRuntimeParentCounts() {
	for _, node := range g.Nodes {
		node.RuntimeParentCount.Store(int32(len(node.Parents)))
	}
}
