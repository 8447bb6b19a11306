// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph builds operator dependency graphs for the DAG engine.
//
// Build wires parent/child edges between operators by blob name: an
// operator is a child of the most recent producer of each blob it
// consumes. The resulting graph is an arena of nodes with integer-index
// edges, compiled into execution chains by the net constructors.
//
// Example:
//
//	g, err := graph.Build([]op.Operator{loadOp, convOp, reluOp},
//	    graph.BuildOptions{ExternalInputs: []string{"data"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := net.NewDAG(g, net.Config{Name: "infer", NumWorkers: 4})
package graph

import (
	"github.com/born-ml/dagnet/internal/graph"
	"github.com/born-ml/dagnet/internal/op"
)

// Graph is an arena of operator nodes wired by blob-name dependencies.
type Graph = graph.Graph

// OperatorNode is one vertex of the dependency graph.
type OperatorNode = graph.OperatorNode

// BuildOptions controls graph construction.
type BuildOptions = graph.BuildOptions

// Chains maps each chain-start node index to the ordered node indices
// of its execution chain.
type Chains = graph.Chains

// Build wires parent/child edges between operators by blob name.
// See the package documentation for the dependency rules.
func Build(ops []op.Operator, opts BuildOptions) (*Graph, error) {
	return graph.Build(ops, opts)
}

// SingleChains puts every node in its own chain. Semantically
// equivalent to ComputeChains, with more scheduling overhead.
func SingleChains(g *Graph) Chains {
	return graph.SingleChains(g)
}

// ComputeChains greedily collapses straight-line runs of
// single-dependency, same-device nodes into maximal execution chains.
func ComputeChains(g *Graph) Chains {
	return graph.ComputeChains(g)
}
