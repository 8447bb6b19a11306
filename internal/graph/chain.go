// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

// Chains maps each chain-start node index to the ordered node indices
// of its execution chain. A chain is a maximal straight-line sequence
// scheduled as one unit: every node after the first has exactly one
// parent (the previous node), and the last node's children become the
// chain's successors.
type Chains map[int][]int

// SingleChains puts every node in its own chain. Used when chaining is
// disabled for correctness isolation; semantically equivalent to
// ComputeChains, just with more scheduling overhead.
func SingleChains(g *Graph) Chains {
	chains := make(Chains, len(g.Nodes))
	for idx, node := range g.Nodes {
		node.IsChainStart = true
		chains[idx] = []int{idx}
	}
	return chains
}

// ComputeChains greedily collapses straight-line runs of nodes into
// maximal chains. A chain extends while the current node has exactly
// one child, that child has exactly one parent, and both share device
// affinity. Nodes with zero or multiple children terminate their chain.
func ComputeChains(g *Graph) Chains {
	chains := make(Chains)
	for idx, node := range g.Nodes {
		if !isChainStart(g, idx) {
			node.IsChainStart = false
			continue
		}
		node.IsChainStart = true

		chain := []int{idx}
		cur := idx
		for {
			next, ok := chainSuccessor(g, cur)
			if !ok {
				break
			}
			chain = append(chain, next)
			cur = next
		}
		chains[idx] = chain
	}
	return chains
}

// isChainStart reports whether the node cannot be absorbed into its
// parent's chain.
func isChainStart(g *Graph, idx int) bool {
	node := g.Nodes[idx]
	if len(node.Parents) != 1 {
		return true
	}
	parent := node.Parents[0]
	if _, ok := chainSuccessor(g, parent); !ok {
		return true
	}
	return false
}

// chainSuccessor returns the unique chain continuation of the node, if
// one exists.
func chainSuccessor(g *Graph, idx int) (int, bool) {
	node := g.Nodes[idx]
	if len(node.Children) != 1 {
		return 0, false
	}
	child := node.Children[0]
	if len(g.Nodes[child].Parents) != 1 {
		return 0, false
	}
	if g.Nodes[child].Op.Device() != node.Op.Device() {
		return 0, false
	}
	return child, true
}
