// Package testkit provides small fixture graphs for tests and demos.
package testkit

import (
	"github.com/Tubbz-alt/ripples/internal/graph"
)

// Chain returns the directed path 0 -> 1 -> ... -> n-1 with every edge weighted w.
func Chain(n int, w float32) *graph.CSR {
	edges := make([]graph.Edge, 0, n)
	for v := 0; v+1 < n; v++ {
		edges = append(edges, graph.Edge{From: uint32(v), To: uint32(v + 1), Weight: w})
	}
	return mustBuild(n, edges)
}

// Star returns hub 0 pointing at leaves 1..n-1, every edge weighted w.
func Star(n int, w float32) *graph.CSR {
	edges := make([]graph.Edge, 0, n)
	for v := 1; v < n; v++ {
		edges = append(edges, graph.Edge{From: 0, To: uint32(v), Weight: w})
	}
	return mustBuild(n, edges)
}

// FourNode is a small graph with a cycle and a shared in-neighbour:
// 0 -> 1, 1 -> 2, 2 -> 0, 0 -> 3, 2 -> 3. LT in-weights of every vertex sum to one.
func FourNode() *graph.CSR {
	return mustBuild(4, []graph.Edge{
		{From: 0, To: 1, Weight: 1},
		{From: 1, To: 2, Weight: 1},
		{From: 2, To: 0, Weight: 1},
		{From: 0, To: 3, Weight: 0.5},
		{From: 2, To: 3, Weight: 0.5},
	})
}

// Diamond returns 0 -> {1, 2} -> 3 weighted w.
func Diamond(w float32) *graph.CSR {
	return mustBuild(4, []graph.Edge{
		{From: 0, To: 1, Weight: w},
		{From: 0, To: 2, Weight: w},
		{From: 1, To: 3, Weight: w},
		{From: 2, To: 3, Weight: w},
	})
}

// Isolated returns n vertices and no edges.
func Isolated(n int) *graph.CSR {
	return mustBuild(n, nil)
}

func mustBuild(n int, edges []graph.Edge) *graph.CSR {
	g, err := graph.FromEdges(n, edges)
	if err != nil {
		panic(err)
	}
	return g
}
