// Package graph holds the read-only CSR topology shared by the sampling
// workers. Edges are stored on the transposed side: for each vertex the
// sources of its in-edges, with one diffusion weight per edge.
package graph

import (
	"fmt"
	"math"
)

// Edge is a directed, weighted edge From -> To.
type Edge struct {
	From, To uint32
	Weight   float32
}

// CSR is an in-edge compressed sparse row graph.
type CSR struct {
	offsets []uint64
	sources []uint32
	weights []float32
}

// NumNodes returns the number of vertices.
func (g *CSR) NumNodes() int {
	return len(g.offsets) - 1
}

// NumEdges returns the number of edges.
func (g *CSR) NumEdges() int {
	return len(g.sources)
}

// InNeighbors returns the sources of the edges entering v and their weights.
func (g *CSR) InNeighbors(v uint32) ([]uint32, []float32) {
	lo, hi := g.offsets[v], g.offsets[v+1]
	return g.sources[lo:hi], g.weights[lo:hi]
}

// InDegree returns the number of edges entering v.
func (g *CSR) InDegree(v uint32) int {
	return int(g.offsets[v+1] - g.offsets[v])
}

// Offsets exposes the CSR row offsets, used when uploading the graph to a device.
func (g *CSR) Offsets() []uint64 { return g.offsets }

// Sources exposes the concatenated in-edge sources.
func (g *CSR) Sources() []uint32 { return g.sources }

// Weights exposes the per-edge diffusion weights.
func (g *CSR) Weights() []float32 { return g.weights }

// FromEdges builds the in-edge CSR of an n-vertex graph. Edge order
// within each vertex follows the input order.
func FromEdges(n int, edges []Edge) (*CSR, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("vertex count %d out of range", n)
	}

	counts := make([]uint64, n+1)
	for i, e := range edges {
		if int(e.From) >= n || int(e.To) >= n {
			return nil, fmt.Errorf("edge %d (%d -> %d) references a vertex outside [0, %d)", i, e.From, e.To, n)
		}
		if e.Weight < 0 || e.Weight > 1 || math.IsNaN(float64(e.Weight)) {
			return nil, fmt.Errorf("edge %d (%d -> %d) has weight %v outside [0, 1]", i, e.From, e.To, e.Weight)
		}
		counts[e.To+1]++
	}

	// Prefix sum into row offsets
	for v := 0; v < n; v++ {
		counts[v+1] += counts[v]
	}
	offsets := counts

	next := make([]uint64, n)
	copy(next, offsets[:n])
	sources := make([]uint32, len(edges))
	weights := make([]float32, len(edges))
	for _, e := range edges {
		pos := next[e.To]
		sources[pos] = e.From
		weights[pos] = e.Weight
		next[e.To]++
	}

	return &CSR{offsets: offsets, sources: sources, weights: weights}, nil
}

// FromAdjacency builds a graph from out-adjacency lists, weighting each
// edge with weight(u, v).
func FromAdjacency(adj [][]int, weight func(u, v int) float32) (*CSR, error) {
	var edges []Edge
	for u, nbrs := range adj {
		for _, v := range nbrs {
			edges = append(edges, Edge{From: uint32(u), To: uint32(v), Weight: weight(u, v)})
		}
	}
	return FromEdges(len(adj), edges)
}
