package graph

import "fmt"

// WeightScheme assigns diffusion weights to edges whose input carries none.
type WeightScheme int

const (
	// WeightUniform gives every edge the same probability.
	WeightUniform WeightScheme = iota
	// WeightInDegree gives every in-edge of v the weight 1/indeg(v), so
	// linear-threshold in-weights sum to one.
	WeightInDegree
)

// ParseWeightScheme accepts "uniform" and "indegree".
func ParseWeightScheme(s string) (WeightScheme, error) {
	switch s {
	case "uniform", "":
		return WeightUniform, nil
	case "indegree", "in-degree":
		return WeightInDegree, nil
	}
	return 0, fmt.Errorf("unknown weight scheme %q", s)
}

// Reweight returns a copy of g with weights assigned by scheme; p is the
// uniform probability and is ignored for WeightInDegree.
func Reweight(g *CSR, scheme WeightScheme, p float32) (*CSR, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("probability %v outside [0, 1]", p)
	}
	weights := make([]float32, len(g.weights))
	for v := 0; v < g.NumNodes(); v++ {
		lo, hi := g.offsets[v], g.offsets[v+1]
		w := p
		if scheme == WeightInDegree {
			w = 1 / float32(hi-lo)
		}
		for i := lo; i < hi; i++ {
			weights[i] = w
		}
	}
	return &CSR{offsets: g.offsets, sources: g.sources, weights: weights}, nil
}
