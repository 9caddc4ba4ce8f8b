// Package diffusion implements the host-side sampling primitive that grows
// one Reverse Reachable set from a root under the independent-cascade or
// linear-threshold model.
package diffusion

import (
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

// Sampler grows RRR sets on the host. Each worker owns its own Sampler;
// it is not safe for concurrent use.
type Sampler struct {
	g       ports.Graph
	visited *visitedSet
	queue   []uint32
}

// NewSampler returns a sampler over g.
func NewSampler(g ports.Graph) *Sampler {
	return &Sampler{g: g, visited: newVisitedSet(g.NumNodes())}
}

// Sample appends the RRR set of root to dst and returns it sorted ascending.
func (s *Sampler) Sample(root uint32, rng ports.Stream, model rrr.DiffusionModel, dst rrr.Sample) rrr.Sample {
	s.visited.reset()
	if model == rrr.LinearThreshold {
		dst = s.linearThreshold(root, rng, dst)
	} else {
		dst = s.independentCascade(root, rng, dst)
	}
	dst.Canonicalize()
	return dst
}

// independentCascade runs a reverse BFS where each in-edge of a reached
// vertex is live with probability equal to its weight. A coin is flipped
// only for edges whose source has not been reached yet.
func (s *Sampler) independentCascade(root uint32, rng ports.Stream, dst rrr.Sample) rrr.Sample {
	s.visited.checkAndVisit(root)
	dst = append(dst, root)
	s.queue = append(s.queue[:0], root)

	for head := 0; head < len(s.queue); head++ {
		v := s.queue[head]
		sources, weights := s.g.InNeighbors(v)
		for i, u := range sources {
			if s.visited.visited(u) {
				continue
			}
			if rng.Float64() < float64(weights[i]) {
				s.visited.checkAndVisit(u)
				s.queue = append(s.queue, u)
				dst = append(dst, u)
			}
		}
	}
	return dst
}

// linearThreshold walks backwards from root, choosing at most one
// in-neighbour per step, until no neighbour is chosen or the chosen one
// was already visited.
func (s *Sampler) linearThreshold(root uint32, rng ports.Stream, dst rrr.Sample) rrr.Sample {
	s.visited.checkAndVisit(root)
	dst = append(dst, root)

	v := root
	for {
		u, ok := NextLT(s.g, v, rng.Float64())
		if !ok || s.visited.checkAndVisit(u) {
			return dst
		}
		dst = append(dst, u)
		v = u
	}
}

// NextLT selects the in-neighbour of v activated by threshold: the first
// in-edge at which the running weight sum reaches threshold. ok is false
// when the in-weights of v sum to less than threshold.
func NextLT(g ports.Graph, v uint32, threshold float64) (u uint32, ok bool) {
	sources, weights := g.InNeighbors(v)
	for i, src := range sources {
		threshold -= float64(weights[i])
		if threshold <= 0 {
			return src, true
		}
	}
	return 0, false
}
