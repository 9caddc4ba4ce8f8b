package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/ports"
)

// bfsSolver is a level-synchronous stochastic traversal over in-edges:
// an edge u -> v is crossed from a reached v with probability equal to
// its weight. Each level's frontier is split into at most maxBlocks
// contiguous chunks; chunk b draws from random state b*blockSize, and
// candidates are merged in chunk order so results do not depend on
// goroutine scheduling.
type bfsSolver struct {
	dev       *Emulator
	g         *deviceGraph
	stream    *stream
	maxBlocks int
	blockSize int

	preds   *vertexBuffer
	rng     *rngBuffer
	reached []bool
}

type edgeCandidate struct {
	source, parent uint32
}

// NewBFSSolver binds a traversal solver to g and stream.
func (d *Emulator) NewBFSSolver(g ports.DeviceGraph, maxBlocks int, st ports.DeviceStream) (ports.BFSSolver, error) {
	dg, err := asGraph(g)
	if err != nil {
		return nil, err
	}
	s, ok := st.(*stream)
	if !ok || s.dev != d {
		return nil, errors.DeviceFailure("solver", fmt.Errorf("%w: foreign stream", core.ErrDeviceFailure))
	}
	if maxBlocks <= 0 {
		return nil, errors.DeviceFailure("solver", fmt.Errorf("%w: %d blocks", core.ErrDeviceFailure, maxBlocks))
	}
	return &bfsSolver{
		dev:       d,
		g:         dg,
		stream:    s,
		maxBlocks: maxBlocks,
		blockSize: d.cfg.BFSBlockSize,
		reached:   make([]bool, dg.NumNodes()),
	}, nil
}

func (b *bfsSolver) Configure(predecessors ports.VertexBuffer) error {
	vb, err := asVertices(predecessors)
	if err != nil {
		return err
	}
	if len(vb.data) < b.g.NumNodes() {
		return errors.DeviceFailure("solver", fmt.Errorf("%w: predecessor buffer of %d for %d vertices",
			core.ErrDeviceFailure, len(vb.data), b.g.NumNodes()))
	}
	b.preds = vb
	return nil
}

func (b *bfsSolver) SetRNG(states ports.RNGStateBuffer) {
	if rb, err := asRNG(states); err == nil {
		b.rng = rb
	}
}

// Traverse queues a traversal from root on the solver's stream.
func (b *bfsSolver) Traverse(root uint32) error {
	if b.preds == nil || b.rng == nil || len(b.rng.states) == 0 {
		return errors.DeviceFailure("traverse", fmt.Errorf("%w: solver not configured", core.ErrDeviceFailure))
	}
	if int(root) >= b.g.NumNodes() {
		return errors.DeviceFailure("traverse", fmt.Errorf("%w: root %d out of range", core.ErrDeviceFailure, root))
	}
	b.dev.launches.Add(1)
	return b.stream.enqueue(func() error {
		return b.traverse(root)
	})
}

func (b *bfsSolver) traverse(root uint32) error {
	n := b.g.NumNodes()
	preds := b.preds.data[:n]
	for i := range preds {
		preds[i] = -1
	}
	clear(b.reached)
	b.reached[root] = true

	frontier := []uint32{root}
	for len(frontier) > 0 {
		chunks := min(b.maxBlocks, len(frontier))
		size := (len(frontier) + chunks - 1) / chunks
		found := make([][]edgeCandidate, chunks)

		var wg sync.WaitGroup
		var unseeded atomic.Bool
		for c := 0; c < chunks; c++ {
			lo := c * size
			if lo >= len(frontier) {
				break
			}
			hi := min(lo+size, len(frontier))
			rng := b.rng.states[(c*b.blockSize)%len(b.rng.states)]
			wg.Add(1)
			go func(c int, part []uint32) {
				defer wg.Done()
				if rng == nil {
					unseeded.Store(true)
					return
				}
				var local []edgeCandidate
				for _, v := range part {
					sources, weights := b.g.g.InNeighbors(v)
					for i, u := range sources {
						if b.reached[u] {
							continue
						}
						if rng.Float64() < float64(weights[i]) {
							local = append(local, edgeCandidate{source: u, parent: v})
						}
					}
				}
				found[c] = local
			}(c, frontier[lo:hi])
		}
		wg.Wait()
		if unseeded.Load() {
			return fmt.Errorf("%w: unseeded random state", core.ErrDeviceFailure)
		}

		var next []uint32
		for _, local := range found {
			for _, e := range local {
				if b.reached[e.source] {
					continue
				}
				b.reached[e.source] = true
				preds[e.source] = int32(e.parent)
				next = append(next, e.source)
			}
		}
		frontier = next
	}
	return nil
}

func (b *bfsSolver) Release() error {
	b.preds = nil
	b.rng = nil
	b.reached = nil
	return nil
}
