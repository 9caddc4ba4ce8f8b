package device

import (
	"fmt"
	"sync"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/diffusion"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/substream"
	"github.com/Tubbz-alt/ripples/ports"
)

// forEachThread runs fn for threads [0, n) of the grid, one goroutine per block.
func forEachThread(cfg ports.LaunchConfig, n int, fn func(t int)) {
	var wg sync.WaitGroup
	for b := 0; b < cfg.Blocks; b++ {
		lo := b * cfg.BlockSize
		if lo >= n {
			break
		}
		hi := min(lo+cfg.BlockSize, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for t := lo; t < hi; t++ {
				fn(t)
			}
		}(lo, hi)
	}
	wg.Wait()
}

func launchError(format string, args ...interface{}) error {
	return errors.DeviceFailure("launch", fmt.Errorf("%w: "+format, append([]interface{}{core.ErrDeviceFailure}, args...)...))
}

// SetupRNG seeds states[t] with substream spec.First+t of spec.NumSeqs.
func (s *stream) SetupRNG(states ports.RNGStateBuffer, spec ports.SplitSpec, cfg ports.LaunchConfig) error {
	rb, err := asRNG(states)
	if err != nil {
		return err
	}
	n := len(rb.states)
	if cfg.Threads() < n {
		return launchError("grid of %d threads cannot seed %d states", cfg.Threads(), n)
	}
	if spec.First < 0 || spec.First+n > spec.NumSeqs {
		return launchError("substreams [%d, %d) outside [0, %d)", spec.First, spec.First+n, spec.NumSeqs)
	}
	s.dev.launches.Add(1)
	return s.enqueue(func() error {
		master := substream.New(spec.Seed)
		forEachThread(cfg, n, func(t int) {
			rb.states[t] = master.Split(spec.NumSeqs, spec.First+t)
		})
		return nil
	})
}

// LaunchLT runs one linear-threshold walk per thread for the first
// args.BatchSize threads. Each walk draws its root and thresholds from
// its thread's random state and writes its vertices into a row of
// args.MaskWords words, padding with the NumNodes sentinel. A walk that
// would need more than MaskWords words leaves the row as
// [sentinel, root, sentinel...].
func (s *stream) LaunchLT(cfg ports.LaunchConfig, args ports.LTKernelArgs) error {
	dg, err := asGraph(args.Graph)
	if err != nil {
		return err
	}
	mask, err := asWords(args.Mask)
	if err != nil {
		return err
	}
	rb, err := asRNG(args.RNG)
	if err != nil {
		return err
	}
	switch {
	case args.MaskWords < 2:
		return launchError("mask width %d below 2 words", args.MaskWords)
	case args.BatchSize > cfg.Threads():
		return launchError("batch of %d exceeds %d threads", args.BatchSize, cfg.Threads())
	case args.BatchSize*args.MaskWords > len(mask.data):
		return launchError("batch of %d rows exceeds mask buffer", args.BatchSize)
	case args.BatchSize > len(rb.states):
		return launchError("batch of %d exceeds %d random states", args.BatchSize, len(rb.states))
	}

	s.dev.launches.Add(1)
	return s.enqueue(func() error {
		var unseeded error
		var once sync.Once
		forEachThread(cfg, args.BatchSize, func(t int) {
			rng := rb.states[t]
			if rng == nil {
				once.Do(func() { unseeded = launchError("thread %d has no random state", t) })
				return
			}
			row := mask.data[t*args.MaskWords : (t+1)*args.MaskWords]
			ltWalk(dg.g, rng, row)
		})
		return unseeded
	})
}

func ltWalk(g ports.Graph, rng ports.Stream, row []uint32) {
	n := g.NumNodes()
	sentinel := uint32(n)
	root := uint32(rng.IntN(n))
	row[0] = root
	size := 1

	v := root
	for {
		u, ok := diffusion.NextLT(g, v, rng.Float64())
		if !ok || inRow(row[:size], u) {
			break
		}
		if size == len(row) {
			row[0], row[1] = sentinel, root
			size = 2
			break
		}
		row[size] = u
		size++
		v = u
	}
	for i := size; i < len(row); i++ {
		row[i] = sentinel
	}
}

func inRow(row []uint32, v uint32) bool {
	for _, x := range row {
		if x == v {
			return true
		}
	}
	return false
}
