package worker

import (
	"fmt"
	"time"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/ports"
)

// ICConfig shapes the traversal solver of one GPU worker.
type ICConfig struct {
	// BatchSize is the number of samples claimed per fetch-and-add.
	BatchSize int
	// MaxBlocks is this worker's share of the device block budget.
	MaxBlocks int
}

// Threads returns the number of device random states the solver uses.
func (c ICConfig) Threads(blockSize int) int {
	return c.MaxBlocks * blockSize
}

// GPUIC produces independent-cascade samples with one device traversal
// per sample.
type GPUIC struct {
	cfg    ICConfig
	g      ports.Graph
	driver ports.Stream
	stream ports.DeviceStream
	solver ports.BFSSolver

	preds  ports.VertexBuffer
	states ports.RNGStateBuffer
	host   []int32
	res    guard
}

// NewGPUIC allocates the predecessor and random-state buffers, seeds the
// solver's states from seeds and binds a traversal solver to dg. The
// stream is borrowed from the caller. On failure nothing stays allocated.
func NewGPUIC(dev ports.Device, dg ports.DeviceGraph, stream ports.DeviceStream, g ports.Graph,
	driver ports.Stream, seeds ports.SplitSpec, cfg ICConfig) (*GPUIC, error) {
	if cfg.BatchSize <= 0 || cfg.MaxBlocks <= 0 {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf(
			"%w: IC batch %d and block budget %d must be positive", core.ErrInvalidTuning, cfg.BatchSize, cfg.MaxBlocks))
	}
	w := &GPUIC{cfg: cfg, g: g, driver: driver, stream: stream}
	n := g.NumNodes()

	var err error
	if w.preds, err = dev.AllocVertices(n); err != nil {
		return nil, err
	}
	w.res.hold(w.preds)
	threads := cfg.Threads(dev.BFSBlockSize())
	if w.states, err = dev.AllocRNGStates(threads); err != nil {
		w.res.release()
		return nil, err
	}
	w.res.hold(w.states)

	launch := ports.LaunchConfig{Blocks: cfg.MaxBlocks, BlockSize: dev.BFSBlockSize()}
	if err := stream.SetupRNG(w.states, seeds, launch); err != nil {
		w.res.release()
		return nil, err
	}
	if err := stream.Sync(); err != nil {
		w.res.release()
		return nil, err
	}

	if w.solver, err = dev.NewBFSSolver(dg, cfg.MaxBlocks, stream); err != nil {
		w.res.release()
		return nil, err
	}
	w.res.onRelease(w.solver.Release)
	if err := w.solver.Configure(w.preds); err != nil {
		w.res.release()
		return nil, err
	}
	w.solver.SetRNG(w.states)

	w.host = make([]int32, n)
	return w, nil
}

func (w *GPUIC) Kind() rrr.WorkerKind { return rrr.KindGPUIC }
func (w *GPUIC) BatchSize() int       { return w.cfg.BatchSize }

// ProcessBatch runs one traversal per slot of out.
func (w *GPUIC) ProcessBatch(out rrr.Samples) (ports.BatchStats, error) {
	stats := ports.BatchStats{Samples: len(out)}
	n := w.g.NumNodes()
	start := time.Now()

	for i := range out {
		t0 := time.Now()
		root := uint32(w.driver.IntN(n))
		if err := w.solver.Traverse(root); err != nil {
			return stats, err
		}
		if err := w.stream.Sync(); err != nil {
			return stats, err
		}
		t1 := time.Now()
		stats.Kernel += t1.Sub(t0)

		if err := w.stream.CopyVertices(w.host, w.preds, n); err != nil {
			return stats, err
		}
		if err := w.stream.Sync(); err != nil {
			return stats, err
		}
		t2 := time.Now()
		stats.Transfer += t2.Sub(t1)

		w.host[root] = int32(root)
		out[i] = w.build()
		stats.Build += time.Since(t2)
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// build collects every reached vertex; the scan order keeps the sample
// canonical.
func (w *GPUIC) build() rrr.Sample {
	var s rrr.Sample
	for v, p := range w.host {
		if p != -1 {
			s = append(s, uint32(v))
		}
	}
	return s
}

// Close releases the solver and frees the predecessor and random-state buffers.
func (w *GPUIC) Close() error {
	w.host = nil
	return w.res.release()
}
