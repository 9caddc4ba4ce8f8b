// Package engine implements the work distribution engine: it owns the
// workers of one topology and the shared work counter, and fans every
// Generate call out to one goroutine per rank.
package engine

import (
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal"
	"github.com/Tubbz-alt/ripples/internal/config"
	"github.com/Tubbz-alt/ripples/internal/diffusion"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/mapping"
	"github.com/Tubbz-alt/ripples/internal/substream"
	"github.com/Tubbz-alt/ripples/internal/worker"
	"github.com/Tubbz-alt/ripples/ports"
)

// Options configures an Engine.
type Options struct {
	Graph ports.Graph
	Seed  uint64
	Model rrr.DiffusionModel

	NumCPU int
	NumGPU int
	// GPUMapping lists the GPU ranks, comma separated; empty places GPU
	// workers after the CPU workers.
	GPUMapping string

	// Device runs the GPU workers. With a nil Device no GPU worker can be
	// built and GPUMapping is ignored.
	Device ports.Device

	// NewSampler builds the host sampling primitive, one per worker.
	// Defaults to diffusion.NewSampler.
	NewSampler func(ports.Graph) ports.Sampler

	// Tuning defaults to config.DefaultTuning when zero.
	Tuning config.Tuning

	Logger   ports.Logger
	Observer ports.Observer
}

// Engine generates RRR samples with a fixed set of workers.
type Engine struct {
	g      ports.Graph
	model  rrr.DiffusionModel
	layout substream.Layout
	log    ports.Logger
	obs    ports.Observer

	workers []worker.Worker // indexed by rank
	kinds   []rrr.WorkerKind
	owned   []worker.Worker
	counter *worker.Counter

	dg      ports.DeviceGraph
	streams []ports.DeviceStream

	running atomic.Bool
	closed  atomic.Bool
}

// New validates opts and builds every worker. Configuration errors are
// reported before any resource is acquired; if building fails part way
// everything acquired so far is released.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = internal.NopLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.NewSampler == nil {
		opts.NewSampler = func(g ports.Graph) ports.Sampler { return diffusion.NewSampler(g) }
	}
	if opts.Tuning == (config.Tuning{}) {
		opts.Tuning = config.DefaultTuning()
	}

	slots, err := validate(&opts)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		g:       opts.Graph,
		model:   opts.Model,
		log:     opts.Logger,
		obs:     opts.Observer,
		workers: make([]worker.Worker, len(slots)),
		kinds:   make([]rrr.WorkerKind, len(slots)),
		counter: worker.NewCounter(),
	}
	e.layout = substream.Layout{NumCPU: opts.NumCPU, NumGPU: opts.NumGPU}

	gpus, err := e.buildGPUWorkers(opts)
	if err != nil {
		e.release()
		return nil, err
	}
	cpus := e.buildCPUWorkers(opts)

	for _, slot := range slots {
		var w worker.Worker
		if slot.GPU {
			w = gpus[slot.Index]
		} else {
			w = cpus[slot.Index]
		}
		e.workers[slot.Rank] = w
		e.kinds[slot.Rank] = w.Kind()
		e.log.Debug("mapping: rank=%d -> %s", slot.Rank, w.Kind())
	}

	e.obs.Attach(e.Kinds())
	return e, nil
}

func validate(opts *Options) ([]mapping.Slot, error) {
	if opts.Graph == nil || opts.Graph.NumNodes() == 0 {
		return nil, errors.WithCode(errors.CodeConfigInvalid, core.ErrEmptyGraph)
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, err
	}

	var ranks mapping.Ranks
	if opts.Device == nil {
		if opts.NumGPU > 0 {
			return nil, errors.WithCode(errors.CodeConfigInvalid,
				fmt.Errorf("%w: %d GPU workers", core.ErrNoGPUSupport, opts.NumGPU))
		}
		if opts.NumCPU <= 0 {
			return nil, errors.WithCode(errors.CodeConfigInvalid,
				fmt.Errorf("%w: total=%d gpu=0", core.ErrInvalidWorkerCount, opts.NumCPU))
		}
	} else {
		var err error
		ranks, err = mapping.ParseGPUMapping(opts.NumCPU+opts.NumGPU, opts.NumGPU, opts.GPUMapping)
		if err != nil {
			return nil, err
		}
		if opts.NumGPU > 0 && opts.Model == rrr.IndependentCascade {
			// every IC worker needs at least one of the device's blocks
			if opts.NumGPU > opts.Device.MaxBlocks() {
				return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf(
					"%w: %d GPU workers share %d device blocks", core.ErrInvalidTuning, opts.NumGPU, opts.Device.MaxBlocks()))
			}
		}
	}
	return mapping.Plan(opts.NumCPU, opts.NumGPU, ranks)
}

func (e *Engine) buildGPUWorkers(opts Options) ([]worker.Worker, error) {
	if opts.NumGPU == 0 {
		return nil, nil
	}
	dev := opts.Device

	lt := worker.LTConfig{
		BlockSize: opts.Tuning.BlockSize,
		Threads:   opts.Tuning.GPUThreads,
		MaskWords: opts.Tuning.MaskWords,
	}
	ic := worker.ICConfig{
		BatchSize: opts.Tuning.ICBatch,
		MaxBlocks: dev.MaxBlocks() / opts.NumGPU,
	}
	if opts.Model == rrr.LinearThreshold {
		e.layout.ThreadsPerGPU = lt.Threads
		e.log.Debug("%s config: device=%s block_size=%d threads=%d max_blocks=%d mask_words=%d",
			rrr.KindGPULT, dev.Name(), lt.BlockSize, lt.Threads, lt.Threads/lt.BlockSize, lt.MaskWords)
	} else {
		e.layout.ThreadsPerGPU = ic.Threads(dev.BFSBlockSize())
		e.log.Debug("%s config: device=%s block_size=%d max_blocks=%d batch=%d",
			rrr.KindGPUIC, dev.Name(), dev.BFSBlockSize(), ic.MaxBlocks, ic.BatchSize)
	}

	dg, err := dev.UploadGraph(opts.Graph)
	if err != nil {
		return nil, err
	}
	e.dg = dg

	count := e.layout.Count()
	workers := make([]worker.Worker, 0, opts.NumGPU)
	for g := 0; g < opts.NumGPU; g++ {
		stream, err := dev.CreateStream()
		if err != nil {
			return nil, err
		}
		e.streams = append(e.streams, stream)

		driver := substream.Substream(opts.Seed, count, e.layout.GPUDriver(g))
		seeds := ports.SplitSpec{Seed: opts.Seed, NumSeqs: count, First: e.layout.GPUThreads(g)}

		var w worker.Worker
		if opts.Model == rrr.LinearThreshold {
			w, err = worker.NewGPULT(dev, dg, stream, opts.Graph, opts.NewSampler(opts.Graph), driver, seeds, lt)
		} else {
			w, err = worker.NewGPUIC(dev, dg, stream, opts.Graph, driver, seeds, ic)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build GPU worker %d", g)
		}
		workers = append(workers, w)
		e.owned = append(e.owned, w)
	}
	return workers, nil
}

func (e *Engine) buildCPUWorkers(opts Options) []worker.Worker {
	count := e.layout.Count()
	workers := make([]worker.Worker, 0, opts.NumCPU)
	for i := 0; i < opts.NumCPU; i++ {
		rng := substream.Substream(opts.Seed, count, e.layout.CPU(i))
		w := worker.NewCPU(opts.Graph, opts.NewSampler(opts.Graph), rng, opts.Model, opts.Tuning.CPUBatch)
		workers = append(workers, w)
		e.owned = append(e.owned, w)
	}
	return workers
}

// Kinds returns the worker kind of every rank.
func (e *Engine) Kinds() []rrr.WorkerKind {
	return append([]rrr.WorkerKind(nil), e.kinds...)
}

// Layout returns the substream assignment of the engine's topology.
func (e *Engine) Layout() substream.Layout {
	return e.layout
}

// Close releases every worker's device resources, the streams and the
// device graph, then notifies the observer. It is safe to call twice.
// Close fails with core.ErrGenerateRunning while a Generate call is in
// flight and leaves the engine usable.
func (e *Engine) Close() error {
	// running stays set once closed so no Generate can start afterwards.
	if !e.running.CompareAndSwap(false, true) {
		if e.closed.Load() {
			return nil
		}
		return core.ErrGenerateRunning
	}
	if e.closed.Swap(true) {
		return nil
	}
	err := e.release()
	e.obs.Finish()
	e.log.Debug("engine closed: %d workers released", len(e.kinds))
	return err
}

func (e *Engine) release() error {
	var errs []error
	for _, w := range e.owned {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range e.streams {
		if err := s.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.dg != nil {
		if err := e.dg.Free(); err != nil {
			errs = append(errs, err)
		}
	}
	e.workers, e.owned, e.streams, e.dg = nil, nil, nil, nil
	return stderrors.Join(errs...)
}
