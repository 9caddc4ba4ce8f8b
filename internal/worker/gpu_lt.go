package worker

import (
	"fmt"
	"time"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/ports"
)

// LTConfig shapes the linear-threshold kernel of one GPU worker.
type LTConfig struct {
	// BlockSize is the number of device threads per block.
	BlockSize int
	// Threads is the device-thread budget and the batch size.
	Threads int
	// MaskWords is the width of one thread's result row.
	MaskWords int
}

// Validate checks the kernel shape.
func (c LTConfig) Validate() error {
	switch {
	case c.BlockSize <= 0 || c.Threads <= 0:
		return fmt.Errorf("%w: block size %d and thread budget %d must be positive",
			core.ErrInvalidTuning, c.BlockSize, c.Threads)
	case c.Threads%c.BlockSize != 0:
		return fmt.Errorf("%w: thread budget %d is not a multiple of block size %d",
			core.ErrInvalidTuning, c.Threads, c.BlockSize)
	case c.MaskWords < 2:
		return fmt.Errorf("%w: mask width %d, need at least 2 words",
			core.ErrInvalidTuning, c.MaskWords)
	}
	return nil
}

// Launch returns the kernel grid.
func (c LTConfig) Launch() ports.LaunchConfig {
	return ports.LaunchConfig{Blocks: c.Threads / c.BlockSize, BlockSize: c.BlockSize}
}

// GPULT produces linear-threshold samples with one device walk per
// thread. Walks that overflow their row are redone on the host from the
// same root with the worker's driver substream.
type GPULT struct {
	cfg     LTConfig
	g       ports.Graph
	sampler ports.Sampler
	driver  ports.Stream
	dg      ports.DeviceGraph
	stream  ports.DeviceStream

	mask   ports.WordBuffer
	states ports.RNGStateBuffer
	host   []uint32
	res    guard
}

// NewGPULT allocates the worker's mask and random-state buffers on dev
// and seeds one device-thread substream per thread from seeds. The
// stream is borrowed from the caller. On failure nothing stays allocated.
func NewGPULT(dev ports.Device, dg ports.DeviceGraph, stream ports.DeviceStream, g ports.Graph,
	sampler ports.Sampler, driver ports.Stream, seeds ports.SplitSpec, cfg LTConfig) (*GPULT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	w := &GPULT{cfg: cfg, g: g, sampler: sampler, driver: driver, dg: dg, stream: stream}

	var err error
	if w.mask, err = dev.AllocWords(cfg.Threads * cfg.MaskWords); err != nil {
		return nil, err
	}
	w.res.hold(w.mask)
	if w.states, err = dev.AllocRNGStates(cfg.Threads); err != nil {
		w.res.release()
		return nil, err
	}
	w.res.hold(w.states)

	if err := stream.SetupRNG(w.states, seeds, cfg.Launch()); err != nil {
		w.res.release()
		return nil, err
	}
	if err := stream.Sync(); err != nil {
		w.res.release()
		return nil, err
	}
	w.host = make([]uint32, cfg.Threads*cfg.MaskWords)
	return w, nil
}

func (w *GPULT) Kind() rrr.WorkerKind { return rrr.KindGPULT }
func (w *GPULT) BatchSize() int       { return w.cfg.Threads }

// ProcessBatch launches the kernel for len(out) threads, copies the rows
// back and builds one canonical sample per row.
func (w *GPULT) ProcessBatch(out rrr.Samples) (ports.BatchStats, error) {
	size := len(out)
	words := w.cfg.MaskWords
	stats := ports.BatchStats{Samples: size}
	start := time.Now()

	err := w.stream.LaunchLT(w.cfg.Launch(), ports.LTKernelArgs{
		Graph:     w.dg,
		BatchSize: size,
		RNG:       w.states,
		Mask:      w.mask,
		MaskWords: words,
	})
	if err != nil {
		return stats, err
	}
	if err := w.stream.Sync(); err != nil {
		return stats, err
	}
	t0 := time.Now()
	stats.Kernel = t0.Sub(start)

	if err := w.stream.CopyWords(w.host, w.mask, size*words); err != nil {
		return stats, err
	}
	if err := w.stream.Sync(); err != nil {
		return stats, err
	}
	t1 := time.Now()
	stats.Transfer = t1.Sub(t0)

	sentinel := uint32(w.g.NumNodes())
	for i := range out {
		row := w.host[i*words : (i+1)*words]
		if row[0] == sentinel {
			stats.Overflows++
			out[i] = w.sampler.Sample(row[1], w.driver, rrr.LinearThreshold, nil)
			continue
		}
		s := make(rrr.Sample, 0, words)
		for _, v := range row {
			if v == sentinel {
				break
			}
			s = append(s, v)
		}
		s.Canonicalize()
		out[i] = s
	}
	end := time.Now()
	stats.Build = end.Sub(t1)
	stats.Elapsed = end.Sub(start)
	return stats, nil
}

// Close frees the mask and random-state buffers.
func (w *GPULT) Close() error {
	w.host = nil
	return w.res.release()
}
