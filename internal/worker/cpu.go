package worker

import (
	"time"

	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

// CPU samples roots from its private substream and grows each set with
// the host sampling primitive.
type CPU struct {
	g       ports.Graph
	sampler ports.Sampler
	rng     ports.Stream
	model   rrr.DiffusionModel
	batch   int
}

// NewCPU creates a CPU worker. rng must not be shared with any other worker.
func NewCPU(g ports.Graph, sampler ports.Sampler, rng ports.Stream, model rrr.DiffusionModel, batch int) *CPU {
	return &CPU{g: g, sampler: sampler, rng: rng, model: model, batch: batch}
}

func (w *CPU) Kind() rrr.WorkerKind { return rrr.KindCPU }
func (w *CPU) BatchSize() int       { return w.batch }

func (w *CPU) ProcessBatch(out rrr.Samples) (ports.BatchStats, error) {
	start := time.Now()
	n := w.g.NumNodes()
	for i := range out {
		root := uint32(w.rng.IntN(n))
		out[i] = w.sampler.Sample(root, w.rng, w.model, nil)
	}
	return ports.BatchStats{Samples: len(out), Elapsed: time.Since(start)}, nil
}

func (w *CPU) Close() error { return nil }
