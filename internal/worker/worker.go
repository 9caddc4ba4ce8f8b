// Package worker implements the closed set of sample-producing workers
// (CPU, GPU linear threshold, GPU independent cascade) and the batch-claim
// loop they all run against the shared work counter.
package worker

import (
	"context"

	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

// Worker fills contiguous slices of the output collection. A worker is
// driven by exactly one goroutine at a time.
type Worker interface {
	Kind() rrr.WorkerKind

	// BatchSize is the number of indices claimed per fetch-and-add.
	BatchSize() int

	// ProcessBatch writes one complete sample into every slot of out.
	ProcessBatch(out rrr.Samples) (ports.BatchStats, error)

	// Close releases every resource the worker owns.
	Close() error
}

// Run claims batches from counter until it passes len(res), filling each
// claimed slice with w. It stops early when ctx is cancelled because
// another rank failed.
func Run(ctx context.Context, w Worker, rank int, counter *Counter, res rrr.Samples, obs ports.Observer) error {
	theta := len(res)
	batch := w.BatchSize()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		lo := counter.Claim(batch)
		if lo >= theta {
			return nil
		}
		hi := min(lo+batch, theta)
		obs.Claim(rank, lo, hi)

		stats, err := w.ProcessBatch(res[lo:hi])
		if err != nil {
			return err
		}
		obs.Batch(rank, w.Kind(), stats)
	}
}
