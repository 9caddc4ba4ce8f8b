package ports

import (
	"time"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
)

// BatchStats describes one processed batch. The GPU breakdown fields are
// zero for CPU workers.
type BatchStats struct {
	Samples   int
	Elapsed   time.Duration
	Kernel    time.Duration
	Transfer  time.Duration
	Build     time.Duration
	Overflows int
}

// Observer receives optional diagnostics from the engine. Implementations
// must tolerate concurrent Claim and Batch calls from distinct ranks.
type Observer interface {
	// Attach is called once after construction with the worker kind of
	// every rank.
	Attach(kinds []rrr.WorkerKind)

	BeginIteration(run core.RunID, theta int)
	Claim(rank int, lo, hi int)
	Batch(rank int, kind rrr.WorkerKind, stats BatchStats)
	EndIteration(run core.RunID, theta int, elapsed time.Duration)

	// Finish is called once when the engine is closed.
	Finish()
}
