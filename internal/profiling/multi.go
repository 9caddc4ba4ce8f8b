package profiling

import (
	"time"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

// Multi forwards every notification to each observer in order.
type Multi []ports.Observer

func (m Multi) Attach(kinds []rrr.WorkerKind) {
	for _, o := range m {
		o.Attach(kinds)
	}
}

func (m Multi) BeginIteration(run core.RunID, theta int) {
	for _, o := range m {
		o.BeginIteration(run, theta)
	}
}

func (m Multi) Claim(rank, lo, hi int) {
	for _, o := range m {
		o.Claim(rank, lo, hi)
	}
}

func (m Multi) Batch(rank int, kind rrr.WorkerKind, stats ports.BatchStats) {
	for _, o := range m {
		o.Batch(rank, kind, stats)
	}
}

func (m Multi) EndIteration(run core.RunID, theta int, elapsed time.Duration) {
	for _, o := range m {
		o.EndIteration(run, theta, elapsed)
	}
}

func (m Multi) Finish() {
	for _, o := range m {
		o.Finish()
	}
}
