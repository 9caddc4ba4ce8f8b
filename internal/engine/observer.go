package engine

import (
	"time"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

type nopObserver struct{}

func (nopObserver) Attach([]rrr.WorkerKind)                     {}
func (nopObserver) BeginIteration(core.RunID, int)              {}
func (nopObserver) Claim(int, int, int)                         {}
func (nopObserver) Batch(int, rrr.WorkerKind, ports.BatchStats) {}
func (nopObserver) EndIteration(core.RunID, int, time.Duration) {}
func (nopObserver) Finish()                                     {}
