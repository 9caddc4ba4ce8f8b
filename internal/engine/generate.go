package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/worker"
)

// Generate returns theta samples. Every index is filled by exactly one
// worker; which worker fills which index is unspecified. Generate is not
// reentrant: a call made while another is running fails with
// core.ErrConcurrentGenerate. The only other failures are device
// failures, which abort the whole call.
func (e *Engine) Generate(theta int) (rrr.Samples, error) {
	if e.closed.Load() {
		return nil, core.ErrEngineClosed
	}
	if theta < 0 {
		return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrNegativeTheta)
	}
	if !e.running.CompareAndSwap(false, true) {
		if e.closed.Load() {
			return nil, core.ErrEngineClosed
		}
		return nil, core.ErrConcurrentGenerate
	}
	defer e.running.Store(false)

	run := core.NewRunID()
	e.obs.BeginIteration(run, theta)
	start := time.Now()

	res := make(rrr.Samples, theta)
	e.counter.Reset()

	g, ctx := errgroup.WithContext(context.Background())
	for rank, w := range e.workers {
		g.Go(func() error {
			return worker.Run(ctx, w, rank, e.counter, res, e.obs)
		})
	}
	err := g.Wait()

	elapsed := time.Since(start)
	e.obs.EndIteration(run, theta, elapsed)
	if err != nil {
		e.log.Error("generate %s failed after %v: %v", run, elapsed, err)
		return nil, errors.Wrapf(err, "generate %s", run)
	}
	e.log.Debug("generate %s: %d samples in %v", run, theta, elapsed)
	return res, nil
}
