package profiling

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal"
	"github.com/Tubbz-alt/ripples/ports"
)

func feed(o ports.Observer) {
	o.Attach([]rrr.WorkerKind{rrr.KindCPU, rrr.KindGPULT, rrr.KindCPU})
	o.BeginIteration(core.RunID("run-1"), 40)
	o.Claim(0, 0, 8)
	o.Batch(0, rrr.KindCPU, ports.BatchStats{Samples: 8, Elapsed: 2 * time.Millisecond})
	o.Claim(1, 8, 40)
	o.Batch(1, rrr.KindGPULT, ports.BatchStats{
		Samples:   32,
		Elapsed:   4 * time.Millisecond,
		Kernel:    time.Millisecond,
		Transfer:  time.Millisecond,
		Build:     2 * time.Millisecond,
		Overflows: 3,
	})
	o.EndIteration(core.RunID("run-1"), 40, 5*time.Millisecond)
}

func TestProfilerRecordsIterations(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(internal.NewLoggerTo(&buf, internal.LogLevelDebug))
	feed(p)

	iters := p.Iterations()
	require.Len(t, iters, 1)
	it := iters[0]
	assert.Equal(t, core.RunID("run-1"), it.Run)
	assert.Equal(t, 40, it.Theta)
	assert.Equal(t, 5*time.Millisecond, it.Elapsed)
	require.Len(t, it.Workers, 3)

	assert.Equal(t, 8, it.Workers[0].Samples)
	assert.Equal(t, 3, it.Workers[1].Overflows)
	assert.Equal(t, time.Millisecond, it.Workers[1].Kernel)
	assert.True(t, it.Workers[2].Idle())

	s, err := it.Workers[1].LatencySummary()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, 0.004, s.Mean, 1e-9)

	_, err = it.Workers[2].LatencySummary()
	assert.Error(t, err, "idle worker has no latencies")

	p.Finish()
	out := buf.String()
	assert.Contains(t, out, "+++ BEGIN iter 0 (run-1)")
	assert.Contains(t, out, "rank=2 CPU-worker > idle worker")
	assert.Contains(t, out, "n. exceedings=3 (/32=0.0938)")
	assert.Contains(t, out, "walk=1000000")
	assert.Contains(t, out, "n. iters              = 1")
	assert.Contains(t, out, "*** END streaming engine profiling")
}

func TestProfilerIgnoresBatchesOutsideIterations(t *testing.T) {
	p := NewProfiler(internal.NopLogger{})
	p.Attach([]rrr.WorkerKind{rrr.KindCPU})
	p.Batch(0, rrr.KindCPU, ports.BatchStats{Samples: 1})
	assert.Empty(t, p.Iterations())
}

func TestSummarize(t *testing.T) {
	s, err := summarize([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-9)
	assert.InDelta(t, 3.0, s.Median, 1e-9)
	assert.InDelta(t, 1.0, s.Min, 1e-9)
	assert.InDelta(t, 5.0, s.Max, 1e-9)

	_, err = summarize(nil)
	assert.Error(t, err)
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	feed(m)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.workers.WithLabelValues("CPU-worker")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.samples.WithLabelValues("CPU-worker")))
	assert.Equal(t, 32.0, testutil.ToFloat64(m.samples.WithLabelValues("GPU-worker(LT)")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.overflows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generateTotal))

	n, err := testutil.GatherAndCount(reg, "rrr_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMultiForwards(t *testing.T) {
	p1 := NewProfiler(internal.NopLogger{})
	p2 := NewProfiler(internal.NopLogger{})
	feed(Multi{p1, p2})
	assert.Equal(t, p1.Iterations(), p2.Iterations())
	require.Len(t, p2.Iterations(), 1)
	assert.Equal(t, 32, p2.Iterations()[0].Workers[1].Samples)
}
