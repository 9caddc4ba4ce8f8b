// Package profiling provides optional diagnostics observers for the
// engine: a Profiler that keeps per-iteration counters and reports them
// through a logger, Prometheus metrics, and a fan-out Multi observer.
package profiling

import (
	"sync"
	"time"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

// WorkerProfile accumulates the batches one rank processed in one iteration.
type WorkerProfile struct {
	Rank      int
	Kind      rrr.WorkerKind
	Samples   int
	Batches   int
	Overflows int
	Elapsed   time.Duration
	Kernel    time.Duration
	Transfer  time.Duration
	Build     time.Duration

	latencies []float64
}

// Idle reports whether the rank claimed nothing.
func (w WorkerProfile) Idle() bool {
	return w.Batches == 0
}

// Iteration is the profile of one Generate call.
type Iteration struct {
	Run     core.RunID
	Theta   int
	Elapsed time.Duration
	Workers []WorkerProfile
}

// Profiler records per-iteration, per-rank counters.
type Profiler struct {
	log ports.Logger

	mu    sync.Mutex
	kinds []rrr.WorkerKind
	iters []*Iteration
	cur   *Iteration
}

// NewProfiler creates a profiler reporting to log.
func NewProfiler(log ports.Logger) *Profiler {
	return &Profiler{log: log}
}

func (p *Profiler) Attach(kinds []rrr.WorkerKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append([]rrr.WorkerKind(nil), kinds...)
}

func (p *Profiler) BeginIteration(run core.RunID, theta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	it := &Iteration{Run: run, Theta: theta, Workers: make([]WorkerProfile, len(p.kinds))}
	for rank, kind := range p.kinds {
		it.Workers[rank] = WorkerProfile{Rank: rank, Kind: kind}
	}
	p.iters = append(p.iters, it)
	p.cur = it
}

func (p *Profiler) Claim(int, int, int) {}

func (p *Profiler) Batch(rank int, kind rrr.WorkerKind, stats ports.BatchStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil || rank >= len(p.cur.Workers) {
		return
	}
	w := &p.cur.Workers[rank]
	w.Kind = kind
	w.Samples += stats.Samples
	w.Batches++
	w.Overflows += stats.Overflows
	w.Elapsed += stats.Elapsed
	w.Kernel += stats.Kernel
	w.Transfer += stats.Transfer
	w.Build += stats.Build
	w.latencies = append(w.latencies, stats.Elapsed.Seconds())
}

func (p *Profiler) EndIteration(_ core.RunID, _ int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return
	}
	p.cur.Elapsed = elapsed
	p.cur = nil
}

// Finish logs every recorded iteration and the overall totals.
func (p *Profiler) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Info("*** BEGIN streaming engine profiling")
	var total int
	var elapsed time.Duration
	for i, it := range p.iters {
		p.report(i, it)
		total += it.Theta
		elapsed += it.Elapsed
	}
	p.log.Info("--- overall")
	p.log.Info("n. sets               = %d", total)
	p.log.Info("n. iters              = %d", len(p.iters))
	p.log.Info("elapsed (ms)          = %d", elapsed.Milliseconds())
	p.log.Info("throughput (sets/sec) = %.2f", throughput(total, elapsed))
	p.log.Info("*** END streaming engine profiling")
}

func (p *Profiler) report(i int, it *Iteration) {
	p.log.Info("+++ BEGIN iter %d (%s)", i, it.Run)
	p.log.Info("--- CPU workers")
	for _, w := range it.Workers {
		if !w.Kind.IsGPU() {
			p.reportWorker(w)
		}
	}
	p.log.Info("--- GPU workers")
	for _, w := range it.Workers {
		if w.Kind.IsGPU() {
			p.reportWorker(w)
		}
	}
	p.log.Info("--- overall")
	p.log.Info("n. sets               = %d", it.Theta)
	p.log.Info("elapsed (ns)          = %d", it.Elapsed.Nanoseconds())
	p.log.Info("throughput (sets/sec) = %.2f", throughput(it.Theta, it.Elapsed))
	p.log.Info("+++ END iter %d", i)
}

func (p *Profiler) reportWorker(w WorkerProfile) {
	if w.Idle() {
		p.log.Info("rank=%d %s > idle worker", w.Rank, w.Kind)
		return
	}
	p.log.Info("rank=%d %s n-sets=%d\tns=%d\tb=%.2f",
		w.Rank, w.Kind, w.Samples, w.Elapsed.Nanoseconds(), throughput(w.Samples, w.Elapsed))
	if w.Kind.IsGPU() {
		p.log.Info("walk=%d\td2h=%d\tbuild=%d",
			w.Kernel.Nanoseconds(), w.Transfer.Nanoseconds(), w.Build.Nanoseconds())
	}
	if w.Kind == rrr.KindGPULT {
		p.log.Info("n. exceedings=%d (/%d=%.4f)",
			w.Overflows, w.Samples, float64(w.Overflows)/float64(w.Samples))
	}
	if s, err := summarize(w.latencies); err == nil {
		p.log.Debug("batch latency: n=%d mean=%.6fs median=%.6fs p95=%.6fs stddev=%.6fs",
			s.Count, s.Mean, s.Median, s.P95, s.StdDev)
	}
}

// Iterations returns a snapshot of the recorded iterations.
func (p *Profiler) Iterations() []Iteration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Iteration, len(p.iters))
	for i, it := range p.iters {
		out[i] = *it
		out[i].Workers = append([]WorkerProfile(nil), it.Workers...)
	}
	return out
}

func throughput(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
