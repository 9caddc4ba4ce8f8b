package profiling

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/ports"
)

// Metrics is an Observer exporting engine activity as Prometheus metrics.
type Metrics struct {
	workers          *prometheus.GaugeVec
	samples          *prometheus.CounterVec
	batches          *prometheus.CounterVec
	overflows        prometheus.Counter
	batchDuration    *prometheus.HistogramVec
	phaseDuration    *prometheus.HistogramVec
	generateTotal    prometheus.Counter
	generateDuration prometheus.Histogram
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		workers: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rrr_workers",
			Help: "Number of workers per kind",
		}, []string{"kind"}),
		samples: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rrr_samples_total",
			Help: "Total number of samples produced",
		}, []string{"kind"}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rrr_batches_total",
			Help: "Total number of batches processed",
		}, []string{"kind"}),
		overflows: f.NewCounter(prometheus.CounterOpts{
			Name: "rrr_gpu_overflow_repairs_total",
			Help: "Total number of GPU walks repaired on the host",
		}),
		batchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rrr_batch_duration_seconds",
			Help:    "Duration of one batch",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"kind"}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rrr_gpu_phase_duration_seconds",
			Help:    "Duration of the GPU kernel, transfer and build phases of one batch",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"phase"}),
		generateTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "rrr_generate_total",
			Help: "Total number of Generate calls",
		}),
		generateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rrr_generate_duration_seconds",
			Help:    "Duration of Generate calls",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 10.0, 60.0},
		}),
	}
}

func (m *Metrics) Attach(kinds []rrr.WorkerKind) {
	for _, k := range kinds {
		m.workers.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) BeginIteration(core.RunID, int) {}
func (m *Metrics) Claim(int, int, int)            {}

func (m *Metrics) Batch(_ int, kind rrr.WorkerKind, stats ports.BatchStats) {
	label := kind.String()
	m.samples.WithLabelValues(label).Add(float64(stats.Samples))
	m.batches.WithLabelValues(label).Inc()
	m.batchDuration.WithLabelValues(label).Observe(stats.Elapsed.Seconds())
	if kind.IsGPU() {
		m.overflows.Add(float64(stats.Overflows))
		m.phaseDuration.WithLabelValues("kernel").Observe(stats.Kernel.Seconds())
		m.phaseDuration.WithLabelValues("transfer").Observe(stats.Transfer.Seconds())
		m.phaseDuration.WithLabelValues("build").Observe(stats.Build.Seconds())
	}
}

func (m *Metrics) EndIteration(_ core.RunID, _ int, elapsed time.Duration) {
	m.generateTotal.Inc()
	m.generateDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Finish() {}
