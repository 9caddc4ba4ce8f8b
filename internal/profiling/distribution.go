package profiling

import (
	"github.com/montanaflynn/stats"
)

// Summary describes a distribution of batch latencies in seconds.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	P95    float64
	StdDev float64
	Min    float64
	Max    float64
}

// summarize computes the latency summary of data.
func summarize(data []float64) (Summary, error) {
	s := Summary{Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return s, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return s, err
	}
	p95, err := stats.Percentile(data, 95)
	if err != nil {
		return s, err
	}
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return s, err
	}
	min, err := stats.Min(data)
	if err != nil {
		return s, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return s, err
	}

	s.Mean = mean
	s.Median = median
	s.P95 = p95
	s.StdDev = stdDev
	s.Min = min
	s.Max = max
	return s, nil
}

// LatencySummary summarizes the batch latencies of one rank.
func (w WorkerProfile) LatencySummary() (Summary, error) {
	return summarize(w.latencies)
}
