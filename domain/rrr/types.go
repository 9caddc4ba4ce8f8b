package rrr

import (
	"fmt"
	"slices"
	"strings"
)

// Sample is one Reverse Reachable set: the vertices that could have
// influenced a root vertex under a diffusion model.
type Sample []uint32

// Samples is the output collection of one Generate call.
type Samples []Sample

// Canonicalize sorts the sample ascending in place.
func (s Sample) Canonicalize() {
	slices.Sort(s)
}

// IsCanonical reports whether the sample is sorted ascending.
func (s Sample) IsCanonical() bool {
	return slices.IsSorted(s)
}

// Contains reports whether v is a member of a canonical sample.
func (s Sample) Contains(v uint32) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// TotalSize returns the number of vertex entries across all samples.
func (ss Samples) TotalSize() int {
	total := 0
	for _, s := range ss {
		total += len(s)
	}
	return total
}

// DiffusionModel selects the stochastic propagation rule used to grow a sample.
type DiffusionModel int

const (
	IndependentCascade DiffusionModel = iota
	LinearThreshold
)

func (m DiffusionModel) String() string {
	switch m {
	case IndependentCascade:
		return "IC"
	case LinearThreshold:
		return "LT"
	default:
		return fmt.Sprintf("DiffusionModel(%d)", int(m))
	}
}

// ParseDiffusionModel accepts "ic"/"independent-cascade" and "lt"/"linear-threshold".
func ParseDiffusionModel(s string) (DiffusionModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ic", "independent-cascade", "independent_cascade":
		return IndependentCascade, nil
	case "lt", "linear-threshold", "linear_threshold":
		return LinearThreshold, nil
	}
	return 0, fmt.Errorf("unknown diffusion model %q", s)
}

// WorkerKind identifies the execution variant behind a rank.
type WorkerKind int

const (
	KindCPU WorkerKind = iota
	KindGPULT
	KindGPUIC
)

func (k WorkerKind) String() string {
	switch k {
	case KindCPU:
		return "CPU-worker"
	case KindGPULT:
		return "GPU-worker(LT)"
	case KindGPUIC:
		return "GPU-worker(IC)"
	default:
		return fmt.Sprintf("WorkerKind(%d)", int(k))
	}
}

// IsGPU reports whether the kind runs on a device.
func (k WorkerKind) IsGPU() bool {
	return k == KindGPULT || k == KindGPUIC
}

// GPUKindFor returns the GPU variant serving the given diffusion model.
func GPUKindFor(m DiffusionModel) WorkerKind {
	if m == LinearThreshold {
		return KindGPULT
	}
	return KindGPUIC
}
