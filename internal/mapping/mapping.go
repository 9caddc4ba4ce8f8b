// Package mapping validates worker topologies and assigns logical ranks
// to CPU and GPU workers.
package mapping

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/errors"
)

// Ranks is the ordered set of ranks designated to GPU workers.
type Ranks []int

// String renders the set in the same comma-separated form ParseGPUMapping accepts.
func (r Ranks) String() string {
	parts := make([]string, len(r))
	for i, rank := range r {
		parts[i] = strconv.Itoa(rank)
	}
	return strings.Join(parts, ",")
}

// ParseGPUMapping validates a worker topology and the optional GPU
// mapping text. total is the number of workers (CPU + GPU), gpu the
// number of GPU workers. An empty text selects the default mapping and
// yields nil Ranks.
func ParseGPUMapping(total, gpu int, text string) (Ranks, error) {
	if total <= 0 || gpu < 0 || gpu > total {
		return nil, invalid(fmt.Errorf("%w: total=%d gpu=%d", core.ErrInvalidWorkerCount, total, gpu))
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	set := make(map[int]struct{})
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		rank, err := strconv.Atoi(token)
		if err != nil {
			return nil, invalid(core.NewMappingError(token, "is not a rank number"))
		}
		if rank < 0 || rank >= total {
			return nil, invalid(core.NewMappingError(token, fmt.Sprintf("is outside [0, %d)", total)))
		}
		set[rank] = struct{}{}
	}
	if len(set) != gpu {
		return nil, invalid(fmt.Errorf("%w: %d distinct ranks for %d GPU workers", core.ErrMappingLength, len(set), gpu))
	}

	ranks := make(Ranks, 0, len(set))
	for rank := range set {
		ranks = append(ranks, rank)
	}
	slices.Sort(ranks)
	return ranks, nil
}

func invalid(err error) error {
	return errors.WithCode(errors.CodeConfigInvalid, err)
}

// Slot binds a logical rank to the index of a worker within its kind.
type Slot struct {
	Rank  int
	GPU   bool
	Index int
}

// Plan assigns ranks 0..numCPU+numGPU-1. With nil gpuRanks CPU workers
// take the lowest ranks and GPU workers the rest; otherwise exactly the
// ranks in gpuRanks are GPU workers, taken in ascending order.
func Plan(numCPU, numGPU int, gpuRanks Ranks) ([]Slot, error) {
	total := numCPU + numGPU
	if gpuRanks != nil && len(gpuRanks) != numGPU {
		return nil, invalid(fmt.Errorf("%w: %d ranks for %d GPU workers", core.ErrMappingLength, len(gpuRanks), numGPU))
	}

	slots := make([]Slot, 0, total)
	cpu, gpu := 0, 0
	next := 0
	for rank := 0; rank < total; rank++ {
		isGPU := rank >= numCPU
		if gpuRanks != nil {
			isGPU = next < len(gpuRanks) && gpuRanks[next] == rank
		}
		if isGPU {
			slots = append(slots, Slot{Rank: rank, GPU: true, Index: gpu})
			gpu++
			next++
			continue
		}
		slots = append(slots, Slot{Rank: rank, Index: cpu})
		cpu++
	}
	if cpu != numCPU || gpu != numGPU {
		return nil, invalid(fmt.Errorf("%w: mapping yields %d CPU and %d GPU workers", core.ErrInvalidMapping, cpu, gpu))
	}
	return slots, nil
}
