package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/graph"
	"github.com/Tubbz-alt/ripples/internal/mapping"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RRR_CPU_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers.CPU)
	assert.Equal(t, 0, cfg.Workers.GPU)
	assert.Equal(t, DefaultTuning(), cfg.Tuning)
	assert.Equal(t, 1024, cfg.Device.MaxBlocks)
	assert.Equal(t, rrr.IndependentCascade, cfg.Sampling.Model)
	assert.Equal(t, graph.WeightUniform, cfg.Sampling.Weights)
	assert.Equal(t, "edgelist", cfg.Sampling.GraphFormat)
	assert.Equal(t, 1, cfg.Sampling.Rounds)
	assert.False(t, cfg.Profiling.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RRR_CPU_WORKERS", "2")
	t.Setenv("RRR_GPU_WORKERS", "2")
	t.Setenv("RRR_GPU_MAPPING", "1,3")
	t.Setenv("RRR_MODEL", "lt")
	t.Setenv("RRR_SEED", "18446744073709551615")
	t.Setenv("RRR_WEIGHTS", "indegree")
	t.Setenv("RRR_MASK_WORDS", "4")
	t.Setenv("RRR_PROFILE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, rrr.LinearThreshold, cfg.Sampling.Model)
	assert.Equal(t, uint64(18446744073709551615), cfg.Sampling.Seed)
	assert.Equal(t, graph.WeightInDegree, cfg.Sampling.Weights)
	assert.Equal(t, 4, cfg.Tuning.MaskWords)
	assert.True(t, cfg.Profiling.Enabled)

	ranks, err := cfg.GPUMapping()
	require.NoError(t, err)
	assert.Equal(t, mapping.Ranks{1, 3}, ranks)
}

func TestLoadRejectsInvalidTopology(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no workers", map[string]string{"RRR_CPU_WORKERS": "0"}},
		{"GPUs exceed total", map[string]string{"RRR_CPU_WORKERS": "-1", "RRR_GPU_WORKERS": "2"}},
		{"no device blocks", map[string]string{"RRR_CPU_WORKERS": "1", "RRR_DEVICE_MAX_BLOCKS": "0"}},
		{"rank out of range", map[string]string{"RRR_CPU_WORKERS": "2", "RRR_GPU_WORKERS": "1", "RRR_GPU_MAPPING": "3"}},
		{"mapping too short", map[string]string{"RRR_CPU_WORKERS": "2", "RRR_GPU_WORKERS": "2", "RRR_GPU_MAPPING": "1"}},
		{"bad model", map[string]string{"RRR_CPU_WORKERS": "1", "RRR_MODEL": "sir"}},
		{"indivisible threads", map[string]string{"RRR_CPU_WORKERS": "1", "RRR_GPU_THREADS": "1000"}},
		{"negative theta", map[string]string{"RRR_CPU_WORKERS": "1", "RRR_THETA": "-1"}},
		{"bad format", map[string]string{"RRR_CPU_WORKERS": "1", "RRR_GRAPH_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestTuningValidate(t *testing.T) {
	assert.NoError(t, DefaultTuning().Validate())

	bad := DefaultTuning()
	bad.MaskWords = 1
	err := bad.Validate()
	assert.ErrorIs(t, err, core.ErrInvalidTuning)
	assert.True(t, core.IsConfigError(err))

	bad = DefaultTuning()
	bad.BlockSize = 0
	assert.ErrorIs(t, bad.Validate(), core.ErrInvalidTuning)
}
