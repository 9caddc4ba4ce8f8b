package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateMappingCommand(t *testing.T) {
	out, err := execute(t, "validate-mapping", "--total", "4", "--gpu", "2", "--mapping", "1,3")
	require.NoError(t, err)
	assert.Contains(t, out, "rank=0 -> CPU-worker #0")
	assert.Contains(t, out, "rank=1 -> GPU-worker #0")
	assert.Contains(t, out, "rank=3 -> GPU-worker #1")

	_, err = execute(t, "validate-mapping", "--total", "4", "--gpu", "2", "--mapping", "1,4")
	assert.ErrorIs(t, err, core.ErrInvalidMapping)

	_, err = execute(t, "validate-mapping", "--total", "0")
	assert.ErrorIs(t, err, core.ErrInvalidWorkerCount)
}

func TestGenerateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.txt")
	require.NoError(t, os.WriteFile(path, []byte("# chain\n0 1 1\n1 2 1\n2 3 1\n3 4 1\n"), 0o644))
	t.Setenv("RRR_CPU_WORKERS", "1")

	out, err := execute(t, "generate",
		"--graph", path, "--model", "lt", "--theta", "20", "--rounds", "2",
		"--gpu-workers", "1", "--gpu-threads", "32", "--block-size", "8", "--mask-words", "2",
		"--log-level", "ERROR",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "round 0: 20 samples (LT)")
	assert.Contains(t, out, "round 1: 20 samples (LT)")
}

func TestGenerateCommandRequiresGraph(t *testing.T) {
	t.Setenv("RRR_CPU_WORKERS", "1")
	_, err := execute(t, "generate", "--theta", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph file is required")
}

func TestApplyFlagsReturnsFlagErrors(t *testing.T) {
	tests := []struct {
		name string
		flag string
	}{
		{"int flag", "theta"},
		{"string flag", "graph"},
		{"uint64 flag", "seed"},
		{"bool flag", "profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "generate"}
			if tt.flag == "graph" {
				cmd.Flags().Int(tt.flag, 0, "")
			} else {
				cmd.Flags().String(tt.flag, "", "")
			}
			require.NoError(t, cmd.Flags().Set(tt.flag, "1"))

			err := applyFlags(cmd, &config.Config{}, "", "")
			assert.ErrorContains(t, err, "flag of type")
		})
	}
}
