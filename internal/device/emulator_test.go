package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/substream"
	"github.com/Tubbz-alt/ripples/internal/testkit"
	"github.com/Tubbz-alt/ripples/ports"
)

func seededStates(t *testing.T, dev *Emulator, st ports.DeviceStream, n int, spec ports.SplitSpec) ports.RNGStateBuffer {
	t.Helper()
	states, err := dev.AllocRNGStates(n)
	require.NoError(t, err)
	require.NoError(t, st.SetupRNG(states, spec, ports.LaunchConfig{Blocks: 2, BlockSize: (n + 1) / 2}))
	require.NoError(t, st.Sync())
	return states
}

func TestSetupRNGMatchesSubstreams(t *testing.T) {
	dev := New(Config{})
	st, err := dev.CreateStream()
	require.NoError(t, err)
	defer st.Destroy()

	spec := ports.SplitSpec{Seed: 9, NumSeqs: 10, First: 4}
	states := seededStates(t, dev, st, 6, spec)

	rb := states.(*rngBuffer)
	for i, s := range rb.states {
		want := substream.Substream(9, 10, 4+i)
		assert.Equal(t, want.Uint64(), s.Uint64(), "state %d", i)
	}
	require.NoError(t, states.Free())
}

func TestSetupRNGRejectsOutOfRange(t *testing.T) {
	dev := New(Config{})
	st, err := dev.CreateStream()
	require.NoError(t, err)
	defer st.Destroy()

	states, err := dev.AllocRNGStates(4)
	require.NoError(t, err)
	err = st.SetupRNG(states, ports.SplitSpec{Seed: 1, NumSeqs: 5, First: 3}, ports.LaunchConfig{Blocks: 1, BlockSize: 4})
	assert.ErrorIs(t, err, core.ErrDeviceFailure)
}

func TestLaunchLTWritesWalksAndOverflows(t *testing.T) {
	g := testkit.Chain(6, 1)
	dev := New(Config{})
	st, err := dev.CreateStream()
	require.NoError(t, err)
	defer st.Destroy()

	const threads, words = 64, 3
	cfg := ports.LaunchConfig{Blocks: 4, BlockSize: 16}
	dg, err := dev.UploadGraph(g)
	require.NoError(t, err)
	mask, err := dev.AllocWords(threads * words)
	require.NoError(t, err)
	states := seededStates(t, dev, st, threads, ports.SplitSpec{Seed: 3, NumSeqs: threads, First: 0})

	require.NoError(t, st.LaunchLT(cfg, ports.LTKernelArgs{
		Graph: dg, BatchSize: threads, RNG: states, Mask: mask, MaskWords: words,
	}))
	host := make([]uint32, threads*words)
	require.NoError(t, st.CopyWords(host, mask, len(host)))
	require.NoError(t, st.Sync())

	sentinel := uint32(g.NumNodes())
	overflows := 0
	for t0 := 0; t0 < threads; t0++ {
		row := host[t0*words : (t0+1)*words]
		if row[0] == sentinel {
			// walks from roots >= words exceed the row
			overflows++
			assert.GreaterOrEqual(t, row[1], uint32(words))
			continue
		}
		root := row[0]
		require.Less(t, root, uint32(words))
		for j := uint32(0); j <= root; j++ {
			assert.Equal(t, root-j, row[j])
		}
		for j := int(root) + 1; j < words; j++ {
			assert.Equal(t, sentinel, row[j])
		}
	}
	assert.Positive(t, overflows)

	for _, b := range []ports.DeviceBuffer{mask, states} {
		require.NoError(t, b.Free())
	}
	require.NoError(t, dg.Free())
	assert.Zero(t, dev.Stats().LiveBuffers)
}

func TestLaunchLTValidatesArguments(t *testing.T) {
	dev := New(Config{})
	st, err := dev.CreateStream()
	require.NoError(t, err)
	defer st.Destroy()

	dg, err := dev.UploadGraph(testkit.Chain(3, 1))
	require.NoError(t, err)
	mask, err := dev.AllocWords(8)
	require.NoError(t, err)
	states, err := dev.AllocRNGStates(4)
	require.NoError(t, err)

	cfg := ports.LaunchConfig{Blocks: 1, BlockSize: 4}
	err = st.LaunchLT(cfg, ports.LTKernelArgs{Graph: dg, BatchSize: 4, RNG: states, Mask: mask, MaskWords: 1})
	assert.ErrorIs(t, err, core.ErrDeviceFailure)

	err = st.LaunchLT(cfg, ports.LTKernelArgs{Graph: dg, BatchSize: 8, RNG: states, Mask: mask, MaskWords: 2})
	assert.ErrorIs(t, err, core.ErrDeviceFailure)

	// unseeded states surface at Sync
	require.NoError(t, st.LaunchLT(cfg, ports.LTKernelArgs{Graph: dg, BatchSize: 4, RNG: states, Mask: mask, MaskWords: 2}))
	err = st.Sync()
	assert.ErrorIs(t, err, core.ErrDeviceFailure)
	assert.Equal(t, errors.CodeDeviceFailure, errors.GetCode(err))
}

func TestBFSSolverCertainEdges(t *testing.T) {
	g := testkit.Diamond(1)
	dev := New(Config{BFSBlockSize: 4})
	st, err := dev.CreateStream()
	require.NoError(t, err)
	defer st.Destroy()

	dg, err := dev.UploadGraph(g)
	require.NoError(t, err)
	solver, err := dev.NewBFSSolver(dg, 2, st)
	require.NoError(t, err)
	preds, err := dev.AllocVertices(g.NumNodes())
	require.NoError(t, err)
	require.NoError(t, solver.Configure(preds))
	solver.SetRNG(seededStates(t, dev, st, 8, ports.SplitSpec{Seed: 1, NumSeqs: 8}))

	require.NoError(t, solver.Traverse(3))
	host := make([]int32, g.NumNodes())
	require.NoError(t, st.CopyVertices(host, preds, len(host)))
	require.NoError(t, st.Sync())

	assert.Equal(t, int32(-1), host[3], "root stays unreached")
	assert.Equal(t, int32(3), host[1])
	assert.Equal(t, int32(3), host[2])
	assert.Contains(t, []int32{1, 2}, host[0])
}

func TestBFSSolverRequiresConfiguration(t *testing.T) {
	dev := New(Config{})
	st, err := dev.CreateStream()
	require.NoError(t, err)
	defer st.Destroy()

	dg, err := dev.UploadGraph(testkit.Chain(2, 1))
	require.NoError(t, err)
	solver, err := dev.NewBFSSolver(dg, 1, st)
	require.NoError(t, err)
	assert.ErrorIs(t, solver.Traverse(0), core.ErrDeviceFailure)

	_, err = dev.NewBFSSolver(dg, 0, st)
	assert.Error(t, err)
}

func TestMemoryLimit(t *testing.T) {
	dev := New(Config{MemoryLimit: 64})

	a, err := dev.AllocWords(8)
	require.NoError(t, err)
	_, err = dev.AllocWords(9)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrResourceExhausted)
	assert.Equal(t, errors.CodeResourceExhausted, errors.GetCode(err))

	require.NoError(t, a.Free())
	assert.ErrorIs(t, a.Free(), core.ErrDeviceFailure, "double free")

	stats := dev.Stats()
	assert.Zero(t, stats.BytesInUse)
	assert.Equal(t, int64(32), stats.PeakBytes)
}

func TestStreamLimitAndDestroy(t *testing.T) {
	dev := New(Config{MaxStreams: 1})
	st, err := dev.CreateStream()
	require.NoError(t, err)

	_, err = dev.CreateStream()
	assert.ErrorIs(t, err, core.ErrResourceExhausted)

	require.NoError(t, st.Destroy())
	assert.Error(t, st.Destroy())
	assert.Error(t, st.Sync())
	assert.Zero(t, dev.Stats().LiveStreams)
}
