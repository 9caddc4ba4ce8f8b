package substream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstreamIsLeapfrogOfMaster(t *testing.T) {
	const count = 5
	const draws = 40

	master := New(42)
	seq := make([]uint64, count*draws)
	for i := range seq {
		seq[i] = master.Uint64()
	}

	for index := 0; index < count; index++ {
		sub := Substream(42, count, index)
		for k := 0; k < draws; k++ {
			require.Equalf(t, seq[index+k*count], sub.Uint64(),
				"substream %d draw %d", index, k)
		}
	}
}

func TestSubstreamsDoNotOverlap(t *testing.T) {
	const count = 4
	const draws = 1000

	seen := make(map[uint64]int, count*draws)
	for index := 0; index < count; index++ {
		sub := Substream(7, count, index)
		for k := 0; k < draws; k++ {
			v := sub.Uint64()
			if prev, ok := seen[v]; ok {
				t.Fatalf("value %d produced by substreams %d and %d", v, prev, index)
			}
			seen[v] = index
		}
	}
}

func TestSubstreamDeterminism(t *testing.T) {
	a := Substream(1234, 16, 9)
	b := Substream(1234, 16, 9)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}

	c := Substream(1235, 16, 9)
	d := Substream(1234, 16, 9)
	assert.NotEqual(t, c.Uint64(), d.Uint64(), "different seeds should diverge")
}

func TestNestedSplit(t *testing.T) {
	// Splitting substream 1 of 2 into 3 parts selects every sixth master value.
	master := New(99)
	seq := make([]uint64, 60)
	for i := range seq {
		seq[i] = master.Uint64()
	}

	nested := Substream(99, 2, 1).Split(3, 2)
	for k := 0; k < 9; k++ {
		assert.Equal(t, seq[1+2*2+k*6], nested.Uint64())
	}
}

func TestCloneTracksState(t *testing.T) {
	s := Substream(5, 3, 1)
	s.Uint64()
	c := s.Clone()
	for i := 0; i < 10; i++ {
		assert.Equal(t, s.Uint64(), c.Uint64())
		assert.Equal(t, s.IntN(17), c.IntN(17))
	}
}

func TestBoundedDraws(t *testing.T) {
	s := New(3)
	for i := 0; i < 10000; i++ {
		v := s.IntN(5)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 5)

		f := s.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestSplitPanicsOutOfRange(t *testing.T) {
	s := New(1)
	assert.Panics(t, func() { s.Split(0, 0) })
	assert.Panics(t, func() { s.Split(4, 4) })
	assert.Panics(t, func() { s.Split(4, -1) })
}

func TestLayout(t *testing.T) {
	l := Layout{NumCPU: 3, NumGPU: 2, ThreadsPerGPU: 8}

	assert.Equal(t, 3+2*9, l.Count())
	assert.Equal(t, 2, l.CPU(2))
	assert.Equal(t, 3, l.GPUDriver(0))
	assert.Equal(t, 4, l.GPUDriver(1))
	assert.Equal(t, 5, l.GPUThreads(0))
	assert.Equal(t, 13, l.GPUThreads(1))
	assert.Equal(t, l.Count(), l.GPUThreads(1)+l.ThreadsPerGPU)
}
