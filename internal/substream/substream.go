// Package substream partitions one master random sequence into
// independent, non-overlapping substreams.
//
// The master sequence is a 64-bit linear congruential sequence
// x[n+1] = a*x[n] + c (mod 2^64) whose starting state is expanded from the
// seed with SplitMix64. Substream i of S is the leapfrog subsequence
// x[i], x[i+S], x[i+2S], ..., so substreams of one split never share an
// element and the same (seed, S, i) always yields the same values. Raw
// states are passed through a 64-bit finalizer before being returned.
package substream

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

const (
	multiplier = 6364136223846793005
	increment  = 1442695040888963407
)

// Stream is one substream. It is not safe for concurrent use.
type Stream struct {
	state uint64
	a, c  uint64
	rnd   *rand.Rand
}

// New returns the master stream for seed.
func New(seed uint64) *Stream {
	sm := prng.NewSplitMix64(seed)
	return newStream(sm.Uint64(), multiplier, increment)
}

// Substream returns substream index of count derived from the master
// stream of seed.
func Substream(seed uint64, count, index int) *Stream {
	return New(seed).Split(count, index)
}

func newStream(state, a, c uint64) *Stream {
	s := &Stream{state: state, a: a, c: c}
	s.rnd = rand.New(s)
	return s
}

// Split returns substream index of count of s, starting from the current
// position of s. s itself is not advanced. Split panics if count is not
// positive or index is outside [0, count).
func (s *Stream) Split(count, index int) *Stream {
	if count <= 0 || index < 0 || index >= count {
		panic("substream: split index out of range")
	}
	ja, jc := jump(s.a, s.c, uint64(index))
	state := ja*s.state + jc
	sa, sc := jump(s.a, s.c, uint64(count))
	return newStream(state, sa, sc)
}

// Clone returns an independent copy positioned at the same state.
func (s *Stream) Clone() *Stream {
	return newStream(s.state, s.a, s.c)
}

// Uint64 returns the next value and advances the stream.
func (s *Stream) Uint64() uint64 {
	x := s.state
	s.state = s.a*s.state + s.c
	return mix(x)
}

// Float64 returns a uniform value in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) * 0x1p-53
}

// IntN returns a uniform value in [0, n).
func (s *Stream) IntN(n int) int {
	return s.rnd.IntN(n)
}

// jump returns (A, C) such that applying x -> A*x + C equals applying the
// step x -> a*x + c k times.
func jump(a, c, k uint64) (uint64, uint64) {
	accA, accC := uint64(1), uint64(0)
	curA, curC := a, c
	for k > 0 {
		if k&1 == 1 {
			accA, accC = curA*accA, curA*accC+curC
		}
		curA, curC = curA*curA, (curA+1)*curC
		k >>= 1
	}
	return accA, accC
}

func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
