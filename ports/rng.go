package ports

// Stream is one deterministic substream of the master random sequence.
// A Stream is owned by exactly one worker (or device thread) and is not
// safe for concurrent use.
type Stream interface {
	// Uint64 returns the next 64 random bits and advances the stream
	Uint64() uint64

	// Float64 returns a uniform value in [0, 1)
	Float64() float64

	// IntN returns a uniform value in [0, n); n must be positive
	IntN(n int) int
}

// SplitSpec identifies a contiguous block of substreams of the master
// sequence of Seed split NumSeqs ways, starting at index First. The
// length of the block is given by the buffer being seeded.
type SplitSpec struct {
	Seed    uint64
	NumSeqs int
	First   int
}
