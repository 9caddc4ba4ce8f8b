package ports

// Graph is the read-only topology shared by every worker. Samples are
// grown backwards, so only in-edges are exposed.
type Graph interface {
	NumNodes() int
	NumEdges() int

	// InNeighbors returns the sources of the edges entering v and their
	// diffusion weights. The returned slices must not be modified.
	InNeighbors(v uint32) (sources []uint32, weights []float32)
}
