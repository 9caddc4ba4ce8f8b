package ports

// DeviceBuffer is a device-resident allocation owned by one worker.
type DeviceBuffer interface {
	Len() int
	Free() error
}

// WordBuffer holds LT result masks, one fixed-width row per device thread.
type WordBuffer interface {
	DeviceBuffer
}

// VertexBuffer holds a per-vertex predecessor array (-1 = unreached).
type VertexBuffer interface {
	DeviceBuffer
}

// RNGStateBuffer holds one random state per device thread.
type RNGStateBuffer interface {
	DeviceBuffer
}

// DeviceGraph is the device-resident copy of the graph topology.
type DeviceGraph interface {
	NumNodes() int
	Free() error
}

// LaunchConfig is the grid shape of a kernel launch.
type LaunchConfig struct {
	Blocks    int
	BlockSize int
}

// Threads returns the number of device threads in the grid.
func (c LaunchConfig) Threads() int {
	return c.Blocks * c.BlockSize
}

// LTKernelArgs are the arguments of the linear-threshold walk kernel.
// Thread t writes MaskWords words at offset t*MaskWords of Mask; a row
// starting with the NumNodes sentinel followed by the root marks an
// overflowing walk.
type LTKernelArgs struct {
	Graph     DeviceGraph
	BatchSize int
	RNG       RNGStateBuffer
	Mask      WordBuffer
	MaskWords int
}

// DeviceStream orders device work. Launches and copies are asynchronous
// with respect to the host until Sync returns.
type DeviceStream interface {
	SetupRNG(states RNGStateBuffer, spec SplitSpec, cfg LaunchConfig) error
	LaunchLT(cfg LaunchConfig, args LTKernelArgs) error
	CopyWords(dst []uint32, src WordBuffer, n int) error
	CopyVertices(dst []int32, src VertexBuffer, n int) error
	Sync() error
	Destroy() error
}

// BFSSolver traverses the device graph from one root per call, writing
// predecessors into the buffer given to Configure. The root itself is
// left unreached.
type BFSSolver interface {
	Configure(predecessors VertexBuffer) error
	SetRNG(states RNGStateBuffer)
	Traverse(root uint32) error
	Release() error
}

// Device is a GPU (or an emulation of one). All handles it returns are
// exclusively owned by the worker that requested them.
type Device interface {
	Name() string

	// MaxBlocks is the number of blocks the device can run concurrently.
	MaxBlocks() int

	// BFSBlockSize is the block size the traversal solver requires.
	BFSBlockSize() int

	CreateStream() (DeviceStream, error)
	UploadGraph(g Graph) (DeviceGraph, error)
	AllocWords(n int) (WordBuffer, error)
	AllocVertices(n int) (VertexBuffer, error)
	AllocRNGStates(n int) (RNGStateBuffer, error)
	NewBFSSolver(g DeviceGraph, maxBlocks int, stream DeviceStream) (BFSSolver, error)
}
