// Package device provides a host-emulated GPU implementing ports.Device.
//
// Device memory lives in Go slices owned by buffer handles, every stream
// executes its operations in FIFO order on a dedicated goroutine, and
// kernels fan out one goroutine per block. Allocations are accounted so a
// memory limit can reproduce device exhaustion and tests can check that
// every buffer is released.
package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/substream"
	"github.com/Tubbz-alt/ripples/ports"
)

// Config describes the emulated device.
type Config struct {
	Name         string
	MaxBlocks    int
	BFSBlockSize int
	// MemoryLimit caps live allocations in bytes; zero means unlimited.
	MemoryLimit int64
	// MaxStreams caps live streams; zero means unlimited.
	MaxStreams int
}

// DefaultConfig returns the emulator defaults.
func DefaultConfig() Config {
	return Config{
		Name:         "host-emulator",
		MaxBlocks:    1024,
		BFSBlockSize: 256,
	}
}

// Emulator is a host-emulated device.
type Emulator struct {
	cfg Config

	mu       sync.Mutex
	used     int64
	peak     int64
	live     int
	streams  int
	launches atomic.Int64
}

// New returns an emulator with cfg; zero fields take their defaults.
func New(cfg Config) *Emulator {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxBlocks <= 0 {
		cfg.MaxBlocks = def.MaxBlocks
	}
	if cfg.BFSBlockSize <= 0 {
		cfg.BFSBlockSize = def.BFSBlockSize
	}
	return &Emulator{cfg: cfg}
}

func (d *Emulator) Name() string      { return d.cfg.Name }
func (d *Emulator) MaxBlocks() int    { return d.cfg.MaxBlocks }
func (d *Emulator) BFSBlockSize() int { return d.cfg.BFSBlockSize }

// Stats is a snapshot of the emulator's resource accounting.
type Stats struct {
	BytesInUse  int64
	PeakBytes   int64
	LiveBuffers int
	LiveStreams int
	Launches    int64
}

// Stats returns the current resource accounting.
func (d *Emulator) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		BytesInUse:  d.used,
		PeakBytes:   d.peak,
		LiveBuffers: d.live,
		LiveStreams: d.streams,
		Launches:    d.launches.Load(),
	}
}

func (d *Emulator) reserve(resource string, bytes int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.MemoryLimit > 0 && d.used+bytes > d.cfg.MemoryLimit {
		return errors.ResourceExhausted(resource, core.NewResourceError(resource,
			fmt.Errorf("%d bytes requested, %d of %d in use", bytes, d.used, d.cfg.MemoryLimit)))
	}
	d.used += bytes
	d.peak = max(d.peak, d.used)
	d.live++
	return nil
}

func (d *Emulator) release(bytes int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.used -= bytes
	d.live--
}

// buffer is the accounting part shared by every allocation.
type buffer struct {
	dev   *Emulator
	bytes int64
	n     int
	freed atomic.Bool
}

func (b *buffer) Len() int { return b.n }

func (b *buffer) Free() error {
	if b.freed.Swap(true) {
		return errors.DeviceFailure("free", fmt.Errorf("%w: double free", core.ErrDeviceFailure))
	}
	b.dev.release(b.bytes)
	return nil
}

type wordBuffer struct {
	buffer
	data []uint32
}

type vertexBuffer struct {
	buffer
	data []int32
}

type rngBuffer struct {
	buffer
	states []*substream.Stream
}

// rngStateBytes approximates the footprint of one device random state.
const rngStateBytes = 24

// AllocWords allocates n 32-bit mask words.
func (d *Emulator) AllocWords(n int) (ports.WordBuffer, error) {
	b := &wordBuffer{buffer: buffer{dev: d, bytes: int64(n) * 4, n: n}}
	if err := d.reserve("mask buffer", b.bytes); err != nil {
		return nil, err
	}
	b.data = make([]uint32, n)
	return b, nil
}

// AllocVertices allocates a predecessor array of n vertices.
func (d *Emulator) AllocVertices(n int) (ports.VertexBuffer, error) {
	b := &vertexBuffer{buffer: buffer{dev: d, bytes: int64(n) * 4, n: n}}
	if err := d.reserve("predecessor buffer", b.bytes); err != nil {
		return nil, err
	}
	b.data = make([]int32, n)
	return b, nil
}

// AllocRNGStates allocates n device random states; they are unseeded
// until SetupRNG runs on a stream.
func (d *Emulator) AllocRNGStates(n int) (ports.RNGStateBuffer, error) {
	b := &rngBuffer{buffer: buffer{dev: d, bytes: int64(n) * rngStateBytes, n: n}}
	if err := d.reserve("random state buffer", b.bytes); err != nil {
		return nil, err
	}
	b.states = make([]*substream.Stream, n)
	return b, nil
}

// deviceGraph is the uploaded topology. The emulator reads the host graph
// directly but charges the memory a CSR copy would take.
type deviceGraph struct {
	buffer
	g ports.Graph
}

func (g *deviceGraph) NumNodes() int { return g.g.NumNodes() }

// UploadGraph makes g available to kernels and solvers.
func (d *Emulator) UploadGraph(g ports.Graph) (ports.DeviceGraph, error) {
	bytes := int64(g.NumNodes()+1)*8 + int64(g.NumEdges())*8
	dg := &deviceGraph{buffer: buffer{dev: d, bytes: bytes, n: g.NumNodes()}, g: g}
	if err := d.reserve("device graph", bytes); err != nil {
		return nil, err
	}
	return dg, nil
}

func asWords(b ports.WordBuffer) (*wordBuffer, error) {
	wb, ok := b.(*wordBuffer)
	if !ok || wb.freed.Load() {
		return nil, errors.DeviceFailure("access", fmt.Errorf("%w: invalid mask buffer", core.ErrDeviceFailure))
	}
	return wb, nil
}

func asVertices(b ports.VertexBuffer) (*vertexBuffer, error) {
	vb, ok := b.(*vertexBuffer)
	if !ok || vb.freed.Load() {
		return nil, errors.DeviceFailure("access", fmt.Errorf("%w: invalid predecessor buffer", core.ErrDeviceFailure))
	}
	return vb, nil
}

func asRNG(b ports.RNGStateBuffer) (*rngBuffer, error) {
	rb, ok := b.(*rngBuffer)
	if !ok || rb.freed.Load() {
		return nil, errors.DeviceFailure("access", fmt.Errorf("%w: invalid random state buffer", core.ErrDeviceFailure))
	}
	return rb, nil
}

func asGraph(g ports.DeviceGraph) (*deviceGraph, error) {
	dg, ok := g.(*deviceGraph)
	if !ok || dg.freed.Load() {
		return nil, errors.DeviceFailure("access", fmt.Errorf("%w: invalid device graph", core.ErrDeviceFailure))
	}
	return dg, nil
}
