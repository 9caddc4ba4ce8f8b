package device

import (
	"fmt"
	"sync"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/ports"
)

// stream executes queued operations in order on its own goroutine.
type stream struct {
	dev  *Emulator
	ops  chan func() error
	done chan struct{}

	mu        sync.Mutex
	destroyed bool

	errMu sync.Mutex
	err   error
}

// CreateStream returns a new in-order stream.
func (d *Emulator) CreateStream() (ports.DeviceStream, error) {
	d.mu.Lock()
	if d.cfg.MaxStreams > 0 && d.streams >= d.cfg.MaxStreams {
		d.mu.Unlock()
		return nil, errors.ResourceExhausted("stream", core.NewResourceError("stream",
			fmt.Errorf("%d streams already live", d.cfg.MaxStreams)))
	}
	d.streams++
	d.mu.Unlock()

	s := &stream{
		dev:  d,
		ops:  make(chan func() error, 64),
		done: make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

func (s *stream) loop() {
	defer close(s.done)
	for op := range s.ops {
		if err := op(); err != nil {
			s.errMu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.errMu.Unlock()
		}
	}
}

func (s *stream) enqueue(op func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return errors.DeviceFailure("enqueue", fmt.Errorf("%w: stream destroyed", core.ErrDeviceFailure))
	}
	s.ops <- op
	return nil
}

// Sync blocks until every queued operation has run and reports the first
// failure among them.
func (s *stream) Sync() error {
	barrier := make(chan struct{})
	if err := s.enqueue(func() error { close(barrier); return nil }); err != nil {
		return err
	}
	<-barrier

	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.err
	s.err = nil
	if err != nil {
		return errors.DeviceFailure("sync", err)
	}
	return nil
}

// Destroy drains the stream and stops its goroutine.
func (s *stream) Destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errors.DeviceFailure("destroy", fmt.Errorf("%w: stream destroyed twice", core.ErrDeviceFailure))
	}
	s.destroyed = true
	close(s.ops)
	s.mu.Unlock()

	<-s.done
	s.dev.mu.Lock()
	s.dev.streams--
	s.dev.mu.Unlock()
	return nil
}

// CopyWords copies the first n words of src into dst.
func (s *stream) CopyWords(dst []uint32, src ports.WordBuffer, n int) error {
	wb, err := asWords(src)
	if err != nil {
		return err
	}
	if n > len(dst) || n > len(wb.data) {
		return errors.DeviceFailure("copy", fmt.Errorf("%w: copy of %d words exceeds buffers", core.ErrDeviceFailure, n))
	}
	return s.enqueue(func() error {
		copy(dst[:n], wb.data[:n])
		return nil
	})
}

// CopyVertices copies the first n predecessors of src into dst.
func (s *stream) CopyVertices(dst []int32, src ports.VertexBuffer, n int) error {
	vb, err := asVertices(src)
	if err != nil {
		return err
	}
	if n > len(dst) || n > len(vb.data) {
		return errors.DeviceFailure("copy", fmt.Errorf("%w: copy of %d vertices exceeds buffers", core.ErrDeviceFailure, n))
	}
	return s.enqueue(func() error {
		copy(dst[:n], vb.data[:n])
		return nil
	})
}
