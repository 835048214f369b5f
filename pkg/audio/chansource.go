package audio

import (
	"context"
	"io"
	"sync"
)

// ChanSource is a Source fed by pushing frames from another goroutine. The
// WebSocket ingest path pushes decoded capture frames into it while the
// recording controller reads from the other end. Tests use it to script
// exact frame sequences.
type ChanSource struct {
	frames chan Frame

	mu     sync.Mutex
	closed bool
}

// Compile-time interface assertion.
var _ Source = (*ChanSource)(nil)

// NewChanSource creates a ChanSource with the given frame buffer depth.
func NewChanSource(buf int) *ChanSource {
	return &ChanSource{frames: make(chan Frame, buf)}
}

// Push delivers a frame to the reader. It returns false when the source has
// been closed or the buffer is full; the caller decides whether dropping the
// frame matters.
func (s *ChanSource) Push(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- f:
		return true
	default:
		return false
	}
}

// Read implements Source. It returns io.EOF once the source is closed and
// drained.
func (s *ChanSource) Read(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return Frame{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close stops the source. Pending buffered frames remain readable; subsequent
// Push calls are rejected. Safe to call more than once.
func (s *ChanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.frames)
	return nil
}
