package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Slot is the single-slot latest-wins buffer between the capture producer
// and the processing pipeline. If the pipeline falls behind, a newly
// captured frame replaces the queued one instead of accumulating backlog,
// bounding end-to-end latency at the cost of dropping stale frames.
type Slot struct {
	mu      sync.Mutex
	frame   *gocv.Mat
	ts      time.Time
	dropped uint64
	ready   chan struct{}
	closed  bool
}

// NewSlot creates an empty Slot.
func NewSlot() *Slot {
	return &Slot{ready: make(chan struct{}, 1)}
}

// Put offers a captured frame, taking ownership of the Mat. A frame still
// queued from a previous Put is closed and counted as dropped. Put on a
// closed slot closes the frame and discards it.
func (s *Slot) Put(frame *gocv.Mat, ts time.Time) {
	if frame == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		frame.Close()
		return
	}
	if s.frame != nil {
		s.frame.Close()
		s.dropped++
	}
	s.frame = frame
	s.ts = ts
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Take removes and returns the queued frame, transferring ownership to the
// caller. Returns false when the slot is empty.
func (s *Slot) Take() (*gocv.Mat, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil, time.Time{}, false
	}
	frame, ts := s.frame, s.ts
	s.frame = nil
	return frame, ts, true
}

// Ready signals when a frame becomes available. The channel carries at
// most one pending notification; consumers should Take in a loop after
// each receive.
func (s *Slot) Ready() <-chan struct{} {
	return s.ready
}

// Dropped returns the number of frames replaced before consumption.
func (s *Slot) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close releases any queued frame and rejects further Puts.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
}
