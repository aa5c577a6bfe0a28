package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func testMat() *gocv.Mat {
	m := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	return &m
}

func TestSlot_PutTake(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	ts := time.Unix(1000, 0)
	s.Put(testMat(), ts)

	frame, got, ok := s.Take()
	if !ok {
		t.Fatal("Take() returned empty after Put")
	}
	defer frame.Close()

	if !got.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got, ts)
	}

	if _, _, ok := s.Take(); ok {
		t.Error("second Take() should find the slot empty")
	}
}

func TestSlot_LatestWins(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	s.Put(testMat(), time.Unix(1000, 0))
	s.Put(testMat(), time.Unix(1001, 0))
	s.Put(testMat(), time.Unix(1002, 0))

	frame, ts, ok := s.Take()
	if !ok {
		t.Fatal("Take() returned empty")
	}
	defer frame.Close()

	if !ts.Equal(time.Unix(1002, 0)) {
		t.Errorf("timestamp = %v, want the newest frame's", ts)
	}
	if s.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", s.Dropped())
	}
}

func TestSlot_ReadySignal(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	select {
	case <-s.Ready():
		t.Fatal("Ready() signaled on an empty slot")
	default:
	}

	s.Put(testMat(), time.Unix(1000, 0))

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready() did not signal after Put")
	}

	frame, _, ok := s.Take()
	if !ok {
		t.Fatal("Take() returned empty")
	}
	frame.Close()
}

func TestSlot_PutAfterClose(t *testing.T) {
	s := NewSlot()
	s.Close()

	// Must not leak or panic; the frame is closed internally
	s.Put(testMat(), time.Unix(1000, 0))

	if _, _, ok := s.Take(); ok {
		t.Error("Take() after Close should be empty")
	}
}
