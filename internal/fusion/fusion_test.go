package fusion

import (
	"testing"
	"time"

	"github.com/ayusman/netra/internal/gaze"
	"github.com/ayusman/netra/internal/gesture"
)

func trackingGaze(now time.Time, dwellComplete bool) gaze.State {
	return gaze.State{
		X: 0.4, Y: 0.6,
		Tracking:      true,
		Settled:       dwellComplete,
		DwellComplete: dwellComplete,
		Timestamp:     now,
	}
}

func gestureEvent(now time.Time) *gesture.Event {
	return &gesture.Event{ProfileID: "p1", Name: "pinch", Confidence: 0.9, Timestamp: now}
}

func TestMapper_GestureBeatsConcurrentDwell(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	now := time.Unix(1000, 0)

	event := m.Fuse(now, trackingGaze(now, true), gestureEvent(now))
	if event == nil {
		t.Fatal("expected an action event")
	}
	if event.Kind != KindGesture {
		t.Errorf("kind = %s, want %s (gesture takes precedence over dwell)", event.Kind, KindGesture)
	}
	if event.Gesture != "pinch" {
		t.Errorf("gesture = %q, want pinch", event.Gesture)
	}
	if event.X != 0.4 || event.Y != 0.6 {
		t.Errorf("event coordinates = (%f, %f), want gaze point", event.X, event.Y)
	}
}

func TestMapper_DwellAloneYieldsClick(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	now := time.Unix(1000, 0)

	event := m.Fuse(now, trackingGaze(now, true), nil)
	if event == nil {
		t.Fatal("expected a dwell click")
	}
	if event.Kind != KindDwellClick {
		t.Errorf("kind = %s, want %s", event.Kind, KindDwellClick)
	}
	if event.X != 0.4 || event.Y != 0.6 {
		t.Errorf("click at (%f, %f), want settled gaze point", event.X, event.Y)
	}
}

func TestMapper_NeitherInputYieldsNothing(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	now := time.Unix(1000, 0)

	if event := m.Fuse(now, trackingGaze(now, false), nil); event != nil {
		t.Errorf("expected no event, got %+v", event)
	}
}

func TestMapper_HeldGestureFiresOnce(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	base := time.Unix(1000, 0)

	fired := 0
	for i := 0; i < 10; i++ {
		now := base.Add(time.Duration(i) * 33 * time.Millisecond)
		if m.Fuse(now, trackingGaze(now, false), gestureEvent(now)) != nil {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("held gesture fired %d events, want exactly 1", fired)
	}

	// One clear cycle re-arms; the next gesture fires again
	now := base.Add(400 * time.Millisecond)
	m.Fuse(now, trackingGaze(now, false), nil)
	now = now.Add(33 * time.Millisecond)
	if m.Fuse(now, trackingGaze(now, false), gestureEvent(now)) == nil {
		t.Error("expected the gesture to fire again after re-arming")
	}
}

func TestMapper_HeldDwellFiresOnce(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	base := time.Unix(1000, 0)

	fired := 0
	for i := 0; i < 10; i++ {
		now := base.Add(time.Duration(i) * 33 * time.Millisecond)
		if m.Fuse(now, trackingGaze(now, true), nil) != nil {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("held dwell fired %d events, want exactly 1", fired)
	}
}

func TestMapper_GestureSuppressesDwellUntilClear(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	base := time.Unix(1000, 0)

	// Gesture fires while dwell is also complete
	event := m.Fuse(base, trackingGaze(base, true), gestureEvent(base))
	if event == nil || event.Kind != KindGesture {
		t.Fatal("expected gesture event")
	}

	// Gesture released but dwell still held: the dwell must not fire until
	// it clears and re-arms
	now := base.Add(33 * time.Millisecond)
	if event := m.Fuse(now, trackingGaze(now, true), nil); event != nil {
		t.Fatalf("dwell fired immediately after gesture, got %+v", event)
	}

	// Dwell clears, then completes again
	now = now.Add(33 * time.Millisecond)
	m.Fuse(now, trackingGaze(now, false), nil)
	now = now.Add(33 * time.Millisecond)
	if event := m.Fuse(now, trackingGaze(now, true), nil); event == nil || event.Kind != KindDwellClick {
		t.Error("expected dwell click after the condition cleared and re-armed")
	}
}

func TestMapper_StaleInputsIgnored(t *testing.T) {
	m := NewMapper(DefaultMaxAge)
	now := time.Unix(1000, 0)

	staleGesture := gestureEvent(now.Add(-time.Second))
	if event := m.Fuse(now, trackingGaze(now, false), staleGesture); event != nil {
		t.Errorf("stale gesture produced event %+v", event)
	}

	staleGaze := trackingGaze(now.Add(-time.Second), true)
	if event := m.Fuse(now, staleGaze, nil); event != nil {
		t.Errorf("stale dwell produced event %+v", event)
	}
}
