// Package fusion combines the latest gaze state and gesture classification
// into at most one action event per frame cycle.
package fusion

import (
	"sync"
	"time"

	"github.com/ayusman/netra/internal/gaze"
	"github.com/ayusman/netra/internal/gesture"
)

// Kind identifies what triggered an action event.
type Kind string

const (
	// KindGesture is an action triggered by a classified hand gesture.
	KindGesture Kind = "gesture"
	// KindDwellClick is a click triggered by a completed gaze dwell.
	KindDwellClick Kind = "dwell_click"
)

// DefaultMaxAge bounds how stale an input may be and still contribute to a
// fusion cycle.
const DefaultMaxAge = 200 * time.Millisecond

// ActionEvent is the resolved output of one fusion cycle, delivered
// fire-and-forget to the action executor.
type ActionEvent struct {
	Kind       Kind      `json:"kind"`
	Gesture    string    `json:"gesture,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	GazeValid  bool      `json:"gaze_valid"`
	Timestamp  time.Time `json:"timestamp"`
}

// Mapper applies the precedence and cooldown policy. Each action kind,
// once fired, stays suppressed until its triggering condition clears for
// at least one cycle and re-arms, so holding a pose or a fixation emits
// exactly one event.
type Mapper struct {
	mu           sync.Mutex
	maxAge       time.Duration
	gestureArmed bool
	dwellArmed   bool
}

// NewMapper creates a Mapper. A non-positive maxAge falls back to
// DefaultMaxAge.
func NewMapper(maxAge time.Duration) *Mapper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Mapper{
		maxAge:       maxAge,
		gestureArmed: true,
		dwellArmed:   true,
	}
}

// Fuse resolves one cycle. A qualifying gesture takes precedence over a
// concurrent dwell completion; a dwell completion alone yields a click at
// the settled gaze point; neither yields nil. Inputs older than the
// staleness bound are treated as absent.
func (m *Mapper) Fuse(now time.Time, g gaze.State, ev *gesture.Event) *ActionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev != nil && now.Sub(ev.Timestamp) > m.maxAge {
		ev = nil
	}
	gazeValid := g.Tracking && !g.Timestamp.IsZero() && now.Sub(g.Timestamp) <= m.maxAge
	dwellComplete := gazeValid && g.DwellComplete

	if ev != nil {
		armed := m.gestureArmed
		m.gestureArmed = false
		if dwellComplete {
			// The gesture wins this cycle; the concurrent dwell must fully
			// clear before it can fire on its own.
			m.dwellArmed = false
		}
		if !armed {
			return nil
		}
		return &ActionEvent{
			Kind:       KindGesture,
			Gesture:    ev.Name,
			Confidence: ev.Confidence,
			X:          g.X,
			Y:          g.Y,
			GazeValid:  gazeValid,
			Timestamp:  now,
		}
	}

	// Gesture condition cleared; re-arm
	m.gestureArmed = true

	if dwellComplete {
		armed := m.dwellArmed
		m.dwellArmed = false
		if !armed {
			return nil
		}
		return &ActionEvent{
			Kind:      KindDwellClick,
			X:         g.X,
			Y:         g.Y,
			GazeValid: true,
			Timestamp: now,
		}
	}

	m.dwellArmed = true
	return nil
}

// Reset re-arms both action kinds, as on session restart.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gestureArmed = true
	m.dwellArmed = true
}
