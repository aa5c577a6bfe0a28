// Package signal provides per-stream landmark smoothing and outlier
// rejection shared by the gaze and gesture paths.
package signal

import (
	"errors"
	"sync"

	"github.com/ayusman/netra/internal/landmark"
)

// ErrLowConfidence is returned when a frame's detector confidence is below
// the configured floor. The caller should hold its last-good state rather
// than propagate the rejected frame.
var ErrLowConfidence = errors.New("landmark confidence below floor")

// Default conditioning parameters.
const (
	DefaultWindow        = 5
	DefaultAlpha         = 0.5
	DefaultMinConfidence = 0.5
)

// Conditioner smooths one landmark stream over a bounded history window
// using exponential smoothing. Window length is tunable at runtime; the
// performance governor shortens it on lower hardware tiers.
type Conditioner struct {
	mu            sync.Mutex
	minConfidence float64
	window        int
	alpha         float64
	history       []*landmark.Frame
}

// NewConditioner creates a Conditioner with the given confidence floor,
// window length and smoothing factor. Out-of-range values fall back to
// defaults.
func NewConditioner(minConfidence float64, window int, alpha float64) *Conditioner {
	if minConfidence <= 0 || minConfidence >= 1 {
		minConfidence = DefaultMinConfidence
	}
	if window < 1 {
		window = DefaultWindow
	}
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Conditioner{
		minConfidence: minConfidence,
		window:        window,
		alpha:         alpha,
	}
}

// Condition validates and smooths a raw landmark frame. Frames below the
// confidence floor are rejected with ErrLowConfidence and do not enter the
// history window. The returned frame carries the raw frame's region,
// timestamp and confidence with smoothed point coordinates.
func (c *Conditioner) Condition(raw *landmark.Frame) (*landmark.Frame, error) {
	if raw == nil || raw.Confidence < c.currentFloor() {
		return nil, ErrLowConfidence
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Slide the window
	if len(c.history) >= c.window {
		c.history = c.history[len(c.history)-c.window+1:]
	}
	c.history = append(c.history, raw)

	smoothed := &landmark.Frame{
		Region:     raw.Region,
		Points:     c.smoothLocked(len(raw.Points)),
		Timestamp:  raw.Timestamp,
		Confidence: raw.Confidence,
	}

	return smoothed, nil
}

// smoothLocked runs exponential smoothing oldest-to-newest across the
// history window. Frames whose point count differs from the current frame
// are skipped; detector hiccups must not shift landmark indices.
func (c *Conditioner) smoothLocked(numPoints int) []landmark.Point3D {
	out := make([]landmark.Point3D, numPoints)
	seeded := false

	for _, f := range c.history {
		if len(f.Points) != numPoints {
			continue
		}
		if !seeded {
			copy(out, f.Points)
			seeded = true
			continue
		}
		for i := 0; i < numPoints; i++ {
			out[i].X = c.alpha*f.Points[i].X + (1-c.alpha)*out[i].X
			out[i].Y = c.alpha*f.Points[i].Y + (1-c.alpha)*out[i].Y
			out[i].Z = c.alpha*f.Points[i].Z + (1-c.alpha)*out[i].Z
		}
	}

	return out
}

func (c *Conditioner) currentFloor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minConfidence
}

// SetWindow sets the history window length. Values less than 1 are ignored.
// Shrinking the window drops the oldest frames immediately.
func (c *Conditioner) SetWindow(n int) {
	if n < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = n
	if len(c.history) > n {
		c.history = c.history[len(c.history)-n:]
	}
}

// Window returns the current history window length.
func (c *Conditioner) Window() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// SetMinConfidence sets the confidence floor. Out-of-range values are ignored.
func (c *Conditioner) SetMinConfidence(floor float64) {
	if floor <= 0 || floor >= 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.minConfidence = floor
}

// Reset clears the history window.
func (c *Conditioner) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}
