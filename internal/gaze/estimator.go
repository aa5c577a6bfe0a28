// Package gaze turns calibrated eye landmarks into a stabilized on-screen
// gaze point with dwell detection.
package gaze

import (
	"math"
	"sync"
	"time"

	"github.com/ayusman/netra/internal/calibration"
	"github.com/ayusman/netra/internal/landmark"
)

// Default estimator parameters.
const (
	DefaultProcessNoise     = 1e-3
	DefaultMeasurementNoise = 1e-1
	// DefaultLossFrames is the number of consecutive invalid frames before
	// tracking is considered lost.
	DefaultLossFrames = 10
	// DefaultDwellSpeed is the speed ceiling (normalized units/second)
	// under which the dwell timer may accumulate.
	DefaultDwellSpeed = 0.08
	// DefaultDwellRadius bounds how far the gaze may drift from the dwell
	// anchor while still dwelling, in normalized units.
	DefaultDwellRadius = 0.04
)

// Time clamps for the filter step. A gap beyond the ceiling is a tracking
// loss, not a filter advance.
const (
	dtFloor           = time.Millisecond
	dtClamp           = 100 * time.Millisecond
	DefaultGapCeiling = 250 * time.Millisecond
)

// DefaultDwellDuration is the dwell time required to produce a click
// candidate.
const DefaultDwellDuration = 800 * time.Millisecond

// State is the current gaze state: filtered screen coordinate, velocity
// estimate and dwell progress. It is updated once per frame by the
// Estimator and read by the fusion stage.
type State struct {
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	VX            float64       `json:"vx"`
	VY            float64       `json:"vy"`
	Tracking      bool          `json:"tracking"`
	Settled       bool          `json:"settled"`
	Dwell         time.Duration `json:"-"`
	DwellComplete bool          `json:"dwell_complete"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Speed returns the magnitude of the velocity estimate.
func (s State) Speed() float64 {
	return math.Hypot(s.VX, s.VY)
}

// Config holds tunable estimator parameters.
type Config struct {
	ProcessNoise     float64
	MeasurementNoise float64
	LossFrames       int
	GapCeiling       time.Duration
	DwellSpeed       float64
	DwellRadius      float64
	DwellDuration    time.Duration
}

// DefaultEstimatorConfig returns a Config with sensible default values.
func DefaultEstimatorConfig() Config {
	return Config{
		ProcessNoise:     DefaultProcessNoise,
		MeasurementNoise: DefaultMeasurementNoise,
		LossFrames:       DefaultLossFrames,
		GapCeiling:       DefaultGapCeiling,
		DwellSpeed:       DefaultDwellSpeed,
		DwellRadius:      DefaultDwellRadius,
		DwellDuration:    DefaultDwellDuration,
	}
}

// Estimator maps conditioned eye frames through the calibration model and a
// predictive filter into a stable GazeState.
type Estimator struct {
	mu      sync.Mutex
	config  Config
	fx, fy  *kalman1D
	state   State
	misses  int
	anchorX float64
	anchorY float64
	last    time.Time
}

// NewEstimator creates an Estimator with the given configuration.
// Zero-valued fields fall back to defaults.
func NewEstimator(config Config) *Estimator {
	def := DefaultEstimatorConfig()
	if config.ProcessNoise <= 0 {
		config.ProcessNoise = def.ProcessNoise
	}
	if config.MeasurementNoise <= 0 {
		config.MeasurementNoise = def.MeasurementNoise
	}
	if config.LossFrames <= 0 {
		config.LossFrames = def.LossFrames
	}
	if config.GapCeiling <= 0 {
		config.GapCeiling = def.GapCeiling
	}
	if config.DwellSpeed <= 0 {
		config.DwellSpeed = def.DwellSpeed
	}
	if config.DwellRadius <= 0 {
		config.DwellRadius = def.DwellRadius
	}
	if config.DwellDuration <= 0 {
		config.DwellDuration = def.DwellDuration
	}

	return &Estimator{
		config: config,
		fx:     newKalman1D(config.ProcessNoise, config.MeasurementNoise),
		fy:     newKalman1D(config.ProcessNoise, config.MeasurementNoise),
	}
}

// Estimate advances the gaze state with one conditioned eye frame. A nil
// frame or nil model counts as a miss; enough consecutive misses reset the
// filter and mark the state unsettled. Returns the updated state.
func (e *Estimator) Estimate(conditioned *landmark.Frame, model *calibration.Model) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if conditioned == nil || model == nil {
		return e.missLocked()
	}

	center, ok := conditioned.IrisCenter()
	if !ok {
		return e.missLocked()
	}

	mx, my := model.Map(center.X, center.Y)
	ts := conditioned.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	gap := ts.Sub(e.last)
	if !e.last.IsZero() && gap > e.config.GapCeiling {
		// A frame gap this large means the motion model is stale; advancing
		// the filter would manufacture a velocity spike. Re-seed instead.
		e.resetFiltersLocked()
	}

	dt := gap
	if e.last.IsZero() || dt < dtFloor {
		dt = dtFloor
	}
	if dt > dtClamp {
		dt = dtClamp
	}

	x := e.fx.step(mx, dt.Seconds())
	y := e.fy.step(my, dt.Seconds())

	e.misses = 0
	e.last = ts

	e.state.X = clamp01(x)
	e.state.Y = clamp01(y)
	e.state.VX = e.fx.vel
	e.state.VY = e.fy.vel
	e.state.Tracking = true
	e.state.Timestamp = ts

	e.updateDwellLocked(gap)

	return e.state
}

// updateDwellLocked accumulates the dwell timer while the gaze is slow and
// near the dwell anchor, and flags completion as a click candidate.
func (e *Estimator) updateDwellLocked(elapsed time.Duration) {
	withinRadius := math.Hypot(e.state.X-e.anchorX, e.state.Y-e.anchorY) <= e.config.DwellRadius
	slow := e.state.Speed() <= e.config.DwellSpeed

	if !slow || !withinRadius {
		// Re-anchor and restart the timer
		e.anchorX = e.state.X
		e.anchorY = e.state.Y
		e.state.Dwell = 0
		e.state.Settled = false
		e.state.DwellComplete = false
		return
	}

	e.state.Settled = true
	if elapsed > 0 && elapsed <= e.config.GapCeiling {
		e.state.Dwell += elapsed
	}
	e.state.DwellComplete = e.state.Dwell >= e.config.DwellDuration
}

// missLocked records an invalid frame. Once LossFrames consecutive misses
// accumulate, tracking is lost: velocity resets to zero, the state becomes
// unsettled and dwell is suppressed.
func (e *Estimator) missLocked() State {
	e.misses++
	if e.misses >= e.config.LossFrames && e.state.Tracking {
		e.resetFiltersLocked()
		e.state.VX = 0
		e.state.VY = 0
		e.state.Tracking = false
		e.state.Settled = false
		e.state.Dwell = 0
		e.state.DwellComplete = false
	}
	return e.state
}

func (e *Estimator) resetFiltersLocked() {
	e.fx.reset()
	e.fy.reset()
	e.state.Dwell = 0
	e.state.Settled = false
	e.state.DwellComplete = false
}

// Reset clears all estimator state, as on session restart.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetFiltersLocked()
	e.state = State{}
	e.misses = 0
	e.last = time.Time{}
	e.anchorX = 0
	e.anchorY = 0
}

// State returns a copy of the current gaze state.
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
