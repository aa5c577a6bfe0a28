// Package calibration implements the guided 9-point procedure that maps
// normalized eye-region landmarks to screen coordinates.
package calibration

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ayusman/netra/internal/landmark"
)

// State represents the calibration procedure state.
type State string

const (
	// StateIdle means no calibration has been started.
	StateIdle State = "idle"
	// StateCollecting means samples are being gathered for a target point.
	StateCollecting State = "collecting"
	// StateFitting means the mapping is being solved.
	StateFitting State = "fitting"
	// StateComplete means a model was fitted within tolerance.
	StateComplete State = "complete"
	// StateFailed means the fit failed or samples were insufficient.
	StateFailed State = "failed"
)

// Calibration errors surfaced to the caller. None are silently retried.
var (
	ErrAlreadyCalibrating  = errors.New("calibration already in progress")
	ErrNotCollecting       = errors.New("calibration is not collecting samples")
	ErrInsufficientSamples = errors.New("not enough calibration samples")
	ErrFitFailed           = errors.New("calibration fit failed")
)

// Default calibration parameters.
const (
	// NumTargets is the number of screen targets in the calibration grid.
	NumTargets = 9
	// DefaultMinSamples is the minimum sample count per target.
	DefaultMinSamples = 5
	// DefaultTolerance is the maximum acceptable RMS residual in
	// normalized screen units.
	DefaultTolerance = 0.05
)

// Target is a known screen coordinate the user fixates during calibration,
// in normalized screen units (0-1).
type Target struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TargetPoints returns the standard 9-point calibration grid:
// corners, edge midpoints and center, inset 10% from the screen edges.
func TargetPoints() []Target {
	return []Target{
		{0.1, 0.1}, {0.5, 0.1}, {0.9, 0.1},
		{0.1, 0.5}, {0.5, 0.5}, {0.9, 0.5},
		{0.1, 0.9}, {0.5, 0.9}, {0.9, 0.9},
	}
}

// Model is a fitted mapping from iris coordinates to screen coordinates:
// screen = a*ix + b*iy + c, one coefficient set per axis. A Model is
// immutable; re-calibration replaces the active instance wholesale.
type Model struct {
	CoeffX    [3]float64 `json:"coeff_x"`
	CoeffY    [3]float64 `json:"coeff_y"`
	Residual  float64    `json:"residual"`
	Samples   int        `json:"samples"`
	CreatedAt time.Time  `json:"created_at"`
}

// Map transforms an iris coordinate to a normalized screen coordinate,
// clamped to the 0-1 range.
func (m *Model) Map(ix, iy float64) (float64, float64) {
	sx := m.CoeffX[0]*ix + m.CoeffX[1]*iy + m.CoeffX[2]
	sy := m.CoeffY[0]*ix + m.CoeffY[1]*iy + m.CoeffY[2]
	return clamp01(sx), clamp01(sy)
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

// irisSample is one collected observation: the iris midpoint recorded while
// the user fixated the active target.
type irisSample struct {
	ix, iy float64
}

// Manager runs the calibration state machine and owns the active Model.
type Manager struct {
	mu          sync.Mutex
	state       State
	targets     []Target
	targetIndex int
	minSamples  int
	tolerance   float64
	samples     [][]irisSample
	active      *Model
}

// NewManager creates a calibration Manager with the standard 9-point grid.
// Non-positive parameters fall back to defaults.
func NewManager(minSamples int, tolerance float64) *Manager {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Manager{
		state:      StateIdle,
		targets:    TargetPoints(),
		minSamples: minSamples,
		tolerance:  tolerance,
	}
}

// State returns the current calibration state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the active calibration model, or nil if none has been
// fitted yet. The returned model is immutable; a re-calibration publishes
// a new instance and never mutates a published one.
func (m *Manager) Active() *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetActive installs a previously persisted model, replacing any current
// one. Used at startup to restore the last session's calibration.
func (m *Manager) SetActive(model *Model) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = model
	if model != nil && m.state == StateIdle {
		m.state = StateComplete
	}
}

// Begin starts a new calibration run, clearing any prior in-progress
// samples. It fails with ErrAlreadyCalibrating while samples are being
// collected or a fit is running. Re-entry from Complete or Failed starts
// over; the active model stays valid until a new fit completes.
func (m *Manager) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateCollecting || m.state == StateFitting {
		return ErrAlreadyCalibrating
	}

	m.state = StateCollecting
	m.targetIndex = 0
	m.samples = make([][]irisSample, len(m.targets))

	log.Printf("Calibration started: %d targets, %d samples each", len(m.targets), m.minSamples)
	return nil
}

// Abort cancels an in-progress calibration and returns to Idle (or back to
// Complete when an active model exists). Aborting when nothing is in
// progress is a no-op.
func (m *Manager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCollecting && m.state != StateFitting {
		return
	}

	m.samples = nil
	if m.active != nil {
		m.state = StateComplete
	} else {
		m.state = StateIdle
	}
	log.Println("Calibration aborted")
}

// CurrentTarget returns the target the user should fixate and its index.
func (m *Manager) CurrentTarget() (Target, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCollecting {
		return Target{}, 0, ErrNotCollecting
	}
	return m.targets[m.targetIndex], m.targetIndex, nil
}

// Progress reports the active target index and the samples collected for it.
func (m *Manager) Progress() (target, collected, required int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.samples == nil || m.targetIndex >= len(m.samples) {
		return m.targetIndex, 0, m.minSamples
	}
	return m.targetIndex, len(m.samples[m.targetIndex]), m.minSamples
}

// Sample records conditioned eye frames for the active target. Frames
// without a complete eye region are skipped. Once the minimum sample count
// is reached the manager advances to the next target; the last target
// triggers the fit. Returns the fitted model when calibration completes on
// this call, else nil.
func (m *Manager) Sample(frames []*landmark.Frame) (*Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCollecting {
		return nil, ErrNotCollecting
	}

	for _, f := range frames {
		center, ok := f.IrisCenter()
		if !ok {
			continue
		}
		m.samples[m.targetIndex] = append(m.samples[m.targetIndex], irisSample{ix: center.X, iy: center.Y})
	}

	if len(m.samples[m.targetIndex]) < m.minSamples {
		return nil, nil
	}

	// Target done; advance or fit
	if m.targetIndex < len(m.targets)-1 {
		m.targetIndex++
		return nil, nil
	}

	m.state = StateFitting
	model, err := m.fitLocked()
	if err != nil {
		m.state = StateFailed
		log.Printf("Calibration failed: %v", err)
		return nil, err
	}

	// Atomic wholesale replacement: readers holding the old model pointer
	// keep a consistent view until their next cycle.
	m.active = model
	m.state = StateComplete
	m.samples = nil

	log.Printf("Calibration complete: %d samples, residual %.6f", model.Samples, model.Residual)
	return model, nil
}

// fitLocked solves the per-axis affine least-squares mapping from collected
// iris samples to the known screen targets and validates the residual.
func (m *Manager) fitLocked() (*Model, error) {
	var rows [][3]float64
	var bx, by []float64

	for i, target := range m.targets {
		for _, s := range m.samples[i] {
			rows = append(rows, [3]float64{s.ix, s.iy, 1})
			bx = append(bx, target.X)
			by = append(by, target.Y)
		}
	}

	if len(rows) < len(m.targets)*m.minSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(rows), len(m.targets)*m.minSamples)
	}

	coeffX, okX := solveLeastSquares(rows, bx)
	coeffY, okY := solveLeastSquares(rows, by)
	if !okX || !okY {
		return nil, fmt.Errorf("%w: ill-conditioned sample set", ErrFitFailed)
	}

	model := &Model{
		CoeffX:    coeffX,
		CoeffY:    coeffY,
		Samples:   len(rows),
		CreatedAt: time.Now(),
	}

	// RMS residual over both axes on the training points
	var sum float64
	for i, row := range rows {
		px := coeffX[0]*row[0] + coeffX[1]*row[1] + coeffX[2]
		py := coeffY[0]*row[0] + coeffY[1]*row[1] + coeffY[2]
		dx := px - bx[i]
		dy := py - by[i]
		sum += dx*dx + dy*dy
	}
	model.Residual = math.Sqrt(sum / float64(len(rows)))

	if model.Residual > m.tolerance {
		return nil, fmt.Errorf("%w: residual %.6f exceeds tolerance %.6f", ErrFitFailed, model.Residual, m.tolerance)
	}

	return model, nil
}

// solveLeastSquares solves min ||A*c - b|| for the 3 coefficients via the
// normal equations (A'A)c = A'b with Gaussian elimination. Returns false
// when the system is singular (degenerate sample geometry).
func solveLeastSquares(rows [][3]float64, b []float64) ([3]float64, bool) {
	var ata [3][3]float64
	var atb [3]float64

	for k, row := range rows {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				ata[i][j] += row[i] * row[j]
			}
			atb[i] += row[i] * b[k]
		}
	}

	// Gaussian elimination with partial pivoting
	var aug [3][4]float64
	for i := 0; i < 3; i++ {
		copy(aug[i][:3], ata[i][:])
		aug[i][3] = atb[i]
	}

	for col := 0; col < 3; col++ {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return [3]float64{}, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for r := 0; r < 3; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col] / aug[col][col]
			for c := col; c < 4; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	var coeff [3]float64
	for i := 0; i < 3; i++ {
		coeff[i] = aug[i][3] / aug[i][i]
	}
	return coeff, true
}
