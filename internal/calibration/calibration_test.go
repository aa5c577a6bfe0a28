package calibration

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/netra/internal/landmark"
)

// identityFrames returns eye frames whose iris midpoint equals the target
// coordinate, so the fitted mapping should be near-identity.
func identityFrames(t Target, n int) []*landmark.Frame {
	frames := make([]*landmark.Frame, n)
	for i := range frames {
		frames[i] = landmark.EyeFrameAt(t.X, t.Y)
	}
	return frames
}

// runCalibration drives a full 9-point run feeding iris positions derived
// from each target through the given transform.
func runCalibration(t *testing.T, m *Manager, iris func(Target) (float64, float64)) *Model {
	t.Helper()

	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	var model *Model
	for i := 0; i < NumTargets; i++ {
		target, idx, err := m.CurrentTarget()
		if err != nil {
			t.Fatalf("CurrentTarget() error = %v", err)
		}
		if idx != i {
			t.Fatalf("target index = %d, want %d", idx, i)
		}

		ix, iy := iris(target)
		frames := make([]*landmark.Frame, DefaultMinSamples)
		for j := range frames {
			frames[j] = landmark.EyeFrameAt(ix, iy)
		}

		model, err = m.Sample(frames)
		if err != nil {
			t.Fatalf("Sample() target %d error = %v", i, err)
		}
	}

	return model
}

func TestManager_CompleteWithIdentityMapping(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	model := runCalibration(t, m, func(tg Target) (float64, float64) {
		return tg.X, tg.Y
	})

	if m.State() != StateComplete {
		t.Fatalf("state = %s, want %s", m.State(), StateComplete)
	}
	if model == nil {
		t.Fatal("expected fitted model on last Sample call")
	}
	if model.Residual > 1e-6 {
		t.Errorf("residual = %f, want near zero for noise-free samples", model.Residual)
	}

	// Round-trip the training points
	for _, target := range TargetPoints() {
		sx, sy := model.Map(target.X, target.Y)
		if math.Abs(sx-target.X) > 1e-6 || math.Abs(sy-target.Y) > 1e-6 {
			t.Errorf("Map(%f, %f) = (%f, %f), want identity", target.X, target.Y, sx, sy)
		}
	}
}

func TestManager_CompleteWithScaledMapping(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	// Iris moves over a small central region: screen = 4*(iris - 0.3)
	model := runCalibration(t, m, func(tg Target) (float64, float64) {
		return tg.X/4 + 0.3, tg.Y/4 + 0.3
	})

	if model == nil {
		t.Fatal("expected fitted model")
	}
	if model.Residual > 1e-6 {
		t.Errorf("residual = %f, want near zero", model.Residual)
	}

	// A held-out iris position inside the grid maps through the same affine
	sx, sy := model.Map(0.375, 0.425)
	if math.Abs(sx-0.3) > 1e-6 || math.Abs(sy-0.5) > 1e-6 {
		t.Errorf("Map(0.375, 0.425) = (%f, %f), want (0.3, 0.5)", sx, sy)
	}
}

func TestManager_BeginWhileCollecting(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := m.Begin(); !errors.Is(err, ErrAlreadyCalibrating) {
		t.Fatalf("second Begin() error = %v, want ErrAlreadyCalibrating", err)
	}
}

func TestManager_SampleWithoutBegin(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	_, err := m.Sample(identityFrames(Target{0.5, 0.5}, 5))
	if !errors.Is(err, ErrNotCollecting) {
		t.Fatalf("Sample() error = %v, want ErrNotCollecting", err)
	}
}

func TestManager_DegenerateSamplesFail(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	// Identical iris position for every target: singular fit
	_ = m.Begin()
	var lastErr error
	for i := 0; i < NumTargets; i++ {
		_, lastErr = m.Sample(identityFrames(Target{0.5, 0.5}, DefaultMinSamples))
	}

	if lastErr == nil {
		t.Fatal("expected fit error for degenerate samples")
	}
	if m.State() != StateFailed {
		t.Errorf("state = %s, want %s", m.State(), StateFailed)
	}
}

func TestManager_RecalibrationReplacesModel(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	first := runCalibration(t, m, func(tg Target) (float64, float64) {
		return tg.X, tg.Y
	})
	if m.Active() != first {
		t.Fatal("expected first model active")
	}

	// Re-enter from Complete; active model survives until the new fit lands
	if err := m.Begin(); err != nil {
		t.Fatalf("re-calibration Begin() error = %v", err)
	}
	if m.Active() != first {
		t.Error("active model must remain valid during re-calibration")
	}
	m.Abort()

	second := runCalibration(t, m, func(tg Target) (float64, float64) {
		return tg.X/2 + 0.25, tg.Y/2 + 0.25
	})
	if second == nil {
		t.Fatal("expected second model")
	}
	if m.Active() != second {
		t.Error("expected second model active after re-calibration")
	}
	if m.Active() == first {
		t.Error("re-calibration must replace the model wholesale")
	}
}

func TestManager_AbortRestoresState(t *testing.T) {
	m := NewManager(DefaultMinSamples, DefaultTolerance)

	_ = m.Begin()
	m.Abort()
	if m.State() != StateIdle {
		t.Errorf("state after abort = %s, want %s", m.State(), StateIdle)
	}

	// With an active model, abort returns to Complete
	runCalibration(t, m, func(tg Target) (float64, float64) { return tg.X, tg.Y })
	_ = m.Begin()
	m.Abort()
	if m.State() != StateComplete {
		t.Errorf("state after abort with model = %s, want %s", m.State(), StateComplete)
	}
}

func TestModel_MapClamps(t *testing.T) {
	model := &Model{
		CoeffX: [3]float64{2, 0, 0},
		CoeffY: [3]float64{0, 2, 0},
	}

	sx, sy := model.Map(0.9, 0.9)
	if sx != 1.0 || sy != 1.0 {
		t.Errorf("Map() = (%f, %f), want clamped to (1, 1)", sx, sy)
	}

	sx, sy = model.Map(-0.5, -0.5)
	if sx != 0.0 || sy != 0.0 {
		t.Errorf("Map() = (%f, %f), want clamped to (0, 0)", sx, sy)
	}
}
