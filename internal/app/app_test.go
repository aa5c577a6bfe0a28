package app

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/netra/internal/calibration"
	"github.com/ayusman/netra/internal/capture"
	"github.com/ayusman/netra/internal/fusion"
	"github.com/ayusman/netra/internal/gaze"
	"github.com/ayusman/netra/internal/gesture"
	"github.com/ayusman/netra/internal/landmark"
	"github.com/ayusman/netra/internal/store"
)

// funcDetector returns freshly generated landmark frames on each call so
// timestamps stay current across pipeline cycles.
type funcDetector struct {
	fn func() landmark.Result
}

func (d *funcDetector) Detect(frame *gocv.Mat) (landmark.Result, error) {
	return d.fn(), nil
}

func (d *funcDetector) Close() error { return nil }

func testStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testFrames(t *testing.T) []*gocv.Mat {
	t.Helper()

	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })
	return []*gocv.Mat{&mat}
}

func newTestApp(t *testing.T, detect func() landmark.Result) *App {
	t.Helper()

	a := New(Config{
		Store:         testStore(t),
		DwellDuration: 300 * time.Millisecond,
	})
	a.SetCamera(capture.NewMockCamera(testFrames(t), true))
	a.SetDetector(&funcDetector{fn: detect})
	return a
}

func identityModel() *calibration.Model {
	return &calibration.Model{
		CoeffX:    [3]float64{1, 0, 0},
		CoeffY:    [3]float64{0, 1, 0},
		Samples:   45,
		CreatedAt: time.Now(),
	}
}

func TestApp_StartStop(t *testing.T) {
	a := newTestApp(t, func() landmark.Result { return landmark.Result{} })

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.Camera().IsOpen() {
		t.Error("camera should be open after Start")
	}

	// Start is idempotent
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	a.Stop()
	if a.Camera().IsOpen() {
		t.Error("camera should be closed after Stop")
	}

	// Stop is idempotent
	a.Stop()
}

func TestApp_PipelineEmitsGazeUpdates(t *testing.T) {
	a := newTestApp(t, func() landmark.Result {
		return landmark.Result{Eye: landmark.EyeFrameAt(0.5, 0.5)}
	})
	a.Calibration().SetActive(identityModel())
	a.SetEnabled(true)

	updates := make(chan gaze.State, 64)
	a.OnGaze = func(st gaze.State) {
		select {
		case updates <- st:
		default:
		}
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	select {
	case st := <-updates:
		if st.X < 0.3 || st.X > 0.7 {
			t.Errorf("gaze x = %.3f, want near 0.5", st.X)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no gaze update within deadline")
	}

	if !a.Estimator().State().Tracking {
		// Allow a few more cycles before checking
		time.Sleep(200 * time.Millisecond)
	}
	if !a.Estimator().State().Tracking {
		t.Error("estimator should be tracking")
	}
}

func TestApp_GestureEmitsAction(t *testing.T) {
	a := newTestApp(t, func() landmark.Result {
		return landmark.Result{
			Eye:  landmark.EyeFrameAt(0.5, 0.5),
			Hand: landmark.PointingHandFrame(),
		}
	})
	a.Calibration().SetActive(identityModel())
	a.SetEnabled(true)

	trainer := gesture.NewTrainer(0)
	var samples []*landmark.Frame
	for i := 0; i < gesture.DefaultMinTrainingSamples; i++ {
		samples = append(samples, landmark.PointingHandFrame())
	}
	profile, err := trainer.Train("pointing", samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	a.Classifier().SetProfiles([]*gesture.Profile{profile})

	actions := make(chan *fusion.ActionEvent, 8)
	a.OnAction = func(ev *fusion.ActionEvent) {
		select {
		case actions <- ev:
		default:
		}
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	select {
	case ev := <-actions:
		if ev.Kind != fusion.KindGesture {
			t.Errorf("action kind = %q, want %q", ev.Kind, fusion.KindGesture)
		}
		if ev.Gesture != "pointing" {
			t.Errorf("gesture = %q, want pointing", ev.Gesture)
		}
		if a.LastAction() == nil {
			t.Error("LastAction() should be recorded")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no action event within deadline")
	}
}

func TestApp_DisabledSkipsProcessing(t *testing.T) {
	detected := make(chan struct{}, 8)
	a := newTestApp(t, func() landmark.Result {
		select {
		case detected <- struct{}{}:
		default:
		}
		return landmark.Result{Eye: landmark.EyeFrameAt(0.5, 0.5)}
	})
	// Disabled, not calibrating: frames must be discarded before detection

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	select {
	case <-detected:
		t.Error("detector ran while input was disabled")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestApp_CalibrationCollectsWhileDisabled(t *testing.T) {
	a := newTestApp(t, func() landmark.Result {
		return landmark.Result{Eye: landmark.EyeFrameAt(0.3, 0.3)}
	})

	if err := a.Calibration().Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	deadline := time.After(2 * time.Second)
	for {
		_, collected, _ := a.Calibration().Progress()
		if collected > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no calibration samples collected within deadline")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestApp_LoadProfiles(t *testing.T) {
	a := newTestApp(t, func() landmark.Result { return landmark.Result{} })

	trainer := gesture.NewTrainer(0)
	var samples []*landmark.Frame
	for i := 0; i < gesture.DefaultMinTrainingSamples; i++ {
		samples = append(samples, landmark.OpenPalmFrame())
	}
	profile, err := trainer.Train("open_palm", samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	data, err := json.Marshal(profile.Descriptor)
	if err != nil {
		t.Fatalf("marshal descriptor: %v", err)
	}
	err = a.Store().Profiles().Create(&store.Profile{
		ID:        profile.ID,
		Name:      profile.Name,
		Type:      store.ProfileTypeStatic,
		Data:      data,
		Threshold: profile.Threshold,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := a.LoadProfiles(); err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}

	loaded := a.Classifier().Profiles()
	if len(loaded) != 1 {
		t.Fatalf("loaded %d profiles, want 1", len(loaded))
	}
	if loaded[0].Name != "open_palm" {
		t.Errorf("profile name = %q, want open_palm", loaded[0].Name)
	}
	if len(loaded[0].Descriptor) != len(profile.Descriptor) {
		t.Errorf("descriptor length = %d, want %d", len(loaded[0].Descriptor), len(profile.Descriptor))
	}
}

func TestApp_RestoreCalibration(t *testing.T) {
	a := newTestApp(t, func() landmark.Result { return landmark.Result{} })

	err := a.Store().Calibrations().Save(&store.Calibration{
		ID:      "cal-1",
		CoeffX:  [3]float64{1, 0, 0},
		CoeffY:  [3]float64{0, 1, 0},
		Samples: 45,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := a.RestoreCalibration(); err != nil {
		t.Fatalf("RestoreCalibration() error = %v", err)
	}

	model := a.Calibration().Active()
	if model == nil {
		t.Fatal("expected an active model after restore")
	}
	x, y := model.Map(0.25, 0.75)
	if x != 0.25 || y != 0.75 {
		t.Errorf("Map(0.25, 0.75) = (%.2f, %.2f), want identity", x, y)
	}
}

func TestApp_PathStrokeClassifiesOnHandExit(t *testing.T) {
	a := newTestApp(t, func() landmark.Result { return landmark.Result{} })

	trainer := gesture.NewTrainer(0)
	var samples [][]gesture.PathPoint
	for i := 0; i < gesture.DefaultMinTrainingSamples; i++ {
		var path []gesture.PathPoint
		for j := 0; j < 20; j++ {
			path = append(path, gesture.PathPoint{
				X:         0.1 + float64(j)*0.04,
				Y:         0.5,
				Timestamp: int64(j * 33),
			})
		}
		samples = append(samples, path)
	}
	profile, err := trainer.TrainPath("swipe_right", samples)
	if err != nil {
		t.Fatalf("TrainPath() error = %v", err)
	}
	a.PathClassifier().SetProfiles([]*gesture.PathProfile{profile})

	// Sweep the index fingertip left to right
	for j := 0; j < 20; j++ {
		frame := landmark.PointingHandFrame()
		frame.Points[landmark.IndexTip] = landmark.Point3D{
			X: 0.1 + float64(j)*0.04,
			Y: 0.5,
		}
		if ev := a.trackPath(frame); ev != nil {
			t.Fatalf("stroke classified before the hand left the frame: %v", ev)
		}
	}

	// Hand leaves the frame; the stroke completes after the miss window
	var got *gesture.Event
	for i := 0; i < pathMissFrames; i++ {
		got = a.trackPath(nil)
	}
	if got == nil {
		t.Fatal("expected a path classification after the stroke completed")
	}
	if got.Name != "swipe_right" {
		t.Errorf("classified as %q, want swipe_right", got.Name)
	}

	// Buffer cleared; further misses stay silent
	if ev := a.trackPath(nil); ev != nil {
		t.Errorf("unexpected event after buffer clear: %v", ev)
	}
}

func TestApp_ShortStrokeIgnored(t *testing.T) {
	a := newTestApp(t, func() landmark.Result { return landmark.Result{} })

	for j := 0; j < pathMinPoints-1; j++ {
		frame := landmark.PointingHandFrame()
		a.trackPath(frame)
	}
	for i := 0; i < pathMissFrames; i++ {
		if ev := a.trackPath(nil); ev != nil {
			t.Fatalf("short stroke should not classify: %v", ev)
		}
	}
}

func TestApp_RestoreEnabled(t *testing.T) {
	s := testStore(t)

	first := New(Config{Store: s})
	first.Calibration().SetActive(identityModel())
	first.SetEnabled(false)

	// A new app over the same store honors the saved toggle
	second := New(Config{Store: s})
	second.Calibration().SetActive(identityModel())
	second.RestoreEnabled()
	if second.IsEnabled() {
		t.Error("input should stay disabled after an explicit disable")
	}

	second.SetEnabled(true)

	third := New(Config{Store: s})
	third.Calibration().SetActive(identityModel())
	third.RestoreEnabled()
	if !third.IsEnabled() {
		t.Error("input should restore enabled")
	}

	// No calibration forces disabled regardless of the saved value
	fourth := New(Config{Store: s})
	fourth.RestoreEnabled()
	if fourth.IsEnabled() {
		t.Error("input must stay disabled without a calibration")
	}
}

func TestApp_RestoreCalibration_NoneSaved(t *testing.T) {
	a := newTestApp(t, func() landmark.Result { return landmark.Result{} })

	if err := a.RestoreCalibration(); err != nil {
		t.Fatalf("RestoreCalibration() error = %v", err)
	}
	if a.Calibration().Active() != nil {
		t.Error("expected no active model")
	}
}
