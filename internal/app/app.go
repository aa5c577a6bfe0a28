// Package app wires the capture, detection, calibration, gaze, gesture,
// fusion and performance components into the per-frame processing pipeline.
package app

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/netra/internal/calibration"
	"github.com/ayusman/netra/internal/capture"
	"github.com/ayusman/netra/internal/fusion"
	"github.com/ayusman/netra/internal/gaze"
	"github.com/ayusman/netra/internal/gesture"
	"github.com/ayusman/netra/internal/landmark"
	"github.com/ayusman/netra/internal/perf"
	"github.com/ayusman/netra/internal/plugin"
	"github.com/ayusman/netra/internal/signal"
	"github.com/ayusman/netra/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Store           *store.Store
	PluginDir       string
	PluginTimeoutMs int
	CameraID        int
	Tier            perf.Tier
	MinConfidence   float64
	DwellDuration   time.Duration
	CycleTimeout    time.Duration
	MotionThreshold float64
	ScreenWidth     int
	ScreenHeight    int
}

// DefaultCycleTimeout bounds how long a cycle waits for the gaze and
// gesture streams before fusing with whatever arrived.
const DefaultCycleTimeout = 100 * time.Millisecond

// App owns the processing pipeline and its components.
type App struct {
	config Config

	camera   capture.Camera
	slot     *capture.Slot
	gate     *capture.Gate
	detector landmark.Detector

	eyeCond  *signal.Conditioner
	handCond *signal.Conditioner

	calib          *calibration.Manager
	estimator      *gaze.Estimator
	classifier     *gesture.Classifier
	pathClassifier *gesture.PathClassifier
	mapper         *fusion.Mapper
	governor       *perf.Governor

	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	dispatcher *plugin.Dispatcher

	// OnGaze and OnAction, if set before Start, observe pipeline output
	// (websocket stream, tray). Called from the pipeline goroutine.
	OnGaze   func(gaze.State)
	OnAction func(*fusion.ActionEvent)

	mu         sync.RWMutex
	enabled    bool
	lastAction *fusion.ActionEvent
	stopCh     chan struct{}
	wg         sync.WaitGroup
	profile    perf.Profile

	// Index fingertip trace for path gesture matching
	pathMu     sync.Mutex
	pathBuf    []gesture.PathPoint
	pathMisses int
}

// New creates an App with the given configuration.
func New(config Config) *App {
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = DefaultCycleTimeout
	}
	if config.Tier == "" {
		config.Tier = perf.TierMid
	}
	if config.PluginTimeoutMs <= 0 {
		config.PluginTimeoutMs = 3000
	}

	governor := perf.NewGovernor(config.Tier, perf.DefaultWindowSize)
	profile := governor.Profile()

	a := &App{
		config:         config,
		camera:         capture.NewCamera(config.CameraID),
		slot:           capture.NewSlot(),
		gate:           capture.NewGate(config.MotionThreshold),
		eyeCond:        signal.NewConditioner(config.MinConfidence, profile.FilterWindow, signal.DefaultAlpha),
		handCond:       signal.NewConditioner(config.MinConfidence, profile.FilterWindow, signal.DefaultAlpha),
		calib:          calibration.NewManager(calibration.DefaultMinSamples, calibration.DefaultTolerance),
		estimator:      gaze.NewEstimator(gaze.Config{DwellDuration: config.DwellDuration}),
		classifier:     gesture.NewClassifier(gesture.DefaultTieEpsilon),
		pathClassifier: gesture.NewPathClassifier(gesture.DefaultTieEpsilon),
		mapper:         fusion.NewMapper(fusion.DefaultMaxAge),
		governor:       governor,
		pluginMgr:      plugin.NewManager(config.PluginDir),
		pluginExec:     plugin.NewExecutor(config.PluginTimeoutMs),
		profile:        profile,
	}

	if config.Store != nil {
		a.dispatcher = plugin.NewDispatcher(a.pluginMgr, a.pluginExec, config.Store.Actions())
		if config.ScreenWidth > 0 && config.ScreenHeight > 0 {
			cfg, _ := json.Marshal(map[string]int{
				"screen_width":  config.ScreenWidth,
				"screen_height": config.ScreenHeight,
			})
			a.dispatcher.DefaultConfig = cfg
		}
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := landmark.NewMediaPipeDetector(landmark.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe landmark detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = landmark.NewMockDetector()
	}

	return a
}

// settingEnabled persists the enable toggle across restarts.
const settingEnabled = "input_enabled"

// SetEnabled enables or disables input processing and persists the choice.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(settingEnabled, strconv.FormatBool(enabled)); err != nil {
			log.Printf("Failed to persist enabled state: %v", err)
		}
	}
}

// RestoreEnabled applies the persisted enable state. Input stays off
// without an active calibration regardless of the saved value.
func (a *App) RestoreEnabled() {
	enabled := a.calib.Active() != nil
	if enabled && a.config.Store != nil {
		if v, err := a.config.Store.Settings().Get(settingEnabled); err == nil {
			enabled = v == "true"
		}
	}
	a.SetEnabled(enabled)
}

// IsEnabled returns whether input processing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetCamera swaps the camera implementation. Must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector sets the landmark detector implementation to use.
func (a *App) SetDetector(d landmark.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// LoadProfiles loads trained gesture profiles from the database into the
// classifier, replacing the active set.
func (a *App) LoadProfiles() error {
	if a.config.Store == nil {
		return nil
	}

	stored, err := a.config.Store.Profiles().List()
	if err != nil {
		return err
	}

	var profiles []*gesture.Profile
	var pathProfiles []*gesture.PathProfile
	for _, p := range stored {
		switch p.Type {
		case store.ProfileTypePath:
			pp, err := storeProfileToPath(p)
			if err != nil {
				log.Printf("Failed to load path profile %s: %v", p.Name, err)
				continue
			}
			pathProfiles = append(pathProfiles, pp)
		default:
			gp, err := storeProfileToGesture(p)
			if err != nil {
				log.Printf("Failed to load profile %s: %v", p.Name, err)
				continue
			}
			profiles = append(profiles, gp)
		}
	}

	a.classifier.SetProfiles(profiles)
	a.pathClassifier.SetProfiles(pathProfiles)
	log.Printf("Loaded %d static and %d path gesture profiles from database", len(profiles), len(pathProfiles))
	return nil
}

// RestoreCalibration installs the persisted active calibration model, if
// any, so the previous session's mapping works immediately.
func (a *App) RestoreCalibration() error {
	if a.config.Store == nil {
		return nil
	}

	saved, err := a.config.Store.Calibrations().Active()
	if err != nil {
		return err
	}
	if saved == nil {
		return nil
	}

	a.calib.SetActive(&calibration.Model{
		CoeffX:    saved.CoeffX,
		CoeffY:    saved.CoeffY,
		Residual:  saved.Residual,
		Samples:   saved.Samples,
		CreatedAt: saved.CreatedAt,
	})
	log.Printf("Restored calibration %s (residual %.4f)", saved.ID, saved.Residual)
	return nil
}

// persistCalibration saves a freshly fitted model as the active one.
func (a *App) persistCalibration(model *calibration.Model) {
	if a.config.Store == nil {
		return
	}

	err := a.config.Store.Calibrations().Save(&store.Calibration{
		ID:        uuid.New().String(),
		CoeffX:    model.CoeffX,
		CoeffY:    model.CoeffY,
		Residual:  model.Residual,
		Samples:   model.Samples,
		CreatedAt: model.CreatedAt,
	})
	if err != nil {
		log.Printf("Failed to persist calibration: %v", err)
	}
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and launches the capture producer and the
// processing pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.applyProfileLocked(a.governor.Profile())

	a.stopCh = make(chan struct{})
	a.wg.Add(2)
	go a.runProducer(a.stopCh)
	go a.runPipeline(a.stopCh)

	log.Println("Input pipeline started")
	return nil
}

// Stop halts the pipeline, letting the in-flight cycle drain before
// releasing the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh := a.stopCh
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	a.wg.Wait()

	a.slot.Close()
	a.gate.Close()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Input pipeline stopped")
}

// applyProfileLocked pushes a performance profile into every stage.
func (a *App) applyProfileLocked(p perf.Profile) {
	if p.Width != a.profile.Width || p.Height != a.profile.Height {
		a.camera.SetResolution(p.Width, p.Height)
		// The motion baseline is scale-dependent
		a.gate.Reset()
	}
	a.camera.SetFPS(int(p.TargetFPS))
	a.eyeCond.SetWindow(p.FilterWindow)
	a.handCond.SetWindow(p.FilterWindow)
	a.profile = p
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Calibration returns the calibration manager.
func (a *App) Calibration() *calibration.Manager {
	return a.calib
}

// Classifier returns the gesture classifier.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier
}

// PathClassifier returns the path gesture classifier.
func (a *App) PathClassifier() *gesture.PathClassifier {
	return a.pathClassifier
}

// Estimator returns the gaze estimator.
func (a *App) Estimator() *gaze.Estimator {
	return a.estimator
}

// Governor returns the performance governor.
func (a *App) Governor() *perf.Governor {
	return a.governor
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Store returns the backing store, which may be nil in tests.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Detector returns the landmark detector.
func (a *App) Detector() landmark.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// LastAction returns the most recently emitted action event, or nil.
func (a *App) LastAction() *fusion.ActionEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastAction
}

// storeProfileToGesture decodes a persisted static profile.
func storeProfileToGesture(p *store.Profile) (*gesture.Profile, error) {
	gp := &gesture.Profile{
		ID:        p.ID,
		Name:      p.Name,
		Threshold: p.Threshold,
		CreatedAt: p.CreatedAt,
	}
	if err := json.Unmarshal(p.Data, &gp.Descriptor); err != nil {
		return nil, err
	}
	return gp, nil
}

// storeProfileToPath decodes a persisted path profile.
func storeProfileToPath(p *store.Profile) (*gesture.PathProfile, error) {
	pp := &gesture.PathProfile{
		ID:        p.ID,
		Name:      p.Name,
		Threshold: p.Threshold,
		CreatedAt: p.CreatedAt,
	}
	if err := json.Unmarshal(p.Data, &pp.Path); err != nil {
		return nil, err
	}
	return pp, nil
}
