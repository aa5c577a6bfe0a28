package app

import (
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/netra/internal/calibration"
	"github.com/ayusman/netra/internal/capture"
	"github.com/ayusman/netra/internal/gaze"
	"github.com/ayusman/netra/internal/gesture"
	"github.com/ayusman/netra/internal/landmark"
)

// runProducer reads camera frames at the configured rate into the
// latest-wins slot. If the pipeline falls behind, frames are replaced in
// the slot rather than queued.
func (a *App) runProducer(stop chan struct{}) {
	defer a.wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		fps := a.camera.FPS()
		if fps <= 0 {
			fps = capture.DefaultFPS
		}
		interval := time.Second / time.Duration(fps)

		frame, err := a.camera.ReadFrame()
		if err == nil {
			a.slot.Put(frame, time.Now())
		}

		select {
		case <-stop:
			return
		case <-time.After(interval):
		}
	}
}

// runPipeline consumes frames from the slot and runs the per-frame cycle.
// On shutdown the in-flight cycle finishes before the goroutine exits.
func (a *App) runPipeline(stop chan struct{}) {
	defer a.wg.Done()

	for {
		select {
		case <-stop:
			return
		case <-a.slot.Ready():
			for {
				frame, _, ok := a.slot.Take()
				if !ok {
					break
				}
				a.processFrame(frame)
			}
		}
	}
}

// processFrame runs one full cycle: motion gate, landmark detection,
// concurrent gaze and gesture streams, fusion, dispatch, and the
// performance observation. Takes ownership of the frame.
func (a *App) processFrame(frame *gocv.Mat) {
	defer frame.Close()

	calibrating := a.calib.State() == calibration.StateCollecting
	if !a.IsEnabled() && !calibrating {
		return
	}

	start := time.Now()
	profile := a.governor.Profile()

	if !a.gate.ShouldDetect(frame, profile.Decimation) {
		return
	}

	result, err := a.Detector().Detect(frame)
	if err != nil {
		log.Printf("Landmark detection failed: %v", err)
		return
	}

	st, ev := a.runStreams(result)

	if a.OnGaze != nil {
		a.OnGaze(st)
	}

	if action := a.mapper.Fuse(time.Now(), st, ev); action != nil {
		a.mu.Lock()
		a.lastAction = action
		a.mu.Unlock()

		if a.OnAction != nil {
			a.OnAction(action)
		}
		if a.dispatcher != nil && a.IsEnabled() {
			// Plugin execution must not add to cycle latency
			go a.dispatcher.Dispatch(action)
		}
	}

	if next, changed := a.governor.Observe(time.Since(start)); changed {
		a.mu.Lock()
		a.applyProfileLocked(next)
		a.mu.Unlock()
	}
}

// Path trace limits. A stroke ends once the hand stays undetected for
// pathMissFrames cycles; very short traces are noise, not gestures.
const (
	pathMaxPoints  = 150
	pathMinPoints  = 8
	pathMissFrames = 3
)

// trackPath accumulates the index fingertip trace while a hand is
// detected and classifies the completed stroke once the hand leaves the
// frame. Returns a path gesture event when a stroke matches.
func (a *App) trackPath(conditioned *landmark.Frame) *gesture.Event {
	a.pathMu.Lock()
	defer a.pathMu.Unlock()

	if conditioned != nil && len(conditioned.Points) > landmark.IndexTip {
		tip := conditioned.Points[landmark.IndexTip]
		ts := conditioned.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		a.pathBuf = append(a.pathBuf, gesture.PathPoint{X: tip.X, Y: tip.Y, Timestamp: ts.UnixMilli()})
		if len(a.pathBuf) > pathMaxPoints {
			a.pathBuf = a.pathBuf[len(a.pathBuf)-pathMaxPoints:]
		}
		a.pathMisses = 0
		return nil
	}

	if len(a.pathBuf) == 0 {
		return nil
	}

	a.pathMisses++
	if a.pathMisses < pathMissFrames {
		return nil
	}

	stroke := a.pathBuf
	a.pathBuf = nil
	a.pathMisses = 0

	if len(stroke) < pathMinPoints {
		return nil
	}
	return a.pathClassifier.Classify(stroke)
}

// runStreams conditions the detected regions and runs the gaze and gesture
// paths concurrently, bounded by the cycle timeout. A stream that misses
// the deadline contributes no update: fusion proceeds with the estimator's
// last published state and no gesture event.
func (a *App) runStreams(result landmark.Result) (gaze.State, *gesture.Event) {
	gazeCh := make(chan gaze.State, 1)
	gestCh := make(chan *gesture.Event, 1)

	go func() {
		conditioned, err := a.eyeCond.Condition(result.Eye)
		if err != nil {
			conditioned = nil
		}

		if conditioned != nil && a.calib.State() == calibration.StateCollecting {
			model, err := a.calib.Sample([]*landmark.Frame{conditioned})
			if err != nil && !errors.Is(err, calibration.ErrNotCollecting) {
				log.Printf("Calibration sample rejected: %v", err)
			}
			if model != nil {
				go a.persistCalibration(model)
			}
		}

		gazeCh <- a.estimator.Estimate(conditioned, a.calib.Active())
	}()

	go func() {
		conditioned, err := a.handCond.Condition(result.Hand)
		if err != nil {
			conditioned = nil
		}
		ev := a.classifier.Classify(conditioned)
		if pathEv := a.trackPath(conditioned); ev == nil {
			ev = pathEv
		}
		gestCh <- ev
	}()

	timeout := time.NewTimer(a.config.CycleTimeout)
	defer timeout.Stop()

	var st gaze.State
	var ev *gesture.Event
	gotGaze, gotGest := false, false

	for !gotGaze || !gotGest {
		select {
		case st = <-gazeCh:
			gotGaze = true
		case ev = <-gestCh:
			gotGest = true
		case <-timeout.C:
			if !gotGaze {
				st = a.estimator.State()
			}
			if !gotGest {
				ev = nil
			}
			return st, ev
		}
	}

	return st, ev
}
