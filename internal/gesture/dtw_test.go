package gesture

import (
	"errors"
	"math"
	"testing"
)

// linePath builds a straight horizontal path of n points.
func linePath(n int) []PathPoint {
	path := make([]PathPoint, n)
	for i := range path {
		t := float64(i) / float64(n-1)
		path[i] = PathPoint{X: t, Y: 0.5, Timestamp: int64(i * 33)}
	}
	return path
}

// elbowPath builds an L-shaped path: right, then down.
func elbowPath(n int) []PathPoint {
	path := make([]PathPoint, n)
	half := n / 2
	for i := range path {
		if i < half {
			path[i] = PathPoint{X: float64(i) / float64(half), Y: 0.2, Timestamp: int64(i * 33)}
		} else {
			path[i] = PathPoint{X: 1, Y: 0.2 + 0.6*float64(i-half)/float64(n-half-1), Timestamp: int64(i * 33)}
		}
	}
	return path
}

func TestDTWDistance_IdenticalPaths(t *testing.T) {
	p := linePath(20)
	if d := DTWDistance(p, p); d > 1e-9 {
		t.Errorf("DTW distance of a path to itself = %f, want 0", d)
	}
}

func TestDTWDistance_EmptyPath(t *testing.T) {
	if d := DTWDistance(nil, linePath(10)); !math.IsInf(d, 1) {
		t.Errorf("DTW distance with empty path = %f, want +Inf", d)
	}
}

func TestDTWDistance_ToleratesResampling(t *testing.T) {
	// Same shape at different sampling densities should stay close
	coarse := linePath(10)
	fine := linePath(40)
	if d := DTWDistance(coarse, fine); d > 0.05 {
		t.Errorf("DTW distance across sampling densities = %f, want near 0", d)
	}
}

func TestPathClassifier_MatchesShape(t *testing.T) {
	trainer := NewTrainer(3)

	lineProfile, err := trainer.TrainPath("swipe", [][]PathPoint{linePath(20), linePath(18), linePath(22)})
	if err != nil {
		t.Fatalf("TrainPath(swipe) error = %v", err)
	}
	elbowProfile, err := trainer.TrainPath("corner", [][]PathPoint{elbowPath(20), elbowPath(20), elbowPath(24)})
	if err != nil {
		t.Fatalf("TrainPath(corner) error = %v", err)
	}

	c := NewPathClassifier(DefaultTieEpsilon)
	c.SetProfiles([]*PathProfile{lineProfile, elbowProfile})

	event := c.Classify(elbowPath(30))
	if event == nil {
		t.Fatal("expected a path classification")
	}
	if event.Name != "corner" {
		t.Errorf("classified as %q, want corner", event.Name)
	}
}

func TestPathClassifier_ShortInput(t *testing.T) {
	c := NewPathClassifier(DefaultTieEpsilon)
	c.SetProfiles([]*PathProfile{{ID: "x", Name: "swipe", Path: linePath(10), Threshold: 0.5}})

	if event := c.Classify([]PathPoint{{X: 0.5, Y: 0.5}}); event != nil {
		t.Error("expected no classification for a single-point path")
	}
}

func TestTrainPath_InsufficientSamples(t *testing.T) {
	trainer := NewTrainer(3)

	_, err := trainer.TrainPath("swipe", [][]PathPoint{linePath(10), {{X: 0, Y: 0}}})
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("TrainPath() error = %v, want ErrInsufficientSamples", err)
	}
}
