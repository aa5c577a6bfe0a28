package gesture

import (
	"testing"
	"time"

	"github.com/ayusman/netra/internal/landmark"
)

func trainedProfile(t *testing.T, name string, frame *landmark.Frame) *Profile {
	t.Helper()

	frames := make([]*landmark.Frame, DefaultMinTrainingSamples)
	for i := range frames {
		frames[i] = frame
	}

	p, err := NewTrainer(DefaultMinTrainingSamples).Train(name, frames)
	if err != nil {
		t.Fatalf("Train(%q) error = %v", name, err)
	}
	return p
}

func TestClassifier_ExactMatch(t *testing.T) {
	c := NewClassifier(DefaultTieEpsilon)
	pointing := trainedProfile(t, "pointing", landmark.PointingHandFrame())
	c.SetProfiles([]*Profile{
		pointing,
		trainedProfile(t, "open_palm", landmark.OpenPalmFrame()),
		trainedProfile(t, "closed_fist", landmark.ClosedFistFrame()),
	})

	input := landmark.PointingHandFrame()
	input.Timestamp = time.Unix(1000, 0)

	event := c.Classify(input)
	if event == nil {
		t.Fatal("expected a classification for an exact profile match")
	}
	if event.Name != "pointing" {
		t.Errorf("classified as %q, want pointing", event.Name)
	}
	if event.Confidence < pointing.Threshold {
		t.Errorf("confidence %f below threshold %f", event.Confidence, pointing.Threshold)
	}
	if !event.Timestamp.Equal(input.Timestamp) {
		t.Errorf("event timestamp = %v, want frame timestamp", event.Timestamp)
	}
}

func TestClassifier_TieYieldsNoClassification(t *testing.T) {
	input := landmark.OpenPalmFrame()
	desc, ok := handDescriptor(input)
	if !ok {
		t.Fatal("fixture frame has no usable hand descriptor")
	}

	// Two profiles offset symmetrically from the input are exactly
	// equidistant, so neither may win.
	left := make([]float64, len(desc))
	right := make([]float64, len(desc))
	copy(left, desc)
	copy(right, desc)
	for i := 0; i < len(desc); i += 3 {
		left[i] -= 0.01
		right[i] += 0.01
	}

	c := NewClassifier(DefaultTieEpsilon)
	c.SetProfiles([]*Profile{
		{ID: "a", Name: "wave_left", Descriptor: left, Threshold: 0.5},
		{ID: "b", Name: "wave_right", Descriptor: right, Threshold: 0.5},
	})

	if event := c.Classify(input); event != nil {
		t.Fatalf("expected no classification for a constructed tie, got %q", event.Name)
	}
}

func TestClassifier_BelowThresholdYieldsNoClassification(t *testing.T) {
	c := NewClassifier(DefaultTieEpsilon)
	c.SetProfiles([]*Profile{trainedProfile(t, "pointing", landmark.PointingHandFrame())})

	if event := c.Classify(landmark.ClosedFistFrame()); event != nil {
		t.Fatalf("expected no classification for a dissimilar pose, got %q (%.3f)", event.Name, event.Confidence)
	}
}

func TestClassifier_NonHandFrame(t *testing.T) {
	c := NewClassifier(DefaultTieEpsilon)
	c.SetProfiles([]*Profile{trainedProfile(t, "pointing", landmark.PointingHandFrame())})

	if event := c.Classify(landmark.EyeFrameAt(0.5, 0.5)); event != nil {
		t.Error("expected no classification for an eye frame")
	}
	if event := c.Classify(nil); event != nil {
		t.Error("expected no classification for a nil frame")
	}
}

func TestClassifier_AddAndRemoveProfile(t *testing.T) {
	c := NewClassifier(DefaultTieEpsilon)
	p := trainedProfile(t, "pinch", landmark.PinchHandFrame())
	c.AddProfile(p)

	if event := c.Classify(landmark.PinchHandFrame()); event == nil || event.Name != "pinch" {
		t.Fatal("expected pinch classification after AddProfile")
	}

	// Replacing by name must not duplicate
	c.AddProfile(trainedProfile(t, "pinch", landmark.PinchHandFrame()))
	if n := len(c.Profiles()); n != 1 {
		t.Errorf("profile count after replace = %d, want 1", n)
	}

	c.RemoveProfile(c.Profiles()[0].ID)
	if event := c.Classify(landmark.PinchHandFrame()); event != nil {
		t.Error("expected no classification after RemoveProfile")
	}
}
