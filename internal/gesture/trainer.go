package gesture

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/netra/internal/landmark"
)

// ErrInsufficientSamples is returned when training is attempted with fewer
// usable samples than the minimum count.
var ErrInsufficientSamples = errors.New("not enough training samples")

// Training parameters.
const (
	// DefaultMinTrainingSamples is the minimum usable sample count per
	// gesture.
	DefaultMinTrainingSamples = 5
	// thresholdFloor is the lowest threshold training will produce; below
	// this the profile would match near-arbitrary hand poses.
	thresholdFloor = 0.5
	// thresholdCeiling leaves headroom above the threshold so an exact
	// reproduction of the trained pose still qualifies despite jitter.
	thresholdCeiling = 0.95
)

// Trainer turns recorded hand frames into gesture profiles.
type Trainer struct {
	minSamples int
}

// NewTrainer creates a Trainer. A non-positive minimum falls back to
// DefaultMinTrainingSamples.
func NewTrainer(minSamples int) *Trainer {
	if minSamples <= 0 {
		minSamples = DefaultMinTrainingSamples
	}
	return &Trainer{minSamples: minSamples}
}

// Train computes a profile for the named gesture from recorded hand frames:
// the reference descriptor is the per-component mean over all samples, and
// the threshold is derived from the intra-class score spread (mean minus
// two standard deviations, clamped). Frames without a usable hand region
// are skipped; fewer usable samples than the minimum fails with
// ErrInsufficientSamples.
func (t *Trainer) Train(name string, frames []*landmark.Frame) (*Profile, error) {
	var descriptors [][]float64
	for _, f := range frames {
		desc, ok := handDescriptor(f)
		if !ok {
			continue
		}
		descriptors = append(descriptors, desc)
	}

	if len(descriptors) < t.minSamples {
		return nil, fmt.Errorf("%w: have %d usable, need %d", ErrInsufficientSamples, len(descriptors), t.minSamples)
	}

	dims := len(descriptors[0])
	for i, d := range descriptors {
		if len(d) != dims {
			return nil, fmt.Errorf("sample %d has %d descriptor components, expected %d", i, len(d), dims)
		}
	}

	reference := meanDescriptor(descriptors, dims)

	// Score every sample against the reference; the spread tells us how
	// consistently the user holds this pose.
	scores := make([]float64, len(descriptors))
	var sum float64
	for i, d := range descriptors {
		scores[i] = Score(d, reference)
		sum += scores[i]
	}
	mean := sum / float64(len(scores))

	var variance float64
	for _, s := range scores {
		dev := s - mean
		variance += dev * dev
	}
	stddev := math.Sqrt(variance / float64(len(scores)))

	threshold := mean - 2*stddev
	if threshold < thresholdFloor {
		threshold = thresholdFloor
	}
	if threshold > thresholdCeiling {
		threshold = thresholdCeiling
	}

	return &Profile{
		ID:         uuid.New().String(),
		Name:       name,
		Descriptor: reference,
		Threshold:  threshold,
		CreatedAt:  time.Now(),
	}, nil
}

func meanDescriptor(descriptors [][]float64, dims int) []float64 {
	mean := make([]float64, dims)
	for _, d := range descriptors {
		for i, v := range d {
			mean[i] += v
		}
	}
	n := float64(len(descriptors))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}
