// Package gesture classifies conditioned hand landmark frames against a
// set of trained gesture profiles.
package gesture

import (
	"math"
	"sync"
	"time"

	"github.com/ayusman/netra/internal/landmark"
)

// DefaultTieEpsilon is the score margin under which two competing profiles
// are considered tied. A tie produces no classification rather than an
// arbitrary pick.
const DefaultTieEpsilon = 0.02

// Profile is a trained gesture: a reference geometric descriptor plus the
// confidence threshold derived during training. Profiles are loaded
// read-only at runtime; retraining replaces the instance.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Descriptor []float64 `json:"descriptor"`
	Threshold  float64   `json:"threshold"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is one classification result: the matched profile's name with a
// confidence score. Ephemeral, at most one per frame with a hand detected.
type Event struct {
	ProfileID  string    `json:"profile_id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Classifier matches hand frames against its profile set.
type Classifier struct {
	mu         sync.RWMutex
	profiles   []*Profile
	tieEpsilon float64
}

// NewClassifier creates a Classifier. A non-positive epsilon falls back to
// DefaultTieEpsilon.
func NewClassifier(tieEpsilon float64) *Classifier {
	if tieEpsilon <= 0 {
		tieEpsilon = DefaultTieEpsilon
	}
	return &Classifier{tieEpsilon: tieEpsilon}
}

// SetProfiles replaces the whole profile set, as when (re)loading from the
// store.
func (c *Classifier) SetProfiles(profiles []*Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = profiles
}

// AddProfile adds or replaces a single profile by name.
func (c *Classifier) AddProfile(p *Profile) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.profiles {
		if existing.Name == p.Name {
			c.profiles[i] = p
			return
		}
	}
	c.profiles = append(c.profiles, p)
}

// RemoveProfile removes a profile by ID.
func (c *Classifier) RemoveProfile(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.profiles {
		if p.ID == id {
			c.profiles = append(c.profiles[:i], c.profiles[i+1:]...)
			return
		}
	}
}

// Profiles returns a snapshot of the current profile set.
func (c *Classifier) Profiles() []*Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Classify matches one conditioned hand frame against the profile set.
// Returns the best match above its profile's threshold, or nil when no
// profile qualifies or the two best scores tie within epsilon. No-match is
// the expected common case, not an error.
func (c *Classifier) Classify(conditioned *landmark.Frame) *Event {
	desc, ok := handDescriptor(conditioned)
	if !ok {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var best, second *Profile
	var bestScore, secondScore float64

	for _, p := range c.profiles {
		if len(p.Descriptor) != len(desc) {
			continue
		}
		score := Score(desc, p.Descriptor)
		switch {
		case best == nil || score > bestScore:
			second, secondScore = best, bestScore
			best, bestScore = p, score
		case second == nil || score > secondScore:
			second, secondScore = p, score
		}
	}

	if best == nil || bestScore < best.Threshold {
		return nil
	}
	// Ambiguity between two near-equal candidates must not fire an action
	if second != nil && bestScore-secondScore < c.tieEpsilon {
		return nil
	}

	ts := conditioned.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Event{
		ProfileID:  best.ID,
		Name:       best.Name,
		Confidence: bestScore,
		Timestamp:  ts,
	}
}

// handDescriptor converts a hand frame into its scale-invariant descriptor:
// wrist-origin normalization followed by flattening the landmark points.
func handDescriptor(f *landmark.Frame) ([]float64, bool) {
	if f == nil {
		return nil, false
	}
	normalized := f.NormalizeHand()
	if normalized == nil {
		return nil, false
	}

	desc := make([]float64, 0, len(normalized.Points)*3)
	for _, p := range normalized.Points {
		desc = append(desc, p.X, p.Y, p.Z)
	}
	return desc, true
}

// Score maps the descriptor distance into a 0-1 similarity where 1 is an
// exact match: 1 / (1 + distance).
func Score(a, b []float64) float64 {
	return 1.0 / (1.0 + descriptorDistance(a, b))
}

// descriptorDistance sums the Euclidean distances between corresponding
// landmark points of two flattened descriptors.
func descriptorDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var total float64
	for i := 0; i+2 < n; i += 3 {
		dx := a[i] - b[i]
		dy := a[i+1] - b[i+1]
		dz := a[i+2] - b[i+2]
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
