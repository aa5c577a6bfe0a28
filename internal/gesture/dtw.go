package gesture

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PathPoint is one sample of a motion-path gesture: a normalized screen
// coordinate with a millisecond timestamp.
type PathPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// PathProfile is a trained motion-path gesture, matched with dynamic time
// warping rather than a static descriptor.
type PathProfile struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Path      []PathPoint `json:"path"`
	Threshold float64     `json:"threshold"`
	CreatedAt time.Time   `json:"created_at"`
}

// DefaultPathThreshold qualifies a path match; DTW distances are
// length-normalized so scores live on the same 1/(1+d) scale as static
// gestures.
const DefaultPathThreshold = 0.7

// DTWDistance computes the dynamic-time-warping distance between two
// paths, normalized by the longer path's length. Empty paths are
// infinitely distant.
func DTWDistance(a, b []PathPoint) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	dtw := make([][]float64, n+1)
	for i := range dtw {
		dtw[i] = make([]float64, m+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := pathPointDistance(a[i-1], b[j-1])
			dtw[i][j] = cost + min3(dtw[i-1][j], dtw[i][j-1], dtw[i-1][j-1])
		}
	}

	longer := n
	if m > longer {
		longer = m
	}
	return dtw[n][m] / float64(longer)
}

func pathPointDistance(a, b PathPoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

// PathClassifier matches recorded gaze or hand motion paths against
// trained path profiles.
type PathClassifier struct {
	mu         sync.RWMutex
	profiles   []*PathProfile
	tieEpsilon float64
}

// NewPathClassifier creates a PathClassifier. A non-positive epsilon falls
// back to DefaultTieEpsilon.
func NewPathClassifier(tieEpsilon float64) *PathClassifier {
	if tieEpsilon <= 0 {
		tieEpsilon = DefaultTieEpsilon
	}
	return &PathClassifier{tieEpsilon: tieEpsilon}
}

// SetProfiles replaces the whole path profile set.
func (c *PathClassifier) SetProfiles(profiles []*PathProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = profiles
}

// AddProfile adds or replaces a path profile by name.
func (c *PathClassifier) AddProfile(p *PathProfile) {
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

// Classify matches a recorded path against the profile set. The same
// qualification rules apply as for static gestures: best score above the
// profile threshold wins, ties within epsilon produce no classification.
func (c *PathClassifier) Classify(path []PathPoint) *Event {
	if len(path) < 2 {
		return nil
	}
	input := normalizePathBounds(path)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var best, second *PathProfile
	var bestScore, secondScore float64

	for _, p := range c.profiles {
		if len(p.Path) == 0 {
			continue
		}
		d := DTWDistance(input, normalizePathBounds(p.Path))
		if math.IsInf(d, 1) {
			continue
		}
		score := 1.0 / (1.0 + d)
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
	if second != nil && bestScore-secondScore < c.tieEpsilon {
		return nil
	}

	return &Event{
		ProfileID:  best.ID,
		Name:       best.Name,
		Confidence: bestScore,
		Timestamp:  time.Now(),
	}
}

// TrainPath averages recorded path samples into a path profile, resampling
// each to a common length first. Fewer samples than the trainer's minimum
// fails with ErrInsufficientSamples.
func (t *Trainer) TrainPath(name string, samples [][]PathPoint) (*PathProfile, error) {
	var usable [][]PathPoint
	for _, s := range samples {
		if len(s) >= 2 {
			usable = append(usable, s)
		}
	}

	if len(usable) < t.minSamples {
		return nil, fmt.Errorf("%w: have %d usable, need %d", ErrInsufficientSamples, len(usable), t.minSamples)
	}

	targetLength := len(usable[0])
	averaged := make([]PathPoint, targetLength)
	n := float64(len(usable))

	for i := 0; i < targetLength; i++ {
		var sumX, sumY float64
		var refTimestamp int64
		for sampleIdx, path := range usable {
			resampled := resamplePath(path, targetLength)
			sumX += resampled[i].X
			sumY += resampled[i].Y
			if sampleIdx == 0 {
				refTimestamp = resampled[i].Timestamp
			}
		}
		averaged[i] = PathPoint{X: sumX / n, Y: sumY / n, Timestamp: refTimestamp}
	}

	return &PathProfile{
		ID:        uuid.New().String(),
		Name:      name,
		Path:      averaged,
		Threshold: DefaultPathThreshold,
		CreatedAt: time.Now(),
	}, nil
}

// resamplePath linearly interpolates a path to exactly targetLength points.
func resamplePath(path []PathPoint, targetLength int) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 || targetLength <= 1 {
		return []PathPoint{path[0]}
	}

	result := make([]PathPoint, targetLength)
	for i := 0; i < targetLength; i++ {
		t := float64(i) / float64(targetLength-1)
		pos := t * float64(len(path)-1)

		idx := int(pos)
		if idx >= len(path)-1 {
			idx = len(path) - 2
		}
		frac := pos - float64(idx)

		p1 := path[idx]
		p2 := path[idx+1]
		result[i] = PathPoint{
			X:         p1.X + frac*(p2.X-p1.X),
			Y:         p1.Y + frac*(p2.Y-p1.Y),
			Timestamp: p1.Timestamp + int64(frac*float64(p2.Timestamp-p1.Timestamp)),
		}
	}
	return result
}

// normalizePathBounds rescales a path into the unit square so DTW compares
// shape, not absolute screen position. Timestamps are preserved.
func normalizePathBounds(path []PathPoint) []PathPoint {
	n := len(path)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []PathPoint{{X: 0, Y: 0, Timestamp: path[0].Timestamp}}
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY

	out := make([]PathPoint, n)
	for i, p := range path {
		var nx, ny float64
		if rangeX > 0 {
			nx = (p.X - minX) / rangeX
		}
		if rangeY > 0 {
			ny = (p.Y - minY) / rangeY
		}
		out[i] = PathPoint{X: nx, Y: ny, Timestamp: p.Timestamp}
	}
	return out
}
