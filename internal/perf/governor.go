// Package perf adapts pipeline processing cost to the measured frame rate.
package perf

import (
	"log"
	"sync"
	"time"
)

// Tier is a discrete hardware-capability class.
type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
)

// Profile holds the processing parameters derived from a tier. Published
// wholesale on tier change; pipeline stages read it at the start of each
// cycle and never observe a partial update.
type Profile struct {
	Tier         Tier    `json:"tier"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FilterWindow int     `json:"filter_window"`
	Decimation   int     `json:"decimation"`
	TargetFPS    float64 `json:"target_fps"`
}

// ProfileFor returns the processing parameters for a tier. Unknown tiers
// fall back to mid.
func ProfileFor(tier Tier) Profile {
	switch tier {
	case TierLow:
		return Profile{Tier: TierLow, Width: 320, Height: 240, FilterWindow: 3, Decimation: 3, TargetFPS: 15}
	case TierHigh:
		return Profile{Tier: TierHigh, Width: 1280, Height: 720, FilterWindow: 7, Decimation: 1, TargetFPS: 30}
	default:
		return Profile{Tier: TierMid, Width: 640, Height: 480, FilterWindow: 5, Decimation: 2, TargetFPS: 24}
	}
}

// Hysteresis parameters. A tier change requires a full window of sustained
// breach or headroom, never a single slow frame.
const (
	// DefaultWindowSize is the number of cycle latency samples per
	// decision window.
	DefaultWindowSize = 30
	// downgradeFactor: measured FPS below target*factor for a full window
	// triggers a downgrade.
	downgradeFactor = 0.8
	// upgradeFactor: measured FPS above target*factor for a full window
	// allows a single-step upgrade.
	upgradeFactor = 1.3
)

// Stats is a rolling summary of recent cycle performance.
type Stats struct {
	FPS        float64       `json:"fps"`
	AvgLatency time.Duration `json:"avg_latency"`
	Samples    int           `json:"samples"`
}

// Governor observes per-cycle latency and rescales the active Profile one
// tier step at a time.
type Governor struct {
	mu         sync.Mutex
	profile    Profile
	window     []time.Duration
	windowSize int
}

// NewGovernor creates a Governor seeded from the configured hardware tier.
// A non-positive window size falls back to DefaultWindowSize.
func NewGovernor(seed Tier, windowSize int) *Governor {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Governor{
		profile:    ProfileFor(seed),
		windowSize: windowSize,
	}
}

// Profile returns the active performance profile.
func (g *Governor) Profile() Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.profile
}

// Stats returns a rolling summary over the current decision window.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.window) == 0 {
		return Stats{}
	}
	var sum time.Duration
	for _, d := range g.window {
		sum += d
	}
	avg := sum / time.Duration(len(g.window))

	s := Stats{AvgLatency: avg, Samples: len(g.window)}
	if avg > 0 {
		s.FPS = float64(time.Second) / float64(avg)
	}
	return s
}

// Observe records one cycle's end-to-end latency and applies the tier
// policy once a full decision window has accumulated. Returns the active
// profile and whether it changed on this observation. A tier change drains
// the window, so a sustained breach causes exactly one step per window.
func (g *Governor) Observe(cycleLatency time.Duration) (Profile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cycleLatency <= 0 {
		return g.profile, false
	}

	g.window = append(g.window, cycleLatency)
	if len(g.window) < g.windowSize {
		return g.profile, false
	}

	var sum time.Duration
	for _, d := range g.window {
		sum += d
	}
	avg := sum / time.Duration(len(g.window))
	fps := float64(time.Second) / float64(avg)

	target := g.profile.TargetFPS

	switch {
	case fps < target*downgradeFactor && g.profile.Tier != TierLow:
		next := stepDown(g.profile.Tier)
		log.Printf("Performance: %.1f FPS under %s target %.1f, downgrading to %s", fps, g.profile.Tier, target, next)
		g.profile = ProfileFor(next)
		g.window = g.window[:0]
		return g.profile, true

	case fps > target*upgradeFactor && g.profile.Tier != TierHigh:
		next := stepUp(g.profile.Tier)
		log.Printf("Performance: %.1f FPS over %s target %.1f, upgrading to %s", fps, g.profile.Tier, target, next)
		g.profile = ProfileFor(next)
		g.window = g.window[:0]
		return g.profile, true
	}

	// Slide the window
	g.window = g.window[1:]
	return g.profile, false
}

func stepDown(t Tier) Tier {
	if t == TierHigh {
		return TierMid
	}
	return TierLow
}

func stepUp(t Tier) Tier {
	if t == TierLow {
		return TierMid
	}
	return TierHigh
}
