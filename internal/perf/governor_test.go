package perf

import (
	"testing"
	"time"
)

func TestGovernor_SustainedLowFPSDowngradesOnce(t *testing.T) {
	g := NewGovernor(TierHigh, 10)

	// 100ms cycles = 10 FPS, well under the high tier's 30 FPS target
	changes := 0
	for i := 0; i < 12; i++ {
		_, changed := g.Observe(100 * time.Millisecond)
		if changed {
			changes++
		}
	}

	if changes != 1 {
		t.Fatalf("tier changes over one breach window = %d, want exactly 1", changes)
	}
	if tier := g.Profile().Tier; tier != TierMid {
		t.Errorf("tier after downgrade = %s, want %s", tier, TierMid)
	}
}

func TestGovernor_SingleSlowFrameDoesNotDowngrade(t *testing.T) {
	g := NewGovernor(TierHigh, 10)

	// Mostly on-target cycles with one outlier
	for i := 0; i < 9; i++ {
		g.Observe(33 * time.Millisecond)
	}
	_, changed := g.Observe(100 * time.Millisecond)

	if changed {
		t.Error("a single slow frame must not change the tier")
	}
	if tier := g.Profile().Tier; tier != TierHigh {
		t.Errorf("tier = %s, want %s", tier, TierHigh)
	}
}

func TestGovernor_SustainedHeadroomUpgradesOneStep(t *testing.T) {
	g := NewGovernor(TierLow, 10)

	// 25ms cycles = 40 FPS, far above the low tier's 15 FPS target
	changes := 0
	for i := 0; i < 10; i++ {
		_, changed := g.Observe(25 * time.Millisecond)
		if changed {
			changes++
		}
	}

	if changes != 1 {
		t.Fatalf("tier changes = %d, want exactly 1", changes)
	}
	if tier := g.Profile().Tier; tier != TierMid {
		t.Errorf("tier after upgrade = %s, want %s (one step, not a jump)", tier, TierMid)
	}
}

func TestGovernor_NoDowngradeBelowLow(t *testing.T) {
	g := NewGovernor(TierLow, 5)

	for i := 0; i < 20; i++ {
		if _, changed := g.Observe(time.Second); changed {
			t.Fatal("low tier must never downgrade")
		}
	}
}

func TestGovernor_Stats(t *testing.T) {
	g := NewGovernor(TierMid, 10)

	for i := 0; i < 5; i++ {
		g.Observe(40 * time.Millisecond)
	}

	s := g.Stats()
	if s.Samples != 5 {
		t.Errorf("samples = %d, want 5", s.Samples)
	}
	if s.AvgLatency != 40*time.Millisecond {
		t.Errorf("avg latency = %v, want 40ms", s.AvgLatency)
	}
	if s.FPS < 24.9 || s.FPS > 25.1 {
		t.Errorf("fps = %f, want 25", s.FPS)
	}
}

func TestProfileFor_UnknownTierFallsBack(t *testing.T) {
	p := ProfileFor(Tier("turbo"))
	if p.Tier != TierMid {
		t.Errorf("fallback tier = %s, want %s", p.Tier, TierMid)
	}
}
