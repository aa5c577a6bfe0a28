package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame-differencing constants.
const (
	// gaussianBlurSize is the kernel size for the noise-reduction blur.
	gaussianBlurSize = 21
	// diffThreshold is the binary threshold applied to the frame difference.
	diffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels that
	// counts as motion.
	DefaultMotionThreshold = 1.0
)

// Gate decides whether a frame gets full landmark detection. Detection is
// decimated per the active performance profile; frames between detection
// slots still run when the scene shows motion, so a sudden hand or head
// movement is never skipped. Uses grayscale frame differencing with a
// Gaussian blur for noise reduction.
type Gate struct {
	mu          sync.Mutex
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	sinceDetect int
}

// NewGate creates a Gate. The threshold is the percentage of pixels that
// must change between frames to count as motion; non-positive values fall
// back to the default.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &Gate{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// ShouldDetect reports whether this frame should run full landmark
// detection given the profile's decimation factor (1 = every frame).
// Every decimation-th frame detects unconditionally; in between, detection
// runs only when motion is observed.
func (g *Gate) ShouldDetect(frame *gocv.Mat, decimation int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if decimation <= 1 {
		g.sinceDetect = 0
		g.observeLocked(frame)
		return true
	}

	g.sinceDetect++
	moved := g.observeLocked(frame)

	if g.sinceDetect >= decimation || moved {
		g.sinceDetect = 0
		return true
	}
	return false
}

// observeLocked updates the frame-difference baseline and reports whether
// the change exceeded the motion threshold.
func (g *Gate) observeLocked(frame *gocv.Mat) bool {
	if frame == nil || frame.Empty() {
		return false
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: gaussianBlurSize, Y: gaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.initialized {
		blurred.CopyTo(&g.prevGray)
		g.initialized = true
		return false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()

	blurred.CopyTo(&g.prevGray)

	changePercent := float64(nonZero) / float64(totalPixels) * 100.0
	return changePercent > g.threshold
}

// SetThreshold updates the motion threshold. Values <= 0 are ignored.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.threshold = threshold
}

// Reset clears the baseline, as after a resolution change: the next frame
// re-seeds it.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prevGray.Empty() {
		g.prevGray.Close()
		g.prevGray = gocv.NewMat()
	}
	g.initialized = false
	g.sinceDetect = 0
}

// Close releases the baseline Mat.
func (g *Gate) Close() {
	g.Reset()
}
