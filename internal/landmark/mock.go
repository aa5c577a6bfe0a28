package landmark

import (
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	result Result
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result that will be returned by Detect.
func (m *MockDetector) SetResult(result Result) {
	m.result = result
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	if m.err != nil {
		return Result{}, m.err
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// EyeFrameAt returns a synthetic eye frame whose iris midpoint sits at
// (x, y) in normalized image coordinates. The eye corners are placed at a
// fixed offset around each iris.
func EyeFrameAt(x, y float64) *Frame {
	const sep = 0.06 // horizontal separation between the two irises

	f := &Frame{
		Region:     RegionEye,
		Points:     make([]Point3D, NumEyeLandmarks),
		Timestamp:  time.Now(),
		Confidence: 0.95,
	}

	f.Points[LeftIris] = Point3D{X: x - sep/2, Y: y}
	f.Points[RightIris] = Point3D{X: x + sep/2, Y: y}
	f.Points[LeftEyeInner] = Point3D{X: x - sep/2 + 0.02, Y: y}
	f.Points[LeftEyeOuter] = Point3D{X: x - sep/2 - 0.02, Y: y}
	f.Points[RightEyeInner] = Point3D{X: x + sep/2 - 0.02, Y: y}
	f.Points[RightEyeOuter] = Point3D{X: x + sep/2 + 0.02, Y: y}

	return f
}

// PointingHandFrame returns a synthetic hand frame with the index finger
// extended and the remaining fingers curled.
func PointingHandFrame() *Frame {
	f := newHandFrame()

	f.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb tucked against the palm
	f.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	f.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.72, Z: -0.02}
	f.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.70, Z: -0.04}
	f.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.70, Z: -0.04}

	// Index finger extended upward
	f.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	f.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.55, Z: 0.0}
	f.Points[IndexDIP] = Point3D{X: 0.57, Y: 0.45, Z: 0.0}
	f.Points[IndexTip] = Point3D{X: 0.57, Y: 0.35, Z: 0.0}

	// Middle finger curled
	f.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	f.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	f.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	f.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	// Ring finger curled
	f.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	f.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	f.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	f.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	f.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	f.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	f.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	f.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return f
}

// OpenPalmFrame returns a synthetic hand frame with all fingers extended.
func OpenPalmFrame() *Frame {
	f := newHandFrame()

	f.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	f.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	f.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	f.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	f.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	f.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	f.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	f.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	f.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	f.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	f.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	f.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	f.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	f.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	f.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	f.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	f.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	f.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	f.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	f.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	f.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return f
}

// ClosedFistFrame returns a synthetic hand frame with all fingers curled
// into the palm.
func ClosedFistFrame() *Frame {
	f := newHandFrame()

	f.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded across the fingers
	f.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	f.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.72, Z: -0.02}
	f.Points[ThumbIP] = Point3D{X: 0.53, Y: 0.71, Z: -0.04}
	f.Points[ThumbTip] = Point3D{X: 0.49, Y: 0.71, Z: -0.05}

	// All four fingers curled
	f.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	f.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.65, Z: -0.05}
	f.Points[IndexDIP] = Point3D{X: 0.53, Y: 0.68, Z: -0.06}
	f.Points[IndexTip] = Point3D{X: 0.52, Y: 0.71, Z: -0.04}

	f.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.67, Z: 0.0}
	f.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.63, Z: -0.05}
	f.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.67, Z: -0.06}
	f.Points[MiddleTip] = Point3D{X: 0.47, Y: 0.70, Z: -0.04}

	f.Points[RingMCP] = Point3D{X: 0.45, Y: 0.69, Z: 0.0}
	f.Points[RingPIP] = Point3D{X: 0.45, Y: 0.65, Z: -0.05}
	f.Points[RingDIP] = Point3D{X: 0.43, Y: 0.68, Z: -0.06}
	f.Points[RingTip] = Point3D{X: 0.42, Y: 0.71, Z: -0.04}

	f.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.71, Z: 0.0}
	f.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.68, Z: -0.04}
	f.Points[PinkyDIP] = Point3D{X: 0.38, Y: 0.70, Z: -0.05}
	f.Points[PinkyTip] = Point3D{X: 0.37, Y: 0.73, Z: -0.03}

	return f
}

// PinchHandFrame returns a synthetic hand frame with the thumb and index
// fingertips touching.
func PinchHandFrame() *Frame {
	f := PointingHandFrame()

	// Bring the thumb tip to the index tip
	f.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	f.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	f.Points[ThumbTip] = Point3D{X: 0.57, Y: 0.36, Z: 0.0}

	return f
}

// PeaceHandFrame returns a synthetic hand frame with the index and middle
// fingers extended and the rest curled.
func PeaceHandFrame() *Frame {
	f := ClosedFistFrame()

	// Index finger extended upward
	f.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	f.Points[IndexDIP] = Point3D{X: 0.59, Y: 0.45, Z: 0.0}
	f.Points[IndexTip] = Point3D{X: 0.60, Y: 0.35, Z: 0.0}

	// Middle finger extended upward, spread from the index
	f.Points[MiddlePIP] = Point3D{X: 0.48, Y: 0.53, Z: 0.0}
	f.Points[MiddleDIP] = Point3D{X: 0.46, Y: 0.42, Z: 0.0}
	f.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.30, Z: 0.0}

	return f
}

func newHandFrame() *Frame {
	return &Frame{
		Region:     RegionHand,
		Points:     make([]Point3D, NumHandLandmarks),
		Timestamp:  time.Now(),
		Confidence: 0.95,
	}
}
