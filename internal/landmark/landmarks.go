// Package landmark provides landmark frame types and detection interfaces
// for the Netra gaze and gesture pipeline.
package landmark

import (
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist            = 0
	ThumbCMC         = 1
	ThumbMCP         = 2
	ThumbIP          = 3
	ThumbTip         = 4
	IndexMCP         = 5
	IndexPIP         = 6
	IndexDIP         = 7
	IndexTip         = 8
	MiddleMCP        = 9
	MiddlePIP        = 10
	MiddleDIP        = 11
	MiddleTip        = 12
	RingMCP          = 13
	RingPIP          = 14
	RingDIP          = 15
	RingTip          = 16
	PinkyMCP         = 17
	PinkyPIP         = 18
	PinkyDIP         = 19
	PinkyTip         = 20
	NumHandLandmarks = 21
)

// Eye landmark indices within an eye-region frame. The detector reduces the
// MediaPipe face mesh to the two iris centers plus the four eye corners,
// in this fixed order.
const (
	LeftIris        = 0
	RightIris       = 1
	LeftEyeInner    = 2
	LeftEyeOuter    = 3
	RightEyeInner   = 4
	RightEyeOuter   = 5
	NumEyeLandmarks = 6
)

// Region identifies which anatomical region a frame's landmarks belong to.
type Region string

const (
	// RegionEye is the eye-region landmark set (iris centers, eye corners).
	RegionEye Region = "eye"
	// RegionHand is the 21-point hand landmark set.
	RegionHand Region = "hand"
)

// Point3D represents a 3D point in normalized image coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is an immutable set of landmarks for one region captured from a
// single video frame. It is produced by a detector, consumed by exactly one
// pipeline cycle, and discarded afterwards.
type Frame struct {
	Region     Region    `json:"region"`
	Points     []Point3D `json:"points"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// IrisCenter returns the midpoint of the two iris centers of an eye frame.
// This is the feature the calibration mapping and gaze estimator operate on.
// Returns false if the frame is not a complete eye frame.
func (f *Frame) IrisCenter() (Point3D, bool) {
	if f == nil || f.Region != RegionEye || len(f.Points) < NumEyeLandmarks {
		return Point3D{}, false
	}
	l := f.Points[LeftIris]
	r := f.Points[RightIris]
	return Point3D{
		X: (l.X + r.X) / 2,
		Y: (l.Y + r.Y) / 2,
		Z: (l.Z + r.Z) / 2,
	}, true
}

// NormalizeHand normalizes a hand frame relative to wrist position and hand
// size. The wrist moves to the origin and all points are scaled so that the
// distance from wrist to middle finger MCP is 1.0, making the result
// translation- and scale-invariant. Returns a new Frame; the receiver is
// not modified.
func (f *Frame) NormalizeHand() *Frame {
	if f == nil || f.Region != RegionHand || len(f.Points) < NumHandLandmarks {
		return nil
	}

	normalized := &Frame{
		Region:     RegionHand,
		Points:     make([]Point3D, NumHandLandmarks),
		Timestamp:  f.Timestamp,
		Confidence: f.Confidence,
	}

	wrist := f.Points[Wrist]
	for i := 0; i < NumHandLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: f.Points[i].X - wrist.X,
			Y: f.Points[i].Y - wrist.Y,
			Z: f.Points[i].Z - wrist.Z,
		}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumHandLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
