package landmark

import "gocv.io/x/gocv"

// Result holds the landmark frames detected in a single video frame.
// A nil frame means the region was not detected; that is the normal case,
// not an error.
type Result struct {
	Eye  *Frame
	Hand *Frame
}

// Detector defines the interface for eye and hand landmark detection.
type Detector interface {
	// Detect analyzes a video frame and returns the detected eye and hand
	// landmark frames. Absent regions are nil, not errors.
	Detect(frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
