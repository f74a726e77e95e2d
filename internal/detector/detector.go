// Package detector turns camera frames into body pose landmarks.
package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcoach/internal/pose"
)

// ErrServiceNotFound is returned when the MediaPipe Pose service script
// cannot be located.
var ErrServiceNotFound = errors.New("mediapipe pose service not found")

// ErrEmptyFrame is returned when Detect is handed a nil or empty image.
var ErrEmptyFrame = errors.New("empty frame")

// Detector defines the interface for pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected pose. A frame
	// without a person is returned with PoseDetected false, not as an error.
	Detect(frame *gocv.Mat) (*pose.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// Python is the interpreter running the service. Empty means a venv
	// interpreter if one is found, else python3.
	Python string

	// Script is the path of the service script. Empty means search the
	// usual locations.
	Script string

	// ModelComplexity selects the BlazePose model (0 lite, 1 full, 2 heavy).
	ModelComplexity int

	// MinDetectionConf is the minimum detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeout shuts the service down after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity:  1,
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
		IdleTimeout:      30 * time.Second,
	}
}
