// Package pose provides the body landmark types produced by pose detection
// and the contracts for sources that stream them.
package pose

import (
	"math"
	"time"
)

// LandmarkType identifies one of the 33 body keypoints.
// Indices follow the MediaPipe Pose (BlazePose) convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type LandmarkType int

const (
	Nose LandmarkType = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
	NumLandmarks = 33
)

var landmarkNames = [NumLandmarks]string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// String returns the snake_case name of the landmark.
func (t LandmarkType) String() string {
	if t < 0 || t >= NumLandmarks {
		return "unknown"
	}
	return landmarkNames[t]
}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmark is one tracked body keypoint. Likelihood is the detector's
// visibility score in [0, 1].
type Landmark struct {
	Type       LandmarkType `json:"type"`
	Position   Point3D      `json:"position"`
	Likelihood float64      `json:"likelihood"`
}

// Valid reports whether the landmark carries usable numbers.
func (l Landmark) Valid() bool {
	if l.Type < 0 || l.Type >= NumLandmarks {
		return false
	}
	for _, v := range []float64{l.Position.X, l.Position.Y, l.Position.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return l.Likelihood >= 0 && l.Likelihood <= 1
}

// Frame is the set of landmarks detected at one instant.
type Frame struct {
	Landmarks    map[LandmarkType]Landmark `json:"landmarks"`
	PoseDetected bool                      `json:"pose_detected"`
	Timestamp    time.Time                 `json:"timestamp"`
}

// NewFrame builds a detected frame from the given landmarks.
func NewFrame(ts time.Time, landmarks ...Landmark) *Frame {
	f := &Frame{
		Landmarks:    make(map[LandmarkType]Landmark, len(landmarks)),
		PoseDetected: len(landmarks) > 0,
		Timestamp:    ts,
	}
	for _, l := range landmarks {
		f.Landmarks[l.Type] = l
	}
	return f
}

// EmptyFrame returns a frame for which the detector found no pose.
func EmptyFrame(ts time.Time) *Frame {
	return &Frame{Timestamp: ts}
}

// Get returns the landmark of the given type, if the detector produced it.
func (f *Frame) Get(t LandmarkType) (Landmark, bool) {
	if f == nil || f.Landmarks == nil {
		return Landmark{}, false
	}
	l, ok := f.Landmarks[t]
	return l, ok
}

// Confident returns the landmark only if it is valid and its likelihood
// reaches minLikelihood.
func (f *Frame) Confident(t LandmarkType, minLikelihood float64) (Landmark, bool) {
	l, ok := f.Get(t)
	if !ok || !l.Valid() || l.Likelihood < minLikelihood {
		return Landmark{}, false
	}
	return l, true
}
