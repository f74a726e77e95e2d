// Package analyzer turns pose frames into exercise feedback: rep counting,
// per-frame and per-rep scores, and prioritized form issues.
package analyzer

import (
	"fmt"

	"github.com/ayusman/formcoach/internal/pose"
)

// ExerciseType identifies a supported exercise.
type ExerciseType string

const (
	Squat         ExerciseType = "squat"
	PushUp        ExerciseType = "push_up"
	ArmCurl       ExerciseType = "arm_curl"
	SideRaise     ExerciseType = "side_raise"
	ShoulderPress ExerciseType = "shoulder_press"
)

// ExerciseTypes lists every supported exercise in display order.
var ExerciseTypes = []ExerciseType{Squat, PushUp, ArmCurl, SideRaise, ShoulderPress}

// Valid reports whether t is a supported exercise.
func (t ExerciseType) Valid() bool {
	for _, e := range ExerciseTypes {
		if e == t {
			return true
		}
	}
	return false
}

// ParseExerciseType converts a name such as "push_up" into an ExerciseType.
func ParseExerciseType(s string) (ExerciseType, error) {
	t := ExerciseType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown exercise type %q", s)
	}
	return t, nil
}

// Priority orders form issues by how urgently they should be corrected.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(b []byte) error {
	for c := PriorityLow; c <= PriorityCritical; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", b)
}

// Phase is the position of the rep engine within one repetition.
type Phase string

const (
	PhaseStart   Phase = "start"
	PhaseOutward Phase = "outward"
	PhasePeak    Phase = "peak"
	PhaseReturn  Phase = "return"
)

// Issue is a detected form fault.
type Issue struct {
	Type     IssueType `json:"type"`
	Message  string    `json:"message"`
	Priority Priority  `json:"priority"`
}

// FrameResult is the outcome of analyzing a single frame.
type FrameResult struct {
	// Score is the form score for this frame in [0, 100]. Neutral frames
	// repeat the last analyzed score.
	Score  float64 `json:"score"`
	Issues []Issue `json:"issues,omitempty"`
	Phase  Phase   `json:"phase"`
	// Neutral is set when the frame could not be analyzed (no pose,
	// occluded or unreliable landmarks). Neutral frames do not move any state.
	Neutral bool `json:"neutral,omitempty"`
	// RepCompleted is set on the frame that closed a repetition.
	RepCompleted bool    `json:"rep_completed,omitempty"`
	RepScore     float64 `json:"rep_score,omitempty"`
}

// TopIssue returns the highest priority issue, if any. Ties keep the
// catalog order.
func (r FrameResult) TopIssue() (Issue, bool) {
	if len(r.Issues) == 0 {
		return Issue{}, false
	}
	top := r.Issues[0]
	for _, i := range r.Issues[1:] {
		if i.Priority > top.Priority {
			top = i
		}
	}
	return top, true
}

// Analyzer evaluates frames for one exercise. Implementations are stateful
// and not safe for concurrent use.
type Analyzer interface {
	Type() ExerciseType
	// Analyze updates rep tracking with the frame and scores it.
	Analyze(f *pose.Frame) FrameResult
	RepCount() int
	Phase() Phase
	// Ready reports whether the landmarks this exercise needs are visible.
	Ready(f *pose.Frame) bool
	// Reset returns the analyzer to its initial state.
	Reset()
}
