package analyzer

import (
	"math"

	"github.com/ayusman/formcoach/internal/geometry"
	"github.com/ayusman/formcoach/internal/pose"
)

// PushUpAnalyzer tracks push-ups from a side view using the elbow angle.
type PushUpAnalyzer struct {
	engine
	th PushUpThresholds
}

// NewPushUpAnalyzer creates a PushUpAnalyzer.
func NewPushUpAnalyzer(th Thresholds) *PushUpAnalyzer {
	return &PushUpAnalyzer{
		engine: newEngine(PushUp, th, th.PushUp.Motion, InsufficientDepth,
			partShoulder|partElbow|partWrist|partHip|partAnkle, scoreMin),
		th: th.PushUp,
	}
}

// Analyze implements Analyzer.
func (a *PushUpAnalyzer) Analyze(f *pose.Frame) FrameResult {
	return a.analyze(f, a.measure)
}

func (a *PushUpAnalyzer) measure(b body) measurement {
	elbow, _, delta := b.measure(elbowAngle)

	var issues []IssueType
	j := b.primary
	line := geometry.Angle(j.shoulder, j.hip, j.ankle)
	if !math.IsNaN(line) && line < a.th.MinBodyLine {
		if off, ok := hipOffLine(j); ok {
			if off > 0 {
				issues = append(issues, HipsSagging)
			} else {
				issues = append(issues, HipsPiked)
			}
		}
	}
	if exceeds(delta, a.th.MaxElbowDelta) {
		issues = append(issues, UnevenArms)
	}
	return measurement{angle: elbow, issues: issues}
}

// hipOffLine returns the vertical distance of the hip from the straight
// shoulder-to-ankle line. Positive values are below the line (toward the
// floor). ok is false when the body is too upright to define the line.
func hipOffLine(j joints) (float64, bool) {
	dx := j.ankle.X - j.shoulder.X
	if math.Abs(dx) < 1e-9 {
		return 0, false
	}
	lineY := j.shoulder.Y + (j.ankle.Y-j.shoulder.Y)*(j.hip.X-j.shoulder.X)/dx
	return j.hip.Y - lineY, true
}
