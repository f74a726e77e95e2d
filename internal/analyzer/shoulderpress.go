package analyzer

import (
	"github.com/ayusman/formcoach/internal/geometry"
	"github.com/ayusman/formcoach/internal/pose"
)

// ShoulderPressAnalyzer tracks overhead presses from a front view using
// the elbow angle.
type ShoulderPressAnalyzer struct {
	engine
	th ShoulderPressThresholds
}

// NewShoulderPressAnalyzer creates a ShoulderPressAnalyzer.
func NewShoulderPressAnalyzer(th Thresholds) *ShoulderPressAnalyzer {
	return &ShoulderPressAnalyzer{
		engine: newEngine(ShoulderPress, th, th.ShoulderPress.Motion, IncompleteLockout,
			partShoulder|partElbow|partWrist|partHip, scoreMin),
		th: th.ShoulderPress,
	}
}

// Analyze implements Analyzer.
func (a *ShoulderPressAnalyzer) Analyze(f *pose.Frame) FrameResult {
	return a.analyze(f, a.measure)
}

func (a *ShoulderPressAnalyzer) measure(b body) measurement {
	_, elbow, delta := b.measure(elbowAngle)

	var issues []IssueType
	if exceeds(b.torsoLean(), a.th.MaxTorsoLean) {
		issues = append(issues, BackArching)
	}
	if exceeds(b.max(forearmLean), a.th.MaxForearmLean) {
		issues = append(issues, WristsNotStacked)
	}
	if exceeds(delta, a.th.MaxElbowDelta) {
		issues = append(issues, UnevenArms)
	}
	return measurement{angle: elbow, issues: issues}
}

func forearmLean(j joints) float64 { return geometry.LeanFromVertical(j.elbow, j.wrist) }
