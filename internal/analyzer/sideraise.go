package analyzer

import "github.com/ayusman/formcoach/internal/pose"

// SideRaiseAnalyzer tracks lateral raises from a front view using the
// angle between torso and upper arm.
type SideRaiseAnalyzer struct {
	engine
	th SideRaiseThresholds
}

// NewSideRaiseAnalyzer creates a SideRaiseAnalyzer.
func NewSideRaiseAnalyzer(th Thresholds) *SideRaiseAnalyzer {
	return &SideRaiseAnalyzer{
		engine: newEngine(SideRaise, th, th.SideRaise.Motion, InsufficientRange,
			partShoulder|partElbow|partWrist|partHip, scoreAverage),
		th: th.SideRaise,
	}
}

// Analyze implements Analyzer.
func (a *SideRaiseAnalyzer) Analyze(f *pose.Frame) FrameResult {
	return a.analyze(f, a.measure)
}

func (a *SideRaiseAnalyzer) measure(b body) measurement {
	_, abduction, delta := b.measure(armAbduction)

	var issues []IssueType
	if exceeds(b.torsoLean(), a.th.MaxTorsoLean) {
		issues = append(issues, BodySwinging)
	}
	if exceeds(b.max(armAbduction), a.th.MaxAbduction) {
		issues = append(issues, ArmsTooHigh)
	}
	if b.min(elbowAngle) < a.th.MinElbowAngle {
		issues = append(issues, ElbowsBent)
	}
	if exceeds(delta, a.th.MaxArmDelta) {
		issues = append(issues, UnevenArms)
	}
	return measurement{angle: abduction, issues: issues}
}
