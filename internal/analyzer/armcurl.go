package analyzer

import "github.com/ayusman/formcoach/internal/pose"

// ArmCurlAnalyzer tracks standing biceps curls using the elbow angle.
type ArmCurlAnalyzer struct {
	engine
	th ArmCurlThresholds
}

// NewArmCurlAnalyzer creates an ArmCurlAnalyzer.
func NewArmCurlAnalyzer(th Thresholds) *ArmCurlAnalyzer {
	return &ArmCurlAnalyzer{
		engine: newEngine(ArmCurl, th, th.ArmCurl.Motion, IncompleteCurl,
			partShoulder|partElbow|partWrist|partHip, scoreAverage),
		th: th.ArmCurl,
	}
}

// Analyze implements Analyzer.
func (a *ArmCurlAnalyzer) Analyze(f *pose.Frame) FrameResult {
	return a.analyze(f, a.measure)
}

func (a *ArmCurlAnalyzer) measure(b body) measurement {
	elbow, _, delta := b.measure(elbowAngle)

	var issues []IssueType
	if exceeds(b.torsoLean(), a.th.MaxTorsoLean) {
		issues = append(issues, BodySwinging)
	}
	if exceeds(armAbduction(b.primary), a.th.MaxElbowDrift) {
		issues = append(issues, ElbowDrifting)
	}
	if exceeds(delta, a.th.MaxElbowDelta) {
		issues = append(issues, UnevenArms)
	}
	return measurement{angle: elbow, issues: issues}
}
