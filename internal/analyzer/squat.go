package analyzer

import (
	"github.com/ayusman/formcoach/internal/geometry"
	"github.com/ayusman/formcoach/internal/pose"
)

// SquatAnalyzer tracks squats from a side view using the knee angle.
type SquatAnalyzer struct {
	engine
	th SquatThresholds
}

// NewSquatAnalyzer creates a SquatAnalyzer.
func NewSquatAnalyzer(th Thresholds) *SquatAnalyzer {
	return &SquatAnalyzer{
		engine: newEngine(Squat, th, th.Squat.Motion, InsufficientDepth,
			partShoulder|partHip|partKnee|partAnkle, scoreMin),
		th: th.Squat,
	}
}

// Analyze implements Analyzer.
func (a *SquatAnalyzer) Analyze(f *pose.Frame) FrameResult {
	return a.analyze(f, a.measure)
}

func (a *SquatAnalyzer) measure(b body) measurement {
	knee, _, delta := b.measure(kneeAngle)

	var issues []IssueType
	if exceeds(b.torsoLean(), a.th.MaxTorsoLean) {
		issues = append(issues, BackNotStraight)
	}
	if exceeds(kneeAheadOfToe(b.primary), a.th.MaxKneeOverToe) {
		issues = append(issues, KneeOverToe)
	}
	if exceeds(delta, a.th.MaxKneeDelta) {
		issues = append(issues, UnevenKnees)
	}
	return measurement{angle: knee, issues: issues}
}

// kneeAheadOfToe returns how far the knee travels past the toe, as a
// fraction of shin length. The facing direction comes from heel to toe.
// It returns 0 when the foot is not visible.
func kneeAheadOfToe(j joints) float64 {
	if !j.hasFoot {
		return 0
	}
	facing := j.toe.X - j.heel.X
	shin := geometry.Distance2D(j.knee, j.ankle)
	if facing == 0 || shin == 0 {
		return 0
	}
	ahead := j.knee.X - j.toe.X
	if facing < 0 {
		ahead = -ahead
	}
	return ahead / shin
}
