package analyzer

import (
	"math"

	"github.com/ayusman/formcoach/internal/geometry"
	"github.com/ayusman/formcoach/internal/pose"
)

// measurement is what an exercise extracts from one analyzable frame.
type measurement struct {
	angle  float64     // primary joint angle driving the rep engine
	issues []IssueType // form faults seen in this frame, excluding range
}

// engine is the state shared by every exercise analyzer: rep tracking,
// scoring and the neutral-frame policy.
type engine struct {
	exercise   ExerciseType
	rangeIssue IssueType
	need       part
	thresholds Thresholds
	reps       *repCounter
	lastScore  float64
}

func newEngine(t ExerciseType, th Thresholds, m Motion, rangeIssue IssueType, need part, mode scoreMode) engine {
	return engine{
		exercise:   t,
		rangeIssue: rangeIssue,
		need:       need,
		thresholds: th,
		reps:       newRepCounter(m, th.Hysteresis, mode),
		lastScore:  100,
	}
}

func (e *engine) Type() ExerciseType { return e.exercise }
func (e *engine) RepCount() int      { return e.reps.reps }
func (e *engine) Phase() Phase       { return e.reps.phase }

func (e *engine) Reset() {
	e.reps.reset()
	e.lastScore = 100
}

// Ready reports whether the landmarks required by the exercise are visible
// on at least one side.
func (e *engine) Ready(f *pose.Frame) bool {
	_, ok := readBody(f, e.need, e.thresholds.MinConfidence)
	return ok
}

func (e *engine) neutral() FrameResult {
	return FrameResult{
		Score:   e.lastScore,
		Phase:   e.reps.phase,
		Neutral: true,
	}
}

// analyze runs one frame through measure and the rep engine.
func (e *engine) analyze(f *pose.Frame, measure func(body) measurement) FrameResult {
	b, ok := readBody(f, e.need, e.thresholds.MinConfidence)
	if !ok {
		return e.neutral()
	}
	m := measure(b)
	if !geometry.ValidAngle(m.angle) {
		return e.neutral()
	}

	step := e.reps.update(m.angle)

	types := m.issues
	if step.shortRange {
		types = append(types, e.rangeIssue)
	}
	issues := buildIssues(types)

	result := FrameResult{
		Score:  e.score(issues),
		Issues: issues,
		Phase:  step.phase,
	}

	if step.inRep {
		e.reps.record(result.Score)
	}
	if step.completed {
		result.RepCompleted = true
		result.RepScore = e.reps.finish()
		result.Phase = e.reps.phase
	}

	e.lastScore = result.Score
	return result
}

func (e *engine) score(issues []Issue) float64 {
	score := 100.0
	for _, i := range issues {
		score -= e.thresholds.penalty(i.Type)
	}
	return ClampScore(score)
}

// ClampScore bounds a score to [0, 100]. NaN scores are treated as 0.
func ClampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(100, s))
}

// exceeds reports whether v is a valid measurement above limit.
func exceeds(v, limit float64) bool {
	return !math.IsNaN(v) && v > limit
}
