package analyzer

import "math"

// scoreMode selects how frame scores fold into a rep score.
type scoreMode int

const (
	scoreMin scoreMode = iota
	scoreAverage
)

// repStep reports what one angle sample did to the rep engine.
type repStep struct {
	phase      Phase
	inRep      bool // the frame belongs to a repetition
	completed  bool // the frame closed a repetition
	shortRange bool // the repetition turned around before its peak
}

// repCounter tracks repetitions of a single joint angle.
//
// It works on a signed depth so both directions share one state machine:
// for motions whose angle decreases toward the peak, depth is the negated
// angle. Depth therefore always grows from start toward peak.
type repCounter struct {
	start, leave, peak float64 // in depth units
	sign               float64
	hysteresis         float64
	mode               scoreMode

	phase       Phase
	extreme     float64
	reachedPeak bool
	reps        int

	scoreMin   float64
	scoreSum   float64
	scoreCount int
}

func newRepCounter(m Motion, hysteresis float64, mode scoreMode) *repCounter {
	sign := 1.0
	if m.PeakAngle < m.StartAngle {
		sign = -1
	}
	c := &repCounter{
		start:      sign * m.StartAngle,
		leave:      sign * m.LeaveAngle,
		peak:       sign * m.PeakAngle,
		sign:       sign,
		hysteresis: hysteresis,
		mode:       mode,
	}
	c.reset()
	return c
}

func (c *repCounter) reset() {
	c.phase = PhaseStart
	c.extreme = 0
	c.reachedPeak = false
	c.reps = 0
	c.clearScores()
}

func (c *repCounter) clearScores() {
	c.scoreMin = math.Inf(1)
	c.scoreSum = 0
	c.scoreCount = 0
}

// update advances the state machine with one angle sample.
func (c *repCounter) update(angle float64) repStep {
	d := c.sign * angle

	switch c.phase {
	case PhaseStart:
		if d > c.leave {
			c.phase = PhaseOutward
			c.extreme = d
			c.reachedPeak = false
			c.clearScores()
		}
		if c.phase == PhaseOutward && d >= c.peak {
			c.phase = PhasePeak
			c.reachedPeak = true
		}

	case PhaseOutward, PhasePeak:
		if d > c.extreme {
			c.extreme = d
		}
		if d >= c.peak {
			c.phase = PhasePeak
			c.reachedPeak = true
		}
		if c.extreme-d > c.hysteresis {
			c.phase = PhaseReturn
		}

	case PhaseReturn:
		// Going deeper again after a reversal resumes the same rep.
		if d > c.extreme+c.hysteresis {
			c.extreme = d
			c.phase = PhaseOutward
			if d >= c.peak {
				c.reachedPeak = true
			}
			if c.reachedPeak {
				c.phase = PhasePeak
			}
		}
	}

	step := repStep{phase: c.phase}
	if c.phase == PhaseReturn && d <= c.start {
		step.completed = true
	}
	step.inRep = c.phase != PhaseStart
	step.shortRange = c.phase == PhaseReturn && !c.reachedPeak
	return step
}

// record adds a frame score to the current repetition.
func (c *repCounter) record(score float64) {
	c.scoreMin = math.Min(c.scoreMin, score)
	c.scoreSum += score
	c.scoreCount++
}

// finish closes the current repetition and returns its score.
func (c *repCounter) finish() float64 {
	c.reps++
	c.phase = PhaseStart

	score := 100.0
	if c.scoreCount > 0 {
		switch c.mode {
		case scoreAverage:
			score = c.scoreSum / float64(c.scoreCount)
		default:
			score = c.scoreMin
		}
	}
	c.clearScores()
	return score
}
