package analyzer

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Motion describes the primary joint angle's travel during one rep.
// A rep starts once the angle crosses LeaveAngle, counts as full range once
// it reaches PeakAngle, and completes when it returns past StartAngle.
// The direction of travel is the sign of PeakAngle - StartAngle.
type Motion struct {
	StartAngle float64 `yaml:"start_angle" json:"start_angle"`
	LeaveAngle float64 `yaml:"leave_angle" json:"leave_angle"`
	PeakAngle  float64 `yaml:"peak_angle" json:"peak_angle"`
}

func (m Motion) validate() error {
	lo, hi := m.StartAngle, m.PeakAngle
	if lo > hi {
		lo, hi = hi, lo
	}
	if m.StartAngle == m.PeakAngle {
		return fmt.Errorf("start angle and peak angle are both %v", m.StartAngle)
	}
	if m.LeaveAngle <= lo || m.LeaveAngle >= hi {
		return fmt.Errorf("leave angle %v must lie strictly between start %v and peak %v",
			m.LeaveAngle, m.StartAngle, m.PeakAngle)
	}
	if lo < 0 || hi > 360 {
		return fmt.Errorf("angles must be within [0, 360]")
	}
	return nil
}

// SquatThresholds tunes squat depth and form checks.
type SquatThresholds struct {
	Motion         Motion  `yaml:"motion"`
	MaxTorsoLean   float64 `yaml:"max_torso_lean"`
	MaxKneeOverToe float64 `yaml:"max_knee_over_toe"` // fraction of shin length
	MaxKneeDelta   float64 `yaml:"max_knee_delta"`
}

// PushUpThresholds tunes push-up depth and body line checks.
type PushUpThresholds struct {
	Motion        Motion  `yaml:"motion"`
	MinBodyLine   float64 `yaml:"min_body_line"`
	MaxElbowDelta float64 `yaml:"max_elbow_delta"`
}

// ArmCurlThresholds tunes curl range and elbow stability checks.
type ArmCurlThresholds struct {
	Motion        Motion  `yaml:"motion"`
	MaxTorsoLean  float64 `yaml:"max_torso_lean"`
	MaxElbowDrift float64 `yaml:"max_elbow_drift"`
	MaxElbowDelta float64 `yaml:"max_elbow_delta"`
}

// SideRaiseThresholds tunes lateral raise height and arm angle checks.
type SideRaiseThresholds struct {
	Motion        Motion  `yaml:"motion"`
	MaxTorsoLean  float64 `yaml:"max_torso_lean"`
	MaxAbduction  float64 `yaml:"max_abduction"`
	MinElbowAngle float64 `yaml:"min_elbow_angle"`
	MaxArmDelta   float64 `yaml:"max_arm_delta"`
}

// ShoulderPressThresholds tunes overhead press range and forearm checks.
type ShoulderPressThresholds struct {
	Motion         Motion  `yaml:"motion"`
	MaxTorsoLean   float64 `yaml:"max_torso_lean"`
	MaxForearmLean float64 `yaml:"max_forearm_lean"`
	MaxElbowDelta  float64 `yaml:"max_elbow_delta"`
}

// Thresholds holds every tunable number the analyzers use. Angles are in
// degrees.
type Thresholds struct {
	// MinConfidence is the landmark likelihood below which a landmark is
	// treated as missing.
	MinConfidence float64 `yaml:"min_confidence"`
	// Hysteresis is how far the angle must travel back from its extreme
	// before a reversal is recognized.
	Hysteresis float64 `yaml:"hysteresis"`
	// Penalties are the score deductions per issue present in a frame.
	Penalties map[IssueType]float64 `yaml:"penalties"`

	Squat         SquatThresholds         `yaml:"squat"`
	PushUp        PushUpThresholds        `yaml:"push_up"`
	ArmCurl       ArmCurlThresholds       `yaml:"arm_curl"`
	SideRaise     SideRaiseThresholds     `yaml:"side_raise"`
	ShoulderPress ShoulderPressThresholds `yaml:"shoulder_press"`
}

// DefaultPenalties returns the default score deduction per issue.
func DefaultPenalties() map[IssueType]float64 {
	return map[IssueType]float64{
		BackNotStraight:   30,
		KneeOverToe:       15,
		InsufficientDepth: 20,
		UnevenKnees:       5,
		HipsSagging:       30,
		HipsPiked:         15,
		UnevenArms:        5,
		BodySwinging:      15,
		ElbowDrifting:     10,
		IncompleteCurl:    20,
		InsufficientRange: 20,
		ArmsTooHigh:       15,
		ElbowsBent:        5,
		BackArching:       30,
		WristsNotStacked:  10,
		IncompleteLockout: 20,
	}
}

// DefaultThresholds returns the built-in tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence: 0.5,
		Hysteresis:    5,
		Penalties:     DefaultPenalties(),
		Squat: SquatThresholds{
			Motion:         Motion{StartAngle: 160, LeaveAngle: 155, PeakAngle: 100},
			MaxTorsoLean:   50,
			MaxKneeOverToe: 0.15,
			MaxKneeDelta:   15,
		},
		PushUp: PushUpThresholds{
			Motion:        Motion{StartAngle: 155, LeaveAngle: 150, PeakAngle: 90},
			MinBodyLine:   160,
			MaxElbowDelta: 20,
		},
		ArmCurl: ArmCurlThresholds{
			Motion:        Motion{StartAngle: 150, LeaveAngle: 140, PeakAngle: 50},
			MaxTorsoLean:  15,
			MaxElbowDrift: 30,
			MaxElbowDelta: 20,
		},
		SideRaise: SideRaiseThresholds{
			Motion:        Motion{StartAngle: 30, LeaveAngle: 40, PeakAngle: 80},
			MaxTorsoLean:  15,
			MaxAbduction:  110,
			MinElbowAngle: 140,
			MaxArmDelta:   15,
		},
		ShoulderPress: ShoulderPressThresholds{
			Motion:         Motion{StartAngle: 100, LeaveAngle: 110, PeakAngle: 160},
			MaxTorsoLean:   15,
			MaxForearmLean: 30,
			MaxElbowDelta:  15,
		},
	}
}

// ErrInvalidThresholds is returned (wrapped) by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Validate checks that the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	var err error
	if t.MinConfidence <= 0 || t.MinConfidence >= 1 {
		err = multierr.Append(err, fmt.Errorf("min_confidence %v must be within (0, 1)", t.MinConfidence))
	}
	if t.Hysteresis < 0 {
		err = multierr.Append(err, fmt.Errorf("hysteresis %v must not be negative", t.Hysteresis))
	}
	for issue, p := range t.Penalties {
		if !issue.Known() {
			err = multierr.Append(err, fmt.Errorf("penalty for unknown issue %q", issue))
		} else if p < 0 {
			err = multierr.Append(err, fmt.Errorf("penalty for %s must not be negative", issue))
		}
	}

	motions := []struct {
		name string
		m    Motion
	}{
		{"squat", t.Squat.Motion},
		{"push_up", t.PushUp.Motion},
		{"arm_curl", t.ArmCurl.Motion},
		{"side_raise", t.SideRaise.Motion},
		{"shoulder_press", t.ShoulderPress.Motion},
	}
	for _, m := range motions {
		if e := m.m.validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("%s motion: %w", m.name, e))
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidThresholds, err)
	}
	return nil
}

// penalty returns the deduction for issue, falling back to the default when
// the map has no entry.
func (t Thresholds) penalty(issue IssueType) float64 {
	if p, ok := t.Penalties[issue]; ok {
		return p
	}
	return DefaultPenalties()[issue]
}
