// Package session sequences a training session around an exercise
// analyzer: setup checklist, countdown, sets, rest and completion.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/formcoach/internal/analyzer"
)

// DefaultRestDuration is used when Config.RestDuration is zero.
const DefaultRestDuration = 60 * time.Second

// CountdownSeconds is the length of the pre-set countdown.
const CountdownSeconds = 3

var (
	// ErrInvalidConfig is matched by every *ValidationError.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current phase.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrSourceUnavailable wraps failures to start the pose source. The
	// session stays idle and Start may be retried.
	ErrSourceUnavailable = errors.New("pose source unavailable")
	// ErrNotRunning is returned for commands sent to a session whose loop
	// is not running.
	ErrNotRunning = errors.New("session not running")
	// ErrUnknownItem is returned by CheckItem for an id not on the checklist.
	ErrUnknownItem = errors.New("unknown checklist item")
)

// ValidationError describes a rejected Config field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session config: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Config is the user's goal for one session. It is fixed once the session
// starts.
type Config struct {
	ExerciseType analyzer.ExerciseType `json:"exercise_type" yaml:"exercise_type"`
	TargetReps   int                   `json:"target_reps" yaml:"target_reps"`
	TargetSets   int                   `json:"target_sets" yaml:"target_sets"`
	RestDuration time.Duration         `json:"rest_duration" yaml:"rest_duration"`
}

// Validate reports the first invalid field as a *ValidationError.
func (c Config) Validate() error {
	if !c.ExerciseType.Valid() {
		return &ValidationError{Field: "exercise_type", Reason: fmt.Sprintf("%q is not a supported exercise", c.ExerciseType)}
	}
	if c.TargetReps < 1 {
		return &ValidationError{Field: "target_reps", Reason: "must be at least 1"}
	}
	if c.TargetSets < 1 {
		return &ValidationError{Field: "target_sets", Reason: "must be at least 1"}
	}
	if c.RestDuration < 0 {
		return &ValidationError{Field: "rest_duration", Reason: "must not be negative"}
	}
	return nil
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.RestDuration == 0 {
		c.RestDuration = DefaultRestDuration
	}
	return c
}

// restSeconds is the rest period in whole timer ticks, rounded up.
func (c Config) restSeconds() int {
	return int((c.RestDuration + time.Second - 1) / time.Second)
}
