package session

import (
	"fmt"
	"time"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/google/uuid"
)

// Machine is the session and set state machine. It owns the analyzer for
// the session. A Machine is not safe for concurrent use; Controller
// serializes every call onto its loop.
type Machine struct {
	id       uuid.UUID
	cfg      Config
	analyzer analyzer.Analyzer
	now      func() time.Time

	state    State
	tally    *setTally
	pausedAt time.Time

	startedAt time.Time
	endedAt   time.Time
	outcome   Outcome
}

// NewMachine validates cfg and creates an idle Machine. A nil clock uses
// time.Now.
func NewMachine(cfg Config, a analyzer.Analyzer, clock func() time.Time) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	cfg = cfg.withDefaults()
	return &Machine{
		id:       uuid.New(),
		cfg:      cfg,
		analyzer: a,
		now:      clock,
		state: State{
			Phase:        PhaseIdle,
			Config:       cfg,
			CurrentScore: 100,
		},
	}, nil
}

// ID identifies the session.
func (m *Machine) ID() uuid.UUID { return m.id }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.state.Phase }

// State returns a snapshot of the session.
func (m *Machine) State() State { return m.state.clone() }

// CompletedSetCount returns how many sets have been recorded.
func (m *Machine) CompletedSetCount() int { return len(m.state.CompletedSets) }

// LastSet returns the most recently recorded set.
func (m *Machine) LastSet() (SetData, bool) {
	n := len(m.state.CompletedSets)
	if n == 0 {
		return SetData{}, false
	}
	return m.state.CompletedSets[n-1].clone(), true
}

// AcceptsFrames reports whether HandleFrame would use a frame.
func (m *Machine) AcceptsFrames() bool {
	return m.state.Phase == PhaseSettingUp || m.state.Phase == PhaseActive
}

func (m *Machine) transitionError(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, m.state.Phase)
}

// BeginSetup moves an idle session into setup with a fresh checklist.
func (m *Machine) BeginSetup() error {
	if m.state.Phase != PhaseIdle {
		return m.transitionError("begin setup")
	}
	m.startedAt = m.now()
	m.state.Phase = PhaseSettingUp
	m.state.SetupChecklist = newChecklist()
	m.state.CurrentSet = 1
	return nil
}

// CheckItem marks a setup checklist item. When every item is checked the
// countdown starts.
func (m *Machine) CheckItem(id string) error {
	if m.state.Phase != PhaseSettingUp {
		return m.transitionError("check " + id)
	}
	found := false
	for i := range m.state.SetupChecklist {
		if m.state.SetupChecklist[i].ID == id {
			m.state.SetupChecklist[i].Checked = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}

	for _, item := range m.state.SetupChecklist {
		if !item.Checked {
			return nil
		}
	}
	m.state.Phase = PhaseCountdown
	m.state.CountdownRemaining = CountdownSeconds
	return nil
}

// Tick advances the countdown and rest timers by one second. Paused
// sessions do not advance.
func (m *Machine) Tick() {
	switch m.state.Phase {
	case PhaseCountdown:
		m.state.CountdownRemaining--
		if m.state.CountdownRemaining <= 0 {
			m.beginSet()
		}
	case PhaseRest:
		m.state.RestTimeRemaining--
		if m.state.RestTimeRemaining <= 0 {
			m.nextSet()
		}
	}
}

// SkipCountdown starts the set immediately.
func (m *Machine) SkipCountdown() error {
	if m.state.Phase != PhaseCountdown {
		return m.transitionError("skip countdown")
	}
	m.beginSet()
	return nil
}

// SkipRest ends the rest period and starts the next set.
func (m *Machine) SkipRest() error {
	if m.state.Phase != PhaseRest {
		return m.transitionError("skip rest")
	}
	m.nextSet()
	return nil
}

// Pause suspends a countdown, set or rest. Rep progress and the analyzer's
// in-progress rep are kept.
func (m *Machine) Pause() error {
	switch m.state.Phase {
	case PhaseCountdown, PhaseActive, PhaseRest:
	default:
		return m.transitionError("pause")
	}
	m.state.PausedFrom = m.state.Phase
	m.state.Phase = PhasePaused
	m.pausedAt = m.now()
	return nil
}

// Resume returns to the phase that was paused.
func (m *Machine) Resume() error {
	if m.state.Phase != PhasePaused {
		return m.transitionError("resume")
	}
	m.accountPause()
	m.state.Phase = m.state.PausedFrom
	m.state.PausedFrom = ""
	return nil
}

// accountPause excludes the time spent paused from the running set.
func (m *Machine) accountPause() {
	if m.state.PausedFrom == PhaseActive && m.tally != nil {
		m.tally.paused += m.now().Sub(m.pausedAt)
	}
	m.pausedAt = time.Time{}
}

// HandleFrame feeds a frame to the session. During setup it auto-checks
// body visibility; during a set it analyzes the frame. handled is false
// when the phase ignores frames (paused frames are discarded this way).
func (m *Machine) HandleFrame(f *pose.Frame) (result analyzer.FrameResult, handled bool) {
	switch m.state.Phase {
	case PhaseSettingUp:
		if m.analyzer.Ready(f) && !m.checked(CheckBodyVisible) {
			_ = m.CheckItem(CheckBodyVisible)
		}
		return analyzer.FrameResult{}, true
	case PhaseActive:
	default:
		return analyzer.FrameResult{}, false
	}

	r := m.analyzer.Analyze(f)
	r.Score = analyzer.ClampScore(r.Score)
	if r.Neutral {
		return r, true
	}

	m.state.CurrentScore = r.Score
	m.state.CurrentIssues = r.Issues

	if r.Phase != analyzer.PhaseStart || r.RepCompleted {
		m.tally.observe(r.Issues)
	}
	if r.RepCompleted {
		r.RepScore = analyzer.ClampScore(r.RepScore)
		score := r.RepScore
		m.state.LastRepScore = &score
		m.tally.closeRep(r.RepScore)
		m.state.CurrentReps++
		if m.state.CurrentReps >= m.cfg.TargetReps {
			m.completeSet()
		}
	}
	return r, true
}

func (m *Machine) checked(id string) bool {
	for _, item := range m.state.SetupChecklist {
		if item.ID == id {
			return item.Checked
		}
	}
	return false
}

// Stop ends the session early. A set with at least one rep is recorded as
// a partial set.
func (m *Machine) Stop() {
	if m.state.Phase.Terminal() {
		return
	}
	if m.state.Phase == PhasePaused {
		m.accountPause()
		m.state.Phase = m.state.PausedFrom
		m.state.PausedFrom = ""
	}
	if m.state.Phase == PhaseActive && m.state.CurrentReps > 0 {
		m.recordSet()
	}
	m.finish(PhaseCompleted, OutcomeStopped)
}

// Fail ends the session in the errored phase. Completed sets are kept.
func (m *Machine) Fail(err error) {
	if m.state.Phase.Terminal() {
		return
	}
	if err != nil {
		m.state.Error = err.Error()
	}
	m.finish(PhaseErrored, OutcomeErrored)
}

// Summary returns the session record. Until the session ends, EndedAt is
// zero and Outcome is empty.
func (m *Machine) Summary() Summary {
	st := m.state.clone()
	return Summary{
		ID:            m.id,
		Config:        m.cfg,
		CompletedSets: st.CompletedSets,
		StartedAt:     m.startedAt,
		EndedAt:       m.endedAt,
		Outcome:       m.outcome,
		Error:         st.Error,
	}
}

func (m *Machine) beginSet() {
	m.state.Phase = PhaseActive
	m.state.CountdownRemaining = 0
	m.tally = newSetTally(m.now())
}

func (m *Machine) nextSet() {
	m.state.CurrentSet++
	m.state.CurrentReps = 0
	m.state.CurrentScore = 100
	m.state.CurrentIssues = nil
	m.state.LastRepScore = nil
	m.state.RestTimeRemaining = 0
	m.beginSet()
}

// recordSet appends the running set to CompletedSets and resets the
// analyzer for the next one.
func (m *Machine) recordSet() {
	set := m.tally.build(m.state.CurrentSet, m.state.CurrentReps, m.now())
	m.state.CompletedSets = append(m.state.CompletedSets, set)
	m.tally = nil
	m.analyzer.Reset()
}

func (m *Machine) completeSet() {
	m.recordSet()
	if len(m.state.CompletedSets) >= m.cfg.TargetSets {
		m.finish(PhaseCompleted, OutcomeCompleted)
		return
	}
	m.state.Phase = PhaseRest
	m.state.RestTimeRemaining = m.cfg.restSeconds()
}

func (m *Machine) finish(p Phase, o Outcome) {
	m.state.Phase = p
	m.state.CountdownRemaining = 0
	m.state.RestTimeRemaining = 0
	m.outcome = o
	m.endedAt = m.now()
	if m.startedAt.IsZero() {
		m.startedAt = m.endedAt
	}
}
