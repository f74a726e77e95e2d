package tray

import (
	"errors"
	"testing"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/session"
)

func TestStatusLine(t *testing.T) {
	squat := session.Config{ExerciseType: analyzer.Squat, TargetReps: 10, TargetSets: 3}

	tests := []struct {
		name  string
		state session.State
		want  string
	}{
		{"idle", session.State{Phase: session.PhaseIdle}, "No session"},
		{"setting up", session.State{
			Phase:  session.PhaseSettingUp,
			Config: squat,
			SetupChecklist: []session.ChecklistItem{
				{ID: session.CheckCameraPositioned, Checked: true},
				{ID: session.CheckBodyVisible},
				{ID: session.CheckSpaceClear},
			},
		}, "Squat: setting up (1/3)"},
		{"countdown", session.State{Phase: session.PhaseCountdown, Config: squat, CountdownRemaining: 3}, "Squat: starting in 3"},
		{"active", session.State{Phase: session.PhaseActive, Config: squat, CurrentSet: 2, CurrentReps: 4}, "Squat: set 2/3, rep 4/10"},
		{"paused", session.State{Phase: session.PhasePaused, Config: squat}, "Squat: paused"},
		{"rest", session.State{Phase: session.PhaseRest, Config: squat, RestTimeRemaining: 42}, "Squat: rest 42s"},
		{"errored", session.State{Phase: session.PhaseErrored, Config: squat}, "Squat: stopped with an error"},
		{"completed", session.State{
			Phase:         session.PhaseCompleted,
			Config:        squat,
			CompletedSets: make([]session.SetData, 3),
		}, "Squat: done, 3 sets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLine(tt.state); got != tt.want {
				t.Errorf("StatusLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) action(name string) func() error {
	return func() error {
		r.calls = append(r.calls, name)
		return r.err
	}
}

func (r *recorder) check(id string) error {
	r.calls = append(r.calls, "check "+id)
	return r.err
}

func newRecordedTray(r *recorder) *Tray {
	return New(Controls{
		CheckItem:     r.check,
		Pause:         r.action("pause"),
		Resume:        r.action("resume"),
		SkipCountdown: r.action("skip-countdown"),
		SkipRest:      r.action("skip-rest"),
		Stop:          r.action("stop"),
	}, nil)
}

func TestTray_ReadyConfirmsPendingItems(t *testing.T) {
	checklist := []session.ChecklistItem{
		{ID: session.CheckCameraPositioned, Checked: true},
		{ID: session.CheckBodyVisible},
		{ID: session.CheckSpaceClear},
	}

	tests := []struct {
		name  string
		state session.State
		want  []string
	}{
		{"setting up", session.State{Phase: session.PhaseSettingUp, SetupChecklist: checklist}, []string{"check space_clear"}},
		{"nothing left", session.State{Phase: session.PhaseSettingUp, SetupChecklist: []session.ChecklistItem{
			{ID: session.CheckCameraPositioned, Checked: true},
			{ID: session.CheckBodyVisible},
			{ID: session.CheckSpaceClear, Checked: true},
		}}, nil},
		{"active", session.State{Phase: session.PhaseActive, SetupChecklist: checklist}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			tr := newRecordedTray(r)
			tr.SetState(tt.state)

			tr.handleReady()

			if len(r.calls) != len(tt.want) || (len(tt.want) > 0 && r.calls[0] != tt.want[0]) {
				t.Errorf("calls = %v, want %v", r.calls, tt.want)
			}
		})
	}
}

func TestTray_ReadyChecksEveryItem(t *testing.T) {
	r := &recorder{err: errors.New("session not running")}
	tr := newRecordedTray(r)
	tr.SetState(session.State{Phase: session.PhaseSettingUp, SetupChecklist: []session.ChecklistItem{
		{ID: session.CheckCameraPositioned},
		{ID: session.CheckBodyVisible},
		{ID: session.CheckSpaceClear},
	}})

	tr.handleReady()

	want := []string{"check camera_positioned", "check space_clear"}
	if len(r.calls) != 2 || r.calls[0] != want[0] || r.calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

func TestTray_PauseFollowsPhase(t *testing.T) {
	tests := []struct {
		phase session.Phase
		want  []string
	}{
		{session.PhaseActive, []string{"pause"}},
		{session.PhaseCountdown, []string{"pause"}},
		{session.PhaseRest, []string{"pause"}},
		{session.PhasePaused, []string{"resume"}},
		{session.PhaseSettingUp, nil},
		{session.PhaseCompleted, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			r := &recorder{}
			tr := newRecordedTray(r)
			tr.SetState(session.State{Phase: tt.phase})

			tr.handlePause()

			if len(r.calls) != len(tt.want) || (len(tt.want) > 0 && r.calls[0] != tt.want[0]) {
				t.Errorf("calls = %v, want %v", r.calls, tt.want)
			}
		})
	}
}

func TestTray_SkipFollowsPhase(t *testing.T) {
	tests := []struct {
		phase session.Phase
		want  string
	}{
		{session.PhaseCountdown, "skip-countdown"},
		{session.PhaseRest, "skip-rest"},
		{session.PhaseActive, ""},
	}

	for _, tt := range tests {
		r := &recorder{}
		tr := newRecordedTray(r)
		tr.SetState(session.State{Phase: tt.phase})

		tr.handleSkip()

		switch {
		case tt.want == "" && len(r.calls) != 0:
			t.Errorf("%s: calls = %v, want none", tt.phase, r.calls)
		case tt.want != "" && (len(r.calls) != 1 || r.calls[0] != tt.want):
			t.Errorf("%s: calls = %v, want [%s]", tt.phase, r.calls, tt.want)
		}
	}
}

func TestTray_ActionErrorsAreNotFatal(t *testing.T) {
	r := &recorder{err: errors.New("session not running")}
	tr := newRecordedTray(r)
	tr.SetState(session.State{Phase: session.PhaseActive})

	tr.handlePause()
	tr.run("stop", nil)

	if len(r.calls) != 1 {
		t.Errorf("calls = %v, want one pause attempt", r.calls)
	}
}
