// Package tray provides a system tray menu for controlling a training session.
package tray

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/session"
)

// Controls are the actions the tray menu can trigger. Nil actions are
// ignored.
type Controls struct {
	// CheckItem confirms one setup checklist item.
	CheckItem     func(id string) error
	Pause         func() error
	Resume        func() error
	SkipCountdown func() error
	SkipRest      func() error
	Stop          func() error
	OpenDashboard func()
	Quit          func()
}

// Tray represents the system tray application.
type Tray struct {
	controls Controls
	logger   *slog.Logger

	mu    sync.RWMutex
	state session.State

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuReady  *systray.MenuItem
	menuPause  *systray.MenuItem
	menuSkip   *systray.MenuItem
	menuStop   *systray.MenuItem
}

// New creates a new Tray wired to controls.
func New(controls Controls, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{
		controls: controls,
		logger:   logger.With("component", "tray"),
		state:    session.State{Phase: session.PhaseIdle},
	}
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("formcoach")
	systray.SetTooltip("formcoach exercise feedback")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(StatusLine(t.state), "Current session")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuReady = systray.AddMenuItem("I'm ready", "Confirm the camera and space are set up")
	t.menuPause = systray.AddMenuItem("Pause", "Pause or resume the session")
	t.menuSkip = systray.AddMenuItem("Skip", "Skip the countdown or rest")
	t.menuStop = systray.AddMenuItem("Stop session", "End the session now")
	systray.AddSeparator()
	t.refreshLocked()
	t.mu.Unlock()

	menuDashboard := systray.AddMenuItem("Open dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit formcoach")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuReady.ClickedCh:
				t.handleReady()
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-t.menuSkip.ClickedCh:
				t.handleSkip()
			case <-t.menuStop.ClickedCh:
				t.run("stop", t.controls.Stop)
			case <-menuDashboard.ClickedCh:
				if t.controls.OpenDashboard != nil {
					t.controls.OpenDashboard()
				}
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// SetState updates the menu from a session state. It is safe to call before
// the tray is running.
func (t *Tray) SetState(s session.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
	t.refreshLocked()
}

func (t *Tray) refreshLocked() {
	if t.menuStatus == nil {
		return
	}
	t.menuStatus.SetTitle(StatusLine(t.state))

	if t.state.Phase == session.PhasePaused {
		t.menuPause.SetTitle("Resume")
	} else {
		t.menuPause.SetTitle("Pause")
	}
	setEnabled(t.menuReady, t.state.Phase == session.PhaseSettingUp && len(t.state.PendingConfirmations()) > 0)
	setEnabled(t.menuPause, canPause(t.state.Phase) || t.state.Phase == session.PhasePaused)
	setEnabled(t.menuSkip, t.state.Phase == session.PhaseCountdown || t.state.Phase == session.PhaseRest)
	setEnabled(t.menuStop, t.state.Phase != session.PhaseIdle && !t.state.Phase.Terminal())
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

func canPause(p session.Phase) bool {
	return p == session.PhaseCountdown || p == session.PhaseActive || p == session.PhaseRest
}

func (t *Tray) phase() session.Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Phase
}

// handleReady confirms every setup item still waiting on the person training.
func (t *Tray) handleReady() {
	t.mu.RLock()
	s := t.state
	t.mu.RUnlock()
	if s.Phase != session.PhaseSettingUp || t.controls.CheckItem == nil {
		return
	}
	for _, item := range s.PendingConfirmations() {
		id := item.ID
		t.run("check "+id, func() error { return t.controls.CheckItem(id) })
	}
}

// handlePause pauses a running session or resumes a paused one.
func (t *Tray) handlePause() {
	switch p := t.phase(); {
	case p == session.PhasePaused:
		t.run("resume", t.controls.Resume)
	case canPause(p):
		t.run("pause", t.controls.Pause)
	}
}

// handleSkip skips whichever timed phase is running.
func (t *Tray) handleSkip() {
	switch t.phase() {
	case session.PhaseCountdown:
		t.run("skip countdown", t.controls.SkipCountdown)
	case session.PhaseRest:
		t.run("skip rest", t.controls.SkipRest)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	if t.controls.Quit != nil {
		t.controls.Quit()
	}
	systray.Quit()
}

// run calls fn outside the lock and logs a failure.
func (t *Tray) run(name string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		t.logger.Warn("tray action failed", "action", name, "error", err)
	}
}

// StatusLine renders a one-line summary of a session for the menu.
func StatusLine(s session.State) string {
	name := string(s.Config.ExerciseType)
	if info, ok := analyzer.Lookup(s.Config.ExerciseType); ok {
		name = info.DisplayName
	}

	switch s.Phase {
	case session.PhaseIdle, "":
		return "No session"
	case session.PhaseSettingUp:
		done := 0
		for _, item := range s.SetupChecklist {
			if item.Checked {
				done++
			}
		}
		return fmt.Sprintf("%s: setting up (%d/%d)", name, done, len(s.SetupChecklist))
	case session.PhaseCountdown:
		return fmt.Sprintf("%s: starting in %d", name, s.CountdownRemaining)
	case session.PhaseActive:
		return fmt.Sprintf("%s: set %d/%d, rep %d/%d", name,
			s.CurrentSet, s.Config.TargetSets, s.CurrentReps, s.Config.TargetReps)
	case session.PhasePaused:
		return fmt.Sprintf("%s: paused", name)
	case session.PhaseRest:
		return fmt.Sprintf("%s: rest %ds", name, s.RestTimeRemaining)
	case session.PhaseErrored:
		return fmt.Sprintf("%s: stopped with an error", name)
	default:
		return fmt.Sprintf("%s: done, %d sets", name, len(s.CompletedSets))
	}
}
