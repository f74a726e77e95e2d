package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/app"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/tray"
)

// sessionFlags are shared by the commands that run a session.
type sessionFlags struct {
	exercise string
	reps     int
	sets     int
	rest     time.Duration
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.exercise, "exercise", "e", "", "Exercise: squat, push_up, arm_curl, side_raise or shoulder_press")
	cmd.Flags().IntVarP(&f.reps, "reps", "r", 0, "Target reps per set (default: last session)")
	cmd.Flags().IntVarP(&f.sets, "sets", "s", 0, "Target sets (default: last session)")
	cmd.Flags().DurationVar(&f.rest, "rest", 0, "Rest between sets (default: session.rest_seconds from config)")
}

func (f *sessionFlags) config() (session.Config, error) {
	cfg := session.Config{TargetReps: f.reps, TargetSets: f.sets, RestDuration: f.rest}
	if f.exercise != "" {
		t, err := analyzer.ParseExerciseType(f.exercise)
		if err != nil {
			return cfg, err
		}
		cfg.ExerciseType = t
	}
	return cfg, nil
}

func newTrainCmd(g *globals) *cobra.Command {
	var (
		flags    sessionFlags
		noTray   bool
		noServer bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run a training session from the camera",
		Long: `Runs a live training session. Frames are read from the configured camera,
landmarks come from the MediaPipe Pose service and feedback is printed when
the session ends.

While the session runs, the tray menu and the local HTTP API can confirm the
setup checklist, pause, resume, skip the countdown or rest, and stop it.
Without either, the checklist is printed and confirmed by pressing Enter.`,
		Example: `  # Three sets of ten squats
  formcoach train --exercise squat --reps 10 --sets 3

  # Repeat the last session without the tray
  formcoach train --no-tray`,
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := flags.config()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var tr *tray.Tray
			var a *app.App
			control := func(fn func(s sessionControl) error) func() error {
				return func() error {
					live, ok := a.Current()
					if !ok {
						return session.ErrNotRunning
					}
					return fn(live)
				}
			}

			checkItem := func(id string) error {
				return control(func(s sessionControl) error { return s.CheckItem(id) })()
			}

			serve := g.cfg.Server.Enabled && !noServer
			opts := []app.Option{app.WithLogger(g.logger), app.WithStaticDir(findWebDir())}
			switch {
			case !noTray:
				tr = tray.New(tray.Controls{
					CheckItem:     checkItem,
					Pause:         control(func(s sessionControl) error { return s.Pause() }),
					Resume:        control(func(s sessionControl) error { return s.Resume() }),
					SkipCountdown: control(func(s sessionControl) error { return s.SkipCountdown() }),
					SkipRest:      control(func(s sessionControl) error { return s.SkipRest() }),
					Stop:          control(func(s sessionControl) error { return s.Stop() }),
					Quit:          cancel,
				}, g.logger)
				opts = append(opts, app.WithStateObserver(tr.SetState))
			case !serve:
				prompt := newSetupPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), checkItem, g.logger)
				opts = append(opts, app.WithStateObserver(prompt.observe))
			}

			a, err = app.New(g.cfg, opts...)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.SessionConfig(want)
			if cfg.ExerciseType == "" {
				return errors.New("no previous session to repeat, pass --exercise")
			}

			src, err := a.CameraSource()
			if err != nil {
				return err
			}
			defer src.Close()

			serverDone := make(chan struct{})
			if serve {
				go func() {
					defer close(serverDone)
					if err := a.Serve(ctx); err != nil {
						g.logger.Error("server stopped", "error", err)
					}
				}()
			} else {
				close(serverDone)
			}

			var sum session.Summary
			var runErr error
			if tr == nil {
				sum, runErr = a.RunSession(ctx, cfg, src, false)
			} else {
				sessionDone := make(chan struct{})
				go func() {
					defer close(sessionDone)
					sum, runErr = a.RunSession(ctx, cfg, src, false)
					tr.Quit()
				}()
				tr.Run()
				cancel()
				<-sessionDone
			}

			cancel()
			<-serverDone

			if runErr != nil && sum.ID == uuid.Nil {
				return runErr
			}
			printSummary(cmd.OutOrStdout(), sum)
			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Run without the system tray menu")
	cmd.Flags().BoolVar(&noServer, "no-server", false, "Do not start the local HTTP API")

	return cmd
}

// sessionControl is the subset of the live session the tray drives.
type sessionControl interface {
	CheckItem(id string) error
	Pause() error
	Resume() error
	SkipCountdown() error
	SkipRest() error
	Stop() error
}

func printSummary(w io.Writer, sum session.Summary) {
	name := string(sum.Config.ExerciseType)
	if info, ok := analyzer.Lookup(sum.Config.ExerciseType); ok {
		name = info.DisplayName
	}

	fmt.Fprintf(w, "%s session %s: %s\n", name, sum.ID, sum.Outcome)
	if sum.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", sum.Error)
	}
	fmt.Fprintf(w, "  %d reps in %d/%d sets, %s\n",
		sum.TotalReps(), len(sum.CompletedSets), sum.Config.TargetSets,
		sum.EndedAt.Sub(sum.StartedAt).Round(time.Second))

	for _, set := range sum.CompletedSets {
		fmt.Fprintf(w, "  set %d: %d reps, score %.0f", set.SetNumber, set.Reps, set.AverageScore)
		if set.BestRepScore != nil && set.WorstRepScore != nil {
			fmt.Fprintf(w, " (best %.0f, worst %.0f)", *set.BestRepScore, *set.WorstRepScore)
		}
		fmt.Fprintln(w)

		for _, is := range set.Issues {
			fmt.Fprintf(w, "    %-6s %s (%d %s)\n", strings.ToUpper(is.Priority.String()), is.Message, is.Count, plural(is.Count, "rep"))
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
