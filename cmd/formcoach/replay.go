package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/app"
	"github.com/ayusman/formcoach/internal/pose"
)

func newReplayCmd(g *globals) *cobra.Command {
	var (
		flags    sessionFlags
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay <recording.jsonl>",
		Short: "Run a session from a recorded landmark file",
		Long: `Feeds a JSON-lines landmark recording through the same pipeline as a live
session. The countdown, rest periods and manual checklist items are skipped.
The result is saved to the session history.`,
		Example: `  # Replay a recorded squat workout
  formcoach replay squats.jsonl --exercise squat --reps 10 --sets 3

  # Replay at camera speed
  formcoach replay squats.jsonl -e squat -r 10 -s 3 --interval 66ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := flags.config()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			frames, err := pose.LoadRecording(f)
			f.Close()
			if err != nil {
				return err
			}
			g.logger.Info("loaded recording", "path", args[0], "frames", len(frames))

			a, err := app.New(g.cfg, app.WithLogger(g.logger))
			if err != nil {
				return err
			}
			defer a.Close()

			src := pose.NewReplaySource(frames)
			src.Interval = interval

			sum, err := a.RunSession(cmd.Context(), a.SessionConfig(want), src, true)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between frames (default: as fast as the pipeline accepts them)")

	return cmd
}
