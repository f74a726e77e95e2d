package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/app"
	"github.com/ayusman/formcoach/internal/pose"
)

// recordingSink keeps every frame that carries a pose.
type recordingSink struct {
	mu     sync.Mutex
	frames []*pose.Frame
	err    error
	lost   chan struct{}
	once   sync.Once
}

func (s *recordingSink) OnFrame(f *pose.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.PoseDetected {
		s.frames = append(s.frames, f)
	}
	return true
}

func (s *recordingSink) OnError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.once.Do(func() { close(s.lost) })
}

func newRecordCmd(g *globals) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record <recording.jsonl>",
		Short: "Record camera landmarks to a file for replay",
		Long: `Captures pose landmarks from the camera and writes them as JSON lines
that "formcoach replay" can play back. Frames without a detected pose are
left out. Recording stops after --duration or on Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(g.cfg, app.WithLogger(g.logger))
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.CameraSource()
			if err != nil {
				return err
			}
			defer src.Close()

			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			sink := &recordingSink{lost: make(chan struct{})}
			if err := src.Start(ctx, sink); err != nil {
				return err
			}
			g.logger.Info("recording", "path", args[0], "duration", duration)

			select {
			case <-ctx.Done():
			case <-sink.lost:
			}
			if err := src.Stop(); err != nil {
				g.logger.Warn("stop camera", "error", err)
			}

			sink.mu.Lock()
			defer sink.mu.Unlock()
			if sink.err != nil {
				return sink.err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create recording: %w", err)
			}
			if err := pose.WriteRecording(out, sink.frames); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", len(sink.frames), args[0])
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop recording after this long")

	return cmd
}
