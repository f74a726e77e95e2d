package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// LoadRecording reads a JSON-lines landmark recording, one WireFrame per line.
// Blank lines are skipped.
func LoadRecording(r io.Reader) ([]*Frame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var frames []*Frame
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var w WireFrame
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}
		frames = append(frames, w.Frame(time.Time{}))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return frames, nil
}

// WriteRecording writes frames as JSON lines readable by LoadRecording.
func WriteRecording(w io.Writer, frames []*Frame) error {
	enc := json.NewEncoder(w)
	for i, f := range frames {
		if err := enc.Encode(ToWire(f)); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}

// ReplaySource plays back a fixed sequence of frames.
//
// With Lossless set, a frame refused by a busy sink is offered again until it
// is accepted, which makes playback deterministic. Otherwise frames are pushed
// at Interval and refused frames are dropped, like a live camera.
type ReplaySource struct {
	Frames   []*Frame
	Interval time.Duration
	Lossless bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Finite = (*ReplaySource)(nil)

// NewReplaySource creates a lossless ReplaySource for the given frames.
func NewReplaySource(frames []*Frame) *ReplaySource {
	return &ReplaySource{Frames: frames, Lossless: true}
}

// Start begins playback in a background goroutine.
func (s *ReplaySource) Start(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("replay already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, sink, s.done)
	return nil
}

// Stop halts playback and waits for the playback goroutine to exit.
func (s *ReplaySource) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done is closed once every frame has been delivered or playback was stopped.
// It is nil before Start.
func (s *ReplaySource) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *ReplaySource) run(ctx context.Context, sink Sink, done chan struct{}) {
	defer close(done)

	var ticker *time.Ticker
	if s.Interval > 0 {
		ticker = time.NewTicker(s.Interval)
		defer ticker.Stop()
	}

	for _, f := range s.Frames {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}

		for !sink.OnFrame(f) {
			if !s.Lossless {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Microsecond):
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}
