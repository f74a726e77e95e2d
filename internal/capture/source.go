package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/formcoach/internal/detector"
	"github.com/ayusman/formcoach/internal/pose"
)

// DefaultMaxFailures is how many reads or detections in a row may fail
// before the source reports itself lost.
const DefaultMaxFailures = 10

// ErrAlreadyStarted is returned by Start on a running source.
var ErrAlreadyStarted = errors.New("source already started")

// SourceOptions configures a CameraSource.
type SourceOptions struct {
	FPS         int
	MaxFailures int
	// MotionThreshold is the percentage of changed pixels below which a
	// frame reuses the previous pose instead of running the detector.
	// Zero disables the gate.
	MotionThreshold float64
	Logger          *slog.Logger
}

var _ pose.Source = (*CameraSource)(nil)

// CameraSource is a pose.Source that reads the camera at a fixed rate and
// runs every frame through a detector.
type CameraSource struct {
	camera   Camera
	detector detector.Detector
	opts     SourceOptions
	gate     *MotionGate
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	delivered atomic.Int64
	refused   atomic.Int64
	reused    atomic.Int64
}

// NewCameraSource pairs a camera with a detector. The source owns the
// camera between Start and Stop; the detector stays with the caller.
func NewCameraSource(camera Camera, det detector.Detector, opts SourceOptions) *CameraSource {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &CameraSource{
		camera:   camera,
		detector: det,
		opts:     opts,
		logger:   logger.With("component", "camera_source"),
	}
	if opts.MotionThreshold > 0 {
		s.gate = NewMotionGate(opts.MotionThreshold)
	}
	return s
}

// Start opens the camera and begins delivering frames to sink.
func (s *CameraSource) Start(ctx context.Context, sink pose.Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	s.camera.SetFPS(s.opts.FPS)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, sink, s.done)

	s.logger.Info("camera source started", "fps", s.opts.FPS)
	return nil
}

// Stop halts capture, waits for the capture goroutine and closes the camera.
func (s *CameraSource) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	if s.gate != nil {
		s.gate.Reset()
	}

	s.logger.Info("camera source stopped",
		"delivered", s.delivered.Load(),
		"refused", s.refused.Load(),
		"reused", s.reused.Load(),
	)
	return s.camera.Close()
}

// Close releases the motion gate. The source must be stopped.
func (s *CameraSource) Close() {
	if s.gate != nil {
		s.gate.Close()
	}
}

// Delivered returns how many frames the sink accepted.
func (s *CameraSource) Delivered() int64 { return s.delivered.Load() }

func (s *CameraSource) run(ctx context.Context, sink pose.Sink, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(s.opts.FPS))
	defer ticker.Stop()

	var last *pose.Frame
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f, err := s.next(last)
		if err != nil {
			failures++
			s.logger.Warn("frame capture failed", "error", err, "failures", failures)
			if failures >= s.opts.MaxFailures {
				sink.OnError(fmt.Errorf("%w: %w", pose.ErrSourceLost, err))
				return
			}
			continue
		}
		failures = 0
		last = f

		if sink.OnFrame(f) {
			s.delivered.Add(1)
		} else {
			s.refused.Add(1)
		}
	}
}

func (s *CameraSource) next(last *pose.Frame) (*pose.Frame, error) {
	mat, err := s.camera.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer mat.Close()

	now := time.Now()
	if s.gate != nil {
		moved, _ := s.gate.Moved(mat)
		if !moved && last != nil && last.PoseDetected {
			s.reused.Add(1)
			return &pose.Frame{Landmarks: last.Landmarks, PoseDetected: true, Timestamp: now}, nil
		}
	}

	f, err := s.detector.Detect(mat)
	if err != nil {
		return nil, fmt.Errorf("detect pose: %w", err)
	}
	if f.Timestamp.IsZero() {
		f = &pose.Frame{Landmarks: f.Landmarks, PoseDetected: f.PoseDetected, Timestamp: now}
	}
	return f, nil
}
