package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcoach/internal/detector"
	"github.com/ayusman/formcoach/internal/pose"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSink struct {
	mu     sync.Mutex
	frames []*pose.Frame
	errs   []error
	refuse bool
}

func (s *recordingSink) OnFrame(f *pose.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return false
	}
	s.frames = append(s.frames, f)
	return true
}

func (s *recordingSink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestCamera(t *testing.T) *MockCamera {
	t.Helper()
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return NewMockCamera([]*gocv.Mat{&frame}, true)
}

func TestCameraSource_DeliversDetectedFrames(t *testing.T) {
	cam := newTestCamera(t)
	det := detector.NewMockDetector()
	standing := pose.SquatPose(170, 5)
	bottom := pose.SquatPose(90, 20)
	det.Queue(standing, bottom)

	src := NewCameraSource(cam, det, SourceOptions{FPS: 200})
	sink := &recordingSink{}

	if err := src.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "three frames", func() bool { return sink.frameCount() >= 3 })

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	n := sink.frameCount()

	if cam.IsOpen() {
		t.Error("camera should be closed after Stop")
	}
	if cam.FPS() != 200 {
		t.Errorf("camera FPS = %d, want 200", cam.FPS())
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.frames[0] != standing || sink.frames[1] != bottom {
		t.Error("frames should arrive in detection order")
	}
	if sink.frames[2] != bottom {
		t.Error("mock detector should repeat its last frame")
	}

	time.Sleep(20 * time.Millisecond)
	if len(sink.frames) != n {
		t.Error("no frame may reach the sink after Stop returns")
	}
	if src.Delivered() != int64(n) {
		t.Errorf("Delivered() = %d, want %d", src.Delivered(), n)
	}
}

func TestCameraSource_RefusedFramesAreDropped(t *testing.T) {
	cam := newTestCamera(t)
	det := detector.NewMockDetector()
	det.Queue(pose.SquatPose(170, 5))

	src := NewCameraSource(cam, det, SourceOptions{FPS: 200})
	sink := &recordingSink{refuse: true}

	if err := src.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "detector calls", func() bool { return det.Calls() >= 3 })
	src.Stop()

	if src.Delivered() != 0 {
		t.Errorf("Delivered() = %d, want 0", src.Delivered())
	}
	if sink.errorCount() != 0 {
		t.Error("a busy sink is not a source failure")
	}
}

func TestCameraSource_LostAfterConsecutiveFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*MockCamera, *detector.MockDetector, error)
	}{
		{
			name:  "camera reads fail",
			setup: func(c *MockCamera, _ *detector.MockDetector, err error) { c.FailReads(err) },
		},
		{
			name:  "detector fails",
			setup: func(_ *MockCamera, d *detector.MockDetector, err error) { d.SetError(err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := newTestCamera(t)
			det := detector.NewMockDetector()
			cause := errors.New("device gone")
			tt.setup(cam, det, cause)

			src := NewCameraSource(cam, det, SourceOptions{FPS: 200, MaxFailures: 3})
			sink := &recordingSink{}

			if err := src.Start(context.Background(), sink); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			waitFor(t, "source error", func() bool { return sink.errorCount() > 0 })
			src.Stop()

			sink.mu.Lock()
			defer sink.mu.Unlock()
			if len(sink.errs) != 1 {
				t.Fatalf("got %d errors, want exactly 1", len(sink.errs))
			}
			if !errors.Is(sink.errs[0], pose.ErrSourceLost) {
				t.Errorf("error = %v, want ErrSourceLost", sink.errs[0])
			}
			if !errors.Is(sink.errs[0], cause) {
				t.Errorf("error = %v, want it to wrap the cause", sink.errs[0])
			}
			if len(sink.frames) != 0 {
				t.Errorf("got %d frames, want none", len(sink.frames))
			}
		})
	}
}

func TestCameraSource_TransientFailuresRecover(t *testing.T) {
	cam := newTestCamera(t)
	det := detector.NewMockDetector()
	det.Queue(pose.SquatPose(170, 5))
	det.SetError(errors.New("hiccup"))

	src := NewCameraSource(cam, det, SourceOptions{FPS: 200, MaxFailures: 50})
	sink := &recordingSink{}

	if err := src.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "failed detections", func() bool { return det.Calls() >= 2 })
	det.SetError(nil)
	waitFor(t, "a frame", func() bool { return sink.frameCount() > 0 })
	src.Stop()

	if sink.errorCount() != 0 {
		t.Error("transient failures should not end the source")
	}
}

func TestCameraSource_StartErrors(t *testing.T) {
	t.Run("camera unavailable", func(t *testing.T) {
		cam := NewMockCamera(nil, true)
		cause := errors.New("no device")
		cam.FailOpen(cause)

		src := NewCameraSource(cam, detector.NewMockDetector(), SourceOptions{})
		err := src.Start(context.Background(), &recordingSink{})
		if !errors.Is(err, cause) {
			t.Fatalf("Start() error = %v, want %v", err, cause)
		}
		if err := src.Stop(); err != nil {
			t.Errorf("Stop() after failed Start error = %v", err)
		}

		// The source can be retried once the device is back.
		cam.FailOpen(nil)
		if err := src.Start(context.Background(), &recordingSink{}); err != nil {
			t.Fatalf("retry Start() error = %v", err)
		}
		src.Stop()
	})

	t.Run("already started", func(t *testing.T) {
		cam := newTestCamera(t)
		src := NewCameraSource(cam, detector.NewMockDetector(), SourceOptions{FPS: 100})
		if err := src.Start(context.Background(), &recordingSink{}); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer src.Stop()

		if err := src.Start(context.Background(), &recordingSink{}); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
		}
	})
}

func TestCameraSource_StopIsIdempotent(t *testing.T) {
	cam := newTestCamera(t)
	src := NewCameraSource(cam, detector.NewMockDetector(), SourceOptions{FPS: 100})

	if err := src.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
	if err := src.Start(context.Background(), &recordingSink{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	src.Stop()
	src.Stop()

	if cam.Closes() != 1 {
		t.Errorf("camera closed %d times, want 1", cam.Closes())
	}
}

func TestCameraSource_ContextCancelStopsCapture(t *testing.T) {
	cam := newTestCamera(t)
	det := detector.NewMockDetector()
	src := NewCameraSource(cam, det, SourceOptions{FPS: 200})

	ctx, cancel := context.WithCancel(context.Background())
	if err := src.Start(ctx, &recordingSink{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "a detection", func() bool { return det.Calls() > 0 })
	cancel()
	time.Sleep(20 * time.Millisecond)

	calls := det.Calls()
	time.Sleep(30 * time.Millisecond)
	if det.Calls() != calls {
		t.Error("capture should stop once the context is cancelled")
	}
	src.Stop()
}

func TestCameraSource_MotionGateReusesStillPose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	cam := newTestCamera(t)
	det := detector.NewMockDetector()
	det.Queue(pose.SquatPose(170, 5))

	src := NewCameraSource(cam, det, SourceOptions{FPS: 200, MotionThreshold: 1})
	defer src.Close()
	sink := &recordingSink{}

	if err := src.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "frames", func() bool { return sink.frameCount() >= 12 })
	src.Stop()

	if det.Calls() >= sink.frameCount() {
		t.Errorf("detector ran %d times for %d identical frames, want fewer", det.Calls(), sink.frameCount())
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, f := range sink.frames {
		if !f.PoseDetected || len(f.Landmarks) != pose.NumLandmarks {
			t.Fatalf("frame %d lost its pose", i)
		}
	}
}
