package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcoach/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It replays queued frames in order and repeats the last one once the
// queue is drained.
type MockDetector struct {
	mu     sync.Mutex
	frames []*pose.Frame
	last   *pose.Frame
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// Queue appends frames to be returned by subsequent Detect calls.
func (m *MockDetector) Queue(frames ...*pose.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// SetError sets the error that will be returned by Detect. A nil error
// resumes normal operation.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Detect returns the next queued frame or the configured error. With an
// empty queue and nothing returned yet it reports no pose.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	if len(m.frames) > 0 {
		m.last = m.frames[0]
		m.frames = m.frames[1:]
	}
	if m.last == nil {
		return pose.EmptyFrame(time.Now()), nil
	}
	return m.last, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
