package pose

import (
	"context"
	"errors"
)

// ErrSourceLost is reported through Sink.OnError when a source can no longer
// deliver frames (camera unplugged, detector process died).
var ErrSourceLost = errors.New("pose source lost")

// Sink receives frames pushed by a Source.
type Sink interface {
	// OnFrame hands one frame to the consumer. It must not block; it returns
	// false when the consumer was busy and the frame was dropped.
	OnFrame(f *Frame) bool

	// OnError reports a failure the source cannot recover from.
	OnError(err error)
}

// Source pushes frames to a Sink between Start and Stop.
type Source interface {
	// Start begins delivering frames to sink. It returns an error if the
	// underlying device or detector is unavailable.
	Start(ctx context.Context, sink Sink) error

	// Stop halts delivery and releases the underlying resources. No call to
	// the sink happens after Stop returns.
	Stop() error
}

// Finite is implemented by sources that can run out of frames, such as
// recordings. Done is closed once the last frame has been handed to the
// sink, or when the source was stopped.
type Finite interface {
	Source
	Done() <-chan struct{}
}
