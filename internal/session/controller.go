package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/metrics"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/transform"
)

// Ticker drives the countdown and rest timers. Each receive on C is one
// second of session time.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct{ t *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

func newWallTicker() Ticker { return wallTicker{t: time.NewTicker(time.Second)} }

// Hooks are called from the controller loop. They must not call back into
// the controller's command methods.
type Hooks struct {
	OnStateChange  func(State)
	OnSetCompleted func(SetData)
	OnFinished     func(Summary)
}

// Option configures a Controller.
type Option func(*Controller)

// WithViewport maps frames to screen space before analysis. A nil smoother
// disables smoothing.
func WithViewport(v transform.Viewport, s *transform.Smoother) Option {
	return func(c *Controller) { c.pipeline = transform.NewPipeline(v, s) }
}

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records frame, rep and session metrics on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithHooks registers callbacks for state changes, finished sets and the
// end of the session.
func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.clock = now }
}

// WithTicker replaces the one-second ticker that drives the countdown and
// rest timers.
func WithTicker(newTicker func() Ticker) Option {
	return func(c *Controller) { c.newTicker = newTicker }
}

// WithFactory builds the exercise analyzer from f instead of the default
// thresholds.
func WithFactory(f *analyzer.Factory) Option {
	return func(c *Controller) { c.factory = f }
}

// WithUnattended confirms the manual checklist items, skips the countdown
// and skips rest periods. Body visibility is still checked from frames.
// Used for replays and headless runs.
func WithUnattended() Option {
	return func(c *Controller) { c.unattended = true }
}

type command struct {
	fn       func(*Machine) error
	reply    chan error
	readOnly bool
}

// Controller runs one training session. Frames, timer ticks and commands
// are all applied to the session by a single loop goroutine, so analysis
// never races with transitions. Controller implements pose.Sink.
type Controller struct {
	cfg        Config
	source     pose.Source
	logger     *slog.Logger
	metrics    *metrics.Manager
	hooks      Hooks
	clock      func() time.Time
	newTicker  func() Ticker
	factory    *analyzer.Factory
	pipeline   *transform.Pipeline
	unattended bool

	machine *Machine

	frames   chan *pose.Frame
	commands chan command
	errs     chan error
	quit     chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	summary *Summary

	dropped    atomic.Int64
	sourceOnce sync.Once
	sourceErr  error
	finishOnce sync.Once
	stopOnce   sync.Once
	stopErr    error
}

// NewController validates cfg and prepares a session fed by source.
func NewController(cfg Config, source pose.Source, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("nil pose source")
	}

	c := &Controller{
		cfg:       cfg,
		source:    source,
		clock:     time.Now,
		newTicker: newWallTicker,
		frames:    make(chan *pose.Frame),
		commands:  make(chan command),
		errs:      make(chan error, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.factory == nil {
		c.factory = analyzer.NewFactory(analyzer.DefaultThresholds())
	}

	m, err := NewMachine(cfg, c.factory.Create(cfg.ExerciseType), c.clock)
	if err != nil {
		return nil, err
	}
	c.machine = m
	c.logger = c.logger.With("session", m.ID().String(), "exercise", string(cfg.ExerciseType))
	return c, nil
}

// ID identifies the session.
func (c *Controller) ID() string { return c.machine.ID().String() }

// Start acquires the pose source and enters setup. If the source cannot be
// started the error wraps ErrSourceUnavailable, the session stays idle and
// Start may be called again.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("%w: session already started", ErrInvalidTransition)
	}
	if c.summary != nil {
		c.mu.Unlock()
		return ErrNotRunning
	}

	c.logger.Info("starting session", "reps", c.cfg.TargetReps, "sets", c.cfg.TargetSets)
	if err := c.source.Start(ctx, c); err != nil {
		c.mu.Unlock()
		c.logger.Warn("pose source unavailable", "error", err)
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if err := c.machine.BeginSetup(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.unattended {
		_ = c.machine.CheckItem(CheckCameraPositioned)
		_ = c.machine.CheckItem(CheckSpaceClear)
	}
	c.started = true
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.GaugeActiveSessions.Inc()
	}
	c.emitState()

	// A nil channel never fires, so endless sources keep the loop waiting.
	var ended <-chan struct{}
	if f, ok := c.source.(pose.Finite); ok {
		ended = f.Done()
	}

	go c.loop(ctx, ended)
	return nil
}

// OnFrame implements pose.Sink. The frame is handed to the loop only if
// the loop is idle; otherwise it is dropped and false is returned.
func (c *Controller) OnFrame(f *pose.Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		c.dropped.Add(1)
		if c.metrics != nil {
			c.metrics.CounterFramesDropped.Inc()
		}
		return false
	}
}

// OnError implements pose.Sink. The session ends in the errored phase.
func (c *Controller) OnError(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Dropped returns how many frames were refused because the loop was busy.
func (c *Controller) Dropped() int64 { return c.dropped.Load() }

// Done is closed when the session loop exits, either because the session
// reached a terminal phase or because Stop was called.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Pause suspends the session until Resume. Timers stop and frames are dropped.
func (c *Controller) Pause() error { return c.do(func(m *Machine) error { return m.Pause() }) }

// Resume returns to the phase that was paused and clears the smoothing
// history left from before the pause.
func (c *Controller) Resume() error {
	return c.do(func(m *Machine) error {
		if err := m.Resume(); err != nil {
			return err
		}
		if c.pipeline != nil {
			c.pipeline.Reset()
		}
		return nil
	})
}

// SkipCountdown starts the first set immediately.
func (c *Controller) SkipCountdown() error {
	return c.do(func(m *Machine) error { return m.SkipCountdown() })
}

// SkipRest ends the rest period and starts the next set.
func (c *Controller) SkipRest() error { return c.do(func(m *Machine) error { return m.SkipRest() }) }

// CheckItem marks a setup checklist item.
func (c *Controller) CheckItem(id string) error {
	return c.do(func(m *Machine) error { return m.CheckItem(id) })
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	var s State
	err := c.send(command{readOnly: true, fn: func(m *Machine) error {
		s = m.State()
		return nil
	}})
	if err == nil {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// Summary returns the final session record once the session has ended.
func (c *Controller) Summary() (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return Summary{}, false
	}
	return *c.summary, true
}

// Stop releases the pose source, ends the loop and finalizes the session,
// recording a partial set if reps were in progress. It is safe to call
// more than once and after the session finished on its own.
func (c *Controller) Stop() error {
	c.stopOnce.Do(func() {
		c.stopErr = c.releaseSource()

		c.mu.Lock()
		started := c.started
		c.mu.Unlock()
		if started {
			close(c.quit)
			<-c.done
		}

		c.mu.Lock()
		wasTerminal := c.machine.Phase().Terminal()
		sets := c.machine.CompletedSetCount()
		c.machine.Stop()
		partial := c.machine.CompletedSetCount() > sets
		c.mu.Unlock()
		if partial {
			c.setCompleted()
		}
		if !wasTerminal {
			c.emitState()
		}
		c.finish()
	})
	return c.stopErr
}

// do runs fn on the loop and waits for its result.
func (c *Controller) do(fn func(*Machine) error) error {
	return c.send(command{fn: fn})
}

func (c *Controller) send(cmd command) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return ErrNotRunning
	}

	cmd.reply = make(chan error, 1)
	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrNotRunning
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrNotRunning
	}
}

func (c *Controller) loop(ctx context.Context, ended <-chan struct{}) {
	defer close(c.done)

	ticker := c.newTicker()
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return

		case <-ctx.Done():
			c.logger.Info("session context done", "error", ctx.Err())
			c.stopMachine()

		case <-ended:
			// Frames handed over before the source finished were already
			// applied, since the frames channel is unbuffered.
			ended = nil
			if !c.machine.Phase().Terminal() {
				c.logger.Info("pose source ran out of frames")
				c.stopMachine()
			}

		case f := <-c.frames:
			c.handleFrame(f)

		case <-ticker.C():
			before := c.machine.Phase()
			c.machine.Tick()
			if c.machine.Phase() != before || before == PhaseCountdown || before == PhaseRest {
				c.emitState()
			}

		case cmd := <-c.commands:
			before := c.machine.Phase()
			err := cmd.fn(c.machine)
			cmd.reply <- err
			if after := c.machine.Phase(); after != before {
				c.logger.Info("session phase changed", "from", before, "to", after)
			}
			if err == nil && !cmd.readOnly {
				c.emitState()
			}

		case err := <-c.errs:
			c.logger.Error("pose source failed", "error", err)
			c.machine.Fail(err)
			c.emitState()
		}

		c.advanceUnattended()

		if c.machine.Phase().Terminal() {
			if err := c.releaseSource(); err != nil {
				c.logger.Warn("stop pose source", "error", err)
			}
			c.finish()
			return
		}
	}
}

// stopMachine ends the session from the loop, reporting a partial set the
// same way a completed one is reported.
func (c *Controller) stopMachine() {
	sets := c.machine.CompletedSetCount()
	c.machine.Stop()
	if c.machine.CompletedSetCount() > sets {
		c.setCompleted()
	}
	c.emitState()
}

func (c *Controller) advanceUnattended() {
	if !c.unattended {
		return
	}
	switch c.machine.Phase() {
	case PhaseCountdown:
		_ = c.machine.SkipCountdown()
	case PhaseRest:
		_ = c.machine.SkipRest()
	default:
		return
	}
	c.emitState()
}

func (c *Controller) handleFrame(f *pose.Frame) {
	if !c.machine.AcceptsFrames() {
		c.countFrame(metrics.FrameSkipped)
		return
	}

	start := time.Now()
	if c.pipeline != nil {
		f = c.pipeline.Apply(f)
	}

	sets := c.machine.CompletedSetCount()
	phase := c.machine.Phase()
	r, handled := c.machine.HandleFrame(f)
	if !handled {
		c.countFrame(metrics.FrameSkipped)
		return
	}

	if c.metrics != nil {
		c.metrics.HistFrameDuration.Observe(time.Since(start).Seconds())
	}
	if phase == PhaseActive {
		c.recordResult(r)
	}

	if c.machine.CompletedSetCount() > sets {
		c.setCompleted()
	}
	if phase == PhaseActive || c.machine.Phase() != phase {
		c.emitState()
	}
}

func (c *Controller) recordResult(r analyzer.FrameResult) {
	if r.Neutral {
		c.countFrame(metrics.FrameNeutral)
		return
	}
	c.countFrame(metrics.FrameAnalyzed)
	if c.metrics == nil {
		return
	}
	for _, i := range r.Issues {
		c.metrics.CounterIssues.WithLabelValues(string(i.Type), i.Priority.String()).Inc()
	}
	if r.RepCompleted {
		exercise := string(c.cfg.ExerciseType)
		c.metrics.CounterReps.WithLabelValues(exercise).Inc()
		c.metrics.HistRepScore.WithLabelValues(exercise).Observe(r.RepScore)
	}
}

func (c *Controller) setCompleted() {
	set, ok := c.machine.LastSet()
	if !ok {
		return
	}
	c.logger.Info("set completed", "set", set.SetNumber, "reps", set.Reps, "average_score", set.AverageScore)
	if c.metrics != nil {
		c.metrics.CounterSets.WithLabelValues(string(c.cfg.ExerciseType)).Inc()
	}
	if c.hooks.OnSetCompleted != nil {
		c.hooks.OnSetCompleted(set)
	}
}

func (c *Controller) countFrame(result string) {
	if c.metrics != nil {
		c.metrics.CounterFrames.WithLabelValues(result).Inc()
	}
}

func (c *Controller) emitState() {
	if c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(c.machine.State())
	}
}

// releaseSource stops the pose source exactly once.
func (c *Controller) releaseSource() error {
	c.sourceOnce.Do(func() {
		c.mu.Lock()
		started := c.started
		c.mu.Unlock()
		if started {
			c.sourceErr = c.source.Stop()
		}
	})
	return c.sourceErr
}

// finish records the summary and notifies the hooks once.
func (c *Controller) finish() {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		summary := c.machine.Summary()
		c.summary = &summary
		started := c.started
		c.mu.Unlock()

		c.logger.Info("session finished",
			"outcome", summary.Outcome,
			"sets", len(summary.CompletedSets),
			"reps", summary.TotalReps(),
		)
		if c.metrics != nil {
			if started {
				c.metrics.GaugeActiveSessions.Dec()
			}
			c.metrics.CounterSessions.WithLabelValues(string(summary.Outcome)).Inc()
		}
		if c.hooks.OnFinished != nil {
			c.hooks.OnFinished(summary)
		}
	})
}
