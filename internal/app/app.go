// Package app wires configuration, storage, the live feed and training
// sessions together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/capture"
	"github.com/ayusman/formcoach/internal/config"
	"github.com/ayusman/formcoach/internal/detector"
	"github.com/ayusman/formcoach/internal/metrics"
	"github.com/ayusman/formcoach/internal/plugin"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/server"
	"github.com/ayusman/formcoach/internal/server/api"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/store"
)

// LastSessionKey is the settings key holding the most recent session config.
const LastSessionKey = "last_session"

// ErrSessionRunning is returned when a session is started while another is
// still in progress.
var ErrSessionRunning = errors.New("a session is already running")

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used by the app and everything it creates.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithStore uses an already opened store. The caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithDetector replaces the MediaPipe detector used for camera sessions.
// The caller keeps ownership.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithStaticDir serves a dashboard from dir.
func WithStaticDir(dir string) Option {
	return func(a *App) { a.staticDir = dir }
}

// WithStateObserver registers fn to receive every session state change,
// after the live feed has been updated.
func WithStateObserver(fn func(session.State)) Option {
	return func(a *App) { a.observers = append(a.observers, fn) }
}

// WithSessionOptions appends controller options to every session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(a *App) { a.sessionOpts = append(a.sessionOpts, opts...) }
}

// App owns the long-lived resources of a formcoach process.
type App struct {
	config      *config.Config
	logger      *slog.Logger
	store       *store.Store
	ownsStore   bool
	registry    *prometheus.Registry
	metrics     *metrics.Manager
	hub         *server.Hub
	plugins     *plugin.Dispatcher
	server      *server.Server
	factory     *analyzer.Factory
	staticDir   string
	observers   []func(session.State)
	sessionOpts []session.Option

	detMu        sync.Mutex
	detector     detector.Detector
	ownsDetector bool

	mu      sync.RWMutex
	current *session.Controller
}

// New opens the store named in cfg (unless one is supplied) and builds the
// metrics registry, live feed and HTTP server.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	if a.store == nil {
		st, err := store.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		a.ownsStore = true
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewManager("formcoach", "", a.registry)
	a.factory = analyzer.NewFactory(cfg.Thresholds)
	a.hub = server.NewHub(a.logger, a.metrics)

	pm := plugin.NewManager(cfg.Plugins.Dir, a.logger)
	if err := pm.Discover(); err != nil {
		a.logger.Warn("discover plugins", "dir", cfg.Plugins.Dir, "error", err)
	} else if n := len(pm.List()); n > 0 {
		a.logger.Info("loaded event plugins", "dir", cfg.Plugins.Dir, "count", n)
	}
	a.plugins = plugin.NewDispatcher(pm, cfg.PluginTimeout(), a.logger, a.metrics)
	a.server = server.New(server.Config{
		StaticDir: a.staticDir,
		Store:     a.store,
		Hub:       a.hub,
		Live:      a,
		Gatherer:  a.registry,
		Logger:    a.logger,
	})

	return a, nil
}

// Store returns the session history store.
func (a *App) Store() *store.Store { return a.store }

// Metrics returns the app's instruments.
func (a *App) Metrics() *metrics.Manager { return a.metrics }

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler { return a.server }

// Serve runs the HTTP API on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	return a.server.Run(ctx, a.config.Server.Addr)
}

// Current returns the running session, if any.
func (a *App) Current() (api.LiveSession, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil || finished(a.current) {
		return nil, false
	}
	return a.current, true
}

func finished(c *session.Controller) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

// SessionConfig fills unset fields of cfg from the last session and then
// from the app configuration.
func (a *App) SessionConfig(cfg session.Config) session.Config {
	if last, ok := a.LastSessionConfig(); ok {
		if cfg.ExerciseType == "" {
			cfg.ExerciseType = last.ExerciseType
		}
		if cfg.TargetReps == 0 {
			cfg.TargetReps = last.TargetReps
		}
		if cfg.TargetSets == 0 {
			cfg.TargetSets = last.TargetSets
		}
	}
	if cfg.RestDuration == 0 {
		cfg.RestDuration = a.config.RestDuration()
	}
	return cfg
}

// LastSessionConfig returns the config of the most recently started session.
func (a *App) LastSessionConfig() (session.Config, bool) {
	var cfg session.Config
	if err := a.store.Settings().Get(LastSessionKey, &cfg); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("read last session", "error", err)
		}
		return session.Config{}, false
	}
	return cfg, true
}

// CameraSource opens the pose detector if needed and pairs it with the
// configured camera.
func (a *App) CameraSource() (*capture.CameraSource, error) {
	det, err := a.poseDetector()
	if err != nil {
		return nil, err
	}

	cam := capture.NewCamera(capture.CameraOptions{
		DeviceID: a.config.Camera.DeviceID,
		Width:    a.config.Camera.Width,
		Height:   a.config.Camera.Height,
		FPS:      a.config.Camera.FPS,
	})
	return capture.NewCameraSource(cam, det, capture.SourceOptions{
		FPS:             a.config.Camera.FPS,
		MotionThreshold: a.config.Camera.MotionThreshold,
		Logger:          a.logger,
	}), nil
}

func (a *App) poseDetector() (detector.Detector, error) {
	a.detMu.Lock()
	defer a.detMu.Unlock()

	if a.detector != nil {
		return a.detector, nil
	}

	dc := detector.DefaultConfig()
	dc.Python = a.config.Detector.Python
	dc.Script = a.config.Detector.Script
	dc.ModelComplexity = a.config.Detector.ModelComplexity
	dc.MinDetectionConf = a.config.Detector.MinDetection
	dc.MinTrackingConf = a.config.Detector.MinTracking

	mp, err := detector.NewMediaPipeDetector(dc)
	if err != nil {
		return nil, fmt.Errorf("start pose detector: %w", err)
	}
	a.logger.Info("using MediaPipe pose detection")
	a.detector = mp
	a.ownsDetector = true
	return mp, nil
}

// StartSession starts a training session fed by src. Unattended sessions
// skip the countdown, rest periods and manual checklist items, which suits
// recorded input.
func (a *App) StartSession(ctx context.Context, cfg session.Config, src pose.Source, unattended bool) (*session.Controller, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil && !finished(a.current) {
		return nil, ErrSessionRunning
	}

	var ctrl *session.Controller
	opts := []session.Option{
		session.WithLogger(a.logger),
		session.WithMetrics(a.metrics),
		session.WithFactory(a.factory),
		session.WithViewport(a.config.Viewport(), a.config.Smoother()),
		session.WithHooks(a.hooks(cfg, func() string { return ctrl.ID() })),
	}
	if unattended {
		opts = append(opts, session.WithUnattended())
	}
	opts = append(opts, a.sessionOpts...)

	ctrl, err := session.NewController(cfg, src, opts...)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}

	if err := a.store.Settings().Put(LastSessionKey, cfg); err != nil {
		a.logger.Warn("remember session config", "error", err)
	}
	a.current = ctrl
	return ctrl, nil
}

// RunSession starts a session and blocks until it finishes or ctx is done,
// then returns its summary.
func (a *App) RunSession(ctx context.Context, cfg session.Config, src pose.Source, unattended bool) (session.Summary, error) {
	ctrl, err := a.StartSession(ctx, cfg, src, unattended)
	if err != nil {
		return session.Summary{}, err
	}

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
	}

	stopErr := ctrl.Stop()
	sum, ok := ctrl.Summary()
	if !ok {
		return session.Summary{}, multierr.Append(stopErr, errors.New("session ended without a summary"))
	}
	return sum, stopErr
}

// hooks fans session events out to the live feed, the store and plugins.
// sessionID is only called once the controller is running.
func (a *App) hooks(cfg session.Config, sessionID func() string) session.Hooks {
	exercise := string(cfg.ExerciseType)
	return session.Hooks{
		OnStateChange: func(s session.State) {
			a.hub.Broadcast(server.Message{Type: server.MessageState, Data: s})
			for _, fn := range a.observers {
				fn(s)
			}
		},
		OnSetCompleted: func(set session.SetData) {
			a.hub.Broadcast(server.Message{Type: server.MessageSetCompleted, Data: set})
			a.plugins.Dispatch(plugin.EventSetCompleted, sessionID(), exercise, set)
		},
		OnFinished: func(sum session.Summary) {
			if err := a.store.Sessions().Save(sum); err != nil {
				a.logger.Error("save session", "session", sum.ID, "error", err)
			}
			a.hub.Broadcast(server.Message{Type: server.MessageFinished, Data: sum})
			a.plugins.Dispatch(plugin.EventSessionFinished, sum.ID.String(), exercise, sum)
		},
	}
}

// Close stops any running session, waits for event plugins and releases
// the detector, the live feed and the store.
func (a *App) Close() error {
	var err error

	a.mu.Lock()
	ctrl := a.current
	a.current = nil
	a.mu.Unlock()
	if ctrl != nil {
		err = multierr.Append(err, ctrl.Stop())
	}

	a.hub.Close()
	a.plugins.Close()

	a.detMu.Lock()
	if a.detector != nil && a.ownsDetector {
		err = multierr.Append(err, a.detector.Close())
	}
	a.detector = nil
	a.detMu.Unlock()

	if a.ownsStore {
		err = multierr.Append(err, a.store.Close())
	}
	return err
}
