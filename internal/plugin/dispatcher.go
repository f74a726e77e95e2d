package plugin

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/formcoach/internal/metrics"
)

// Plugin run results recorded in CounterPluginRuns.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
	ResultError  = "error"
)

// Dispatcher delivers events to subscribed plugins in the background so a
// slow plugin never holds up the session.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger
	metrics  *metrics.Manager

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher for the plugins m has discovered. Each
// run is limited to timeout. mm may be nil.
func NewDispatcher(m *Manager, timeout time.Duration, logger *slog.Logger, mm *metrics.Manager) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		manager:  m,
		executor: NewExecutor(timeout),
		logger:   logger.With("component", "plugins"),
		metrics:  mm,
	}
}

// Dispatch starts every plugin subscribed to event and returns how many
// were started. Data is encoded once and shared by all of them.
func (d *Dispatcher) Dispatch(event, sessionID, exercise string, data any) int {
	plugins := d.manager.Subscribers(event)
	if len(plugins) == 0 {
		return 0
	}

	raw, err := json.Marshal(data)
	if err != nil {
		d.logger.Error("encode plugin event", "event", event, "error", err)
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}

	for _, p := range plugins {
		req := &Request{Event: event, SessionID: sessionID, Exercise: exercise, Data: raw}
		d.wg.Add(1)
		go func(p *Plugin) {
			defer d.wg.Done()
			d.run(p, req)
		}(p)
	}
	return len(plugins)
}

func (d *Dispatcher) run(p *Plugin, req *Request) {
	name := p.Manifest.Name
	resp, err := d.executor.Execute(context.Background(), p, req)
	switch {
	case err != nil:
		d.logger.Warn("plugin run failed", "plugin", name, "event", req.Event, "error", err)
		d.count(name, ResultError)
	case !resp.Success:
		d.logger.Warn("plugin reported failure", "plugin", name, "event", req.Event, "error", resp.Error)
		d.count(name, ResultFailed)
	default:
		d.logger.Debug("plugin ran", "plugin", name, "event", req.Event)
		d.count(name, ResultOK)
	}
}

func (d *Dispatcher) count(name, result string) {
	if d.metrics != nil {
		d.metrics.CounterPluginRuns.WithLabelValues(name, result).Inc()
	}
}

// Close stops accepting events and waits for running plugins. Each run is
// bounded by the executor timeout.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
