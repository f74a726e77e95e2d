// Package metrics exposes Prometheus instruments for the training loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame results recorded in CounterFrames.
const (
	FrameAnalyzed = "analyzed"
	FrameNeutral  = "neutral"
	FrameSkipped  = "skipped"
)

// Manager holds the Prometheus collectors for frames, reps, sessions and
// plugin runs.
type Manager struct {
	// counters
	CounterFrames        *prometheus.CounterVec
	CounterFramesDropped prometheus.Counter
	CounterReps          *prometheus.CounterVec
	CounterSets          *prometheus.CounterVec
	CounterIssues        *prometheus.CounterVec
	CounterSessions      *prometheus.CounterVec
	CounterLiveDropped   prometheus.Counter
	CounterPluginRuns    *prometheus.CounterVec

	// gauges
	GaugeActiveSessions prometheus.Gauge
	GaugeLiveClients    prometheus.Gauge

	// histograms
	HistFrameDuration prometheus.Histogram
	HistRepScore      *prometheus.HistogramVec
}

// NewTestManager returns a Manager on a private registry.
func NewTestManager() *Manager {
	return NewManager("formcoach", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("formcoach", "test", reg), reg
}

// NewManager registers the collectors on reg under namespace and subsystem.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames",
		Help:      "The total number of pose frames handled, by result",
	}, []string{"result"})
	counterFramesDropped := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_dropped",
		Help:      "Frames dropped because the previous frame was still being analyzed",
	})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps",
		Help:      "The total number of completed repetitions",
	}, []string{"exercise"})
	counterSets := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets",
		Help:      "The total number of completed sets",
	}, []string{"exercise"})
	counterIssues := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "form_issues",
		Help:      "Frames reporting a form issue",
	}, []string{"issue", "priority"})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions",
		Help:      "Finished training sessions by outcome",
	}, []string{"outcome"})
	counterLiveDropped := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_updates_dropped",
		Help:      "Live state updates dropped for slow websocket clients",
	})
	counterPluginRuns := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "plugin_runs",
		Help:      "Event plugin invocations by plugin and result",
	}, []string{"plugin", "result"})

	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Sessions currently running",
	})
	gaugeLiveClients := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_clients",
		Help:      "Connected live feed clients",
	})

	histFrameDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frame_analysis_duration_seconds",
		Help:      "Time spent transforming and analyzing one frame",
		Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	histRepScore := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rep_score",
		Help:      "Distribution of per-rep form scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}, []string{"exercise"})

	return &Manager{
		CounterFrames:        counterFrames,
		CounterFramesDropped: counterFramesDropped,
		CounterReps:          counterReps,
		CounterSets:          counterSets,
		CounterIssues:        counterIssues,
		CounterSessions:      counterSessions,
		CounterLiveDropped:   counterLiveDropped,
		CounterPluginRuns:    counterPluginRuns,
		GaugeActiveSessions:  gaugeActiveSessions,
		GaugeLiveClients:     gaugeLiveClients,
		HistFrameDuration:    histFrameDuration,
		HistRepScore:         histRepScore,
	}
}
