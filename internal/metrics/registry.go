// Package metrics exposes Prometheus instrumentation for simulation runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionflight/internal/telemetry"
)

const namespace = "optionflight"

// Registry holds all Prometheus metrics for optionflight
type Registry struct {
	reg *prometheus.Registry

	// Telemetry metrics
	StepsTotal  *prometheus.CounterVec
	RegimeSteps *prometheus.CounterVec
	FlagSteps   *prometheus.CounterVec
	MaxLoad     *prometheus.HistogramVec
	RunDuration *prometheus.HistogramVec
	RunsTotal   *prometheus.CounterVec
	RunErrors   *prometheus.CounterVec
	BreachRate  *prometheus.GaugeVec
	ActiveRuns  prometheus.Gauge
	StreamConns prometheus.Gauge
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewRegistry creates a registry with all optionflight metrics registered
func NewRegistry() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of telemetry steps computed",
			},
			[]string{"path_type"},
		),

		RegimeSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "regime_steps_total",
				Help:      "Telemetry steps by classified regime",
			},
			[]string{"path_type", "regime"},
		),

		FlagSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flag_steps_total",
				Help:      "Telemetry steps carrying each warning flag",
			},
			[]string{"path_type", "flag"},
		),

		MaxLoad: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_max_load",
				Help:      "Maximum load factor (y) reached per run",
				Buckets:   []float64{0.25, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 4.0, 6.0},
			},
			[]string{"path_type"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of scenario and Monte Carlo runs in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"kind", "result"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of completed runs",
			},
			[]string{"kind", "path_type"},
		),

		RunErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "run_errors_total",
				Help:      "Total number of failed runs by stage",
			},
			[]string{"stage"},
		),

		BreachRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "montecarlo_breach_rate",
				Help:      "Breach rate (0.0 to 1.0) of the last Monte Carlo batch",
			},
			[]string{"path_type"},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Number of currently executing runs",
			},
		),

		StreamConns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_connections",
				Help:      "Open websocket replay connections",
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summary_cache_hits_total",
				Help:      "Monte Carlo summaries served from cache",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summary_cache_misses_total",
				Help:      "Monte Carlo summaries computed after a cache miss",
			},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StepsTotal,
		m.RegimeSteps,
		m.FlagSteps,
		m.MaxLoad,
		m.RunDuration,
		m.RunsTotal,
		m.RunErrors,
		m.BreachRate,
		m.ActiveRuns,
		m.StreamConns,
		m.CacheHits,
		m.CacheMisses,
	)

	return m
}

// Gatherer exposes the underlying registry for scraping and tests
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRecords records per-step counters and the max load of one run
func (m *Registry) ObserveRecords(pathType string, records []telemetry.Record) {
	if len(records) == 0 {
		return
	}
	maxLoad := records[0].Y
	for _, rec := range records {
		m.RegimeSteps.WithLabelValues(pathType, rec.Regime.String()).Inc()
		for _, f := range rec.Flags.List() {
			m.FlagSteps.WithLabelValues(pathType, f.String()).Inc()
		}
		if rec.Y > maxLoad {
			maxLoad = rec.Y
		}
	}
	m.StepsTotal.WithLabelValues(pathType).Add(float64(len(records)))
	m.MaxLoad.WithLabelValues(pathType).Observe(maxLoad)
}

// RunTimer tracks execution time for a run
type RunTimer struct {
	metrics  *Registry
	kind     string
	pathType string
	start    time.Time
}

// StartRun begins timing a run and increments the active gauge
func (m *Registry) StartRun(kind, pathType string) *RunTimer {
	m.ActiveRuns.Inc()
	return &RunTimer{metrics: m, kind: kind, pathType: pathType, start: time.Now()}
}

// Stop completes the run timing; a non-nil err is counted as a failure
func (rt *RunTimer) Stop(err error) {
	duration := time.Since(rt.start)
	rt.metrics.ActiveRuns.Dec()

	result := "success"
	if err != nil {
		result = "error"
		rt.metrics.RunErrors.WithLabelValues(rt.kind).Inc()
	} else {
		rt.metrics.RunsTotal.WithLabelValues(rt.kind, rt.pathType).Inc()
	}
	rt.metrics.RunDuration.WithLabelValues(rt.kind, result).Observe(duration.Seconds())

	log.Debug().
		Str("kind", rt.kind).
		Str("path_type", rt.pathType).
		Str("result", result).
		Dur("duration", duration).
		Msg("Run completed")
}

// SetBreachRate publishes the breach rate of a Monte Carlo batch
func (m *Registry) SetBreachRate(pathType string, rate float64) {
	m.BreachRate.WithLabelValues(pathType).Set(rate)
}

// RecordCacheHit counts a summary served from cache
func (m *Registry) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss counts a summary that had to be computed
func (m *Registry) RecordCacheMiss() {
	m.CacheMisses.Inc()
}
