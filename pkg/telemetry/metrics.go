package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the intelligence service. A
// disabled Metrics value is a safe no-op.
type Metrics struct {
	config MetricsConfig

	// Engine metrics
	engineCalls    *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec
	fallbacksUsed  *prometheus.CounterVec

	// Orchestration metrics
	intelligenceGenerated prometheus.Counter
	generateDuration      prometheus.Histogram

	// Cache metrics
	cacheOps *prometheus.CounterVec

	// Breaker metrics
	breakerState *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		engineCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "engine_calls_total",
				Help:      "Total number of analysis engine calls",
			},
			[]string{"engine", "status"},
		),
		engineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "engine_duration_seconds",
				Help:      "Duration of analysis engine calls in seconds",
				Buckets:   buckets,
			},
			[]string{"engine"},
		),
		fallbacksUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "engine_fallbacks_total",
				Help:      "Total number of fallback values substituted for failed engines",
			},
			[]string{"engine", "reason"},
		),
		intelligenceGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "intelligence_generated_total",
				Help:      "Total number of intelligence snapshots generated",
			},
		),
		generateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "generate_duration_seconds",
				Help:      "End-to-end duration of intelligence generation in seconds",
				Buckets:   buckets,
			},
		),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_operations_total",
				Help:      "Result cache operations by outcome",
			},
			[]string{"result"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state per target (0=closed, 1=open, 2=half-open)",
			},
			[]string{"target"},
		),
	}

	registry.MustRegister(
		m.engineCalls,
		m.engineDuration,
		m.fallbacksUsed,
		m.intelligenceGenerated,
		m.generateDuration,
		m.cacheOps,
		m.breakerState,
	)

	return m, nil
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEngineCall records one engine call outcome and its duration.
func (m *Metrics) RecordEngineCall(engine, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.engineCalls.WithLabelValues(engine, status).Inc()
	m.engineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordFallback records a fallback substitution for a failed engine.
func (m *Metrics) RecordFallback(engine, reason string) {
	if m.registry == nil {
		return
	}
	m.fallbacksUsed.WithLabelValues(engine, reason).Inc()
}

// RecordGenerate records one completed intelligence generation.
func (m *Metrics) RecordGenerate(duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.intelligenceGenerated.Inc()
	m.generateDuration.Observe(duration.Seconds())
}

// RecordCacheHit records a result cache hit.
func (m *Metrics) RecordCacheHit() {
	if m.registry == nil {
		return
	}
	m.cacheOps.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a result cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m.registry == nil {
		return
	}
	m.cacheOps.WithLabelValues("miss").Inc()
}

// SetBreakerState records the current circuit state for a target.
func (m *Metrics) SetBreakerState(target string, state float64) {
	if m.registry == nil {
		return
	}
	m.breakerState.WithLabelValues(target).Set(state)
}
