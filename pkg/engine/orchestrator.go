package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kafaat/sahool-intel/pkg/astral"
	"github.com/kafaat/sahool-intel/pkg/breaker"
	"github.com/kafaat/sahool-intel/pkg/telemetry"
)

// DefaultEngineTimeout bounds a single engine call inside the fan-out.
const DefaultEngineTimeout = 45 * time.Second

// Orchestrator coordinates the six analysis engines into one unified
// intelligence snapshot per field and day. Generate is total: every failure
// mode inside the fan-out degrades to documented fallback values instead of
// surfacing an error.
type Orchestrator struct {
	engines map[Kind]Engine
	breaker *breaker.Breaker
	cache   ResultCache
	events  EventSink
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	timeout time.Duration
	clock   func() time.Time

	risk      *RiskAssessor
	optimizer *TaskOptimizer

	group singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEngine registers or replaces the engine for its kind.
func WithEngine(e Engine) Option {
	return func(o *Orchestrator) { o.engines[e.Kind()] = e }
}

// WithCache wires the result cache.
func WithCache(c ResultCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithEvents wires the event sink.
func WithEvents(s EventSink) Option {
	return func(o *Orchestrator) { o.events = s }
}

// WithLogger wires the logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics wires the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer wires the tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithEngineTimeout overrides the per-engine call timeout.
func WithEngineTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBreakerSettings overrides the circuit breaker configuration.
func WithBreakerSettings(s breaker.Settings) Option {
	return func(o *Orchestrator) { o.breaker = breaker.New(s) }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithIntegrator overrides the lunar integrator used for task optimization.
func WithIntegrator(i *astral.Integrator) Option {
	return func(o *Orchestrator) { o.optimizer = NewTaskOptimizer(i) }
}

// NewOrchestrator creates an orchestrator with the six built-in engines and
// applies the given options.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engines: make(map[Kind]Engine),
		breaker: breaker.New(breaker.Settings{}),
		events:  nopEvents{},
		logger:  telemetry.NewNopLogger(),
		timeout: DefaultEngineTimeout,
		clock:   time.Now,

		risk:      NewRiskAssessor(),
		optimizer: NewTaskOptimizer(nil),
	}

	for _, e := range []Engine{
		NewAstralEngine(),
		NewVegetationEngine(),
		NewWeatherEngine(),
		NewSoilEngine(),
		NewCropGrowthEngine(),
		NewIrrigationEngine(),
	} {
		o.engines[e.Kind()] = e
	}

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate produces the unified intelligence snapshot for a field and day.
// It never returns an error: failed engines contribute fallback values, and
// an internal panic degrades to an all-fallback snapshot. Concurrent requests
// for the same field and day share one execution.
func (o *Orchestrator) Generate(ctx context.Context, fieldID string, date time.Time, userID string) *UnifiedIntelligence {
	key := CacheKey(fieldID, date)

	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			if o.metrics != nil {
				o.metrics.RecordCacheHit()
			}
			o.logger.WithFieldID(fieldID).Debug("intelligence served from cache")
			return cached
		}
		if o.metrics != nil {
			o.metrics.RecordCacheMiss()
		}
	}

	v, _, _ := o.group.Do(key, func() (any, error) {
		return o.generate(ctx, fieldID, date, userID), nil
	})
	return v.(*UnifiedIntelligence)
}

func (o *Orchestrator) generate(ctx context.Context, fieldID string, date time.Time, userID string) (result *UnifiedIntelligence) {
	start := o.clock()
	ac := AnalysisContext{
		FieldID:    fieldID,
		TargetDate: truncateDay(date),
		RequestID:  uuid.New().String(),
		UserID:     userID,
	}
	log := o.logger.WithFieldID(fieldID).WithRequestID(ac.RequestID)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("intelligence generation panicked, returning fallback snapshot")
			result = o.fallbackSnapshot(ac)
		}
	}()

	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.StartGenerateSpan(ctx, ac.FieldID, ac.RequestID)
		defer span.End()
	}

	results := o.fanOut(ctx, ac, log)

	merged := merge(ac, results)
	risk := o.risk.Assess(merged)
	tasks := o.optimizer.Optimize(merged)
	recommendations := deriveRecommendations(merged, risk)
	alerts := deriveAlerts(merged)
	yield := deriveYield(merged)

	result = &UnifiedIntelligence{
		FieldID:     ac.FieldID,
		GeneratedAt: o.clock().UTC(),
		RequestID:   ac.RequestID,
		TargetDate:  ac.TargetDate,

		Astral:     merged.Astral,
		Vegetation: merged.Vegetation,
		Weather:    merged.Weather,
		Soil:       merged.Soil,
		CropGrowth: merged.Crop,
		Irrigation: merged.Irrigation,

		Recommendations: recommendations,
		Tasks:           tasks,
		Alerts:          alerts,
		Risk:            risk,
		Yield:           yield,
		Degraded:        merged.Degraded(),
	}

	if o.cache != nil {
		o.cache.Set(CacheKey(ac.FieldID, ac.TargetDate), result)
	}

	fallbacks := make([]string, 0, len(merged.FallbackKinds))
	for _, kind := range merged.FallbackKinds {
		fallbacks = append(fallbacks, string(kind))
	}
	if err := o.events.PublishIntelligenceGenerated(ac.FieldID, ac.RequestID, result.Degraded, fallbacks); err != nil {
		log.WithError(err).Warn("failed to publish intelligence event")
	}

	duration := o.clock().Sub(start)
	if o.metrics != nil {
		o.metrics.RecordGenerate(duration)
	}
	log.WithField("duration_ms", duration.Milliseconds()).
		WithField("degraded", result.Degraded).
		Info("intelligence generated")

	return result
}

// fanOut runs every registered engine in parallel under the circuit breaker
// and substitutes the documented fallback for each failure.
func (o *Orchestrator) fanOut(ctx context.Context, ac AnalysisContext, log *telemetry.Logger) map[Kind]EngineResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[Kind]EngineResult, len(o.engines))
	)

	for _, kind := range SourceKinds() {
		eng, ok := o.engines[kind]
		if !ok {
			mu.Lock()
			results[kind] = EngineResult{Kind: kind, Payload: FallbackFor(kind), Fallback: true}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(kind Kind, eng Engine) {
			defer wg.Done()
			res := o.callEngine(ctx, ac, kind, eng, log)
			mu.Lock()
			results[kind] = res
			mu.Unlock()
		}(kind, eng)
	}

	wg.Wait()
	return results
}

// callEngine executes one engine under the breaker and converts any failure
// into a fallback result.
func (o *Orchestrator) callEngine(ctx context.Context, ac AnalysisContext, kind Kind, eng Engine, log *telemetry.Logger) EngineResult {
	start := o.clock()

	engineCtx := ctx
	var span trace.Span
	if o.tracer != nil {
		engineCtx, span = o.tracer.StartEngineSpan(ctx, string(kind))
		defer span.End()
	}

	value, err := o.breaker.Execute(engineCtx, string(kind), o.timeout, func(ctx context.Context) (any, error) {
		return eng.Analyze(ctx, ac)
	})
	duration := o.clock().Sub(start)

	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		o.metrics.RecordEngineCall(string(kind), status, duration)
	}

	if err != nil {
		classified := Classify(kind, err)
		reason := string(classified.Class)

		log.WithEngine(string(kind)).WithError(classified).
			Warnf("engine failed, substituting fallback (%s)", reason)
		if o.metrics != nil {
			o.metrics.RecordFallback(string(kind), reason)
		}
		if pubErr := o.events.PublishEngineFallback(ac.FieldID, string(kind), reason); pubErr != nil {
			log.WithError(pubErr).Warn("failed to publish fallback event")
		}
		if span != nil {
			telemetry.RecordError(span, classified)
		}

		return EngineResult{
			Kind:     kind,
			Payload:  FallbackFor(kind),
			Fallback: true,
			Err:      classified,
			Duration: duration,
		}
	}

	payload, ok := value.(Payload)
	if !ok || payload == nil {
		log.WithEngine(string(kind)).Warn("engine returned an unusable payload, substituting fallback")
		return EngineResult{Kind: kind, Payload: FallbackFor(kind), Fallback: true, Duration: duration}
	}

	return EngineResult{Kind: kind, Payload: payload, Duration: duration}
}

// fallbackSnapshot assembles the all-fallback snapshot used when generation
// cannot proceed at all.
func (o *Orchestrator) fallbackSnapshot(ac AnalysisContext) *UnifiedIntelligence {
	results := make(map[Kind]EngineResult, len(SourceKinds()))
	for _, kind := range SourceKinds() {
		results[kind] = EngineResult{Kind: kind, Payload: FallbackFor(kind), Fallback: true}
	}

	merged := merge(ac, results)
	risk := o.risk.Assess(merged)

	return &UnifiedIntelligence{
		FieldID:     ac.FieldID,
		GeneratedAt: o.clock().UTC(),
		RequestID:   ac.RequestID,
		TargetDate:  ac.TargetDate,

		Astral:     merged.Astral,
		Vegetation: merged.Vegetation,
		Weather:    merged.Weather,
		Soil:       merged.Soil,
		CropGrowth: merged.Crop,
		Irrigation: merged.Irrigation,

		Recommendations: []Recommendation{},
		Tasks:           []astral.OptimizedTask{},
		Alerts:          []Alert{},
		Risk:            risk,
		Yield:           deriveYield(merged),
		Degraded:        true,
	}
}

// GetEngineHealth reports the health of every registered engine.
func (o *Orchestrator) GetEngineHealth() map[Kind]HealthStatus {
	out := make(map[Kind]HealthStatus, len(o.engines))
	for kind, eng := range o.engines {
		out[kind] = eng.Health()
	}
	return out
}

// BreakerState reports the circuit state for an engine kind.
func (o *Orchestrator) BreakerState(kind Kind) breaker.State {
	return o.breaker.State(string(kind))
}

// InvalidateCache drops the cached snapshot for a field and day.
func (o *Orchestrator) InvalidateCache(fieldID string, date time.Time) {
	if o.cache != nil {
		o.cache.Delete(CacheKey(fieldID, date))
	}
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
