package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/kafaat/sahool-intel/pkg/astral"
	"github.com/kafaat/sahool-intel/pkg/breaker"
	"github.com/kafaat/sahool-intel/pkg/cache"
	"github.com/kafaat/sahool-intel/pkg/config"
	"github.com/kafaat/sahool-intel/pkg/engine"
	"github.com/kafaat/sahool-intel/pkg/telemetry"
)

// app wires the shared service components a command needs: configuration,
// telemetry, cache, the orchestrator and the schedule builder.
type app struct {
	cfg       *config.Config
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
	events    *telemetry.Publisher
	orch      *engine.Orchestrator
	scheduler *astral.ScheduleBuilder

	closers []func(context.Context) error
}

// newApp builds the component graph from the resolved configuration.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}

	telCfg := cfg.Telemetry.Build()
	if verbose {
		telCfg.Logging.Level = "debug"
	}
	if err := telCfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(telCfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics, err := telemetry.NewMetrics(telCfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	tracer, err := telemetry.NewTracer(telCfg.Tracing, telCfg.ServiceName, telCfg.ServiceVersion, telCfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	events := telemetry.NewPublisher(telCfg.Events)
	eventLog := logger.NewComponentLogger("events")
	events.Subscribe(func(e telemetry.Event) {
		l := eventLog.WithField("event_type", e.Type).WithFieldID(e.FieldID)
		switch e.Level {
		case telemetry.EventLevelWarning:
			l.Warn(e.Message)
		case telemetry.EventLevelError:
			l.Error(e.Message)
		default:
			l.Debug(e.Message)
		}
	})

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		events:  events,
	}
	a.closers = append(a.closers, tracer.Shutdown, events.Shutdown)

	resultCache, err := a.buildCache(ctx)
	if err != nil {
		a.shutdown(ctx)
		return nil, err
	}

	integrator := astral.NewIntegrator(
		astral.WithLookahead(cfg.Engine.LookaheadDays),
		astral.WithIntegratorLogger(logger),
	)

	a.orch = engine.NewOrchestrator(
		engine.WithCache(resultCache),
		engine.WithEvents(events),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
		engine.WithTracer(tracer),
		engine.WithEngineTimeout(cfg.Engine.Timeout.Std()),
		engine.WithIntegrator(integrator),
		engine.WithBreakerSettings(breaker.Settings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			ResetTimeout:     cfg.Breaker.ResetTimeout.Std(),
			HalfOpenMax:      cfg.Breaker.HalfOpenMax,
			OnStateChange: func(target string, from, to breaker.State) {
				metrics.SetBreakerState(target, float64(to))
				_ = events.PublishCircuitStateChanged(target, from.String(), to.String())
			},
		}),
	)

	a.scheduler = astral.NewScheduleBuilder(
		integrator,
		engine.NewEngineConditionSource(nil, nil),
		engine.NewCropTaskSource(nil),
		astral.NewGreedyScheduler(),
		logger,
		astral.WithScheduleTracer(tracer),
	)

	return a, nil
}

// buildCache creates the configured result cache backend.
func (a *app) buildCache(ctx context.Context) (engine.ResultCache, error) {
	switch a.cfg.Cache.Backend {
	case "sqlite":
		store, err := cache.NewSQLite[*engine.UnifiedIntelligence](ctx, cache.SQLiteConfig{
			Path: a.cfg.Cache.Path,
			TTL:  a.cfg.Cache.TTL.Std(),
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		return store, nil
	default:
		return cache.NewMemory[*engine.UnifiedIntelligence](a.cfg.Cache.TTL.Std()), nil
	}
}

// shutdown closes the app's components in reverse construction order.
func (a *app) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.WithError(err).Warn("component shutdown failed")
		}
	}
}
