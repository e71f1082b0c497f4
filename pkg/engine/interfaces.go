package engine

import (
	"context"
)

// Engine is a named analytical unit that produces one typed result for a
// field and target date, or fails. Engines are read-only against whatever
// backing source they represent; a production integration replaces the body
// without changing the contract.
type Engine interface {
	// Kind identifies the engine.
	Kind() Kind

	// Analyze produces the engine's typed result for the request.
	Analyze(ctx context.Context, ac AnalysisContext) (Payload, error)

	// Health reports the engine's self-assessed health. Defaults to
	// healthy unless the implementation recorded an error.
	Health() HealthStatus
}

// ResultCache memoizes complete intelligence snapshots by field and day.
// Implementations must be safe for concurrent use and non-blocking from the
// orchestrator's perspective.
type ResultCache interface {
	Get(key string) (*UnifiedIntelligence, bool)
	Set(key string, value *UnifiedIntelligence)
	Delete(key string)
}

// EventSink receives the orchestrator's operational events.
type EventSink interface {
	PublishIntelligenceGenerated(fieldID, requestID string, degraded bool, fallbacks []string) error
	PublishEngineFallback(fieldID, engine, reason string) error
}

// nopEvents is the default sink when no publisher is wired.
type nopEvents struct{}

func (nopEvents) PublishIntelligenceGenerated(string, string, bool, []string) error { return nil }
func (nopEvents) PublishEngineFallback(string, string, string) error                { return nil }
