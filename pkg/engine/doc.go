// Package engine implements the intelligence orchestration core: the engine
// abstraction, the six source engines (astral, vegetation, weather, soil,
// crop growth, irrigation), the two derived engines (risk assessment and
// task optimization), and the orchestrator that fans out to all sources in
// parallel, tolerates partial failure through per-engine fallbacks, merges
// the outcomes and derives recommendations, alerts, a risk score and a yield
// forecast.
//
// The orchestrator's Generate contract is total: it always returns a fully
// populated UnifiedIntelligence, substituting documented fallback values for
// any source that failed, timed out, or was rejected by the circuit breaker.
// Degraded output is signaled through engine health, never through an error.
package engine
