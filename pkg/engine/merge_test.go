package engine

import (
	"testing"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

// resultsWith returns a full fallback result set with the given payloads
// swapped in.
func resultsWith(payloads ...Payload) map[Kind]EngineResult {
	results := make(map[Kind]EngineResult)
	for _, kind := range SourceKinds() {
		results[kind] = EngineResult{Kind: kind, Payload: FallbackFor(kind), Fallback: true}
	}
	for _, p := range payloads {
		results[p.EngineKind()] = EngineResult{Kind: p.EngineKind(), Payload: p}
	}
	return results
}

func TestMergeCollectsPayloads(t *testing.T) {
	veg := VegetationIndex{Current: 0.62, Mean30Day: 0.6, Trend: "improving"}
	weather := WeatherSnapshot{TempC: 25, TempMinC: 18, TempMaxC: 31, RainProbability: 0.1}

	m := merge(testContext("field-1"), resultsWith(veg, weather))

	if m.Vegetation.Current != 0.62 {
		t.Errorf("vegetation not merged: %+v", m.Vegetation)
	}
	if m.Weather.TempC != 25 {
		t.Errorf("weather not merged: %+v", m.Weather)
	}
	// The four untouched kinds stay fallbacks.
	if len(m.FallbackKinds) != 4 {
		t.Errorf("expected 4 fallback kinds, got %v", m.FallbackKinds)
	}
	if !m.Degraded() {
		t.Error("partial fallback must mark the merge degraded")
	}
}

func TestMergeNotDegradedWithoutFallbacks(t *testing.T) {
	results := make(map[Kind]EngineResult)
	for _, kind := range SourceKinds() {
		results[kind] = EngineResult{Kind: kind, Payload: FallbackFor(kind)}
	}
	m := merge(testContext("field-1"), results)
	if m.Degraded() {
		t.Error("no fallback results, merge must not be degraded")
	}
}

func TestMergeDerivesConstraints(t *testing.T) {
	m := merge(testContext("field-1"), resultsWith(
		AstralData{MoonPhase: astral.PhaseNewMoon, Compatibility: astral.CompatibilityAvoid, RequiresAction: true},
		WeatherSnapshot{TempC: 30, TempMinC: 22, TempMaxC: 42, WindKph: 35, RainProbability: 0.7},
		SoilAnalysis{MoisturePct: 85, PH: 6.8, FertilityIndex: 0.7},
	))

	bySource := map[Kind]int{}
	blocking := 0
	for _, c := range m.Constraints {
		bySource[c.Source]++
		if c.Severity == "blocking" {
			blocking++
		}
	}

	if bySource[KindAstral] != 1 {
		t.Errorf("expected one astral constraint, got %d", bySource[KindAstral])
	}
	if bySource[KindWeather] != 3 {
		t.Errorf("expected rain, wind and heat constraints, got %d", bySource[KindWeather])
	}
	if bySource[KindSoil] != 1 {
		t.Errorf("expected waterlogging constraint, got %d", bySource[KindSoil])
	}
	if blocking != 3 {
		t.Errorf("expected 3 blocking constraints, got %d", blocking)
	}
}

func TestMergeDerivesAnomalies(t *testing.T) {
	m := merge(testContext("field-1"), resultsWith(
		VegetationIndex{Current: 0.15, Mean30Day: 0.4, Trend: "declining"},
		SoilAnalysis{MoisturePct: 10, PH: 6.8, FertilityIndex: 0.7},
		WeatherSnapshot{TempC: 4, TempMinC: -2, TempMaxC: 9},
	))

	metrics := map[string]bool{}
	for _, a := range m.Anomalies {
		metrics[a.Metric] = true
	}
	for _, want := range []string{"vegetation_index", "soil_moisture_pct", "temp_min_c"} {
		if !metrics[want] {
			t.Errorf("expected anomaly for %s, got %+v", want, m.Anomalies)
		}
	}
}

func TestMergeDerivesOpportunities(t *testing.T) {
	m := merge(testContext("field-1"), resultsWith(
		AstralData{MoonPhase: astral.PhaseWaxingCrescent, Compatibility: astral.CompatibilityExcellent},
		VegetationIndex{Current: 0.7, Mean30Day: 0.6, Trend: "improving"},
		SoilAnalysis{MoisturePct: 45, PH: 6.8, FertilityIndex: 0.9},
		WeatherSnapshot{TempC: 22, TempMinC: 16, TempMaxC: 28, RainProbability: 0.7},
	))

	if len(m.Opportunities) != 4 {
		t.Fatalf("expected 4 opportunities, got %v", m.Opportunities)
	}
}
