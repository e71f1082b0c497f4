package engine

import "github.com/kafaat/sahool-intel/pkg/astral"

// Merge thresholds. Values outside these bands produce constraints or
// anomalies during the merge step.
const (
	vegetationCriticalLow = 0.2
	vegetationWarningLow  = 0.35
	soilWaterloggedPct    = 80
	soilVeryDryPct        = 15
	windSprayLimitKph     = 30
	rainConstraintProb    = 0.6
	heatConstraintC       = 40
	frostConstraintC      = 0
)

// merge combines the six (possibly fallback) source results into one record
// and derives the operational constraints, positive signals and threshold
// anomalies the downstream steps consume.
func merge(ac AnalysisContext, results map[Kind]EngineResult) *MergedIntelligence {
	m := &MergedIntelligence{
		FieldID:    ac.FieldID,
		TargetDate: ac.TargetDate,
	}

	for _, kind := range SourceKinds() {
		res := results[kind]
		if res.Fallback {
			m.FallbackKinds = append(m.FallbackKinds, kind)
		}
		switch p := res.Payload.(type) {
		case AstralData:
			m.Astral = p
		case VegetationIndex:
			m.Vegetation = p
		case WeatherSnapshot:
			m.Weather = p
		case SoilAnalysis:
			m.Soil = p
		case CropGrowth:
			m.Crop = p
		case IrrigationNeed:
			m.Irrigation = p
		}
	}

	m.Constraints = deriveConstraints(m)
	m.Opportunities = deriveOpportunities(m)
	m.Anomalies = deriveAnomalies(m)
	return m
}

// deriveConstraints extracts the operational limitations the day imposes.
func deriveConstraints(m *MergedIntelligence) []Constraint {
	var out []Constraint

	if m.Astral.RequiresAction {
		out = append(out, Constraint{
			Source:      KindAstral,
			Description: "unfavorable lunar window for planting and harvest",
			Severity:    "advisory",
		})
	}
	if m.Weather.RainProbability > rainConstraintProb {
		out = append(out, Constraint{
			Source:      KindWeather,
			Description: "rain expected: avoid spraying and fertilization",
			Severity:    "blocking",
		})
	}
	if m.Weather.WindKph > windSprayLimitKph {
		out = append(out, Constraint{
			Source:      KindWeather,
			Description: "high wind: avoid spraying and canopy work",
			Severity:    "blocking",
		})
	}
	if m.Weather.TempMaxC > heatConstraintC {
		out = append(out, Constraint{
			Source:      KindWeather,
			Description: "extreme heat: restrict field work to early hours",
			Severity:    "advisory",
		})
	}
	if m.Soil.MoisturePct > soilWaterloggedPct {
		out = append(out, Constraint{
			Source:      KindSoil,
			Description: "waterlogged soil: suspend irrigation and heavy machinery",
			Severity:    "blocking",
		})
	}

	return out
}

// deriveOpportunities extracts heuristic positive signals.
func deriveOpportunities(m *MergedIntelligence) []string {
	var out []string

	if m.Astral.Compatibility == astral.CompatibilityExcellent {
		out = append(out, "excellent lunar window for planting")
	}
	if m.Vegetation.Trend == "improving" {
		out = append(out, "vegetation trend improving: current treatment is working")
	}
	if m.Weather.RainProbability > rainConstraintProb && !m.Irrigation.Required {
		out = append(out, "rain expected: irrigation can be skipped today")
	}
	if m.Soil.FertilityIndex >= 0.85 {
		out = append(out, "high soil fertility: conditions support dense planting")
	}

	return out
}

// deriveAnomalies flags threshold violations in the merged data.
func deriveAnomalies(m *MergedIntelligence) []Anomaly {
	var out []Anomaly

	if m.Vegetation.Current < vegetationCriticalLow {
		out = append(out, Anomaly{
			Source:      KindVegetation,
			Metric:      "vegetation_index",
			Value:       m.Vegetation.Current,
			Threshold:   vegetationCriticalLow,
			Description: "vegetation index critically low",
		})
	}
	if m.Soil.MoisturePct > soilWaterloggedPct {
		out = append(out, Anomaly{
			Source:      KindSoil,
			Metric:      "soil_moisture_pct",
			Value:       m.Soil.MoisturePct,
			Threshold:   soilWaterloggedPct,
			Description: "soil waterlogged",
		})
	}
	if m.Soil.MoisturePct < soilVeryDryPct {
		out = append(out, Anomaly{
			Source:      KindSoil,
			Metric:      "soil_moisture_pct",
			Value:       m.Soil.MoisturePct,
			Threshold:   soilVeryDryPct,
			Description: "soil critically dry",
		})
	}
	if m.Weather.TempMinC < frostConstraintC {
		out = append(out, Anomaly{
			Source:      KindWeather,
			Metric:      "temp_min_c",
			Value:       m.Weather.TempMinC,
			Threshold:   frostConstraintC,
			Description: "frost expected overnight",
		})
	}

	return out
}
