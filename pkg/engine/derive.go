package engine

import (
	"fmt"
	"math"
	"sort"
)

// Yield model parameters. Each factor is normalized against its
// domain-specific optimum; the weights sum to 1.0.
const (
	yieldBaselineTons  = 4.5
	vegetationOptimum  = 0.8
	fertilityOptimum   = 0.85
	efficiencyOptimum  = 0.9
	vegetationWeight   = 0.5
	fertilityWeight    = 0.3
	efficiencyWeight   = 0.2
	factorCeiling      = 1.25
	baseConfidence     = 0.9
	confidencePenalty  = 0.1
	confidenceFloor    = 0.3
	highRiskScore      = 7
	lowFertilityIndex  = 0.5
)

// deriveRecommendations builds the priority-sorted suggestion list from
// astral, irrigation, soil, weather and risk signals. Neutral in-band data
// produces no recommendations.
func deriveRecommendations(m *MergedIntelligence, risk RiskAssessment) []Recommendation {
	recs := []Recommendation{}

	if risk.Score >= highRiskScore {
		recs = append(recs, Recommendation{
			Priority: PriorityCritical,
			Category: "risk",
			Message:  fmt.Sprintf("aggregate risk is %.1f/10: review detected risks and act today", risk.Score),
			Source:   KindCropGrowth,
		})
	}

	if m.Irrigation.Required {
		if m.Irrigation.StressLevel == "high" {
			recs = append(recs, Recommendation{
				Priority: PriorityCritical,
				Category: "irrigation",
				Message:  fmt.Sprintf("severe water stress: irrigate %.0f L/ha immediately", m.Irrigation.RecommendedLiters),
				Source:   KindIrrigation,
			})
		} else {
			recs = append(recs, Recommendation{
				Priority: PriorityHigh,
				Category: "irrigation",
				Message:  fmt.Sprintf("irrigation needed: apply %.0f L/ha today", m.Irrigation.RecommendedLiters),
				Source:   KindIrrigation,
			})
		}
	}

	if m.Vegetation.Current < vegetationWarningLow {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Category: "health",
			Message:  "vegetation index is low: inspect the field for pests, disease or nutrient deficiency",
			Source:   KindVegetation,
		})
	}

	if m.Astral.RequiresAction {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Category: "astral",
			Message:  "unfavorable lunar window: prefer maintenance work over planting and harvest",
			Source:   KindAstral,
		})
	}

	if m.Soil.FertilityIndex < lowFertilityIndex {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Category: "soil",
			Message:  "soil fertility is low: plan a fertilization pass this week",
			Source:   KindSoil,
		})
	}

	if m.Weather.RainProbability > rainConstraintProb && m.Irrigation.Required {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Category: "weather",
			Message:  "rain is likely: consider delaying irrigation until the outlook clears",
			Source:   KindWeather,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})
	return recs
}

// deriveAlerts builds the threshold-triggered notification list. Fallback
// values sit inside every band and produce no alerts.
func deriveAlerts(m *MergedIntelligence) []Alert {
	alerts := []Alert{}

	switch {
	case m.Vegetation.Current < vegetationCriticalLow:
		alerts = append(alerts, Alert{
			Severity: AlertCritical,
			Category: "health",
			Message:  fmt.Sprintf("vegetation index critically low (%.2f)", m.Vegetation.Current),
		})
	case m.Vegetation.Current < vegetationWarningLow:
		alerts = append(alerts, Alert{
			Severity: AlertWarning,
			Category: "health",
			Message:  fmt.Sprintf("vegetation index below normal (%.2f)", m.Vegetation.Current),
		})
	}

	switch m.Irrigation.StressLevel {
	case "high":
		alerts = append(alerts, Alert{
			Severity: AlertCritical,
			Category: "water",
			Message:  "severe water stress detected",
		})
	case "moderate":
		alerts = append(alerts, Alert{
			Severity: AlertWarning,
			Category: "water",
			Message:  "moderate water stress detected",
		})
	}

	if m.Astral.RequiresAction {
		alerts = append(alerts, Alert{
			Severity: AlertWarning,
			Category: "astral",
			Message:  "lunar calendar flags today as unfavorable for sensitive field work",
		})
	}

	if m.Weather.TempMinC < frostConstraintC {
		alerts = append(alerts, Alert{
			Severity: AlertWarning,
			Category: "weather",
			Message:  fmt.Sprintf("frost expected overnight (%.1f C)", m.Weather.TempMinC),
		})
	}

	return alerts
}

// deriveYield computes the weighted multiplicative yield forecast. Each
// factor is the observed value over its optimum, capped so an unusually good
// reading cannot inflate the forecast unboundedly.
func deriveYield(m *MergedIntelligence) YieldForecast {
	vegetation := clamp(m.Vegetation.Current/vegetationOptimum, 0, factorCeiling)
	fertility := clamp(m.Soil.FertilityIndex/fertilityOptimum, 0, factorCeiling)
	efficiency := clamp(m.Irrigation.EfficiencyScore/efficiencyOptimum, 0, factorCeiling)

	factor := math.Pow(vegetation, vegetationWeight) *
		math.Pow(fertility, fertilityWeight) *
		math.Pow(efficiency, efficiencyWeight)

	confidence := baseConfidence - confidencePenalty*float64(len(m.FallbackKinds))
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}

	return YieldForecast{
		ExpectedTonsPerHectare: math.Round(yieldBaselineTons*factor*100) / 100,
		BaselineTonsPerHectare: yieldBaselineTons,
		Factors: map[string]float64{
			"vegetation": math.Round(vegetation*100) / 100,
			"fertility":  math.Round(fertility*100) / 100,
			"efficiency": math.Round(efficiency*100) / 100,
		},
		Confidence: math.Round(confidence*100) / 100,
	}
}
