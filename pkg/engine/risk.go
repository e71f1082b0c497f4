package engine

import "math"

// Risk bucket boundaries on probability times impact.
const (
	riskBucketMediumMin = 0.2
	riskBucketHighMin   = 0.5
)

// RiskAssessor is the derived engine that classifies detected conditions
// into probability-times-impact weighted risks and aggregates them into a
// 0..10 score.
type RiskAssessor struct{}

// NewRiskAssessor creates the risk assessment engine.
func NewRiskAssessor() *RiskAssessor { return &RiskAssessor{} }

// Assess derives the risk picture from merged source data. With no detected
// risks the score is 0.
func (r *RiskAssessor) Assess(m *MergedIntelligence) RiskAssessment {
	items := r.detect(m)

	for i := range items {
		items[i].Bucket = bucketFor(items[i].Probability * items[i].Impact)
	}

	return RiskAssessment{
		Items: items,
		Score: scoreFor(items),
	}
}

// detect walks the merged data and emits one item per detected risk.
func (r *RiskAssessor) detect(m *MergedIntelligence) []RiskItem {
	var items []RiskItem

	switch m.Irrigation.StressLevel {
	case "high":
		items = append(items, RiskItem{Name: "water_stress", Probability: 0.85, Impact: 0.8})
	case "moderate":
		items = append(items, RiskItem{Name: "water_stress", Probability: 0.5, Impact: 0.55})
	}

	if m.Vegetation.Current < vegetationWarningLow {
		items = append(items, RiskItem{Name: "vegetation_decline", Probability: 0.7, Impact: 0.8})
	} else if m.Vegetation.Trend == "declining" {
		items = append(items, RiskItem{Name: "vegetation_decline", Probability: 0.4, Impact: 0.55})
	}

	if m.Weather.TempMinC < frostConstraintC+2 {
		items = append(items, RiskItem{Name: "frost_damage", Probability: 0.5, Impact: 0.9})
	}
	if m.Weather.RainProbability > 0.7 && (m.Crop.Stage == "flowering" || m.Crop.Stage == "maturity") {
		items = append(items, RiskItem{Name: "rain_damage", Probability: m.Weather.RainProbability, Impact: 0.6})
	}

	if m.Soil.MoisturePct > soilWaterloggedPct {
		items = append(items, RiskItem{Name: "waterlogging", Probability: 0.6, Impact: 0.7})
	}

	if m.Astral.RequiresAction {
		items = append(items, RiskItem{Name: "unfavorable_lunar_window", Probability: 0.9, Impact: 0.25})
	}

	return items
}

func bucketFor(weight float64) string {
	switch {
	case weight >= riskBucketHighMin:
		return "high"
	case weight >= riskBucketMediumMin:
		return "medium"
	default:
		return "low"
	}
}

// scoreFor normalizes the summed probability-times-impact weights onto a
// 0..10 scale. The mean-based normalization can mathematically exceed 10
// with extreme inputs, so the result is clamped after the fact.
func scoreFor(items []RiskItem) float64 {
	if len(items) == 0 {
		return 0
	}

	var sum float64
	for _, item := range items {
		sum += item.Probability * item.Impact
	}

	score := sum / float64(len(items)) * 10
	return math.Round(math.Min(score, 10)*10) / 10
}
