package engine

import (
	"time"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

// Kind identifies an analysis engine. The set of kinds is fixed; engines are
// registered against a kind at orchestrator construction.
type Kind string

const (
	KindAstral     Kind = "astral"
	KindVegetation Kind = "vegetation"
	KindWeather    Kind = "weather"
	KindSoil       Kind = "soil"
	KindCropGrowth Kind = "crop_growth"
	KindIrrigation Kind = "irrigation"
)

// SourceKinds returns the source engine kinds in their canonical order.
func SourceKinds() []Kind {
	return []Kind{
		KindAstral,
		KindVegetation,
		KindWeather,
		KindSoil,
		KindCropGrowth,
		KindIrrigation,
	}
}

// AnalysisContext carries the immutable per-request inputs threaded to every
// engine call. It is created once at orchestration entry.
type AnalysisContext struct {
	// FieldID identifies the field under analysis.
	FieldID string `json:"field_id"`

	// TargetDate is the day the analysis applies to, truncated to UTC
	// midnight.
	TargetDate time.Time `json:"target_date"`

	// RequestID is the unique identifier of this orchestration request.
	RequestID string `json:"request_id"`

	// UserID identifies the requesting user, when known.
	UserID string `json:"user_id,omitempty"`
}

// Payload is the typed result of one engine call. The concrete types are the
// six per-engine data structures below.
type Payload interface {
	// EngineKind reports which engine produced the payload.
	EngineKind() Kind
}

// AstralData is the astral engine's result: the day's lunar picture reduced
// to what the merge and derivation steps consume.
type AstralData struct {
	// MoonPhase is the lunar phase for the target day.
	MoonPhase astral.MoonPhase `json:"moon_phase"`

	// Compatibility is the day's overall suitability for field work.
	Compatibility astral.Compatibility `json:"compatibility"`

	// RequiresAction is true when schedules should be adjusted.
	RequiresAction bool `json:"requires_action"`

	// TaskCompatibility maps task types to their suitability for the day.
	TaskCompatibility map[astral.TaskType]astral.Compatibility `json:"task_compatibility,omitempty"`

	// Warnings lists calendar cautions for the day.
	Warnings []string `json:"warnings,omitempty"`
}

// EngineKind implements Payload.
func (AstralData) EngineKind() Kind { return KindAstral }

// IndexPoint is one observation in a vegetation index series.
type IndexPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// VegetationIndex is the vegetation engine's result: the current normalized
// index with a short history and trend.
type VegetationIndex struct {
	// Current is the latest index value, 0..1.
	Current float64 `json:"current"`

	// Mean30Day is the trailing 30-day mean.
	Mean30Day float64 `json:"mean_30d"`

	// Trend is one of improving, stable, declining.
	Trend string `json:"trend"`

	// Series holds the most recent observations, oldest first.
	Series []IndexPoint `json:"series,omitempty"`
}

// EngineKind implements Payload.
func (VegetationIndex) EngineKind() Kind { return KindVegetation }

// WeatherSnapshot is the weather engine's result for the target day.
type WeatherSnapshot struct {
	TempC           float64 `json:"temp_c"`
	TempMinC        float64 `json:"temp_min_c"`
	TempMaxC        float64 `json:"temp_max_c"`
	HumidityPct     float64 `json:"humidity_pct"`
	WindKph         float64 `json:"wind_kph"`
	RainProbability float64 `json:"rain_probability"`
	Condition       string  `json:"condition"`
}

// EngineKind implements Payload.
func (WeatherSnapshot) EngineKind() Kind { return KindWeather }

// SoilAnalysis is the soil engine's result.
type SoilAnalysis struct {
	MoisturePct    float64 `json:"moisture_pct"`
	PH             float64 `json:"ph"`
	NitrogenPPM    float64 `json:"nitrogen_ppm"`
	PhosphorusPPM  float64 `json:"phosphorus_ppm"`
	PotassiumPPM   float64 `json:"potassium_ppm"`
	FertilityIndex float64 `json:"fertility_index"`
}

// EngineKind implements Payload.
func (SoilAnalysis) EngineKind() Kind { return KindSoil }

// CropGrowth is the crop growth engine's result: the current phenological
// stage and the base tasks it suggests for the day.
type CropGrowth struct {
	// Stage is the growth stage (germination, vegetative, flowering,
	// fruiting, maturity).
	Stage string `json:"stage"`

	// ProgressPct is how far through the stage the crop is, 0..100.
	ProgressPct float64 `json:"progress_pct"`

	// DaysToHarvest estimates the remaining days until harvest.
	DaysToHarvest int `json:"days_to_harvest"`

	// SuggestedTasks are the stage-appropriate base tasks for the day.
	SuggestedTasks []astral.BaseTask `json:"suggested_tasks,omitempty"`
}

// EngineKind implements Payload.
func (CropGrowth) EngineKind() Kind { return KindCropGrowth }

// IrrigationNeed is the irrigation engine's result.
type IrrigationNeed struct {
	// Required is true when the field needs water today.
	Required bool `json:"required"`

	// StressLevel is one of none, moderate, high.
	StressLevel string `json:"stress_level"`

	// RecommendedLiters is the suggested water volume per hectare.
	RecommendedLiters float64 `json:"recommended_liters"`

	// EfficiencyScore grades the field's irrigation efficiency, 0..1.
	EfficiencyScore float64 `json:"efficiency_score"`
}

// EngineKind implements Payload.
func (IrrigationNeed) EngineKind() Kind { return KindIrrigation }

// EngineResult wraps one engine outcome inside a fan-out. It is created by
// the fan-out wrapper, consumed by the merge step and discarded afterwards.
type EngineResult struct {
	// Kind identifies the engine.
	Kind Kind

	// Payload is the typed result; on failure it holds the engine's
	// fallback value.
	Payload Payload

	// Fallback is true when the payload is a substituted fallback.
	Fallback bool

	// Err is the failure that triggered the fallback, if any.
	Err error

	// Duration is how long the call took.
	Duration time.Duration
}

// Constraint is an operational limitation derived from merged source data.
type Constraint struct {
	// Source is the engine kind the constraint derives from.
	Source Kind `json:"source"`

	// Description explains the limitation.
	Description string `json:"description"`

	// Severity is one of advisory, blocking.
	Severity string `json:"severity"`
}

// Anomaly is a threshold violation detected during the merge.
type Anomaly struct {
	// Source is the engine kind the anomaly derives from.
	Source Kind `json:"source"`

	// Metric names the violated measurement.
	Metric string `json:"metric"`

	// Value is the observed value.
	Value float64 `json:"value"`

	// Threshold is the violated threshold.
	Threshold float64 `json:"threshold"`

	// Description explains the anomaly.
	Description string `json:"description"`
}

// MergedIntelligence combines the six (possibly fallback) source results for
// one request plus the derived constraints, opportunities and anomalies. It
// is owned exclusively by the current request.
type MergedIntelligence struct {
	FieldID    string
	TargetDate time.Time

	Astral     AstralData
	Vegetation VegetationIndex
	Weather    WeatherSnapshot
	Soil       SoilAnalysis
	Crop       CropGrowth
	Irrigation IrrigationNeed

	Constraints   []Constraint
	Opportunities []string
	Anomalies     []Anomaly

	// FallbackKinds lists the engines whose results are fallbacks.
	FallbackKinds []Kind
}

// Degraded reports whether any source result is a fallback.
func (m *MergedIntelligence) Degraded() bool {
	return len(m.FallbackKinds) > 0
}

// Priority grades a recommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns a sortable weight; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Recommendation is one actionable suggestion derived from merged data.
type Recommendation struct {
	// Priority orders the recommendation; lists are sorted critical first.
	Priority Priority `json:"priority"`

	// Category groups the recommendation (irrigation, health, astral,
	// soil, weather, risk).
	Category string `json:"category"`

	// Message is the human-readable suggestion.
	Message string `json:"message"`

	// Source is the engine kind the recommendation derives from.
	Source Kind `json:"source"`
}

// Alert is a threshold-triggered notification.
type Alert struct {
	// Severity is one of info, warning, critical.
	Severity string `json:"severity"`

	// Category groups the alert (health, water, astral, weather).
	Category string `json:"category"`

	// Message is the human-readable alert text.
	Message string `json:"message"`
}

// Alert severity constants.
const (
	AlertInfo     = "info"
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

// RiskItem is one detected risk with its probability and impact.
type RiskItem struct {
	// Name identifies the risk.
	Name string `json:"name"`

	// Probability is the likelihood of the risk materializing, 0..1.
	Probability float64 `json:"probability"`

	// Impact is the damage if it materializes, 0..1.
	Impact float64 `json:"impact"`

	// Bucket classifies probability times impact into low, medium, high.
	Bucket string `json:"bucket"`
}

// RiskAssessment classifies detected risks and aggregates them into a score.
type RiskAssessment struct {
	// Items lists the detected risks.
	Items []RiskItem `json:"items"`

	// Score is the aggregate risk on a 0..10 scale. No detected risks
	// yields 0.
	Score float64 `json:"score"`
}

// YieldForecast is the weighted multiplicative yield estimate.
type YieldForecast struct {
	// ExpectedTonsPerHectare is the forecast yield.
	ExpectedTonsPerHectare float64 `json:"expected_tons_per_hectare"`

	// BaselineTonsPerHectare is the reference yield the factors scale.
	BaselineTonsPerHectare float64 `json:"baseline_tons_per_hectare"`

	// Factors holds each input's normalized contribution.
	Factors map[string]float64 `json:"factors"`

	// Confidence grades the forecast, 0..1; fallback inputs reduce it.
	Confidence float64 `json:"confidence"`
}

// HealthState describes an engine's health.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
)

// HealthStatus is an engine's self-reported health.
type HealthStatus struct {
	// State is healthy unless the engine recorded a recent error.
	State HealthState `json:"state"`

	// LastError is the most recent error message, if any.
	LastError string `json:"last_error,omitempty"`

	// CheckedAt is when the status was produced.
	CheckedAt time.Time `json:"checked_at"`
}

// UnifiedIntelligence is the externally visible artifact of one generation.
// Every declared field is always populated, either with a real result or
// with the engine's documented fallback, so consumers never branch on
// partial data. It is immutable once built and cached by field and day.
type UnifiedIntelligence struct {
	// FieldID identifies the analyzed field.
	FieldID string `json:"field_id"`

	// GeneratedAt is when the snapshot was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// RequestID is the orchestration request that produced the snapshot.
	RequestID string `json:"request_id"`

	// TargetDate is the day the snapshot applies to.
	TargetDate time.Time `json:"target_date"`

	Astral     AstralData      `json:"astral"`
	Vegetation VegetationIndex `json:"vegetation"`
	Weather    WeatherSnapshot `json:"weather"`
	Soil       SoilAnalysis    `json:"soil"`
	CropGrowth CropGrowth      `json:"crop_growth"`
	Irrigation IrrigationNeed  `json:"irrigation"`

	// Recommendations is sorted by priority, critical first.
	Recommendations []Recommendation `json:"recommendations"`

	// Tasks is the optimized task list for the day.
	Tasks []astral.OptimizedTask `json:"tasks"`

	// Alerts lists threshold-triggered notifications.
	Alerts []Alert `json:"alerts"`

	// Risk is the aggregate risk assessment.
	Risk RiskAssessment `json:"risk"`

	// Yield is the yield forecast.
	Yield YieldForecast `json:"yield_forecast"`

	// Degraded is true when one or more source results are fallbacks.
	Degraded bool `json:"degraded"`
}

// CacheKey builds the result cache key for a field and day. Dates are
// truncated to day granularity so repeated requests within the TTL window
// share an entry.
func CacheKey(fieldID string, date time.Time) string {
	return fieldID + "|" + date.UTC().Format("2006-01-02")
}
