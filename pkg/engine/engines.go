package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

// The source engines below synthesize deterministic, time-varying values
// from the field ID and target date. Each one stands in for an external
// analytical backend (satellite imagery, weather API, soil sensors); a
// production integration replaces the Analyze body without touching the
// orchestration contract.

// healthTracker gives engines their default self-reported health: healthy
// until an Analyze call records an error, healthy again after a success.
type healthTracker struct {
	mu      sync.Mutex
	lastErr error
}

func (h *healthTracker) ok() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastErr = nil
}

func (h *healthTracker) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastErr = err
}

// Health implements the Engine health contract.
func (h *healthTracker) Health() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := HealthStatus{State: HealthHealthy, CheckedAt: time.Now()}
	if h.lastErr != nil {
		status.State = HealthDegraded
		status.LastError = h.lastErr.Error()
	}
	return status
}

// validate rejects requests no engine can analyze.
func validate(ac AnalysisContext) error {
	if ac.FieldID == "" {
		return NewPermanentError("field id is required", nil)
	}
	if ac.TargetDate.IsZero() {
		return NewPermanentError("target date is required", nil)
	}
	return nil
}

// fieldNoise derives a stable pseudo-random value in [0, 1) from a field ID
// and a salt, so different fields get different but repeatable readings.
func fieldNoise(fieldID, salt string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fieldID))
	_, _ = h.Write([]byte(salt))
	return float64(h.Sum32()) / float64(math.MaxUint32)
}

// seasonal maps a day of year onto a sinusoid peaking around midsummer.
func seasonal(date time.Time) float64 {
	doy := float64(date.YearDay())
	return math.Sin(2 * math.Pi * (doy - 105) / 365)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// AstralEngine produces the day's lunar picture from the deterministic
// calendar.
type AstralEngine struct {
	healthTracker
}

// NewAstralEngine creates the astral source engine.
func NewAstralEngine() *AstralEngine { return &AstralEngine{} }

// Kind implements Engine.
func (*AstralEngine) Kind() Kind { return KindAstral }

// Analyze implements Engine.
func (e *AstralEngine) Analyze(_ context.Context, ac AnalysisContext) (Payload, error) {
	if err := validate(ac); err != nil {
		e.fail(err)
		return nil, err
	}

	day := astral.ForDate(ac.TargetDate)
	e.ok()
	return AstralData{
		MoonPhase:         day.MoonPhase,
		Compatibility:     day.Overall,
		RequiresAction:    day.RequiresAction,
		TaskCompatibility: day.TaskCompatibility,
		Warnings:          day.Warnings,
	}, nil
}

// VegetationEngine synthesizes a normalized vegetation index series.
type VegetationEngine struct {
	healthTracker
}

// NewVegetationEngine creates the vegetation source engine.
func NewVegetationEngine() *VegetationEngine { return &VegetationEngine{} }

// Kind implements Engine.
func (*VegetationEngine) Kind() Kind { return KindVegetation }

// Analyze implements Engine.
func (e *VegetationEngine) Analyze(_ context.Context, ac AnalysisContext) (Payload, error) {
	if err := validate(ac); err != nil {
		e.fail(err)
		return nil, err
	}

	series := make([]IndexPoint, 0, 5)
	for i := 4; i >= 0; i-- {
		at := ac.TargetDate.AddDate(0, 0, -7*i)
		series = append(series, IndexPoint{Date: at, Value: vegetationValue(ac.FieldID, at)})
	}

	current := series[len(series)-1].Value
	var sum float64
	for _, p := range series {
		sum += p.Value
	}
	mean := sum / float64(len(series))

	trend := "stable"
	switch {
	case current > mean+0.03:
		trend = "improving"
	case current < mean-0.03:
		trend = "declining"
	}

	e.ok()
	return VegetationIndex{
		Current:   current,
		Mean30Day: mean,
		Trend:     trend,
		Series:    series,
	}, nil
}

func vegetationValue(fieldID string, date time.Time) float64 {
	base := 0.55 + 0.2*seasonal(date) + 0.1*(fieldNoise(fieldID, "ndvi")-0.5)
	return math.Round(clamp(base, 0.2, 0.9)*1000) / 1000
}

// WeatherEngine synthesizes a daily weather snapshot.
type WeatherEngine struct {
	healthTracker
}

// NewWeatherEngine creates the weather source engine.
func NewWeatherEngine() *WeatherEngine { return &WeatherEngine{} }

// Kind implements Engine.
func (*WeatherEngine) Kind() Kind { return KindWeather }

// Analyze implements Engine.
func (e *WeatherEngine) Analyze(_ context.Context, ac AnalysisContext) (Payload, error) {
	if err := validate(ac); err != nil {
		e.fail(err)
		return nil, err
	}

	temp := 21 + 11*seasonal(ac.TargetDate) + 4*(fieldNoise(ac.FieldID, "temp")-0.5)
	humidity := clamp(45+25*fieldNoise(ac.FieldID, "humidity")-10*seasonal(ac.TargetDate), 15, 95)
	rain := clamp(0.45-0.3*seasonal(ac.TargetDate)+0.25*(fieldNoise(ac.FieldID, "rain")-0.5), 0, 1)

	condition := "clear"
	switch {
	case rain > 0.6:
		condition = "rain"
	case rain > 0.35:
		condition = "cloudy"
	}

	e.ok()
	return WeatherSnapshot{
		TempC:           math.Round(temp*10) / 10,
		TempMinC:        math.Round((temp-6)*10) / 10,
		TempMaxC:        math.Round((temp+6)*10) / 10,
		HumidityPct:     math.Round(humidity),
		WindKph:         math.Round(6 + 20*fieldNoise(ac.FieldID, "wind")),
		RainProbability: math.Round(rain*100) / 100,
		Condition:       condition,
	}, nil
}

// SoilEngine synthesizes a soil analysis from mocked sensor readings.
type SoilEngine struct {
	healthTracker
}

// NewSoilEngine creates the soil source engine.
func NewSoilEngine() *SoilEngine { return &SoilEngine{} }

// Kind implements Engine.
func (*SoilEngine) Kind() Kind { return KindSoil }

// Analyze implements Engine.
func (e *SoilEngine) Analyze(_ context.Context, ac AnalysisContext) (Payload, error) {
	if err := validate(ac); err != nil {
		e.fail(err)
		return nil, err
	}

	moisture := soilMoisture(ac.FieldID, ac.TargetDate)
	fertility := clamp(0.5+0.35*fieldNoise(ac.FieldID, "fertility"), 0, 1)

	e.ok()
	return SoilAnalysis{
		MoisturePct:    moisture,
		PH:             math.Round((6.2+1.2*fieldNoise(ac.FieldID, "ph"))*10) / 10,
		NitrogenPPM:    math.Round(25 + 35*fieldNoise(ac.FieldID, "n")),
		PhosphorusPPM:  math.Round(15 + 25*fieldNoise(ac.FieldID, "p")),
		PotassiumPPM:   math.Round(100 + 120*fieldNoise(ac.FieldID, "k")),
		FertilityIndex: math.Round(fertility*100) / 100,
	}, nil
}

func soilMoisture(fieldID string, date time.Time) float64 {
	m := 42 - 12*seasonal(date) + 20*(fieldNoise(fieldID, "moisture")-0.5)
	return math.Round(clamp(m, 5, 95))
}

// CropGrowthEngine estimates the phenological stage and suggests the
// stage-appropriate base tasks for the day.
type CropGrowthEngine struct {
	healthTracker
}

// NewCropGrowthEngine creates the crop growth source engine.
func NewCropGrowthEngine() *CropGrowthEngine { return &CropGrowthEngine{} }

// Kind implements Engine.
func (*CropGrowthEngine) Kind() Kind { return KindCropGrowth }

// seasonLength is the modeled growing cycle in days.
const seasonLength = 150

// Analyze implements Engine.
func (e *CropGrowthEngine) Analyze(_ context.Context, ac AnalysisContext) (Payload, error) {
	if err := validate(ac); err != nil {
		e.fail(err)
		return nil, err
	}

	dayInSeason := ac.TargetDate.YearDay() % seasonLength
	progress := float64(dayInSeason) / seasonLength

	var stage string
	switch {
	case progress < 0.15:
		stage = "germination"
	case progress < 0.5:
		stage = "vegetative"
	case progress < 0.7:
		stage = "flowering"
	case progress < 0.9:
		stage = "fruiting"
	default:
		stage = "maturity"
	}

	e.ok()
	return CropGrowth{
		Stage:          stage,
		ProgressPct:    math.Round(progress * 100),
		DaysToHarvest:  seasonLength - dayInSeason,
		SuggestedTasks: suggestedTasks(stage, ac),
	}, nil
}

// suggestedTasks returns the base work appropriate for a growth stage. Task
// IDs are stable per field, day and type.
func suggestedTasks(stage string, ac AnalysisContext) []astral.BaseTask {
	day := ac.TargetDate.UTC().Format("2006-01-02")
	task := func(t astral.TaskType, name string, priority astral.TaskPriority, hours float64) astral.BaseTask {
		return astral.BaseTask{
			ID:             fmt.Sprintf("%s-%s-%s", ac.FieldID, day, t),
			Type:           t,
			Name:           name,
			Priority:       priority,
			EstimatedHours: hours,
			Status:         astral.StatusPending,
		}
	}

	switch stage {
	case "germination":
		return []astral.BaseTask{
			task(astral.TaskPlanting, "Fill planting gaps", astral.PriorityHigh, 4),
			task(astral.TaskIrrigation, "Light establishment watering", astral.PriorityMedium, 2),
		}
	case "vegetative":
		return []astral.BaseTask{
			task(astral.TaskWeeding, "Row weeding", astral.PriorityMedium, 3),
			task(astral.TaskFertilization, "Nitrogen side-dressing", astral.PriorityMedium, 2),
			task(astral.TaskIrrigation, "Scheduled irrigation", astral.PriorityLow, 2),
		}
	case "flowering":
		return []astral.BaseTask{
			task(astral.TaskIrrigation, "Bloom-stage irrigation", astral.PriorityHigh, 3),
			task(astral.TaskPruning, "Canopy thinning", astral.PriorityLow, 3),
		}
	case "fruiting":
		return []astral.BaseTask{
			task(astral.TaskIrrigation, "Fruit-fill irrigation", astral.PriorityMedium, 3),
			task(astral.TaskWeeding, "Spot weeding", astral.PriorityLow, 2),
		}
	default: // maturity
		return []astral.BaseTask{
			task(astral.TaskHarvesting, "Harvest mature plots", astral.PriorityHigh, 6),
		}
	}
}

// IrrigationEngine derives the field's water need from mocked moisture and
// the rain outlook.
type IrrigationEngine struct {
	healthTracker
}

// NewIrrigationEngine creates the irrigation source engine.
func NewIrrigationEngine() *IrrigationEngine { return &IrrigationEngine{} }

// Kind implements Engine.
func (*IrrigationEngine) Kind() Kind { return KindIrrigation }

// Analyze implements Engine.
func (e *IrrigationEngine) Analyze(_ context.Context, ac AnalysisContext) (Payload, error) {
	if err := validate(ac); err != nil {
		e.fail(err)
		return nil, err
	}

	moisture := soilMoisture(ac.FieldID, ac.TargetDate)
	rain := clamp(0.45-0.3*seasonal(ac.TargetDate)+0.25*(fieldNoise(ac.FieldID, "rain")-0.5), 0, 1)

	stress := "none"
	switch {
	case moisture < 20:
		stress = "high"
	case moisture < 32:
		stress = "moderate"
	}

	required := moisture < 35 && rain < 0.5
	var liters float64
	if required {
		liters = math.Round((45 - moisture) * 800)
	}

	e.ok()
	return IrrigationNeed{
		Required:          required,
		StressLevel:       stress,
		RecommendedLiters: liters,
		EfficiencyScore:   math.Round((0.6+0.3*fieldNoise(ac.FieldID, "efficiency"))*100) / 100,
	}, nil
}
