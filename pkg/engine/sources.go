package engine

import (
	"context"
	"time"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

// EngineConditionSource adapts the weather and soil engines to the schedule
// builder's condition lookup.
type EngineConditionSource struct {
	weather Engine
	soil    Engine
	clock   func() time.Time
}

// NewEngineConditionSource builds a condition source over the given engines.
// Nil engines fall back to the built-in implementations.
func NewEngineConditionSource(weather, soil Engine) *EngineConditionSource {
	if weather == nil {
		weather = NewWeatherEngine()
	}
	if soil == nil {
		soil = NewSoilEngine()
	}
	return &EngineConditionSource{weather: weather, soil: soil, clock: time.Now}
}

// FieldConditions implements astral.ConditionSource. Engine failures surface
// to the caller; the schedule builder already degrades without conditions.
func (s *EngineConditionSource) FieldConditions(ctx context.Context, fieldID string) (astral.FieldConditions, error) {
	ac := AnalysisContext{FieldID: fieldID, TargetDate: truncateDay(s.clock())}

	var out astral.FieldConditions

	wp, err := s.weather.Analyze(ctx, ac)
	if err != nil {
		return out, err
	}
	sp, err := s.soil.Analyze(ctx, ac)
	if err != nil {
		return out, err
	}

	if w, ok := wp.(WeatherSnapshot); ok {
		out.RainProbability = w.RainProbability
		out.TempC = w.TempC
	}
	if soil, ok := sp.(SoilAnalysis); ok {
		out.SoilMoisturePct = soil.MoisturePct
	}
	return out, nil
}

// CropTaskSource adapts the crop growth engine to the schedule builder's task
// lookup: the base task list is whatever the current growth stage suggests.
type CropTaskSource struct {
	crop Engine
}

// NewCropTaskSource builds a task source over the given crop engine. A nil
// engine falls back to the built-in implementation.
func NewCropTaskSource(crop Engine) *CropTaskSource {
	if crop == nil {
		crop = NewCropGrowthEngine()
	}
	return &CropTaskSource{crop: crop}
}

// BaseTasks implements astral.TaskSource.
func (s *CropTaskSource) BaseTasks(ctx context.Context, fieldID string, date time.Time) ([]astral.BaseTask, error) {
	payload, err := s.crop.Analyze(ctx, AnalysisContext{FieldID: fieldID, TargetDate: truncateDay(date)})
	if err != nil {
		return nil, err
	}
	crop, ok := payload.(CropGrowth)
	if !ok {
		return []astral.BaseTask{}, nil
	}
	return crop.SuggestedTasks, nil
}
