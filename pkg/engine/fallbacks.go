package engine

import "github.com/kafaat/sahool-intel/pkg/astral"

// Fallback values substituted when a source engine fails. They are
// deliberately unremarkable: every value sits inside the normal operating
// band so that no constraint, anomaly, risk, recommendation or alert fires
// off a fallback. Both the fan-out step and the terminal failure path read
// this table, guaranteeing consistent degraded output.

// FallbackFor returns the documented fallback payload for an engine kind.
// Unknown kinds return nil; the orchestrator only asks for source kinds.
func FallbackFor(kind Kind) Payload {
	switch kind {
	case KindAstral:
		return AstralData{
			MoonPhase:      astral.PhaseUnknown,
			Compatibility:  astral.CompatibilityNeutral,
			RequiresAction: false,
		}
	case KindVegetation:
		return VegetationIndex{
			Current:   0.5,
			Mean30Day: 0.5,
			Trend:     "stable",
		}
	case KindWeather:
		return WeatherSnapshot{
			TempC:           22,
			TempMinC:        15,
			TempMaxC:        28,
			HumidityPct:     55,
			WindKph:         8,
			RainProbability: 0.2,
			Condition:       "clear",
		}
	case KindSoil:
		return SoilAnalysis{
			MoisturePct:    45,
			PH:             6.8,
			NitrogenPPM:    40,
			PhosphorusPPM:  25,
			PotassiumPPM:   150,
			FertilityIndex: 0.7,
		}
	case KindCropGrowth:
		return CropGrowth{
			Stage:         "vegetative",
			ProgressPct:   50,
			DaysToHarvest: 60,
		}
	case KindIrrigation:
		return IrrigationNeed{
			Required:        false,
			StressLevel:     "none",
			EfficiencyScore: 0.75,
		}
	default:
		return nil
	}
}
