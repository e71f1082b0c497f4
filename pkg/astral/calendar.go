package astral

import (
	"math"
	"time"
)

// anchorNewMoon is the reference new moon the calendar counts from
// (2024-01-11 UTC). All phase computation is relative to this instant.
var anchorNewMoon = time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC)

// synodicMonth is the mean length of a lunar cycle in days.
const synodicMonth = 29.530588

// Phase boundaries in days of moon age, splitting the cycle into eight
// equal-width phases centered on the four principal phases.
const phaseWidth = synodicMonth / 8

// Phase returns the moon phase for the given date.
func Phase(date time.Time) MoonPhase {
	age := MoonAge(date)
	switch {
	case age < 0.5*phaseWidth || age >= 7.5*phaseWidth:
		return PhaseNewMoon
	case age < 1.5*phaseWidth:
		return PhaseWaxingCrescent
	case age < 2.5*phaseWidth:
		return PhaseFirstQuarter
	case age < 3.5*phaseWidth:
		return PhaseWaxingGibbous
	case age < 4.5*phaseWidth:
		return PhaseFullMoon
	case age < 5.5*phaseWidth:
		return PhaseWaningGibbous
	case age < 6.5*phaseWidth:
		return PhaseLastQuarter
	default:
		return PhaseWaningCrescent
	}
}

// MoonAge returns the days elapsed since the last new moon at UTC midnight of
// the given date.
func MoonAge(date time.Time) float64 {
	days := truncateDay(date).Sub(anchorNewMoon).Hours() / 24
	age := math.Mod(days, synodicMonth)
	if age < 0 {
		age += synodicMonth
	}
	return age
}

// overallByPhase holds the day-level suitability for the phases with a
// traditional reading. Phases without an entry fall back to neutral; the
// sparse mapping is deliberate.
var overallByPhase = map[MoonPhase]Compatibility{
	PhaseNewMoon:        CompatibilityAvoid,
	PhaseWaxingCrescent: CompatibilityExcellent,
	PhaseFirstQuarter:   CompatibilityGood,
	PhaseFullMoon:       CompatibilityGood,
	PhaseLastQuarter:    CompatibilityGood,
}

const defaultCompatibility = CompatibilityNeutral

// allTaskTypes fixes the iteration order for per-task computations.
var allTaskTypes = []TaskType{
	TaskPlanting,
	TaskHarvesting,
	TaskPruning,
	TaskIrrigation,
	TaskFertilization,
	TaskWeeding,
}

// taskTable maps moon phases to a task type's suitability, with a named
// default for every unmapped phase.
type taskTable struct {
	byPhase  map[MoonPhase]Compatibility
	fallback Compatibility
}

var taskTables = map[TaskType]taskTable{
	TaskPlanting: {
		byPhase: map[MoonPhase]Compatibility{
			PhaseNewMoon:        CompatibilityAvoid,
			PhaseWaxingCrescent: CompatibilityExcellent,
			PhaseFirstQuarter:   CompatibilityGood,
			PhaseFullMoon:       CompatibilityAvoid,
		},
		fallback: defaultCompatibility,
	},
	TaskHarvesting: {
		byPhase: map[MoonPhase]Compatibility{
			PhaseFullMoon:      CompatibilityExcellent,
			PhaseWaningGibbous: CompatibilityGood,
			PhaseNewMoon:       CompatibilityAvoid,
		},
		fallback: defaultCompatibility,
	},
	TaskPruning: {
		byPhase: map[MoonPhase]Compatibility{
			PhaseWaningCrescent: CompatibilityExcellent,
			PhaseLastQuarter:    CompatibilityGood,
			PhaseWaxingGibbous:  CompatibilityAvoid,
		},
		fallback: defaultCompatibility,
	},
	TaskIrrigation: {
		byPhase: map[MoonPhase]Compatibility{
			PhaseNewMoon:  CompatibilityGood,
			PhaseFullMoon: CompatibilityGood,
		},
		fallback: defaultCompatibility,
	},
	TaskFertilization: {
		byPhase: map[MoonPhase]Compatibility{
			PhaseLastQuarter:   CompatibilityExcellent,
			PhaseWaningGibbous: CompatibilityGood,
			PhaseNewMoon:       CompatibilityAvoid,
		},
		fallback: defaultCompatibility,
	},
	TaskWeeding: {
		byPhase: map[MoonPhase]Compatibility{
			PhaseWaningCrescent: CompatibilityExcellent,
			PhaseLastQuarter:    CompatibilityGood,
		},
		fallback: defaultCompatibility,
	},
}

// TaskCompatibility returns the suitability of a task type on a given day.
// Unknown task types resolve to neutral.
func TaskCompatibility(taskType TaskType, date time.Time) Compatibility {
	return taskCompatibilityForPhase(taskType, Phase(date))
}

func taskCompatibilityForPhase(taskType TaskType, phase MoonPhase) Compatibility {
	table, ok := taskTables[taskType]
	if !ok {
		return defaultCompatibility
	}
	if c, ok := table.byPhase[phase]; ok {
		return c
	}
	return table.fallback
}

// ForDate computes the full lunar picture for the given calendar day.
// The result depends only on the date and is safe to cache per day.
func ForDate(date time.Time) DayData {
	day := truncateDay(date)
	phase := Phase(day)

	overall, ok := overallByPhase[phase]
	if !ok {
		overall = defaultCompatibility
	}

	taskCompat := make(map[TaskType]Compatibility, len(allTaskTypes))
	for _, taskType := range allTaskTypes {
		taskCompat[taskType] = taskCompatibilityForPhase(taskType, phase)
	}

	data := DayData{
		Date:              day,
		MoonPhase:         phase,
		MoonAge:           MoonAge(day),
		Overall:           overall,
		RequiresAction:    overall == CompatibilityAvoid,
		TaskCompatibility: taskCompat,
	}

	if data.RequiresAction {
		data.Warnings = append(data.Warnings,
			"unfavorable lunar window: postpone planting and harvest where possible")
	}
	for _, taskType := range allTaskTypes {
		if taskCompat[taskType] == CompatibilityAvoid && !data.RequiresAction {
			data.Warnings = append(data.Warnings,
				string(taskType)+" is unfavorable during the "+string(phase)+" phase")
		}
	}

	return data
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
