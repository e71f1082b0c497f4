// Package astral implements the lunar-calendar side of field planning: a
// deterministic moon-phase calendar, per-task-type compatibility scoring, and
// the integration step that reshapes a day's task list according to the
// calendar before workers are assigned.
package astral

import "time"

// MoonPhase identifies one of the eight phases of the synodic cycle.
type MoonPhase string

const (
	PhaseNewMoon        MoonPhase = "new_moon"
	PhaseWaxingCrescent MoonPhase = "waxing_crescent"
	PhaseFirstQuarter   MoonPhase = "first_quarter"
	PhaseWaxingGibbous  MoonPhase = "waxing_gibbous"
	PhaseFullMoon       MoonPhase = "full_moon"
	PhaseWaningGibbous  MoonPhase = "waning_gibbous"
	PhaseLastQuarter    MoonPhase = "last_quarter"
	PhaseWaningCrescent MoonPhase = "waning_crescent"

	// PhaseUnknown is used when no calendar data is available.
	PhaseUnknown MoonPhase = "unknown"
)

// Compatibility grades how suitable a day is for a task type.
type Compatibility string

const (
	CompatibilityExcellent Compatibility = "excellent"
	CompatibilityGood      Compatibility = "good"
	CompatibilityNeutral   Compatibility = "neutral"
	CompatibilityAvoid     Compatibility = "avoid"
)

// TaskType classifies a unit of field work.
type TaskType string

const (
	TaskPlanting      TaskType = "planting"
	TaskHarvesting    TaskType = "harvesting"
	TaskPruning       TaskType = "pruning"
	TaskIrrigation    TaskType = "irrigation"
	TaskFertilization TaskType = "fertilization"
	TaskWeeding       TaskType = "weeding"
)

// TaskPriority orders tasks within a day.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// rank returns a sortable weight for the priority.
func (p TaskPriority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// bump raises the priority one step, capped at high.
func (p TaskPriority) bump() TaskPriority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return p
	}
}

// TaskStatus tracks where a task is in its lifecycle for the day.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusScheduled TaskStatus = "scheduled"
	StatusPostponed TaskStatus = "postponed"
)

// BaseTask is a unit of field work before lunar integration.
type BaseTask struct {
	// ID is the unique task identifier.
	ID string `json:"id"`

	// Type classifies the work to be done.
	Type TaskType `json:"type"`

	// Name is a human-readable task description.
	Name string `json:"name"`

	// Priority is the task's scheduling priority.
	Priority TaskPriority `json:"priority"`

	// EstimatedHours is the expected effort in worker hours.
	EstimatedHours float64 `json:"estimated_hours"`

	// Status is the task's lifecycle state.
	Status TaskStatus `json:"status"`
}

// OptimizedTask is a BaseTask after lunar integration. Identity is preserved;
// priority, status and the reschedule date may have been adjusted.
type OptimizedTask struct {
	BaseTask

	// Compatibility is the lunar suitability of this task on the target day.
	Compatibility Compatibility `json:"compatibility"`

	// Note explains any adjustment that was applied.
	Note string `json:"note,omitempty"`

	// RescheduledFor is set when the task was postponed to a better day.
	RescheduledFor *time.Time `json:"rescheduled_for,omitempty"`
}

// DayData is the full lunar picture for one calendar day. It is a pure
// function of the date and can be cached indefinitely per day.
type DayData struct {
	// Date is the calendar day, truncated to UTC midnight.
	Date time.Time `json:"date"`

	// MoonPhase is the phase on that day.
	MoonPhase MoonPhase `json:"moon_phase"`

	// MoonAge is the days elapsed since the last new moon.
	MoonAge float64 `json:"moon_age"`

	// Overall is the day's general suitability for field operations.
	Overall Compatibility `json:"overall_compatibility"`

	// RequiresAction is true when the day calls for schedule adjustments.
	RequiresAction bool `json:"requires_action"`

	// TaskCompatibility maps each known task type to its suitability.
	TaskCompatibility map[TaskType]Compatibility `json:"task_compatibility"`

	// Warnings lists human-readable cautions for the day.
	Warnings []string `json:"warnings,omitempty"`
}

// Worker is a field worker available for assignment.
type Worker struct {
	// ID is the unique worker identifier.
	ID string `json:"id"`

	// Name is the worker's display name.
	Name string `json:"name"`

	// MaxHours caps the worker's assignable hours for the day.
	MaxHours float64 `json:"max_hours"`
}

// Assignment maps one worker to the tasks they will carry out.
type Assignment struct {
	// WorkerID identifies the assigned worker.
	WorkerID string `json:"worker_id"`

	// WorkerName is the worker's display name.
	WorkerName string `json:"worker_name"`

	// TaskIDs lists the assigned task IDs in execution order.
	TaskIDs []string `json:"task_ids"`

	// TotalHours is the summed estimated effort of the assigned tasks.
	TotalHours float64 `json:"total_hours"`
}

// DailySchedule is the complete optimized plan for one field and day.
type DailySchedule struct {
	// FieldID identifies the field the schedule applies to.
	FieldID string `json:"field_id"`

	// Date is the schedule's calendar day.
	Date time.Time `json:"date"`

	// MoonPhase is the lunar phase on that day.
	MoonPhase MoonPhase `json:"moon_phase"`

	// Compatibility is the day's overall lunar suitability.
	Compatibility Compatibility `json:"compatibility"`

	// Tasks is the lunar-integrated task list, including postponed tasks.
	Tasks []OptimizedTask `json:"tasks"`

	// Assignments maps workers to the tasks scheduled for today.
	Assignments []Assignment `json:"worker_assignments"`

	// Warnings carries the calendar warnings for the day.
	Warnings []string `json:"warnings,omitempty"`
}

// FieldConditions is the subset of field state the schedule builder consults.
// It is supplied by an external lookup; only the fields that influence
// staffing decisions are modeled here.
type FieldConditions struct {
	// SoilMoisturePct is the volumetric soil moisture in percent.
	SoilMoisturePct float64 `json:"soil_moisture_pct"`

	// RainProbability is the chance of rain today, 0..1.
	RainProbability float64 `json:"rain_probability"`

	// TempC is the expected daytime temperature in Celsius.
	TempC float64 `json:"temp_c"`
}

// Constraints bounds what the worker scheduler may do.
type Constraints struct {
	// MaxHoursPerWorker caps assignable hours when a worker has no own cap.
	MaxHoursPerWorker float64 `json:"max_hours_per_worker"`

	// SkipTaskTypes lists task types that must not be staffed today.
	SkipTaskTypes []TaskType `json:"skip_task_types,omitempty"`
}
