package astral

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kafaat/sahool-intel/pkg/telemetry"
)

// ConditionSource looks up the current conditions of a field. Implementations
// live outside this package; the schedule builder only relies on the contract.
type ConditionSource interface {
	FieldConditions(ctx context.Context, fieldID string) (FieldConditions, error)
}

// TaskSource looks up the base task list for a field and day.
type TaskSource interface {
	BaseTasks(ctx context.Context, fieldID string, date time.Time) ([]BaseTask, error)
}

// WorkerScheduler assigns workers to an integrated task list under the given
// constraints. Splitting assignment away from lunar annotation keeps
// compatibility scoring testable independent of staffing logic.
type WorkerScheduler interface {
	Assign(tasks []OptimizedTask, workers []Worker, constraints Constraints) ([]Assignment, error)
}

// defaultMaxHoursPerWorker caps a worker's day when the worker has no own cap.
const defaultMaxHoursPerWorker = 8

// waterloggedSkipThreshold is the soil moisture above which irrigation tasks
// are not staffed.
const waterloggedSkipThreshold = 80

// ScheduleBuilder composes the lunar calendar, field conditions and the base
// task list into an optimized daily schedule with worker assignments.
type ScheduleBuilder struct {
	integrator *Integrator
	conditions ConditionSource
	tasks      TaskSource
	scheduler  WorkerScheduler
	log        *telemetry.Logger
	tracer     *telemetry.Tracer
}

// ScheduleOption configures a ScheduleBuilder.
type ScheduleOption func(*ScheduleBuilder)

// WithScheduleTracer wires a tracer so every build produces a span.
func WithScheduleTracer(t *telemetry.Tracer) ScheduleOption {
	return func(b *ScheduleBuilder) { b.tracer = t }
}

// NewScheduleBuilder wires a builder from its collaborators.
func NewScheduleBuilder(
	integrator *Integrator,
	conditions ConditionSource,
	tasks TaskSource,
	scheduler WorkerScheduler,
	log *telemetry.Logger,
	opts ...ScheduleOption,
) *ScheduleBuilder {
	if log == nil {
		log = telemetry.NewNopLogger()
	}
	b := &ScheduleBuilder{
		integrator: integrator,
		conditions: conditions,
		tasks:      tasks,
		scheduler:  scheduler,
		log:        log.NewComponentLogger("schedule_builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the optimized schedule for a field and day.
func (b *ScheduleBuilder) Build(
	ctx context.Context,
	fieldID string,
	date time.Time,
	workers []Worker,
) (*DailySchedule, error) {
	var span trace.Span
	if b.tracer != nil {
		ctx, span = b.tracer.StartScheduleSpan(ctx, fieldID)
		defer span.End()
	}

	day := ForDate(date)

	baseTasks, err := b.tasks.BaseTasks(ctx, fieldID, day.Date)
	if err != nil {
		err = fmt.Errorf("failed to look up base tasks: %w", err)
		if span != nil {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	integrated := b.integrator.IntegrateTasks(day.Date, baseTasks)

	constraints := Constraints{MaxHoursPerWorker: defaultMaxHoursPerWorker}
	conditions, err := b.conditions.FieldConditions(ctx, fieldID)
	if err != nil {
		// Conditions refine staffing but are not required for a schedule.
		b.log.WithError(err).WithField("field_id", fieldID).
			Warn("field conditions unavailable, scheduling without them")
	} else {
		constraints.SkipTaskTypes = skipTypesFor(conditions)
	}

	assignments, err := b.scheduler.Assign(integrated, workers, constraints)
	if err != nil {
		err = fmt.Errorf("failed to assign workers: %w", err)
		if span != nil {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	if span != nil {
		telemetry.RecordSuccess(span)
	}
	return &DailySchedule{
		FieldID:       fieldID,
		Date:          day.Date,
		MoonPhase:     day.MoonPhase,
		Compatibility: day.Overall,
		Tasks:         integrated,
		Assignments:   assignments,
		Warnings:      day.Warnings,
	}, nil
}

// skipTypesFor derives task types that must not be staffed from the field's
// current conditions.
func skipTypesFor(c FieldConditions) []TaskType {
	var skip []TaskType
	if c.SoilMoisturePct > waterloggedSkipThreshold || c.RainProbability > 0.8 {
		skip = append(skip, TaskIrrigation)
	}
	return skip
}

// GreedyScheduler is the built-in worker scheduler: it staffs the highest
// priority work first and keeps worker hours balanced.
type GreedyScheduler struct{}

// NewGreedyScheduler returns the built-in scheduler.
func NewGreedyScheduler() *GreedyScheduler {
	return &GreedyScheduler{}
}

// Assign distributes schedulable tasks over the workers. Postponed tasks and
// skipped task types are never staffed. Each task goes to the worker with the
// lowest total hours that still has room for it; tasks nobody can absorb are
// left unassigned.
func (s *GreedyScheduler) Assign(
	tasks []OptimizedTask,
	workers []Worker,
	constraints Constraints,
) ([]Assignment, error) {
	if len(workers) == 0 {
		return []Assignment{}, nil
	}

	skip := make(map[TaskType]bool, len(constraints.SkipTaskTypes))
	for _, t := range constraints.SkipTaskTypes {
		skip[t] = true
	}

	schedulable := make([]OptimizedTask, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == StatusPostponed || skip[task.Type] {
			continue
		}
		schedulable = append(schedulable, task)
	}

	// Highest priority first, longest tasks first within a priority.
	sort.SliceStable(schedulable, func(i, j int) bool {
		if schedulable[i].Priority.rank() != schedulable[j].Priority.rank() {
			return schedulable[i].Priority.rank() > schedulable[j].Priority.rank()
		}
		return schedulable[i].EstimatedHours > schedulable[j].EstimatedHours
	})

	assignments := make([]Assignment, len(workers))
	caps := make([]float64, len(workers))
	for i, w := range workers {
		assignments[i] = Assignment{WorkerID: w.ID, WorkerName: w.Name, TaskIDs: []string{}}
		caps[i] = w.MaxHours
		if caps[i] <= 0 {
			caps[i] = constraints.MaxHoursPerWorker
		}
	}

	for _, task := range schedulable {
		best := -1
		for i := range assignments {
			if assignments[i].TotalHours+task.EstimatedHours > caps[i] {
				continue
			}
			if best == -1 || assignments[i].TotalHours < assignments[best].TotalHours {
				best = i
			}
		}
		if best == -1 {
			continue
		}
		assignments[best].TaskIDs = append(assignments[best].TaskIDs, task.ID)
		assignments[best].TotalHours += task.EstimatedHours
	}

	return assignments, nil
}

// StaticTaskSource serves a fixed task list; useful for tests and local runs.
type StaticTaskSource struct {
	Tasks []BaseTask
}

// BaseTasks implements TaskSource.
func (s *StaticTaskSource) BaseTasks(context.Context, string, time.Time) ([]BaseTask, error) {
	return s.Tasks, nil
}

// StaticConditionSource serves fixed field conditions.
type StaticConditionSource struct {
	Conditions FieldConditions
}

// FieldConditions implements ConditionSource.
func (s *StaticConditionSource) FieldConditions(context.Context, string) (FieldConditions, error) {
	return s.Conditions, nil
}
