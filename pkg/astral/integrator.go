package astral

import (
	"time"

	"github.com/kafaat/sahool-intel/pkg/telemetry"
)

const (
	// defaultLookaheadDays bounds the search for a better day when a task
	// must be postponed.
	defaultLookaheadDays = 14

	// defaultPostponeDays is the blind fallback offset applied when no
	// favorable day is found inside the lookahead window.
	defaultPostponeDays = 7
)

// Integrator scores tasks against the lunar calendar and reshapes a day's
// task list. It owns task annotation only; worker-to-task assignment is the
// scheduler's job.
type Integrator struct {
	lookaheadDays int
	postponeDays  int
	log           *telemetry.Logger
}

// IntegratorOption customizes an Integrator.
type IntegratorOption func(*Integrator)

// WithLookahead overrides the postponement search window in days.
func WithLookahead(days int) IntegratorOption {
	return func(i *Integrator) {
		if days > 0 {
			i.lookaheadDays = days
		}
	}
}

// WithIntegratorLogger sets the logger used for integration decisions.
func WithIntegratorLogger(log *telemetry.Logger) IntegratorOption {
	return func(i *Integrator) {
		if log != nil {
			i.log = log
		}
	}
}

// NewIntegrator creates an Integrator with default windows.
func NewIntegrator(opts ...IntegratorOption) *Integrator {
	i := &Integrator{
		lookaheadDays: defaultLookaheadDays,
		postponeDays:  defaultPostponeDays,
		log:           telemetry.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IntegrateTasks scores each task's lunar compatibility for the given day and
// applies the resulting transition:
//
//   - excellent: priority raised one step (capped at high), annotated
//   - good / neutral: annotated only
//   - avoid: status forced to postponed, rescheduled to the next day inside
//     the lookahead window on which the task type is not "avoid", or to
//     date+7d when no such day exists
//
// Task identity is never changed.
func (i *Integrator) IntegrateTasks(date time.Time, tasks []BaseTask) []OptimizedTask {
	day := truncateDay(date)
	out := make([]OptimizedTask, 0, len(tasks))

	for _, task := range tasks {
		compat := TaskCompatibility(task.Type, day)
		opt := OptimizedTask{BaseTask: task, Compatibility: compat}

		switch compat {
		case CompatibilityExcellent:
			opt.Priority = task.Priority.bump()
			opt.Note = "favorable lunar window, priority raised"
		case CompatibilityGood:
			opt.Note = "favorable lunar window"
		case CompatibilityAvoid:
			rescheduled := i.nextFavorableDay(task.Type, day)
			opt.Status = StatusPostponed
			opt.RescheduledFor = &rescheduled
			opt.Note = "unfavorable lunar window, postponed"
			i.log.WithField("task_id", task.ID).
				WithField("task_type", string(task.Type)).
				WithField("rescheduled_for", rescheduled.Format("2006-01-02")).
				Debug("task postponed by lunar calendar")
		default:
			// Neutral days pass through untouched.
		}

		out = append(out, opt)
	}

	return out
}

// nextFavorableDay returns the first day after the given one, inside the
// lookahead window, on which the task type is not graded avoid. When every
// day in the window is unfavorable it falls back to a fixed offset.
func (i *Integrator) nextFavorableDay(taskType TaskType, day time.Time) time.Time {
	for offset := 1; offset <= i.lookaheadDays; offset++ {
		candidate := day.AddDate(0, 0, offset)
		if TaskCompatibility(taskType, candidate) != CompatibilityAvoid {
			return candidate
		}
	}
	return day.AddDate(0, 0, i.postponeDays)
}
