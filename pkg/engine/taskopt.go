package engine

import (
	"sort"
	"strings"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

// TaskOptimizer is the derived engine that turns the crop engine's suggested
// tasks into the day's optimized task list: lunar integration first, then
// constraint-driven adjustments, then a stable priority ordering.
type TaskOptimizer struct {
	integrator *astral.Integrator
}

// NewTaskOptimizer creates the task optimization engine.
func NewTaskOptimizer(integrator *astral.Integrator) *TaskOptimizer {
	if integrator == nil {
		integrator = astral.NewIntegrator()
	}
	return &TaskOptimizer{integrator: integrator}
}

// Optimize produces the optimized task list for the merged data. An empty
// suggestion list yields an empty (non-nil) result.
func (t *TaskOptimizer) Optimize(m *MergedIntelligence) []astral.OptimizedTask {
	tasks := t.integrator.IntegrateTasks(m.TargetDate, m.Crop.SuggestedTasks)
	if tasks == nil {
		tasks = []astral.OptimizedTask{}
	}

	applyConstraints(tasks, m.Constraints)

	// Postponed tasks sink to the bottom; otherwise highest priority first.
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := tasks[i].Status == astral.StatusPostponed, tasks[j].Status == astral.StatusPostponed
		if pi != pj {
			return !pi
		}
		return priorityRank(tasks[i].Priority) > priorityRank(tasks[j].Priority)
	})

	return tasks
}

// applyConstraints adjusts tasks that collide with blocking constraints.
func applyConstraints(tasks []astral.OptimizedTask, constraints []Constraint) {
	suspendIrrigation := false
	for _, c := range constraints {
		if c.Severity == "blocking" && strings.Contains(c.Description, "irrigation") {
			suspendIrrigation = true
		}
	}

	for i := range tasks {
		if suspendIrrigation && tasks[i].Type == astral.TaskIrrigation && tasks[i].Status != astral.StatusPostponed {
			tasks[i].Status = astral.StatusPostponed
			if tasks[i].Note != "" {
				tasks[i].Note += "; "
			}
			tasks[i].Note += "suspended by field conditions"
		}
	}
}

func priorityRank(p astral.TaskPriority) int {
	switch p {
	case astral.PriorityHigh:
		return 2
	case astral.PriorityMedium:
		return 1
	default:
		return 0
	}
}
