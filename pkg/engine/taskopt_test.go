package engine

import (
	"testing"
	"time"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

// A waxing gibbous day: neutral for every task type, so lunar integration
// leaves the tasks untouched and only the constraints matter.
var neutralDay = time.Date(2024, time.January, 22, 0, 0, 0, 0, time.UTC)

func TestOptimizeSortsByPriority(t *testing.T) {
	opt := NewTaskOptimizer(nil)

	m := &MergedIntelligence{
		TargetDate: neutralDay,
		Crop: CropGrowth{SuggestedTasks: []astral.BaseTask{
			{ID: "low", Type: astral.TaskWeeding, Priority: astral.PriorityLow, Status: astral.StatusPending},
			{ID: "high", Type: astral.TaskWeeding, Priority: astral.PriorityHigh, Status: astral.StatusPending},
			{ID: "medium", Type: astral.TaskWeeding, Priority: astral.PriorityMedium, Status: astral.StatusPending},
		}},
	}

	tasks := opt.Optimize(m)
	got := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	want := []string{"high", "medium", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestOptimizeSuspendsIrrigationOnBlockingConstraint(t *testing.T) {
	opt := NewTaskOptimizer(nil)

	m := &MergedIntelligence{
		TargetDate: neutralDay,
		Crop: CropGrowth{SuggestedTasks: []astral.BaseTask{
			{ID: "water", Type: astral.TaskIrrigation, Priority: astral.PriorityHigh, Status: astral.StatusPending},
			{ID: "weed", Type: astral.TaskWeeding, Priority: astral.PriorityLow, Status: astral.StatusPending},
		}},
		Constraints: []Constraint{{
			Source:      KindSoil,
			Description: "waterlogged soil: suspend irrigation and heavy machinery",
			Severity:    "blocking",
		}},
	}

	tasks := opt.Optimize(m)

	var water astral.OptimizedTask
	for _, task := range tasks {
		if task.ID == "water" {
			water = task
		}
	}
	if water.Status != astral.StatusPostponed {
		t.Fatalf("irrigation must be postponed, got %s", water.Status)
	}
	if water.Note == "" {
		t.Fatal("postponed task must carry a note")
	}
	// Postponed tasks sort last despite their higher priority.
	if tasks[len(tasks)-1].ID != "water" {
		t.Fatalf("postponed task must sink to the bottom: %+v", tasks)
	}
}

func TestOptimizeAdvisoryConstraintDoesNotSuspend(t *testing.T) {
	opt := NewTaskOptimizer(nil)

	m := &MergedIntelligence{
		TargetDate: neutralDay,
		Crop: CropGrowth{SuggestedTasks: []astral.BaseTask{
			{ID: "water", Type: astral.TaskIrrigation, Priority: astral.PriorityMedium, Status: astral.StatusPending},
		}},
		Constraints: []Constraint{{
			Source:      KindAstral,
			Description: "unfavorable lunar window for planting and harvest",
			Severity:    "advisory",
		}},
	}

	tasks := opt.Optimize(m)
	if tasks[0].Status != astral.StatusPending {
		t.Fatalf("advisory constraints must not postpone, got %s", tasks[0].Status)
	}
}

func TestOptimizeEmptySuggestions(t *testing.T) {
	opt := NewTaskOptimizer(nil)
	tasks := opt.Optimize(&MergedIntelligence{TargetDate: neutralDay})
	if tasks == nil {
		t.Fatal("expected non-nil slice")
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %+v", tasks)
	}
}

func TestOptimizeRunsLunarIntegration(t *testing.T) {
	opt := NewTaskOptimizer(nil)

	// New moon: planting is postponed by the calendar, weeding is neutral.
	m := &MergedIntelligence{
		TargetDate: time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC),
		Crop: CropGrowth{SuggestedTasks: []astral.BaseTask{
			{ID: "plant", Type: astral.TaskPlanting, Priority: astral.PriorityHigh, Status: astral.StatusPending},
			{ID: "weed", Type: astral.TaskWeeding, Priority: astral.PriorityLow, Status: astral.StatusPending},
		}},
	}

	tasks := opt.Optimize(m)
	if tasks[0].ID != "weed" {
		t.Fatalf("schedulable work must come first: %+v", tasks)
	}
	if tasks[1].Status != astral.StatusPostponed || tasks[1].RescheduledFor == nil {
		t.Fatalf("planting must be postponed with a reschedule date: %+v", tasks[1])
	}
}
