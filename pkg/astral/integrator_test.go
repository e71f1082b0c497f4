package astral

import (
	"testing"
	"time"
)

func TestIntegrateTasksPostponesAvoid(t *testing.T) {
	i := NewIntegrator()
	newMoon := day(2024, time.January, 11)

	tasks := i.IntegrateTasks(newMoon, []BaseTask{
		{ID: "t1", Type: TaskPlanting, Name: "plant wheat", Priority: PriorityHigh, Status: StatusPending},
	})

	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Status != StatusPostponed {
		t.Fatalf("expected postponed, got %s", got.Status)
	}
	if got.RescheduledFor == nil {
		t.Fatal("postponed task must carry a reschedule date")
	}
	if !got.RescheduledFor.After(newMoon) {
		t.Fatalf("reschedule date %s not after %s", got.RescheduledFor, newMoon)
	}
	if TaskCompatibility(TaskPlanting, *got.RescheduledFor) == CompatibilityAvoid {
		t.Fatalf("rescheduled to another unfavorable day: %s", got.RescheduledFor)
	}
	// Identity and priority survive postponement.
	if got.ID != "t1" || got.Priority != PriorityHigh {
		t.Fatalf("task identity changed: %+v", got)
	}
}

func TestIntegrateTasksBumpsPriorityOnExcellent(t *testing.T) {
	i := NewIntegrator()
	waxingCrescent := day(2024, time.January, 13)

	tasks := i.IntegrateTasks(waxingCrescent, []BaseTask{
		{ID: "low", Type: TaskPlanting, Priority: PriorityLow, Status: StatusPending},
		{ID: "high", Type: TaskPlanting, Priority: PriorityHigh, Status: StatusPending},
	})

	if tasks[0].Priority != PriorityMedium {
		t.Errorf("low priority should bump to medium, got %s", tasks[0].Priority)
	}
	if tasks[1].Priority != PriorityHigh {
		t.Errorf("high priority must stay capped at high, got %s", tasks[1].Priority)
	}
	for _, task := range tasks {
		if task.Status == StatusPostponed {
			t.Errorf("excellent day must not postpone, task %s", task.ID)
		}
		if task.Note == "" {
			t.Errorf("expected an annotation on task %s", task.ID)
		}
	}
}

func TestIntegrateTasksAnnotatesGood(t *testing.T) {
	i := NewIntegrator()
	firstQuarter := day(2024, time.January, 18)

	tasks := i.IntegrateTasks(firstQuarter, []BaseTask{
		{ID: "t1", Type: TaskPlanting, Priority: PriorityMedium, Status: StatusPending},
	})

	got := tasks[0]
	if got.Compatibility != CompatibilityGood {
		t.Fatalf("expected good, got %s", got.Compatibility)
	}
	if got.Priority != PriorityMedium {
		t.Fatalf("good day must not change priority, got %s", got.Priority)
	}
	if got.Note == "" {
		t.Fatal("expected an annotation")
	}
}

func TestIntegrateTasksNeutralPassThrough(t *testing.T) {
	i := NewIntegrator()
	newMoon := day(2024, time.January, 11)

	// Weeding has no new moon entry and resolves to neutral.
	tasks := i.IntegrateTasks(newMoon, []BaseTask{
		{ID: "t1", Type: TaskWeeding, Priority: PriorityLow, Status: StatusPending},
	})

	got := tasks[0]
	if got.Compatibility != CompatibilityNeutral {
		t.Fatalf("expected neutral, got %s", got.Compatibility)
	}
	if got.Note != "" || got.Status != StatusPending || got.Priority != PriorityLow {
		t.Fatalf("neutral task must pass through untouched: %+v", got)
	}
}

func TestIntegrateTasksFallbackOffset(t *testing.T) {
	// With a one-day window from the day before the new moon, the only
	// candidate is still inside the new moon and the fixed offset applies.
	i := NewIntegrator(WithLookahead(1))
	beforeNewMoon := day(2024, time.January, 10)

	tasks := i.IntegrateTasks(beforeNewMoon, []BaseTask{
		{ID: "t1", Type: TaskPlanting, Priority: PriorityMedium, Status: StatusPending},
	})

	got := tasks[0]
	if got.Status != StatusPostponed {
		t.Fatalf("expected postponed, got %s", got.Status)
	}
	want := beforeNewMoon.AddDate(0, 0, 7)
	if got.RescheduledFor == nil || !got.RescheduledFor.Equal(want) {
		t.Fatalf("expected fallback reschedule to %s, got %v", want.Format("2006-01-02"), got.RescheduledFor)
	}
}

func TestIntegrateTasksEmptyInput(t *testing.T) {
	i := NewIntegrator()
	tasks := i.IntegrateTasks(day(2024, time.January, 11), nil)
	if len(tasks) != 0 {
		t.Fatalf("expected empty result, got %d tasks", len(tasks))
	}
}
