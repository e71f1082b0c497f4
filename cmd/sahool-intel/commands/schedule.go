package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

func newScheduleCommand() *cobra.Command {
	var (
		fieldID string
		date    string
		workers []string
		hours   float64
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Build a lunar-aware daily work schedule",
		Long: `Build the optimized daily schedule for a field.

The base task list comes from the crop growth analysis, is reshaped by the
lunar calendar (unfavorable work is postponed to the next favorable day) and
then distributed over the given workers, keeping hours balanced.`,
		Example: `  # Schedule with two workers
  sahool-intel schedule --field field-42 --worker amal --worker bashir

  # Schedule for a specific day with 6h shifts
  sahool-intel schedule --field field-42 --date 2026-04-12 --worker amal --hours 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			targetDate, err := parseDateFlag(date)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.shutdown(cmd.Context())

			staff := make([]astral.Worker, 0, len(workers))
			for _, name := range workers {
				staff = append(staff, astral.Worker{
					ID:       strings.ToLower(strings.ReplaceAll(name, " ", "-")),
					Name:     name,
					MaxHours: hours,
				})
			}

			schedule, err := a.scheduler.Build(cmd.Context(), fieldID, targetDate, staff)
			if err != nil {
				return err
			}

			_ = a.events.PublishScheduleBuilt(fieldID, schedule.Date.Format("2006-01-02"),
				len(schedule.Tasks), len(staff))

			if jsonOutput {
				return printJSON(schedule)
			}
			printSchedule(schedule)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fieldID, "field", "f", "", "field identifier")
	cmd.Flags().StringVarP(&date, "date", "d", "", "target date (YYYY-MM-DD, default today)")
	cmd.Flags().StringSliceVarP(&workers, "worker", "w", nil, "worker name (repeatable)")
	cmd.Flags().Float64Var(&hours, "hours", 0, "max hours per worker (default 8)")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func printSchedule(s *astral.DailySchedule) {
	fmt.Printf("Schedule for field %s on %s\n", s.FieldID, s.Date.Format("2006-01-02"))
	fmt.Printf("Moon phase: %s (%s)\n", s.MoonPhase, s.Compatibility)
	for _, w := range s.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	fmt.Println()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Tasks")
	t.AppendHeader(table.Row{"ID", "Type", "Priority", "Hours", "Status", "Compat", "Rescheduled"})
	for _, task := range s.Tasks {
		rescheduled := ""
		if task.RescheduledFor != nil {
			rescheduled = task.RescheduledFor.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			task.ID, task.Type, task.Priority, task.EstimatedHours,
			task.Status, task.Compatibility, rescheduled,
		})
	}
	t.Render()
	fmt.Println()

	if len(s.Assignments) == 0 {
		fmt.Println("No workers given, nothing assigned.")
		return
	}

	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Assignments")
	t.AppendHeader(table.Row{"Worker", "Tasks", "Hours"})
	for _, a := range s.Assignments {
		t.AppendRow(table.Row{a.WorkerName, strings.Join(a.TaskIDs, ", "), a.TotalHours})
	}
	t.Render()
}
