package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kafaat/sahool-intel/pkg/astral"
)

func newCalendarCommand() *cobra.Command {
	var (
		date string
		days int
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Inspect the lunar calendar",
		Long: `Show the lunar calendar for one or more days: moon phase, overall
suitability for field work and per-task-type compatibility.

The calendar is deterministic; the same date always produces the same data.`,
		Example: `  # Today's lunar picture
  sahool-intel calendar

  # Two weeks starting at a date
  sahool-intel calendar --date 2026-04-01 --days 14`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			if days < 1 {
				days = 1
			}

			if jsonOutput {
				out := make([]astral.DayData, 0, days)
				for i := 0; i < days; i++ {
					out = append(out, astral.ForDate(start.AddDate(0, 0, i)))
				}
				return printJSON(out)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Date", "Phase", "Age", "Overall", "Planting", "Harvesting"})
			for i := 0; i < days; i++ {
				day := astral.ForDate(start.AddDate(0, 0, i))
				t.AppendRow(table.Row{
					day.Date.Format("2006-01-02"),
					day.MoonPhase,
					fmt.Sprintf("%.1fd", day.MoonAge),
					day.Overall,
					day.TaskCompatibility[astral.TaskPlanting],
					day.TaskCompatibility[astral.TaskHarvesting],
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "start date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVarP(&days, "days", "n", 1, "number of days to show")

	return cmd
}
