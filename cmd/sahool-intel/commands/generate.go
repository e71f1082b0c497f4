package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kafaat/sahool-intel/pkg/engine"
)

func newGenerateCommand() *cobra.Command {
	var (
		fieldID string
		date    string
		userID  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate unified field intelligence",
		Long: `Generate the unified intelligence snapshot for a field and day.

All analysis engines run in parallel; engines that fail contribute their
documented fallback values and the snapshot is marked degraded. Results are
cached per field and day.`,
		Example: `  # Intelligence for a field, today
  sahool-intel generate --field field-42

  # Intelligence for a specific day, as JSON
  sahool-intel generate --field field-42 --date 2026-04-12 --json`,
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

			result := a.orch.Generate(cmd.Context(), fieldID, targetDate, userID)

			if jsonOutput {
				return printJSON(result)
			}
			printIntelligence(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fieldID, "field", "f", "", "field identifier")
	cmd.Flags().StringVarP(&date, "date", "d", "", "target date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&userID, "user", "", "requesting user identifier")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

// parseDateFlag accepts YYYY-MM-DD and defaults to today's UTC date.
func parseDateFlag(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIntelligence(r *engine.UnifiedIntelligence) {
	fmt.Printf("Field %s on %s\n", r.FieldID, r.TargetDate.Format("2006-01-02"))
	fmt.Printf("Moon phase: %s (%s)  Risk: %.1f/10  Yield: %.2f t/ha (confidence %.0f%%)\n",
		r.Astral.MoonPhase, r.Astral.Compatibility,
		r.Risk.Score, r.Yield.ExpectedTonsPerHectare, r.Yield.Confidence*100)
	if r.Degraded {
		fmt.Println("NOTE: snapshot is degraded, some engines fell back to defaults")
	}
	fmt.Println()

	if len(r.Alerts) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("Alerts")
		t.AppendHeader(table.Row{"Severity", "Category", "Message"})
		for _, a := range r.Alerts {
			t.AppendRow(table.Row{a.Severity, a.Category, a.Message})
		}
		t.Render()
		fmt.Println()
	}

	if len(r.Recommendations) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("Recommendations")
		t.AppendHeader(table.Row{"Priority", "Category", "Message"})
		for _, rec := range r.Recommendations {
			t.AppendRow(table.Row{rec.Priority, rec.Category, rec.Message})
		}
		t.Render()
		fmt.Println()
	}

	if len(r.Tasks) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("Tasks")
		t.AppendHeader(table.Row{"ID", "Type", "Priority", "Status", "Note"})
		for _, task := range r.Tasks {
			t.AppendRow(table.Row{task.ID, task.Type, task.Priority, task.Status, task.Note})
		}
		t.Render()
	}
}
