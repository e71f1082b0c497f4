package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kafaat/sahool-intel/pkg/engine"
)

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show engine health and circuit state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.shutdown(cmd.Context())

			health := a.orch.GetEngineHealth()

			if jsonOutput {
				return printJSON(health)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Engine", "State", "Circuit", "Last Error"})
			for _, kind := range engine.SourceKinds() {
				h := health[kind]
				t.AppendRow(table.Row{
					kind, h.State, a.orch.BreakerState(kind), h.LastError,
				})
			}
			t.Render()

			for _, h := range health {
				if h.State != engine.HealthHealthy {
					fmt.Println("\nOne or more engines are degraded.")
					break
				}
			}
			return nil
		},
	}

	return cmd
}
