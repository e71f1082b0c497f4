// Package commands implements the sahool-intel CLI.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sahool-intel",
		Short: "Sahool - Field Intelligence Engine",
		Long: `Sahool generates unified agricultural intelligence for fields by
orchestrating independent analysis engines behind a resilient core.

Features:
  - Parallel fan-out over astral, vegetation, weather, soil, crop and
    irrigation engines with per-engine fallbacks
  - Circuit breaker protection and TTL result caching
  - Lunar calendar task integration and daily work scheduling
  - Derived recommendations, alerts, risk scoring and yield forecasts`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	viper.SetEnvPrefix("SAHOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	// Add subcommands
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newCalendarCommand())
	rootCmd.AddCommand(newHealthCommand())
	rootCmd.AddCommand(newServeCommand(version))

	return rootCmd
}

// resolveConfigPath prefers the flag, then the SAHOOL_CONFIG environment
// variable.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return viper.GetString("config")
}
