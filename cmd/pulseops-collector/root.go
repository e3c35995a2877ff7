package main

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pulseops-collector",
	Short: "Weather telemetry collector",
	Long:  "pulseops-collector produces weather telemetry records from a live upstream or a replay dataset and delivers them to the configured sinks.",
}

// Execute runs the root command with ctx carried down to subcommands.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(dashboardCmd)
}
