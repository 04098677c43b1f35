package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/retention"
	"mercator-hq/ropsim/pkg/scheduler"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file with environment overrides and report every
invalid field. On success the resolved node targets, schedule and retention
are printed.

Examples:
  ropsim validate --config config.yaml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	schedule := cfg.ROP.Schedule
	switch schedule {
	case "":
		schedule = scheduler.DefaultSchedule(cfg.ROP.Period())
	case config.ScheduleOff:
		schedule = "disabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s is valid\n", cfgFile)
	fmt.Fprintf(out, "  nodes:     %d\n", cfg.Nodes.Targets().Total())
	fmt.Fprintf(out, "  schedule:  %s\n", schedule)
	fmt.Fprintf(out, "  retention: %d snapshots\n", retention.Capacity(cfg.ROP.PeriodMinutes, cfg.ROP.RetentionMinutes))
	fmt.Fprintf(out, "  remote:    %s\n", cfg.Remote.Backend)
	return nil
}
