package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/pkg/cli"
	"mercator-hq/ropsim/pkg/history"
)

var cyclesFlags struct {
	db     string
	limit  int
	output string
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "List recorded generation cycles",
	Long: `List the newest generation cycles from the cycle history database.

Examples:
  ropsim cycles --limit 5
  ropsim cycles --db /var/lib/ropsim/history.db --output csv`,
	Args: cobra.NoArgs,
	RunE: listCycles,
}

func init() {
	rootCmd.AddCommand(cyclesCmd)

	cyclesCmd.Flags().StringVar(&cyclesFlags.db, "db", "", "history database (default from config)")
	cyclesCmd.Flags().IntVar(&cyclesFlags.limit, "limit", 20, "maximum cycles (0 for all)")
	cyclesCmd.Flags().StringVarP(&cyclesFlags.output, "output", "o", "text", "output format: text, json, csv")
}

func listCycles(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(cyclesFlags.output)
	if err != nil {
		return err
	}

	hcfg := history.Config{Path: cyclesFlags.db}
	if hcfg.Path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return cli.NewConfigError("history.enabled", "cycle history is disabled")
		}
		hcfg.Path = cfg.History.SQLite.Path
		hcfg.BusyTimeout = cfg.History.SQLite.BusyTimeout
	}

	store, err := history.Open(hcfg)
	if err != nil {
		return cli.NewCommandError("cycles", err)
	}
	defer store.Close()

	cycles, err := store.List(context.Background(), cyclesFlags.limit)
	if err != nil {
		return cli.NewCommandError("cycles", err)
	}
	if cycles == nil {
		cycles = []history.Cycle{}
	}

	table := cli.Table{
		Headers: []string{"ID", "STARTED", "SOURCE", "OUTCOME", "REASON", "WINDOW", "PUBLISHED", "ROTATED", "DELETED", "LIVE", "DURATION"},
		Value:   cycles,
	}
	for _, c := range cycles {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.StartedAt.Format(time.RFC3339),
			c.Source,
			c.Outcome,
			c.Reason,
			c.Window,
			strconv.Itoa(c.Published),
			strconv.Itoa(c.Rotated),
			strconv.Itoa(c.Deleted),
			strconv.Itoa(c.Live),
			c.Duration.Round(time.Millisecond).String(),
		})
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
