package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/pkg/cli"
	"mercator-hq/ropsim/pkg/notification"
)

var notificationsFlags struct {
	db     string
	filter string
	limit  int
	output string
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Query the persisted file notifications",
	Long: `Query file notifications stored by the sqlite notification backend, using
the same filter syntax as the HTTP API.

Examples:
  # Everything after a known id
  ropsim notifications --filter "id=gt=1650000000000"

  # Event files for one node type as JSON
  ropsim notifications --filter "dataType==PM_CELLTRACE*;nodeType==RadioNode;" --output json`,
	Args: cobra.NoArgs,
	RunE: queryNotifications,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)

	notificationsCmd.Flags().StringVar(&notificationsFlags.db, "db", "", "notification database (default from config)")
	notificationsCmd.Flags().StringVarP(&notificationsFlags.filter, "filter", "f", "", "filter expression")
	notificationsCmd.Flags().IntVar(&notificationsFlags.limit, "limit", 100, "maximum records (0 for all)")
	notificationsCmd.Flags().StringVarP(&notificationsFlags.output, "output", "o", "text", "output format: text, json, csv")
}

func queryNotifications(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(notificationsFlags.output)
	if err != nil {
		return err
	}

	cfg := notification.SQLiteConfig{Path: notificationsFlags.db}
	if cfg.Path == "" {
		appCfg, err := loadConfig()
		if err != nil {
			return err
		}
		if appCfg.Notifications.Backend != "sqlite" {
			return cli.NewConfigError("notifications.backend", "notifications are only persisted by the sqlite backend")
		}
		cfg.Path = appCfg.Notifications.SQLite.Path
		cfg.BusyTimeout = appCfg.Notifications.SQLite.BusyTimeout
	}

	sink, err := notification.NewSQLiteSink(cfg)
	if err != nil {
		return cli.NewCommandError("notifications", err)
	}
	defer sink.Close()

	f := notification.ParseFilter(notificationsFlags.filter)
	f.Limit = notificationsFlags.limit
	records, err := sink.Query(context.Background(), f)
	if err != nil {
		return cli.NewCommandError("notifications", err)
	}
	if records == nil {
		records = []notification.Record{}
	}

	table := cli.Table{
		Headers: []string{"ID", "NODE", "DATA TYPE", "NODE TYPE", "LOCATION"},
		Value:   records,
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(r.ID, 10), r.NodeName, r.DataType, r.NodeType, r.FileLocation,
		})
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
