package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/internal/app"
	"mercator-hq/ropsim/pkg/cli"
	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/telemetry"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ROP simulator",
	Long: `Start the ROP simulator with the specified configuration.

The simulator connects to the remote store, uploads the templates, publishes
one file per configured node and then renames every published file once per
ROP. The HTTP server exposes manual generation, the notification query API,
PM file downloads, health and metrics.

The configuration file is watched for changes; SIGHUP forces a reload.

Examples:
  # Start with default config
  ropsim run

  # Start with custom config
  ropsim run --config /etc/ropsim/config.yaml

  # Override listen address
  ropsim run --listen 0.0.0.0:9090

  # Validate config and build every component without starting
  ropsim run --dry-run`,
	RunE: runSimulator,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the simulator")
}

func runSimulator(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	tel, err := telemetry.New(&cfg.Telemetry, telemetry.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})
	if err != nil {
		return cli.NewConfigError("telemetry", err.Error())
	}

	a, err := app.New(cfg, tel, app.WithConfigPath(cfgFile))
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()
	defer func() {
		if err := a.ShutdownTelemetry(cfg.Server.ShutdownTimeout); err != nil {
			tel.Logger().Slog().Warn("telemetry shutdown failed", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(out, cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := a.Run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Simulator stopped")
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "ropsim v%s\n", Version)
	fmt.Fprintf(w, "✓ Configuration loaded from %s\n", cfgFile)
	fmt.Fprintf(w, "✓ Remote store: %s (%s)\n", cfg.Remote.Backend, cfg.Remote.BaseDirectory)
	fmt.Fprintf(w, "✓ Nodes: %d counter, %d EBS, %d core, %d 4G event, %d 5G event\n",
		cfg.Nodes.PMCounter, cfg.Nodes.PMCounterEBS, cfg.Nodes.PMCounterCore, cfg.Nodes.Event4G, cfg.Nodes.Event5G)
	fmt.Fprintf(w, "✓ ROP: %d minutes, retention %d minutes\n", cfg.ROP.PeriodMinutes, cfg.ROP.RetentionMinutes)
	fmt.Fprintf(w, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")
}
