package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/pkg/cli"
	"mercator-hq/ropsim/pkg/config"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ropsim",
	Short: "ROP file simulator for PM file collectors",
	Long: `Ropsim publishes synthetic PM counter and event files to an SFTP server
and advertises them as file notifications, so PM file collectors can be
exercised without a live network.

It provides:
  - Template upload and per-node symbolic links for every file category
  - Renaming of every published file once per ROP, with retention
  - A file notification query API and PM file downloads
  - Prometheus metrics, health endpoints and optional tracing`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, ce := range cli.ConfigErrors(err) {
			if ce.Field != "" {
				fmt.Fprintln(os.Stderr, "  -", ce.Field+":", ce.Message)
			}
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}

// loadConfig reads the configuration file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfgFile, err)
	}
	return cfg, nil
}
