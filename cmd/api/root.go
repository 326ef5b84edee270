package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobprep-backend/internal/shared/config"
	"jobprep-backend/internal/shared/telemetry"
)

const app = "jobprep"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "jobprep serves the resume analysis and mock interview API",
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional config file (yaml, json or toml); environment variables override it")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
}

// setup loads configuration and installs the process logger.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := telemetry.New(cfg.LogJSON, cfg.LogDebug || debug)
	if err != nil {
		return cfg, nil, fmt.Errorf("creating a logger: %w", err)
	}
	telemetry.SetLogger(logger)
	return cfg, logger, nil
}
