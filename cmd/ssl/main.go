// cmd/ssl runs the SSL Channel signal strategy over historical bars.
//
// Usage:
//
//	go run ./cmd/ssl run --csv data/AAPL.csv --length 10 --capital 1000 --risk 1
//	go run ./cmd/ssl import --csv data/AAPL.csv --symbol AAPL
//	go run ./cmd/ssl run --symbol AAPL --store --publish
//	go run ./cmd/ssl serve
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ssl-backtest/config"
	"ssl-backtest/internal/logger"
)

const serviceName = "ssl"

// appConfig is loaded once per invocation, before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "ssl",
	Short: "SSL Channel indicator and signal backtester",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appConfig = cfg
		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level, _ = cmd.Flags().GetString("log-level")
		}
		logger.InitWriter(os.Stderr, serviceName, logger.ParseLevel(level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file overlaid on the environment")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
}

// loadConfig reads the environment and, when --config is set, the YAML file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFile(path)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
