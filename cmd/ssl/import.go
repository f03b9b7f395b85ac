package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	sqlitestore "ssl-backtest/internal/store/sqlite"
)

func init() {
	importCmd.Flags().String("csv", "", "CSV file with open, high, low, close columns")
	importCmd.Flags().String("symbol", "", "symbol to store the bars under")
	rootCmd.AddCommand(importCmd)
}

// go run ./cmd/ssl import --csv data/AAPL.csv --symbol AAPL
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load bars from a CSV file into SQLite",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		csvPath, _ := cmd.Flags().GetString("csv")
		symbol, _ := cmd.Flags().GetString("symbol")
		if csvPath == "" || symbol == "" {
			return errors.New("--csv and --symbol options are required")
		}

		f, err := readCSVFile(csvPath)
		if err != nil {
			return err
		}
		bars, err := f.Bars()
		if err != nil {
			return err
		}

		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.WriteBars(cmd.Context(), symbol, bars); err != nil {
			return err
		}
		slog.Info("bars imported",
			slog.String("symbol", symbol),
			slog.Int("bars", len(bars)),
			slog.String("db", cfg.SQLitePath))
		return nil
	},
}
