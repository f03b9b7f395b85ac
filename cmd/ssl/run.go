package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ssl-backtest/config"
	"ssl-backtest/internal/frame"
	"ssl-backtest/internal/logger"
	"ssl-backtest/internal/metrics"
	"ssl-backtest/internal/notification"
	"ssl-backtest/internal/report"
	redisstore "ssl-backtest/internal/store/redis"
	sqlitestore "ssl-backtest/internal/store/sqlite"
	"ssl-backtest/internal/strategy"
)

func init() {
	runCmd.Flags().String("csv", "", "read bars from a CSV file instead of SQLite")
	runCmd.Flags().String("symbol", "", "symbol to read from SQLite, or to label a CSV run")
	runCmd.Flags().String("out", "", "write the annotated table to this CSV file")
	runCmd.Flags().Int("length", 0, "SMA window length (default from config)")
	runCmd.Flags().Float64("capital", 0, "account capital (default from config)")
	runCmd.Flags().Float64("risk", 0, "risk percent per trade (default from config)")
	runCmd.Flags().Int("rows", 20, "number of signal rows to print, 0 for all")
	runCmd.Flags().Bool("store", false, "persist the annotated run to SQLite")
	runCmd.Flags().Bool("publish", false, "publish signals to Redis")
	runCmd.Flags().Bool("push", false, "push run metrics to the pushgateway")
	runCmd.Flags().Bool("notify", false, "send an alert when the last bar carries a buy or sell")
	rootCmd.AddCommand(runCmd)
}

// go run ./cmd/ssl run --csv data/AAPL.csv
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Annotate a bar series with the SSL channel and its signals",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		params, err := paramsFromFlags(cmd, cfg.Params())
		if err != nil {
			return err
		}

		f, symbol, err := loadFrame(cmd, cfg)
		if err != nil {
			return err
		}

		m := metrics.New()
		engine, err := strategy.NewEngine(params, strategy.WithRecorder(m))
		if err != nil {
			m.ObserveFailure(err)
			pushMetrics(cmd, cfg, m)
			return err
		}

		runID := logger.NewRunID(symbol, time.Now())
		ctx := logger.WithRunID(cmd.Context(), runID)

		res, runErr := engine.RunFrame(ctx, f)
		pushMetrics(cmd, cfg, m)
		if runErr != nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		report.RenderSummary(out, symbol, params, res.Summary)
		limit, _ := cmd.Flags().GetInt("rows")
		report.RenderSignals(out, res.Rows, limit)

		if path, _ := cmd.Flags().GetString("out"); path != "" {
			if err := writeAnnotated(path, f, res); err != nil {
				return err
			}
			slog.Info("annotated table written", append(logger.LogWithRun(ctx), slog.String("path", path))...)
		}

		if store, _ := cmd.Flags().GetBool("store"); store {
			if err := storeRun(ctx, cfg, runID, symbol, res); err != nil {
				return err
			}
		}

		if publish, _ := cmd.Flags().GetBool("publish"); publish {
			if err := publishRun(ctx, cfg, symbol, res); err != nil {
				return err
			}
		}

		if notify, _ := cmd.Flags().GetBool("notify"); notify {
			if alert, ok := notification.LatestAlert(symbol, res.Rows); ok {
				if err := notifiers(cfg).Send(ctx, alert); err != nil {
					slog.Warn("alert delivery failed", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
				}
			}
		}
		return nil
	},
}

// paramsFromFlags overlays the run flags the user set onto p.
func paramsFromFlags(cmd *cobra.Command, p strategy.Params) (strategy.Params, error) {
	flags := cmd.Flags()
	var err error
	if flags.Changed("length") {
		if p.Length, err = flags.GetInt("length"); err != nil {
			return p, err
		}
	}
	if flags.Changed("capital") {
		if p.Capital, err = flags.GetFloat64("capital"); err != nil {
			return p, err
		}
	}
	if flags.Changed("risk") {
		if p.RiskPercent, err = flags.GetFloat64("risk"); err != nil {
			return p, err
		}
	}
	return p, nil
}

// loadFrame reads the input table from --csv, or the --symbol bars from SQLite.
func loadFrame(cmd *cobra.Command, cfg *config.Config) (*frame.Frame, string, error) {
	csvPath, _ := cmd.Flags().GetString("csv")
	symbol, _ := cmd.Flags().GetString("symbol")

	if csvPath != "" {
		f, err := readCSVFile(csvPath)
		if err != nil {
			return nil, "", err
		}
		if symbol == "" {
			symbol = strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
		}
		return f, symbol, nil
	}

	if symbol == "" {
		return nil, "", errors.New("either --csv or --symbol is required")
	}
	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()

	bars, err := reader.ReadBars(cmd.Context(), symbol)
	if err != nil {
		return nil, "", err
	}
	if len(bars) == 0 {
		return nil, "", fmt.Errorf("no bars for %s in %s", symbol, cfg.SQLitePath)
	}
	return frame.FromBars(bars), symbol, nil
}

func readCSVFile(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := frame.ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func writeAnnotated(path string, f *frame.Frame, res *strategy.Result) error {
	annotated, err := f.WithRows(res.Rows)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := annotated.WriteCSV(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func storeRun(ctx context.Context, cfg *config.Config, runID, symbol string, res *strategy.Result) error {
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteRun(ctx, runID, symbol, res.Rows); err != nil {
		return err
	}
	slog.Info("run stored", append(logger.LogWithRun(ctx), slog.String("db", cfg.SQLitePath))...)
	return nil
}

func publishRun(ctx context.Context, cfg *config.Config, symbol string, res *strategy.Result) error {
	if cfg.RedisAddr == "" {
		return errors.New("--publish needs REDIS_ADDR")
	}
	pub, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := pub.PublishRun(ctx, symbol, res.Rows); err != nil {
		return err
	}
	slog.Info("run published", append(logger.LogWithRun(ctx), slog.String("symbol", symbol))...)
	return nil
}

// pushMetrics pushes m when --push is set. Push failures are logged, not returned.
func pushMetrics(cmd *cobra.Command, cfg *config.Config, m *metrics.Metrics) {
	if push, _ := cmd.Flags().GetBool("push"); !push {
		return
	}
	if cfg.PushgatewayURL == "" {
		slog.Warn("--push set but PUSHGATEWAY_URL is empty")
		return
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := m.Push(ctx, cfg.PushgatewayURL, serviceName); err != nil {
		slog.Warn("metrics push failed", slog.String("error", err.Error()))
	}
}

// notifiers builds the alert backends configured in cfg. The log backend is always on.
func notifiers(cfg *config.Config) notification.Multi {
	n := notification.Multi{notification.LogNotifier{}}
	if cfg.AlertWebhookURL != "" {
		n = append(n, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		n = append(n, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	return n
}
