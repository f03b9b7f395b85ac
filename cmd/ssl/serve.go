package main

import (
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ssl-backtest/internal/gateway"
	"ssl-backtest/internal/metrics"
	redisstore "ssl-backtest/internal/store/redis"
	sqlitestore "ssl-backtest/internal/store/sqlite"
)

const livenessInterval = 15 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

// go run ./cmd/ssl serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve SSL series over HTTP/WebSocket with metrics and health endpoints",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if err := cfg.Validate(); err != nil {
			return err
		}

		reader, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer reader.Close()

		var rdb *goredis.Client
		if cfg.RedisAddr != "" {
			pub, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			if err != nil {
				slog.Warn("redis unavailable, health will report degraded", slog.String("error", err.Error()))
				rdb = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			} else {
				rdb = pub.Client()
			}
			defer rdb.Close()
		}

		m := metrics.New()
		health := metrics.NewHealthStatus()

		g, ctx := errgroup.WithContext(cmd.Context())
		health.StartLivenessChecker(ctx, reader.DB(), rdb, livenessInterval)

		gw := gateway.NewServer(reader, cfg.Params(),
			gateway.WithRecorder(m),
			gateway.WithLogger(slog.Default()))
		ms := metrics.NewServer(cfg.MetricsAddr, m, health)

		g.Go(func() error { return gw.Serve(ctx, cfg.GatewayAddr) })
		g.Go(func() error { return ms.Serve(ctx) })

		err = g.Wait()
		slog.Info("serve stopped")
		return err
	},
}
