package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ssl-backtest/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// signal streams only carry buy/sell events, so they stay short
	signalStreamMaxLen = 5000
	defaultLatestTTL   = 24 * time.Hour
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher pushes the rows of finished runs to Redis.
type Publisher struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ model.RunPublisher = (*Publisher)(nil)

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", slog.String("addr", cfg.Addr))
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *Publisher {
	return &Publisher{client: client, ttl: defaultLatestTTL}
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// PublishRun sends one run in a single pipeline:
// XADD every buy/sell row to the signal stream, SET the last row as latest,
// and PUBLISH the last row for live subscribers.
func (p *Publisher) PublishRun(ctx context.Context, symbol string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	events := 0
	for i := range rows {
		if rows[i].Signal == model.Hold {
			continue
		}
		data, err := json.Marshal(rows[i])
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", i, err)
		}
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: StreamKey(symbol),
			MaxLen: signalStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"signal": rows[i].Signal.String(),
				"data":   string(data),
			},
		})
		events++
	}

	last, err := json.Marshal(rows[len(rows)-1])
	if err != nil {
		return fmt.Errorf("marshal latest row: %w", err)
	}
	pipe.Set(ctx, LatestKey(symbol), string(last), p.ttl)
	pipe.Publish(ctx, PubSubChannel(symbol), string(last))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish run for %s: %w", symbol, err)
	}
	slog.Debug("redis run published", slog.String("symbol", symbol), slog.Int("events", events))
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// StreamKey is the stream of buy/sell events: "ssl:signal:{symbol}".
func StreamKey(symbol string) string { return "ssl:signal:" + symbol }

// LatestKey holds the last annotated row: "ssl:latest:{symbol}".
func LatestKey(symbol string) string { return "ssl:latest:" + symbol }

// PubSubChannel notifies live subscribers: "pub:ssl:{symbol}".
func PubSubChannel(symbol string) string { return "pub:ssl:" + symbol }
