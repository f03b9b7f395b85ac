package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ssl-backtest/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	// SSL run parameters
	Length      int     `yaml:"length"`
	Capital     float64 `yaml:"capital"`
	RiskPercent float64 `yaml:"risk_percent"`

	// Infrastructure
	SQLitePath     string `yaml:"sqlite_path"`
	RedisAddr      string `yaml:"redis_addr"` // empty disables publishing
	RedisPassword  string `yaml:"redis_password"`
	PushgatewayURL string `yaml:"pushgateway_url"` // empty disables metric push
	GatewayAddr    string `yaml:"gateway_addr"`
	MetricsAddr    string `yaml:"metrics_addr"`

	// Signal alerts; each backend is enabled by its own keys
	AlertWebhookURL  string `yaml:"alert_webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`

	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; it never
// overrides variables already set.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			slog.Warn("config: .env not loaded", slog.String("error", err.Error()))
		}
	}

	defaults := strategy.DefaultParams()
	return &Config{
		Length:      getEnvInt("SSL_LENGTH", defaults.Length),
		Capital:     getEnvFloat("SSL_CAPITAL", defaults.Capital),
		RiskPercent: getEnvFloat("SSL_RISK_PERCENT", defaults.RiskPercent),

		SQLitePath:     getEnv("SQLITE_PATH", "data/bars.db"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		GatewayAddr:    getEnv("GATEWAY_ADDR", ":8080"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),

		AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// LoadFile is Load overlaid with the keys present in a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Params returns the SSL run parameters.
func (c *Config) Params() strategy.Params {
	return strategy.Params{
		Length:      c.Length,
		Capital:     c.Capital,
		RiskPercent: c.RiskPercent,
	}
}

// Validate reports every out-of-range run parameter.
func (c *Config) Validate() error {
	return c.Params().Validate()
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config: ignoring invalid integer", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config: ignoring invalid number", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return f
}
