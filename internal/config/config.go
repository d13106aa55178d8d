// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for databases and backup staging (always absolute)
	LogLevel     string
	Port         int
	DevMode      bool
	StrategyFile string // YAML strategies, risk model and reference data; optional
	Symbols      []string
	Schedule     string
	Concurrency  int
	BatchTimeout time.Duration
	Source       SourceConfig
	Alpaca       AlpacaConfig
	Kafka        KafkaConfig
	R2           R2Config
}

// SourceConfig tunes the resilient indicator source.
type SourceConfig struct {
	RatePerSecond float64
	CacheTTL      time.Duration
	RedisAddr     string // empty selects the in-process cache
}

// AlpacaConfig holds broker and market data credentials.
type AlpacaConfig struct {
	APIKey          string
	APISecret       string
	BaseURL         string
	Feed            string
	BenchmarkSymbol string
}

// Enabled reports whether Alpaca credentials are configured.
func (c AlpacaConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// KafkaConfig holds signal publishing settings. Publishing is off without brokers.
type KafkaConfig struct {
	Brokers     []string
	SignalTopic string
	RiskTopic   string
}

// R2Config holds Cloudflare R2 backup settings. Backups are off without credentials.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Schedule        string
	RetentionDays   int
}

// Enabled reports whether every R2 credential is set.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADESIGNAL_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		StrategyFile: getEnv("STRATEGY_FILE", ""),
		Symbols:      upper(getEnvAsList("SYMBOLS")),
		Schedule:     getEnv("SCHEDULE", "@hourly"),
		Concurrency:  getEnvAsInt("CONCURRENCY", 4),
		BatchTimeout: getEnvAsDuration("BATCH_TIMEOUT", 10*time.Minute),
		Source: SourceConfig{
			RatePerSecond: getEnvAsFloat("SOURCE_RATE_PER_SEC", 3),
			CacheTTL:      getEnvAsDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
		},
		Alpaca: AlpacaConfig{
			APIKey:          getEnv("ALPACA_API_KEY", ""),
			APISecret:       getEnv("ALPACA_API_SECRET", ""),
			BaseURL:         getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			Feed:            getEnv("ALPACA_FEED", "iex"),
			BenchmarkSymbol: getEnv("BENCHMARK_SYMBOL", "SPY"),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsList("KAFKA_BROKERS"),
			SignalTopic: getEnv("KAFKA_SIGNAL_TOPIC", "trade-signals"),
			RiskTopic:   getEnv("KAFKA_RISK_TOPIC", "risk-actions"),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION", 30),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges and cron expressions
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be within 1-65535, got %d", c.Port)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("CONCURRENCY must not be negative, got %d", c.Concurrency)
	}
	if c.Source.RatePerSecond < 0 {
		return fmt.Errorf("SOURCE_RATE_PER_SEC must not be negative, got %v", c.Source.RatePerSecond)
	}
	if c.R2.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION must not be negative, got %d", c.R2.RetentionDays)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid SCHEDULE %q: %w", c.Schedule, err)
	}
	if c.R2.Enabled() {
		if _, err := parser.Parse(c.R2.Schedule); err != nil {
			return fmt.Errorf("invalid BACKUP_SCHEDULE %q: %w", c.R2.Schedule, err)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func upper(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToUpper(s)
	}
	return in
}
