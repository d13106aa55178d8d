package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADESIGNAL_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SYMBOLS", "aapl, msft,,nvda ")
	t.Setenv("SNAPSHOT_CACHE_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.DirExists(t, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, cfg.Symbols)
	assert.Equal(t, "@hourly", cfg.Schedule)
	assert.Equal(t, 90*time.Second, cfg.Source.CacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "SPY", cfg.Alpaca.BenchmarkSymbol)
	assert.False(t, cfg.Alpaca.Enabled())
	assert.False(t, cfg.R2.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Port: 8001, Schedule: "@hourly", Concurrency: 2}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"six field schedule", func(c *Config) { c.Schedule = "0 */15 * * * *" }, ""},
		{"bad port", func(c *Config) { c.Port = 0 }, "GO_PORT"},
		{"bad schedule", func(c *Config) { c.Schedule = "whenever" }, "SCHEDULE"},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }, "CONCURRENCY"},
		{"bad backup schedule", func(c *Config) {
			c.R2 = R2Config{AccountID: "a", AccessKeyID: "k", SecretAccessKey: "s", Bucket: "b", Schedule: "nope"}
		}, "BACKUP_SCHEDULE"},
		{"backup schedule ignored when disabled", func(c *Config) { c.R2.Schedule = "nope" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

const sampleFile = `
scorer:
  failure_policy: skip
  skip_weight_policy: redistribute
direction_rule: always_buy
directives: [rsi, macd, adx]
strategies:
  - id: momentum
    name: Momentum
    weights: {rsi: 0.3, macd: 0.4, adx: 0.3}
    thresholds:
      score_threshold: 70
      min_change: 5
      max_volatility: 35
      market_hours:
        timezone: America/New_York
        days: [mon, tue, wed, thu, fri]
        open: "09:30"
        close: "16:00"
  - id: plain
    weights: {rsi: 1.0}
risk_model:
  weights: {unrealized_loss: 0.6, time_held: 0.4}
  thresholds: {moderate: 0.4, high: 0.7, severe: 0.9}
  response:
    moderate_stop_tighten_pct: 25
    high_stop_tighten_pct: 50
    high_reduce_pct: 50
    default_stop_distance_pct: 10
  limits:
    max_position_pct: 0.2
    max_loss_pct: 0.2
    holding_period_days: 90
    max_volatility: 0.6
    max_sector_exposure: 0.4
    earnings_window_days: 14
reference:
  sectors: {AAPL: Technology}
  earnings: {AAPL: 2026-01-29}
`

func TestParseStrategyFile(t *testing.T) {
	sf, err := ParseStrategyFile(strings.NewReader(sampleFile))
	require.NoError(t, err)

	require.Len(t, sf.Strategies, 2)
	m := sf.Strategies[0]
	assert.Equal(t, "Momentum", m.Name)
	assert.Equal(t, 70.0, m.Thresholds.ScoreThreshold)
	require.NotNil(t, m.Thresholds.MarketHours)
	assert.Equal(t, "09:30", m.Thresholds.MarketHours.Open)

	plain := sf.Strategies[1]
	assert.Equal(t, "plain", plain.Name)
	assert.Equal(t, scoring.DefaultThresholds(), plain.Thresholds)

	opts, err := sf.ScorerOptions()
	require.NoError(t, err)
	assert.Equal(t, scoring.FailurePolicySkip, opts.FailurePolicy)
	assert.Equal(t, scoring.SkipWeightRedistribute, opts.SkipWeightPolicy)

	require.NotNil(t, sf.RiskModel)
	assert.Equal(t, "default", sf.RiskModel.ID)
	assert.Equal(t, 0.6, sf.RiskModel.Weights[risk.FactorUnrealizedLoss])

	assert.Equal(t, "Technology", sf.Reference.Sectors["AAPL"])
	assert.Equal(t, time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC), sf.Reference.Earnings["AAPL"])
	assert.Equal(t, []string{"rsi", "macd", "adx"}, sf.Directives)
}

func TestParseStrategyFile_Defaults(t *testing.T) {
	sf, err := ParseStrategyFile(strings.NewReader("strategies:\n  - id: s\n    weights: {rsi: 1}\n"))
	require.NoError(t, err)
	assert.Equal(t, "signal_vote", sf.DirectionRule)
	opts, err := sf.ScorerOptions()
	require.NoError(t, err)
	assert.Equal(t, scoring.FailurePolicyAbort, opts.FailurePolicy)
	assert.Equal(t, scoring.SkipWeightFixedCeiling, opts.SkipWeightPolicy)
	require.NotNil(t, sf.RiskModel)
	assert.NoError(t, sf.RiskModel.Validate())
}

func TestParseStrategyFile_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		errMsg string
	}{
		{"weights off", "strategies:\n  - id: s\n    weights: {rsi: 0.5, macd: 0.3}\n", "sum to 0.80"},
		{"missing id", "strategies:\n  - weights: {rsi: 1}\n", "id is required"},
		{"duplicate", "strategies:\n  - id: s\n    weights: {rsi: 1}\n  - id: s\n    weights: {rsi: 1}\n", "duplicate"},
		{"unknown key", "strategy:\n  - id: s\n", "field strategy not found"},
		{"bad policy", "scorer:\n  failure_policy: ignore\n", "unknown failure policy"},
		{"bad rule", "direction_rule: coin_flip\n", "unknown direction_rule"},
		{"bad risk weights", "risk_model:\n  weights: {time_held: 0.5}\n", "risk_model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrategyFile(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadStrategyFile(t *testing.T) {
	sf, err := LoadStrategyFile("")
	require.NoError(t, err)
	require.Len(t, sf.Strategies, 1)
	assert.Equal(t, "default", sf.Strategies[0].ID)

	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))
	sf, err = LoadStrategyFile(path)
	require.NoError(t, err)
	assert.Len(t, sf.Strategies, 2)

	_, err = LoadStrategyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseStrategyFile_PartialRiskModel(t *testing.T) {
	sf, err := ParseStrategyFile(strings.NewReader("risk_model:\n  weights: {unrealized_loss: 0.5, time_held: 0.5}\n  tolerate_partial: true\n"))
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultRiskModel().Limits, sf.RiskModel.Limits)
	assert.Equal(t, risk.DefaultRiskModel().Thresholds, sf.RiskModel.Thresholds)
	assert.True(t, sf.RiskModel.ToleratePartial)
	assert.Len(t, sf.RiskModel.Weights, 2)
}
