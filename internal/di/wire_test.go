package di

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:      t.TempDir(),
		Port:         8001,
		Schedule:     "@hourly",
		Concurrency:  2,
		BatchTimeout: time.Minute,
		Symbols:      []string{"AAPL"},
		Source:       config.SourceConfig{RatePerSecond: 0, CacheTTL: time.Minute},
	}
}

func TestWire_WithoutIntegrations(t *testing.T) {
	cfg := testConfig(t)
	c, err := Wire(context.Background(), cfg, config.DefaultStrategyFile(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Runner)
	assert.NotNil(t, c.Resilient)
	assert.Nil(t, c.Positions, "no broker configured")
	assert.Nil(t, c.Publisher)
	assert.Nil(t, c.BackupService)

	strategies := c.Registry.Strategies()
	require.Len(t, strategies, 1)
	assert.Equal(t, "default", strategies[0].ID)
	assert.Equal(t, 1, strategies[0].Version)

	jobs := c.Scheduler.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "scoring_batch:default", jobs[0].Name)
	assert.Equal(t, "maintenance", jobs[1].Name)

	// With no broker the static source knows no symbols; the batch still completes.
	batch, err := c.Runner.Run(context.Background(), "default", []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Failed)
}

func TestWire_RestoresPersistedStrategies(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := Wire(ctx, cfg, config.DefaultStrategyFile(), zerolog.Nop())
	require.NoError(t, err)
	_, err = c.ScoringService.ConfigureWeights(ctx, "default", map[string]float64{"rsi": 0.2, "macd": 0.8})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// The seed is ignored once the strategy has been persisted.
	c, err = Wire(ctx, cfg, config.DefaultStrategyFile(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	st, err := c.Registry.Strategy("default")
	require.NoError(t, err)
	assert.Equal(t, 0.8, st.Weights["macd"])
	assert.Equal(t, 2, st.Version)
}

func TestWire_UnknownDirective(t *testing.T) {
	sf := config.DefaultStrategyFile()
	sf.Directives = []string{"rsi", "astrology"}
	_, err := Wire(context.Background(), testConfig(t), sf, zerolog.Nop())
	assert.Error(t, err)
}

func TestInitializeRepositories_RequiresDatabases(t *testing.T) {
	assert.Error(t, InitializeRepositories(&Container{}, zerolog.Nop()))
}

func TestInitializeServices_InvalidStrategy(t *testing.T) {
	cfg := testConfig(t)
	c, err := InitializeDatabases(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, InitializeRepositories(c, zerolog.Nop()))

	sf := config.DefaultStrategyFile()
	sf.Strategies = []scoring.Strategy{{ID: "bad", Weights: map[string]float64{"rsi": 0.5}, Thresholds: scoring.DefaultThresholds()}}
	assert.Error(t, InitializeServices(context.Background(), c, cfg, sf, zerolog.Nop()))
}
