package indicators

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource fails the first failures calls, then returns a snapshot.
type flakySource struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (f *flakySource) GetSnapshot(_ context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return domain.IndicatorSnapshot{}, f.err
	}
	return domain.NewIndicatorSnapshot(symbol, time.Unix(1700000000, 0).UTC(), map[string]float64{domain.FieldRSI: 42}), nil
}

func testConfig() ResilientConfig {
	cfg := DefaultResilientConfig()
	cfg.RatePerSecond = 0
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func newResilient(source domain.IndicatorSource, cfg ResilientConfig, cache Cache) *Resilient {
	r := NewResilient(source, cfg, cache, zerolog.Nop())
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestResilient_RetriesThenSucceeds(t *testing.T) {
	source := &flakySource{failures: 2, err: errors.New("502 bad gateway")}
	r := newResilient(source, testConfig(), nil)

	snapshot, err := r.GetSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	rsi, ok := snapshot.Get(domain.FieldRSI)
	require.True(t, ok)
	assert.Equal(t, 42.0, rsi)
	assert.Equal(t, 3, source.calls)
}

func TestResilient_ExhaustedRetriesAreUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	source := &flakySource{failures: 100, err: cause}
	cfg := testConfig()
	cfg.MaxRetries = 2
	cfg.FailureThreshold = 100
	r := newResilient(source, cfg, nil)

	_, err := r.GetSnapshot(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndicatorSourceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, source.calls)
}

func TestResilient_BreakerOpens(t *testing.T) {
	source := &flakySource{failures: 100, err: errors.New("timeout")}
	cfg := testConfig()
	cfg.MaxRetries = 0
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Hour
	r := newResilient(source, cfg, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.GetSnapshot(ctx, "AAPL")
		require.Error(t, err)
	}
	assert.Equal(t, "open", r.BreakerState())

	_, err := r.GetSnapshot(ctx, "AAPL")
	assert.ErrorIs(t, err, domain.ErrIndicatorSourceUnavailable)
	assert.Equal(t, 2, source.calls, "open breaker short-circuits upstream")
}

func TestResilient_Cancelled(t *testing.T) {
	source := &flakySource{}
	r := newResilient(source, testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetSnapshot(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResilient_CachesSnapshots(t *testing.T) {
	source := &flakySource{}
	r := newResilient(source, testConfig(), NewMemoryCache())
	ctx := context.Background()

	first, err := r.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	second, err := r.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, first.Values(), second.Values())
	assert.True(t, first.Timestamp().Equal(second.Timestamp()))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Second)
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, time.Second, 1))
	assert.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 10))
}

func TestStatic(t *testing.T) {
	s := NewStatic(map[string]map[string]float64{"AAPL": {domain.FieldRSI: 25}})
	ctx := context.Background()

	snapshot, err := s.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", snapshot.Symbol())

	_, err = s.GetSnapshot(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrIndicatorSourceUnavailable)
}

func syntheticBars(n int, start, step float64) []formulas.Bar {
	bars := make([]formulas.Bar, n)
	for i := range bars {
		c := start + step*float64(i) + math.Sin(float64(i))
		bars[i] = formulas.Bar{Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1000 + float64(i)}
	}
	return bars
}

func TestFromBars_FullHistory(t *testing.T) {
	at := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	snapshot := FromBars("AAPL", at, syntheticBars(260, 100, 0.5), syntheticBars(260, 400, 0.2))

	for _, field := range []string{
		domain.FieldPrice, domain.FieldVolume, domain.FieldAvgVolume, domain.FieldChangePct,
		domain.FieldWeeklyChangePct, domain.FieldRSI, domain.FieldMACD, domain.FieldMACDSignal,
		domain.FieldADX, domain.FieldPlusDI, domain.FieldMinusDI, domain.FieldSMA50, domain.FieldSMA200,
		domain.FieldEMA200, domain.FieldBollingerUpper, domain.FieldBollingerLower, domain.FieldVolatility,
		domain.FieldPortfolioReturn, domain.FieldBenchmarkReturn, domain.FieldVIX,
	} {
		assert.True(t, snapshot.Has(field), field)
	}

	sma50, _ := snapshot.Get(domain.FieldSMA50)
	sma200, _ := snapshot.Get(domain.FieldSMA200)
	assert.Greater(t, sma50, sma200, "rising series")
	assert.True(t, at.Equal(snapshot.Timestamp()))
}

func TestFromBars_ShortHistoryOmitsFields(t *testing.T) {
	snapshot := FromBars("AAPL", time.Now(), syntheticBars(30, 100, 0.5), nil)

	assert.True(t, snapshot.Has(domain.FieldRSI))
	assert.False(t, snapshot.Has(domain.FieldSMA200))
	assert.False(t, snapshot.Has(domain.FieldEMA200))
	assert.False(t, snapshot.Has(domain.FieldBenchmarkReturn))
	assert.False(t, snapshot.Has(domain.FieldVIX))

	empty := FromBars("AAPL", time.Now(), nil, nil)
	assert.Empty(t, empty.Fields())
}
