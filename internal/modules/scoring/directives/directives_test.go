package directives

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tuesday = time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)

func snap(values map[string]float64) domain.IndicatorSnapshot {
	return domain.NewIndicatorSnapshot("AAPL", tuesday, values)
}

func TestRSI_Curve(t *testing.T) {
	d, err := NewRSI(DefaultRSIConfig())
	require.NoError(t, err)

	tests := []struct {
		rsi      float64
		expected float64
	}{
		{50, 50},
		{30, 70},
		{70, 30},
		{35.5, 64.5},
		{20, 85},
		{80, 15},
		{-50, 100},
		{150, 0},
	}
	for _, tt := range tests {
		res, err := d.Evaluate(snap(map[string]float64{domain.FieldRSI: tt.rsi}))
		require.NoError(t, err)
		assert.InDelta(t, tt.expected, res.Score, 1e-9, "rsi=%v", tt.rsi)
	}
}

func TestRSI_Signals(t *testing.T) {
	d, err := NewRSI(DefaultRSIConfig())
	require.NoError(t, err)

	res, err := d.Evaluate(snap(map[string]float64{domain.FieldRSI: 20}))
	require.NoError(t, err)
	assert.Equal(t, scoring.SignalBullish, res.Signal)
	assert.Contains(t, res.Explanation, "oversold")

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldRSI: 85}))
	require.NoError(t, err)
	assert.Equal(t, scoring.SignalBearish, res.Signal)
	assert.Contains(t, res.Explanation, "overbought")
}

func TestNewRSI_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  RSIConfig
		msg  string
	}{
		{"inverted band", RSIConfig{Oversold: 70, Overbought: 30, Slope: 1.5}, "must be above oversold"},
		{"empty band", RSIConfig{Oversold: 50, Overbought: 50, Slope: 1.5}, "must be above oversold"},
		{"negative slope", RSIConfig{Oversold: 30, Overbought: 70, Slope: -1}, "slope must not be negative"},
		{"nan bound", RSIConfig{Oversold: math.NaN(), Overbought: 70, Slope: 1}, "must be finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewRSI(tt.cfg)
			assert.Nil(t, d)
			assert.ErrorContains(t, err, tt.msg)
		})
	}

	flat, err := NewRSI(RSIConfig{Oversold: 30, Overbought: 70})
	require.NoError(t, err, "zero slope is allowed")
	res, err := flat.Evaluate(snap(map[string]float64{domain.FieldRSI: 10}))
	require.NoError(t, err)
	assert.InDelta(t, 70, res.Score, 1e-9)
}

func TestMACD(t *testing.T) {
	d := NewMACD(DefaultMACDConfig())

	res, err := d.Evaluate(snap(map[string]float64{domain.FieldMACD: 2.5}))
	require.NoError(t, err)
	assert.InDelta(t, 75.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldMACD: 1, domain.FieldMACDSignal: 0.5}))
	require.NoError(t, err)
	assert.InDelta(t, 70.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldMACD: 1, domain.FieldMACDSignal: 2}))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldMACD: -1e6}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
}

func TestADX(t *testing.T) {
	d := NewADX()

	tests := []struct {
		name     string
		values   map[string]float64
		expected float64
	}{
		{"weak", map[string]float64{domain.FieldADX: 10}, 37.5},
		{"developing", map[string]float64{domain.FieldADX: 28.5}, 67},
		{"strong", map[string]float64{domain.FieldADX: 50}, 95},
		{"extreme clamps", map[string]float64{domain.FieldADX: 500}, 100},
		{"downtrend mirrored", map[string]float64{domain.FieldADX: 28.5, domain.FieldPlusDI: 10, domain.FieldMinusDI: 30}, 33},
		{"uptrend not mirrored", map[string]float64{domain.FieldADX: 28.5, domain.FieldPlusDI: 30, domain.FieldMinusDI: 10}, 67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Evaluate(snap(tt.values))
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, res.Score, 1e-9)
		})
	}
}

func TestMovingAverages(t *testing.T) {
	d := NewMovingAverages()

	res, err := d.Evaluate(snap(map[string]float64{domain.FieldSMA50: 445, domain.FieldSMA200: 440}))
	require.NoError(t, err)
	assert.InDelta(t, 70+5.0/440*100*5, res.Score, 1e-9)
	assert.Contains(t, res.Explanation, "golden cross")

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldSMA50: 80, domain.FieldSMA200: 100, domain.FieldPrice: 70}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Score, 1e-9)
	assert.Contains(t, res.Explanation, "death cross")

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldSMA50: 120, domain.FieldSMA200: 100, domain.FieldPrice: 130}))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.Score, 1e-9)

	_, err = d.Evaluate(snap(map[string]float64{domain.FieldSMA50: 120, domain.FieldSMA200: 0}))
	assert.Error(t, err)
}

func TestVolume(t *testing.T) {
	d := NewVolume()

	res, err := d.Evaluate(snap(map[string]float64{domain.FieldVolume: 1500, domain.FieldAvgVolume: 1000}))
	require.NoError(t, err)
	assert.InDelta(t, 75.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldVolume: 1500, domain.FieldAvgVolume: 1000, domain.FieldChangePct: -2}))
	require.NoError(t, err)
	assert.InDelta(t, 25.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldVolume: 10000, domain.FieldAvgVolume: 1000}))
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)

	_, err = d.Evaluate(snap(map[string]float64{domain.FieldVolume: 10, domain.FieldAvgVolume: 0}))
	assert.Error(t, err)
}

func TestBollinger(t *testing.T) {
	d := NewBollinger()

	res, err := d.Evaluate(snap(map[string]float64{domain.FieldPrice: 95, domain.FieldBollingerUpper: 110, domain.FieldBollingerLower: 90}))
	require.NoError(t, err)
	assert.InDelta(t, 75.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldPrice: 80, domain.FieldBollingerUpper: 110, domain.FieldBollingerLower: 90}))
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)

	_, err = d.Evaluate(snap(map[string]float64{domain.FieldPrice: 80, domain.FieldBollingerUpper: 90, domain.FieldBollingerLower: 90}))
	assert.Error(t, err)
}

func TestEMADistance(t *testing.T) {
	d := NewEMADistance()

	tests := []struct {
		price    float64
		expected float64
	}{
		{100, 50},
		{115, 20},
		{105, 35},
		{97.5, 60},
		{92.5, 85},
		{80, 100},
	}
	for _, tt := range tests {
		res, err := d.Evaluate(snap(map[string]float64{domain.FieldPrice: tt.price, domain.FieldEMA200: 100}))
		require.NoError(t, err)
		assert.InDelta(t, tt.expected, res.Score, 1e-9, "price=%v", tt.price)
	}
}

func TestPortfolioPerformance(t *testing.T) {
	d := NewPortfolioPerformance()

	res, err := d.Evaluate(snap(map[string]float64{domain.FieldPortfolioReturn: 4, domain.FieldBenchmarkReturn: 2}))
	require.NoError(t, err)
	assert.InDelta(t, 60.0, res.Score, 1e-9)

	res, err = d.Evaluate(snap(map[string]float64{domain.FieldPortfolioReturn: -3}))
	require.NoError(t, err)
	assert.InDelta(t, 35.0, res.Score, 1e-9)
}

func TestWeeklyRhythm(t *testing.T) {
	d := NewWeeklyRhythm()
	values := map[string]float64{domain.FieldWeeklyChangePct: -2}

	monday := domain.NewIndicatorSnapshot("AAPL", time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC), values)
	friday := domain.NewIndicatorSnapshot("AAPL", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), values)

	res, err := d.Evaluate(snap(values))
	require.NoError(t, err)
	assert.InDelta(t, 60.0, res.Score, 1e-9)

	res, err = d.Evaluate(monday)
	require.NoError(t, err)
	assert.InDelta(t, 65.0, res.Score, 1e-9)

	res, err = d.Evaluate(friday)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, res.Score, 1e-9)
}

func TestBuiltins_MissingDataIsAnError(t *testing.T) {
	empty := snap(map[string]float64{})
	for id, factory := range Builtins() {
		t.Run(id, func(t *testing.T) {
			d := factory()
			assert.Equal(t, id, d.ID())
			assert.Equal(t, MaxScore, d.MaxScore())
			assert.NotEmpty(t, d.Required())

			_, err := d.Evaluate(empty)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMissingIndicatorData)

			var missing *domain.MissingIndicatorDataError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, id, missing.Directive)
			assert.Equal(t, d.Required()[0], missing.Field)
		})
	}
}

func TestBuiltins_ScoresStayInRange(t *testing.T) {
	extremes := []float64{-1e9, -150, -50, -1, 0, 0.5, 1, 50, 150, 1e9}
	for id, factory := range Builtins() {
		d := factory()
		for _, x := range extremes {
			values := map[string]float64{}
			for _, f := range d.Required() {
				values[f] = x
			}
			res, err := d.Evaluate(snap(values))
			if err != nil {
				assert.NotErrorIs(t, err, domain.ErrMissingIndicatorData, "%s at %v", id, x)
				continue
			}
			assert.GreaterOrEqual(t, res.Score, 0.0, "%s at %v", id, x)
			assert.LessOrEqual(t, res.Score, d.MaxScore(), "%s at %v", id, x)
		}
	}
}

func TestScenario_FourDirectiveComposite(t *testing.T) {
	registry := scoring.NewRegistry(Builtins(), zerolog.Nop())
	require.NoError(t, registry.RegisterBuiltins())

	_, err := registry.ConfigureWeights("balanced", map[string]float64{
		IDRSI:            0.25,
		IDMACD:           0.25,
		IDADX:            0.25,
		IDMovingAverages: 0.25,
	})
	require.NoError(t, err)

	strategy, err := registry.Snapshot("balanced")
	require.NoError(t, err)

	s := snap(map[string]float64{
		domain.FieldRSI:    35.5,
		domain.FieldMACD:   2.5,
		domain.FieldADX:    28.5,
		domain.FieldSMA50:  445,
		domain.FieldSMA200: 440,
	})

	scorer := scoring.NewScorer(scoring.NewMemoryHistory(), scoring.ScorerOptions{FailurePolicy: scoring.FailurePolicyAbort}, zerolog.Nop())
	score, err := scorer.Compute(context.Background(), "AAPL", s, strategy)
	require.NoError(t, err)

	assert.Greater(t, score.Score, 60.0)
	expected := 0.25 * (64.5 + 75 + 67 + (70 + 5.0/440*100*5))
	assert.InDelta(t, expected, score.Score, 1e-9)
	assert.InDelta(t, 70.545, score.Score, 0.001)
	assert.Nil(t, score.PreviousScore)
	assert.Len(t, score.Components, 4)
}
