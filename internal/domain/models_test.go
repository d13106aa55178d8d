package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorSnapshot_IsImmutable(t *testing.T) {
	values := map[string]float64{FieldRSI: 35.5, FieldMACD: 2.5}
	snap := NewIndicatorSnapshot("AAPL", time.Now(), values)

	values[FieldRSI] = 99
	got, ok := snap.Get(FieldRSI)
	require.True(t, ok)
	assert.Equal(t, 35.5, got)

	copied := snap.Values()
	copied[FieldMACD] = -1
	got, _ = snap.Get(FieldMACD)
	assert.Equal(t, 2.5, got)
}

func TestIndicatorSnapshot_With(t *testing.T) {
	snap := NewIndicatorSnapshot("AAPL", time.Now(), map[string]float64{FieldRSI: 40})
	extended := snap.With(map[string]float64{FieldVIX: 18})

	assert.False(t, snap.Has(FieldVIX))
	assert.True(t, extended.Has(FieldVIX))
	assert.Equal(t, []string{FieldRSI, FieldVIX}, extended.Fields())
	assert.Equal(t, "AAPL", extended.Symbol())
}

func TestIndicatorSnapshot_IsZero(t *testing.T) {
	assert.True(t, IndicatorSnapshot{}.IsZero())
	assert.False(t, NewIndicatorSnapshot("X", time.Time{}, nil).IsZero())
}

func TestPosition_Derived(t *testing.T) {
	p := Position{Symbol: "MSFT", Quantity: 10, EntryPrice: 200, CurrentPrice: 150}

	assert.Equal(t, 1500.0, p.MarketValue())
	assert.InDelta(t, -0.25, p.UnrealizedPct(), 1e-12)
	assert.Equal(t, 0.0, Position{}.UnrealizedPct())
	assert.False(t, p.IsShort())

	short := Position{Symbol: "MSFT", Side: SideShort, Quantity: 10, EntryPrice: 100, CurrentPrice: 130}
	assert.True(t, short.IsShort())
	assert.InDelta(t, -0.30, short.UnrealizedPct(), 1e-12)
	short.CurrentPrice = 80
	assert.InDelta(t, 0.20, short.UnrealizedPct(), 1e-12)
}

func TestErrors_MatchSentinels(t *testing.T) {
	missing := fmt.Errorf("wrapped: %w", &MissingIndicatorDataError{Directive: "rsi", Symbol: "AAPL", Field: "rsi"})
	assert.True(t, errors.Is(missing, ErrMissingIndicatorData))
	assert.Contains(t, missing.Error(), `missing indicator "rsi"`)

	weights := &InvalidWeightConfigurationError{Owner: "default", Sum: 0.94}
	assert.True(t, errors.Is(weights, ErrInvalidWeightConfiguration))
	assert.Equal(t, "invalid weights for default: weights sum to 0.94, expected 1.0", weights.Error())

	risk := &RiskFactorComputationError{Factor: "correlation", Symbol: "AAPL", Reason: "no data"}
	assert.True(t, errors.Is(risk, ErrRiskFactorComputation))

	cause := errors.New("timeout")
	src := SourceUnavailable("AAPL", cause)
	assert.True(t, errors.Is(src, ErrIndicatorSourceUnavailable))
	assert.True(t, errors.Is(src, cause))
}
