package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]float64
		wantErr string
	}{
		{"exact", map[string]float64{"rsi": 0.25, "macd": 0.25, "adx": 0.25, "moving_averages": 0.25}, ""},
		{"within epsilon", map[string]float64{"rsi": 0.5, "macd": 0.495}, ""},
		{"sum 0.9", map[string]float64{"rsi": 0.5, "macd": 0.4}, "weights sum to 0.90, expected 1.0"},
		{"sum 1.2", map[string]float64{"rsi": 0.6, "macd": 0.6}, "weights sum to 1.20, expected 1.0"},
		{"above one", map[string]float64{"rsi": 1.2}, "exceeds 1.0"},
		{"negative only", map[string]float64{"rsi": 0.5, "macd": -0.1, "adx": 0.6}, "negative"},
		{"nan", map[string]float64{"rsi": math.NaN()}, "not a finite number"},
		{"empty", map[string]float64{}, "no weights configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateWeights("default", tt.weights)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidWeightConfiguration))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateWeights_ReturnsSum(t *testing.T) {
	sum, err := ValidateWeights("model", map[string]float64{"a": 0.3, "b": 0.64})
	require.Error(t, err)
	assert.InDelta(t, 0.94, sum, 1e-12)

	var weightErr *InvalidWeightConfigurationError
	require.True(t, errors.As(err, &weightErr))
	assert.Equal(t, "model", weightErr.Owner)
	assert.InDelta(t, 0.94, weightErr.Sum, 1e-12)
}
