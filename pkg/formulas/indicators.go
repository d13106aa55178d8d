// Package formulas computes technical indicators and return statistics from price series.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Bar is one OHLCV observation, oldest first in every slice passed to this package.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MACDResult holds the latest MACD line, signal line and histogram values.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// DirectionalResult holds the latest ADX and directional indicator values.
type DirectionalResult struct {
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`
}

// BollingerBands represents Bollinger Bands values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Closes extracts closing prices.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func series(bars []Bar) (high, low, closes []float64) {
	high = make([]float64, len(bars))
	low = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
	}
	return high, low, closes
}

// CalculateRSI calculates the Relative Strength Index.
// Returns nil if there are fewer than length+1 closes.
func CalculateRSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}
	return last(talib.Rsi(closes, length))
}

// CalculateMACD calculates MACD with the usual 12/26/9 style periods.
// Returns nil if there are not enough closes for the slow period plus the signal period.
func CalculateMACD(closes []float64, fast, slow, signal int) *MACDResult {
	if len(closes) < slow+signal {
		return nil
	}
	macd, sig, hist := talib.Macd(closes, fast, slow, signal)
	m, s, h := last(macd), last(sig), last(hist)
	if m == nil || s == nil || h == nil {
		return nil
	}
	return &MACDResult{MACD: *m, Signal: *s, Histogram: *h}
}

// CalculateDirectional calculates ADX with +DI and -DI.
// Returns nil if there are fewer than 2*length bars.
func CalculateDirectional(bars []Bar, length int) *DirectionalResult {
	if len(bars) < 2*length {
		return nil
	}
	high, low, closes := series(bars)
	adx := last(talib.Adx(high, low, closes, length))
	plus := last(talib.PlusDI(high, low, closes, length))
	minus := last(talib.MinusDI(high, low, closes, length))
	if adx == nil || plus == nil || minus == nil {
		return nil
	}
	return &DirectionalResult{ADX: *adx, PlusDI: *plus, MinusDI: *minus}
}

// CalculateSMA calculates the simple moving average. Returns nil if there are fewer
// than length closes.
func CalculateSMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}
	return last(talib.Sma(closes, length))
}

// CalculateEMA calculates the Exponential Moving Average.
// With fewer than length closes the simple mean is used instead.
func CalculateEMA(closes []float64, length int) *float64 {
	if len(closes) == 0 {
		return nil
	}
	if len(closes) < length {
		m := Mean(closes)
		return &m
	}
	return last(talib.Ema(closes, length))
}

// CalculateBollingerBands calculates Bollinger Bands over an SMA midline.
// Returns nil if there are fewer than length closes.
func CalculateBollingerBands(closes []float64, length int, stdDevMultiplier float64) *BollingerBands {
	if len(closes) < length {
		return nil
	}
	// MAType 0 = SMA
	upper, middle, lower := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, 0)
	u, m, l := last(upper), last(middle), last(lower)
	if u == nil || m == nil || l == nil {
		return nil
	}
	return &BollingerBands{Upper: *u, Middle: *m, Lower: *l}
}

// AverageVolume returns the mean volume of the last length bars, excluding the latest.
func AverageVolume(bars []Bar, length int) *float64 {
	if len(bars) < length+1 {
		return nil
	}
	window := bars[len(bars)-1-length : len(bars)-1]
	vols := make([]float64, len(window))
	for i, b := range window {
		vols[i] = b.Volume
	}
	avg := Mean(vols)
	return &avg
}

// PercentChange returns (closes[n-1] - closes[n-1-lookback]) / closes[n-1-lookback] * 100.
func PercentChange(closes []float64, lookback int) *float64 {
	if lookback <= 0 || len(closes) < lookback+1 {
		return nil
	}
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return nil
	}
	pct := (closes[len(closes)-1] - base) / base * 100
	return &pct
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
