package domain

import (
	"sort"
	"time"
)

// Well-known indicator field names supplied by indicator sources.
const (
	FieldPrice                = "price"
	FieldChangePct            = "change_pct"
	FieldVolume               = "volume"
	FieldAvgVolume            = "avg_volume"
	FieldRSI                  = "rsi"
	FieldMACD                 = "macd"
	FieldMACDSignal           = "macd_signal"
	FieldMACDHistogram        = "macd_histogram"
	FieldADX                  = "adx"
	FieldPlusDI               = "plus_di"
	FieldMinusDI              = "minus_di"
	FieldSMA50                = "sma_50"
	FieldSMA200               = "sma_200"
	FieldEMA200               = "ema_200"
	FieldBollingerUpper       = "bb_upper"
	FieldBollingerLower       = "bb_lower"
	FieldVolatility           = "volatility"
	FieldWeeklyChangePct      = "weekly_change_pct"
	FieldPortfolioReturn      = "portfolio_return"
	FieldBenchmarkReturn      = "benchmark_return"
	FieldBenchmarkCorrelation = "benchmark_correlation"
	FieldVIX                  = "vix"
)

// IndicatorSnapshot is a point-in-time bag of named indicator values for one symbol.
// It is never mutated after construction; accessors hand out copies.
type IndicatorSnapshot struct {
	symbol    string
	timestamp time.Time
	values    map[string]float64
}

// NewIndicatorSnapshot copies values so later changes to the caller's map are not observed.
func NewIndicatorSnapshot(symbol string, timestamp time.Time, values map[string]float64) IndicatorSnapshot {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return IndicatorSnapshot{
		symbol:    symbol,
		timestamp: timestamp,
		values:    copied,
	}
}

// Symbol returns the symbol the snapshot describes.
func (s IndicatorSnapshot) Symbol() string { return s.symbol }

// Timestamp returns when the values were observed.
func (s IndicatorSnapshot) Timestamp() time.Time { return s.timestamp }

// Get returns the named value and whether it is present.
func (s IndicatorSnapshot) Get(field string) (float64, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Has reports whether the named value is present.
func (s IndicatorSnapshot) Has(field string) bool {
	_, ok := s.values[field]
	return ok
}

// Fields returns the sorted list of present field names.
func (s IndicatorSnapshot) Fields() []string {
	fields := make([]string, 0, len(s.values))
	for k := range s.values {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Values returns a copy of all values.
func (s IndicatorSnapshot) Values() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// With returns a new snapshot with the given values added or replaced.
func (s IndicatorSnapshot) With(values map[string]float64) IndicatorSnapshot {
	merged := s.Values()
	for k, v := range values {
		merged[k] = v
	}
	return NewIndicatorSnapshot(s.symbol, s.timestamp, merged)
}

// IsZero reports whether the snapshot was never initialized.
func (s IndicatorSnapshot) IsZero() bool {
	return s.symbol == "" && s.values == nil
}
