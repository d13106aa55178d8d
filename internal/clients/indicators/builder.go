// Package indicators provides indicator sources: snapshot construction from price bars, a
// static source for dry runs, and a resilient wrapper that rate limits, retries, breaks
// and caches calls to an upstream source.
package indicators

import (
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/pkg/formulas"
)

// Lookback windows, in bars.
const (
	rsiLength        = 14
	adxLength        = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	bollingerLength  = 20
	bollingerStdDev  = 2.0
	volumeLength     = 20
	volatilityLength = 30
	weekLength       = 5
	performanceDays  = 20
)

// FromBars computes an indicator snapshot from daily bars, oldest first. Indicators that
// need more history than is available are left out so the directives that depend on them
// are skipped. benchmark may be nil.
func FromBars(symbol string, at time.Time, bars, benchmark []formulas.Bar) domain.IndicatorSnapshot {
	values := make(map[string]float64)
	if len(bars) == 0 {
		return domain.NewIndicatorSnapshot(symbol, at, values)
	}

	closes := formulas.Closes(bars)
	latest := bars[len(bars)-1]
	values[domain.FieldPrice] = latest.Close
	values[domain.FieldVolume] = latest.Volume

	set := func(field string, v *float64) {
		if v != nil {
			values[field] = *v
		}
	}

	set(domain.FieldChangePct, formulas.PercentChange(closes, 1))
	set(domain.FieldWeeklyChangePct, formulas.PercentChange(closes, weekLength))
	set(domain.FieldAvgVolume, formulas.AverageVolume(bars, volumeLength))
	set(domain.FieldRSI, formulas.CalculateRSI(closes, rsiLength))
	set(domain.FieldSMA50, formulas.CalculateSMA(closes, 50))
	set(domain.FieldSMA200, formulas.CalculateSMA(closes, 200))
	if len(closes) >= 200 {
		set(domain.FieldEMA200, formulas.CalculateEMA(closes, 200))
	}

	if m := formulas.CalculateMACD(closes, macdFast, macdSlow, macdSignal); m != nil {
		values[domain.FieldMACD] = m.MACD
		values[domain.FieldMACDSignal] = m.Signal
		values[domain.FieldMACDHistogram] = m.Histogram
	}
	if d := formulas.CalculateDirectional(bars, adxLength); d != nil {
		values[domain.FieldADX] = d.ADX
		values[domain.FieldPlusDI] = d.PlusDI
		values[domain.FieldMinusDI] = d.MinusDI
	}
	if b := formulas.CalculateBollingerBands(closes, bollingerLength, bollingerStdDev); b != nil {
		values[domain.FieldBollingerUpper] = b.Upper
		values[domain.FieldBollingerLower] = b.Lower
	}

	returns := formulas.CalculateReturns(closes)
	if len(returns) >= volatilityLength {
		values[domain.FieldVolatility] = formulas.AnnualizedVolatility(returns[len(returns)-volatilityLength:])
	}
	set(domain.FieldPortfolioReturn, formulas.PercentChange(closes, performanceDays))

	if len(benchmark) > 0 {
		benchCloses := formulas.Closes(benchmark)
		set(domain.FieldBenchmarkReturn, formulas.PercentChange(benchCloses, performanceDays))

		benchReturns := formulas.CalculateReturns(benchCloses)
		set(domain.FieldBenchmarkCorrelation, formulas.Correlation(tail(returns, volatilityLength), tail(benchReturns, volatilityLength)))
		if len(benchReturns) >= volatilityLength {
			// Annualized benchmark volatility in percent, on the same scale as the VIX.
			values[domain.FieldVIX] = formulas.AnnualizedVolatility(benchReturns[len(benchReturns)-volatilityLength:]) * 100
		}
	}

	return domain.NewIndicatorSnapshot(symbol, at, values)
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
