package directives

import (
	"math"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// EMA distance thresholds, as fractions of the EMA.
const (
	EMAVeryBelow = -0.10
	EMABelow     = -0.05
	EMAVeryAbove = 0.10
)

// MovingAverages scores the 50/200 day crossover.
type MovingAverages struct {
	base
}

// NewMovingAverages creates the moving average crossover directive.
func NewMovingAverages() *MovingAverages {
	return &MovingAverages{base: base{
		id:       IDMovingAverages,
		name:     "Moving Average Crossover",
		required: []string{domain.FieldSMA50, domain.FieldSMA200},
	}}
}

// Evaluate starts at 70 for a golden cross and 30 for a death cross, adds five points per
// percent of spread (capped at 20) and ten points for price above the 50 day average.
func (d *MovingAverages) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldSMA50, domain.FieldSMA200)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	sma50, sma200 := v[domain.FieldSMA50], v[domain.FieldSMA200]
	if sma200 <= 0 {
		return scoring.DirectiveResult{}, d.invalid(domain.FieldSMA200, sma200)
	}

	spreadPct := (sma50 - sma200) / sma200 * 100
	score := 50.0
	cross := "flat"
	switch {
	case sma50 > sma200:
		score = 70
		cross = "golden cross"
	case sma50 < sma200:
		score = 30
		cross = "death cross"
	}
	score += scoring.Clamp(spreadPct*5, -20, 20)

	if price, ok := snapshot.Get(domain.FieldPrice); ok {
		switch {
		case price > sma50:
			score += 10
		case price < sma50:
			score -= 10
		}
	}
	return d.result(score, "%s: SMA50 %.2f vs SMA200 %.2f (%.2f%%)", cross, sma50, sma200, spreadPct), nil
}

// Bollinger scores a price near the lower band high.
type Bollinger struct {
	base
}

// NewBollinger creates the Bollinger band position directive.
func NewBollinger() *Bollinger {
	return &Bollinger{base: base{
		id:       IDBollinger,
		name:     "Bollinger Band Position",
		required: []string{domain.FieldPrice, domain.FieldBollingerUpper, domain.FieldBollingerLower},
	}}
}

// Evaluate scores (1 - position) * 100 where position is 0 at the lower band and 1 at the upper.
func (d *Bollinger) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldPrice, domain.FieldBollingerUpper, domain.FieldBollingerLower)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	price, upper, lower := v[domain.FieldPrice], v[domain.FieldBollingerUpper], v[domain.FieldBollingerLower]
	width := upper - lower
	if width <= 0 {
		return scoring.DirectiveResult{}, d.invalid("band width", width)
	}

	position := (price - lower) / width
	return d.result((1-position)*100, "price at %.0f%% of the band", position*100), nil
}

// EMADistance scores a price below its 200 day EMA as an opportunity.
type EMADistance struct {
	base
}

// NewEMADistance creates the EMA distance directive.
func NewEMADistance() *EMADistance {
	return &EMADistance{base: base{
		id:       IDEMADistance,
		name:     "Distance from 200-day EMA",
		required: []string{domain.FieldPrice, domain.FieldEMA200},
	}}
}

// Evaluate applies the piecewise curve: 20 at 10%+ above, 50 at the EMA, 70 at 5% below and
// 100 at 10%+ below.
func (d *EMADistance) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldPrice, domain.FieldEMA200)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	price, ema := v[domain.FieldPrice], v[domain.FieldEMA200]
	if ema <= 0 {
		return scoring.DirectiveResult{}, d.invalid(domain.FieldEMA200, ema)
	}

	pct := (price - ema) / ema
	var score float64
	if pct >= EMAVeryAbove {
		score = 0.2
	} else if pct >= 0 {
		score = 0.5 - (pct/EMAVeryAbove)*0.3
	} else if pct >= EMABelow {
		score = 0.5 + (math.Abs(pct)/0.05)*0.2
	} else if pct >= EMAVeryBelow {
		score = 0.7 + ((math.Abs(pct)-0.05)/0.05)*0.3
	} else {
		score = 1.0
	}
	return d.result(score*100, "price %.1f%% from EMA200", pct*100), nil
}
