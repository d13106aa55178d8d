package directives

import (
	"fmt"
	"math"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// RSIConfig shapes the RSI curve.
type RSIConfig struct {
	Oversold   float64
	Overbought float64
	// Slope applies outside the band, in score points per RSI point.
	Slope float64
}

// DefaultRSIConfig returns the 30/70 band with slope 1.5.
func DefaultRSIConfig() RSIConfig {
	return RSIConfig{Oversold: 30, Overbought: 70, Slope: 1.5}
}

// Validate rejects bands that are empty or inverted and negative slopes.
func (c RSIConfig) Validate() error {
	for name, v := range map[string]float64{"oversold": c.Oversold, "overbought": c.Overbought, "slope": c.Slope} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("rsi %s must be finite, got %v", name, v)
		}
	}
	if c.Overbought <= c.Oversold {
		return fmt.Errorf("rsi overbought (%.1f) must be above oversold (%.1f)", c.Overbought, c.Oversold)
	}
	if c.Slope < 0 {
		return fmt.Errorf("rsi slope must not be negative, got %.2f", c.Slope)
	}
	return nil
}

// RSI scores oversold conditions high and overbought conditions low.
type RSI struct {
	base
	cfg RSIConfig
}

// NewRSI creates the RSI directive.
func NewRSI(cfg RSIConfig) (*RSI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RSI{
		base: base{id: IDRSI, name: "Relative Strength Index", required: []string{domain.FieldRSI}},
		cfg:  cfg,
	}, nil
}

// Evaluate moves linearly from 70 at the oversold edge to 30 at the overbought edge and
// extrapolates with the configured slope outside the band.
func (d *RSI) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldRSI)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	rsi := v[domain.FieldRSI]
	lo, hi := d.cfg.Oversold, d.cfg.Overbought
	mid := (lo + hi) / 2
	span := hi - lo

	var score float64
	switch {
	case rsi < lo:
		score = 70 + (lo-rsi)*d.cfg.Slope
		return d.result(score, "RSI %.1f is oversold (below %.0f)", rsi, lo), nil
	case rsi > hi:
		score = 30 - (rsi-hi)*d.cfg.Slope
		return d.result(score, "RSI %.1f is overbought (above %.0f)", rsi, hi), nil
	default:
		score = 50 + (mid-rsi)*(40/span)
		return d.result(score, "RSI %.1f is inside the %.0f-%.0f band", rsi, lo, hi), nil
	}
}

// MACDConfig shapes the MACD curve.
type MACDConfig struct {
	// Sensitivity is score points per unit of MACD.
	Sensitivity float64
	// CrossoverBonus is added when MACD is above its signal line and subtracted when below.
	CrossoverBonus float64
}

// DefaultMACDConfig returns sensitivity 10 and a 10 point crossover adjustment.
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{Sensitivity: 10, CrossoverBonus: 10}
}

// MACD scores positive momentum high.
type MACD struct {
	base
	cfg MACDConfig
}

// NewMACD creates the MACD directive.
func NewMACD(cfg MACDConfig) *MACD {
	return &MACD{
		base: base{id: IDMACD, name: "MACD Momentum", required: []string{domain.FieldMACD}},
		cfg:  cfg,
	}
}

// Evaluate scores 50 + macd*sensitivity, adjusted for a signal line crossover when present.
func (d *MACD) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldMACD)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	macd := v[domain.FieldMACD]
	score := 50 + macd*d.cfg.Sensitivity

	signal, ok := snapshot.Get(domain.FieldMACDSignal)
	switch {
	case ok && macd > signal:
		score += d.cfg.CrossoverBonus
		return d.result(score, "MACD %.2f above signal %.2f", macd, signal), nil
	case ok && macd < signal:
		score -= d.cfg.CrossoverBonus
		return d.result(score, "MACD %.2f below signal %.2f", macd, signal), nil
	}
	return d.result(score, "MACD %.2f", macd), nil
}

// ADX scores trend strength, mirrored when the trend is down.
type ADX struct {
	base
}

// NewADX creates the ADX directive.
func NewADX() *ADX {
	return &ADX{base: base{id: IDADX, name: "Average Directional Index", required: []string{domain.FieldADX}}}
}

// Evaluate maps weak trends (below 20) to 25-50, developing trends (20-40) to 50-90 and
// strong trends to 90+. When -DI exceeds +DI the score is mirrored.
func (d *ADX) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldADX)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	adx := scoring.Clamp(v[domain.FieldADX], 0, 100)

	var score float64
	switch {
	case adx < 20:
		score = 25 + adx*1.25
	case adx <= 40:
		score = 50 + (adx-20)*2
	default:
		score = 90 + (adx-40)*0.5
	}
	score = scoring.Clamp(score, 0, MaxScore)

	plus, hasPlus := snapshot.Get(domain.FieldPlusDI)
	minus, hasMinus := snapshot.Get(domain.FieldMinusDI)
	if hasPlus && hasMinus && minus > plus {
		return d.result(100-score, "ADX %.1f with -DI %.1f above +DI %.1f (downtrend)", adx, minus, plus), nil
	}
	return d.result(score, "ADX %.1f trend strength", adx), nil
}
