// Package risk scores open positions and maps the score to a concrete risk response.
package risk

import (
	"fmt"
	"sort"

	"github.com/aristath/tradesignal/internal/domain"
)

// Risk factor ids.
const (
	FactorPositionSize      = "position_size"
	FactorUnrealizedLoss    = "unrealized_loss"
	FactorTimeHeld          = "time_held"
	FactorVolatility        = "volatility"
	FactorCorrelation       = "correlation"
	FactorSectorRisk        = "sector_risk"
	FactorEarningsProximity = "earnings_proximity"
	FactorTechnicalSignals  = "technical_signals"
)

// LevelThresholds are the lower bounds of the medium, high and severe levels.
type LevelThresholds struct {
	Moderate float64 `json:"moderate" yaml:"moderate"`
	High     float64 `json:"high" yaml:"high"`
	Severe   float64 `json:"severe" yaml:"severe"`
}

// ResponseConfig sizes the response for each level. Percentages are 0-100.
type ResponseConfig struct {
	ModerateStopTightenPct float64 `json:"moderate_stop_tighten_pct" yaml:"moderate_stop_tighten_pct"`
	HighStopTightenPct     float64 `json:"high_stop_tighten_pct" yaml:"high_stop_tighten_pct"`
	HighReducePct          float64 `json:"high_reduce_pct" yaml:"high_reduce_pct"`
	// DefaultStopDistancePct places a stop below the current price when none is set.
	DefaultStopDistancePct float64 `json:"default_stop_distance_pct" yaml:"default_stop_distance_pct"`
}

// Limits are the points at which each factor's sub-score saturates at 1.
type Limits struct {
	MaxPositionPct     float64 `json:"max_position_pct" yaml:"max_position_pct"`         // fraction of portfolio
	MaxLossPct         float64 `json:"max_loss_pct" yaml:"max_loss_pct"`                 // fraction below entry
	HoldingPeriodDays  float64 `json:"holding_period_days" yaml:"holding_period_days"`   // horizon
	MaxVolatility      float64 `json:"max_volatility" yaml:"max_volatility"`             // annualized fraction
	MaxSectorExposure  float64 `json:"max_sector_exposure" yaml:"max_sector_exposure"`   // fraction of portfolio
	EarningsWindowDays float64 `json:"earnings_window_days" yaml:"earnings_window_days"` // days before earnings
}

// RiskModel is a validated, immutable risk configuration.
type RiskModel struct {
	ID              string             `json:"id" yaml:"id"`
	Weights         map[string]float64 `json:"weights" yaml:"weights"`
	Thresholds      LevelThresholds    `json:"thresholds" yaml:"thresholds"`
	Response        ResponseConfig     `json:"response" yaml:"response"`
	Limits          Limits             `json:"limits" yaml:"limits"`
	ToleratePartial bool               `json:"tolerate_partial" yaml:"tolerate_partial"`
}

// DefaultRiskModel returns the standard eight-factor model.
func DefaultRiskModel() RiskModel {
	return RiskModel{
		ID: "default",
		Weights: map[string]float64{
			FactorPositionSize:      0.15,
			FactorUnrealizedLoss:    0.25,
			FactorTimeHeld:          0.10,
			FactorVolatility:        0.15,
			FactorCorrelation:       0.10,
			FactorSectorRisk:        0.10,
			FactorEarningsProximity: 0.05,
			FactorTechnicalSignals:  0.10,
		},
		Thresholds: LevelThresholds{Moderate: 0.4, High: 0.7, Severe: 0.9},
		Response: ResponseConfig{
			ModerateStopTightenPct: 25,
			HighStopTightenPct:     50,
			HighReducePct:          50,
			DefaultStopDistancePct: 10,
		},
		Limits: Limits{
			MaxPositionPct:     0.20,
			MaxLossPct:         0.20,
			HoldingPeriodDays:  90,
			MaxVolatility:      0.60,
			MaxSectorExposure:  0.40,
			EarningsWindowDays: 14,
		},
	}
}

func pctInRange(name string, v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s must be within [0, 100], got %.2f", name, v)
	}
	return nil
}

// Validate rejects unknown factors, weights that do not sum to 1.0, unordered thresholds
// and non-positive limits. Weights are never normalized.
func (m RiskModel) Validate() error {
	owner := "risk model " + m.ID
	ids := make([]string, 0, len(m.Weights))
	for id := range m.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := factors[id]; !ok {
			return &domain.InvalidWeightConfigurationError{Owner: owner, Reason: fmt.Sprintf("unknown risk factor %s", id)}
		}
	}
	if _, err := domain.ValidateWeights(owner, m.Weights); err != nil {
		return err
	}

	t := m.Thresholds
	if !(0 < t.Moderate && t.Moderate < t.High && t.High < t.Severe && t.Severe <= 1) {
		return fmt.Errorf("%s: thresholds must satisfy 0 < moderate < high < severe <= 1, got %.2f/%.2f/%.2f",
			owner, t.Moderate, t.High, t.Severe)
	}

	r := m.Response
	for name, v := range map[string]float64{
		"moderate_stop_tighten_pct": r.ModerateStopTightenPct,
		"high_stop_tighten_pct":     r.HighStopTightenPct,
		"high_reduce_pct":           r.HighReducePct,
		"default_stop_distance_pct": r.DefaultStopDistancePct,
	} {
		if err := pctInRange(name, v); err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
	}

	l := m.Limits
	for name, v := range map[string]float64{
		"max_position_pct":     l.MaxPositionPct,
		"max_loss_pct":         l.MaxLossPct,
		"holding_period_days":  l.HoldingPeriodDays,
		"max_volatility":       l.MaxVolatility,
		"max_sector_exposure":  l.MaxSectorExposure,
		"earnings_window_days": l.EarningsWindowDays,
	} {
		if v <= 0 {
			return fmt.Errorf("%s: limit %s must be positive, got %.4f", owner, name, v)
		}
	}
	return nil
}
