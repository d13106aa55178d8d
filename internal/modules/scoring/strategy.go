package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/tradesignal/internal/modules/market_hours"
)

// Default decision thresholds.
const (
	DefaultScoreThreshold = 75.0
	DefaultMinChange      = 10.0
)

// Thresholds are the decision parameters a strategy carries next to its weights.
// Zero values for MaxVolatility and MaxOpenPositions and a nil MarketHours disable those gates.
type Thresholds struct {
	ScoreThreshold   float64              `json:"score_threshold" yaml:"score_threshold"`
	MinChange        float64              `json:"min_change" yaml:"min_change"`
	MaxVolatility    float64              `json:"max_volatility,omitempty" yaml:"max_volatility,omitempty"`
	MarketHours      *market_hours.Window `json:"market_hours,omitempty" yaml:"market_hours,omitempty"`
	MaxOpenPositions int                  `json:"max_open_positions,omitempty" yaml:"max_open_positions,omitempty"`
}

// DefaultThresholds returns score threshold 75 and minimum change 10 with all gates off.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ScoreThreshold: DefaultScoreThreshold,
		MinChange:      DefaultMinChange,
	}
}

// Validate checks ranges and the market hours window.
func (t Thresholds) Validate() error {
	if t.ScoreThreshold < 0 || t.ScoreThreshold > 100 {
		return fmt.Errorf("score_threshold must be within [0, 100], got %.2f", t.ScoreThreshold)
	}
	if t.MinChange < 0 {
		return fmt.Errorf("min_change must not be negative, got %.2f", t.MinChange)
	}
	if t.MaxVolatility < 0 {
		return fmt.Errorf("max_volatility must not be negative, got %.2f", t.MaxVolatility)
	}
	if t.MaxOpenPositions < 0 {
		return fmt.Errorf("max_open_positions must not be negative, got %d", t.MaxOpenPositions)
	}
	if t.MarketHours != nil {
		if err := t.MarketHours.Validate(); err != nil {
			return fmt.Errorf("market_hours: %w", err)
		}
	}
	return nil
}

// Strategy is a named set of directive weights plus decision thresholds.
type Strategy struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Weights    map[string]float64 `json:"weights" yaml:"weights"`
	Thresholds Thresholds         `json:"thresholds" yaml:"thresholds"`
	Version    int                `json:"version" yaml:"-"`
	UpdatedAt  time.Time          `json:"updated_at" yaml:"-"`
}

func (s Strategy) clone() Strategy {
	out := s
	out.Weights = make(map[string]float64, len(s.Weights))
	for k, v := range s.Weights {
		out.Weights[k] = v
	}
	if s.Thresholds.MarketHours != nil {
		w := *s.Thresholds.MarketHours
		w.Days = append([]string(nil), w.Days...)
		out.Thresholds.MarketHours = &w
	}
	return out
}

// WeightedDirective pairs a directive with its weight in a strategy.
type WeightedDirective struct {
	Directive Directive
	Weight    float64
}

// StrategySnapshot is a consistent copy of a strategy taken once per scoring pass.
// Directives are ordered by id.
type StrategySnapshot struct {
	StrategyID string
	Name       string
	Version    int
	Directives []WeightedDirective
	Thresholds Thresholds
	TakenAt    time.Time
}

// Weights returns the snapshot's weights keyed by directive id.
func (s StrategySnapshot) Weights() map[string]float64 {
	out := make(map[string]float64, len(s.Directives))
	for _, wd := range s.Directives {
		out[wd.Directive.ID()] = wd.Weight
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
