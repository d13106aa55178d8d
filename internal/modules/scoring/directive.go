// Package scoring turns indicator snapshots into weighted composite scores.
package scoring

import (
	"math"

	"github.com/aristath/tradesignal/internal/domain"
)

// Signal labels a directive may attach to its result.
const (
	SignalBullish = "bullish"
	SignalBearish = "bearish"
	SignalNeutral = "neutral"
)

// Directive is a single named scoring function over an indicator snapshot.
// Implementations hold no mutable state and are safe for concurrent use.
type Directive interface {
	ID() string
	Name() string
	MaxScore() float64
	// Required lists the snapshot fields Evaluate cannot work without.
	Required() []string
	Evaluate(snapshot domain.IndicatorSnapshot) (DirectiveResult, error)
}

// DirectiveResult is the outcome of one directive evaluation.
type DirectiveResult struct {
	Score       float64 `json:"score"`
	Signal      string  `json:"signal,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
}

// Factory builds a directive instance for the registry.
type Factory func() Directive

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RequireFields returns the values of fields from snapshot, or a MissingIndicatorDataError
// naming the first absent one.
func RequireFields(directiveID string, snapshot domain.IndicatorSnapshot, fields ...string) (map[string]float64, error) {
	values := make(map[string]float64, len(fields))
	for _, f := range fields {
		v, ok := snapshot.Get(f)
		if !ok {
			return nil, &domain.MissingIndicatorDataError{
				Directive: directiveID,
				Symbol:    snapshot.Symbol(),
				Field:     f,
			}
		}
		values[f] = v
	}
	return values, nil
}

// SignalFor maps a normalized 0-100 score to a signal label.
func SignalFor(normalized float64) string {
	switch {
	case normalized >= 60:
		return SignalBullish
	case normalized <= 40:
		return SignalBearish
	default:
		return SignalNeutral
	}
}
