package signals

import (
	"fmt"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/market_hours"
	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// GateInput is what a hard gate inspects.
type GateInput struct {
	Score      scoring.CompositeScore
	Action     domain.Action
	Thresholds scoring.Thresholds
	Context    DecisionContext
}

// Gate blocks a signal regardless of score. Check returns false and a reason to suppress.
type Gate interface {
	Name() string
	Check(in GateInput) (bool, string)
}

// MarketHoursGate suppresses signals outside the strategy's trading window.
type MarketHoursGate struct {
	hours *market_hours.Service
}

// NewMarketHoursGate creates the market hours gate.
func NewMarketHoursGate(hours *market_hours.Service) *MarketHoursGate {
	return &MarketHoursGate{hours: hours}
}

func (g *MarketHoursGate) Name() string { return "market_hours" }

func (g *MarketHoursGate) Check(in GateInput) (bool, string) {
	w := in.Thresholds.MarketHours
	if w == nil {
		return true, ""
	}
	st, err := g.hours.Status(*w, in.Context.Now)
	if err != nil {
		return false, fmt.Sprintf("%s: %v", ReasonMarketClosed, err)
	}
	if !st.Open {
		return false, fmt.Sprintf("%s: %s", ReasonMarketClosed, st.Reason)
	}
	return true, ""
}

// VolatilityGate suppresses signals when market volatility is above the ceiling or unknown.
type VolatilityGate struct{}

func (VolatilityGate) Name() string { return "volatility" }

func (VolatilityGate) Check(in GateInput) (bool, string) {
	ceiling := in.Thresholds.MaxVolatility
	if ceiling <= 0 {
		return true, ""
	}
	v := in.Context.MarketVolatility
	if v == nil {
		return false, ReasonVolatilityMissing
	}
	if *v > ceiling {
		return false, fmt.Sprintf("%s: %.2f > %.2f", ReasonVolatilityTooHigh, *v, ceiling)
	}
	return true, ""
}

// PortfolioGate limits buys: no buying a symbol already held or beyond the position cap.
type PortfolioGate struct{}

func (PortfolioGate) Name() string { return "portfolio" }

func (PortfolioGate) Check(in GateInput) (bool, string) {
	if in.Action != domain.ActionBuy {
		return true, ""
	}
	if in.Context.Held {
		return false, ReasonAlreadyHeld
	}
	if limit := in.Thresholds.MaxOpenPositions; limit > 0 && in.Context.OpenPositions >= limit {
		return false, fmt.Sprintf("%s: %d of %d", ReasonMaxOpenPositions, in.Context.OpenPositions, limit)
	}
	return true, ""
}

// DefaultGates returns the market hours, volatility and portfolio gates.
func DefaultGates(hours *market_hours.Service) []Gate {
	return []Gate{NewMarketHoursGate(hours), VolatilityGate{}, PortfolioGate{}}
}
