// Package domain provides the core types shared by the scoring, signal and risk modules.
package domain

import "time"

// Action is the direction of a trade signal.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNone Action = "none"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is an open holding as reported by the broker. Quantity is always positive;
// Side carries the direction and an empty Side means long.
type Position struct {
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side,omitempty"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	StopLoss     float64   `json:"stop_loss,omitempty"` // 0 when no stop is set
	Sector       string    `json:"sector,omitempty"`
	OpenedAt     time.Time `json:"opened_at"`
}

// MarketValue returns quantity times current price.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// IsShort reports whether the position profits from a falling price.
func (p Position) IsShort() bool {
	return p.Side == SideShort
}

// UnrealizedPct returns the unrealized gain (positive) or loss (negative) as a fraction of
// entry. A short gains when the price falls.
func (p Position) UnrealizedPct() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	pct := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
	if p.IsShort() {
		return -pct
	}
	return pct
}

// MarketContext carries portfolio and market data the risk stage needs for one position.
// Optional values are pointers; a nil pointer means the data is unavailable.
type MarketContext struct {
	Now               time.Time          `json:"now"`
	PortfolioValue    float64            `json:"portfolio_value"`
	SectorExposure    map[string]float64 `json:"sector_exposure,omitempty"` // sector -> fraction of portfolio
	Volatility        *float64           `json:"volatility,omitempty"`      // annualized, fraction
	Correlation       *float64           `json:"correlation,omitempty"`     // with portfolio/benchmark
	DaysToEarnings    *int               `json:"days_to_earnings,omitempty"`
	CompositeScore    *float64           `json:"composite_score,omitempty"`
	MarketVolatility  *float64           `json:"market_volatility,omitempty"` // VIX-style level
	OpenPositionCount int                `json:"open_position_count"`
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for populating optional fields.
func Int(v int) *int { return &v }
