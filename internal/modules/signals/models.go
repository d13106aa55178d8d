// Package signals decides whether a composite score turns into a trade signal.
package signals

import (
	"time"

	"github.com/aristath/tradesignal/internal/domain"
)

// State is a step in the per-symbol decision state machine.
type State string

const (
	StateIdle          State = "idle"
	StateSignalPending State = "signal_pending"
	StateFired         State = "fired"
	StateNoSignal      State = "no_signal"
)

var transitions = map[State][]State{
	StateIdle:          {StateSignalPending, StateNoSignal},
	StateSignalPending: {StateFired, StateNoSignal},
	StateFired:         {StateIdle},
	StateNoSignal:      {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Suppression reasons.
const (
	ReasonBelowThreshold     = "below_threshold"
	ReasonInsufficientChange = "insufficient_change"
	ReasonNoDirection        = "no_direction"
	ReasonMarketClosed       = "market_closed"
	ReasonVolatilityTooHigh  = "volatility_too_high"
	ReasonVolatilityMissing  = "volatility_unavailable"
	ReasonMaxOpenPositions   = "max_open_positions"
	ReasonAlreadyHeld        = "position_already_held"
)

// TradeSignal is an emitted buy or sell recommendation. Immutable once created.
type TradeSignal struct {
	ID               string        `json:"id"`
	Symbol           string        `json:"symbol"`
	StrategyID       string        `json:"strategy_id"`
	Action           domain.Action `json:"action"`
	Score            float64       `json:"score"`
	Delta            *float64      `json:"delta"`
	Confidence       float64       `json:"confidence"`
	CompositeScoreID string        `json:"composite_score_id"`
	Timestamp        time.Time     `json:"timestamp"`
}

// TradeDecision is the outcome of one decision run. Signal is nil when nothing fired.
type TradeDecision struct {
	Symbol           string       `json:"symbol"`
	StrategyID       string       `json:"strategy_id"`
	CompositeScoreID string       `json:"composite_score_id"`
	Score            float64      `json:"score"`
	Delta            *float64     `json:"delta"`
	Signal           *TradeSignal `json:"signal,omitempty"`
	Path             []State      `json:"path"`
	Suppressed       []string     `json:"suppressed,omitempty"`
	Timestamp        time.Time    `json:"timestamp"`
}

// Fired reports whether the decision produced a signal.
func (d TradeDecision) Fired() bool {
	return d.Signal != nil
}

// DecisionContext is the portfolio and market state the hard gates look at.
type DecisionContext struct {
	Now              time.Time
	MarketVolatility *float64
	OpenPositions    int
	Held             bool
}
