package signals

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Confidence blend between how far the score clears the threshold and how large the move was.
const (
	confidenceScoreWeight = 0.6
	confidenceDeltaWeight = 0.4
	firstRunDeltaFactor   = 0.5
	changeTolerance       = 1e-9
)

// Engine runs the decision state machine for each composite score.
type Engine struct {
	rule  DirectionRule
	gates []Gate
	mu    sync.RWMutex
	last  map[string]TradeDecision
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// NewEngine creates a decision engine. A nil rule means AlwaysBuy.
func NewEngine(rule DirectionRule, gates []Gate, log zerolog.Logger) *Engine {
	if rule == nil {
		rule = AlwaysBuy{}
	}
	return &Engine{
		rule:  rule,
		gates: gates,
		last:  make(map[string]TradeDecision),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
		log:   log.With().Str("component", "signal_engine").Logger(),
	}
}

type machine struct {
	path []State
}

func (m *machine) move(to State) {
	from := m.path[len(m.path)-1]
	if !canTransition(from, to) {
		panic(fmt.Sprintf("invalid signal state transition %s -> %s", from, to))
	}
	m.path = append(m.path, to)
}

// Decide evaluates one finalized composite score. A signal fires only when the score reaches
// the threshold, the move since the previous score is at least MinChange (no delta check on
// the first observation), a direction is chosen and every gate passes.
func (e *Engine) Decide(score scoring.CompositeScore, thresholds scoring.Thresholds, dc DecisionContext) TradeDecision {
	if dc.Now.IsZero() {
		dc.Now = e.now()
	}
	m := &machine{path: []State{StateIdle}}
	decision := TradeDecision{
		Symbol:           score.Symbol,
		StrategyID:       score.StrategyID,
		CompositeScoreID: score.ID,
		Score:            score.Score,
		Delta:            score.Delta(),
		Timestamp:        dc.Now.UTC(),
	}

	reasons := e.criteria(score, thresholds)
	if len(reasons) > 0 {
		m.move(StateNoSignal)
		return e.finish(decision, m, reasons)
	}
	m.move(StateSignalPending)

	action := e.rule.Direction(score)
	if action == domain.ActionNone {
		m.move(StateNoSignal)
		return e.finish(decision, m, []string{ReasonNoDirection})
	}

	in := GateInput{Score: score, Action: action, Thresholds: thresholds, Context: dc}
	for _, g := range e.gates {
		if ok, reason := g.Check(in); !ok {
			reasons = append(reasons, reason)
		}
	}
	if len(reasons) > 0 {
		m.move(StateNoSignal)
		return e.finish(decision, m, reasons)
	}

	m.move(StateFired)
	decision.Signal = &TradeSignal{
		ID:               e.newID(),
		Symbol:           score.Symbol,
		StrategyID:       score.StrategyID,
		Action:           action,
		Score:            score.Score,
		Delta:            decision.Delta,
		Confidence:       Confidence(score.Score, decision.Delta, thresholds),
		CompositeScoreID: score.ID,
		Timestamp:        decision.Timestamp,
	}
	e.log.Info().
		Str("symbol", score.Symbol).
		Str("strategy", score.StrategyID).
		Str("action", string(action)).
		Float64("score", score.Score).
		Float64("confidence", decision.Signal.Confidence).
		Msg("Trade signal fired")
	return e.finish(decision, m, nil)
}

func (e *Engine) criteria(score scoring.CompositeScore, t scoring.Thresholds) []string {
	var reasons []string
	if score.Score < t.ScoreThreshold {
		reasons = append(reasons, fmt.Sprintf("%s: %.2f < %.2f", ReasonBelowThreshold, score.Score, t.ScoreThreshold))
	}
	if d := score.Delta(); d != nil && math.Abs(*d)+changeTolerance < t.MinChange {
		reasons = append(reasons, fmt.Sprintf("%s: %.2f < %.2f", ReasonInsufficientChange, math.Abs(*d), t.MinChange))
	}
	return reasons
}

func (e *Engine) finish(d TradeDecision, m *machine, reasons []string) TradeDecision {
	terminal := m.path[len(m.path)-1]
	m.move(StateIdle)
	d.Path = m.path
	d.Suppressed = reasons

	if terminal == StateNoSignal {
		e.log.Debug().
			Str("symbol", d.Symbol).
			Strs("reasons", reasons).
			Msg("Signal suppressed")
	}

	e.mu.Lock()
	e.last[d.StrategyID+"\x00"+d.Symbol] = d
	e.mu.Unlock()
	return d
}

// Last returns the most recent decision for a symbol and strategy.
func (e *Engine) Last(symbol, strategyID string) (TradeDecision, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	d, ok := e.last[strategyID+"\x00"+symbol]
	return d, ok
}

// Confidence blends the threshold margin (60%) with the size of the move (40%). On the
// first observation the move factor is 0.5. The result is within [0, 1].
func Confidence(score float64, delta *float64, t scoring.Thresholds) float64 {
	margin := 1.0
	if t.ScoreThreshold < 100 {
		margin = (score - t.ScoreThreshold) / (100 - t.ScoreThreshold)
	}

	deltaFactor := firstRunDeltaFactor
	if delta != nil {
		if t.MinChange <= 0 {
			deltaFactor = 1
		} else {
			deltaFactor = math.Min(math.Abs(*delta)/(2*t.MinChange), 1)
		}
	}
	return scoring.Clamp(confidenceScoreWeight*margin+confidenceDeltaWeight*deltaFactor, 0, 1)
}
