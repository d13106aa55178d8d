// Package pipeline runs scoring batches: indicator snapshot, composite score, signal
// decision and, for held symbols, the risk stage, one symbol at a time per worker.
package pipeline

import (
	"time"

	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/signals"
)

// Pipeline stages, used to report where a symbol failed.
const (
	StageSource    = "indicator_source"
	StageScoring   = "scoring"
	StageSignal    = "signal"
	StageRisk      = "risk"
	StagePositions = "positions"
)

// SymbolResult is the outcome for one symbol. Failures in one symbol never affect others.
type SymbolResult struct {
	Symbol   string                  `json:"symbol"`
	Score    *scoring.CompositeScore `json:"score,omitempty"`
	Decision *signals.TradeDecision  `json:"decision,omitempty"`
	Risk     *risk.RiskAssessment    `json:"risk,omitempty"`
	Stage    string                  `json:"failed_stage,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// Failed reports whether the symbol stopped before producing a score.
func (r SymbolResult) Failed() bool {
	return r.Score == nil
}

// BatchResult summarizes one batch run. Results are in input order; symbols that were not
// started because the run was cancelled are listed in NotStarted.
type BatchResult struct {
	ID            string         `json:"id"`
	StrategyID    string         `json:"strategy_id"`
	WeightVersion int            `json:"weight_version"`
	Results       []SymbolResult `json:"results"`
	NotStarted    []string       `json:"not_started,omitempty"`
	Scored        int            `json:"scored"`
	Fired         int            `json:"fired"`
	Failed        int            `json:"failed"`
	Cancelled     bool           `json:"cancelled"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// Duration returns how long the batch took.
func (b BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// Signals returns every fired signal in the batch.
func (b BatchResult) Signals() []signals.TradeSignal {
	var out []signals.TradeSignal
	for _, r := range b.Results {
		if r.Decision != nil && r.Decision.Signal != nil {
			out = append(out, *r.Decision.Signal)
		}
	}
	return out
}

// Reference is static per-symbol data that brokers do not report.
type Reference struct {
	Sectors  map[string]string    `yaml:"sectors" json:"sectors,omitempty"`
	Earnings map[string]time.Time `yaml:"earnings" json:"earnings,omitempty"`
}
