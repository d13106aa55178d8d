package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/events"
	"github.com/aristath/tradesignal/internal/metrics"
	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SignalStore records fired signals.
type SignalStore interface {
	Save(ctx context.Context, s signals.TradeSignal) error
}

// Dependencies wires the runner. Source, Registry, Scorer and Engine are required; the
// rest may be nil.
type Dependencies struct {
	Source    domain.IndicatorSource
	Registry  *scoring.Registry
	Scorer    *scoring.Scorer
	Engine    *signals.Engine
	Risk      *risk.Service
	Positions domain.PositionProvider
	Signals   SignalStore
	Events    *events.Manager
	Metrics   *metrics.Registry
	Reference Reference
}

// Runner executes batches.
type Runner struct {
	deps        Dependencies
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// NewRunner creates a batch runner that scores at most concurrency symbols at a time
// (0 means unlimited).
func NewRunner(deps Dependencies, concurrency int, log zerolog.Logger) *Runner {
	return &Runner{
		deps:        deps,
		concurrency: concurrency,
		now:         time.Now,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// portfolio is the position state captured once per batch.
type portfolio struct {
	bySymbol map[string]domain.Position
	value    float64
	sectors  map[string]float64
	known    bool
}

// Run scores symbols against one snapshot of the strategy. Cancellation is checked before
// each symbol starts; a symbol already in progress runs to completion and its results are
// persisted. The returned error is non-nil only when the batch could not start.
func (r *Runner) Run(ctx context.Context, strategyID string, symbols []string) (BatchResult, error) {
	strategy, err := r.deps.Registry.Snapshot(strategyID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to snapshot strategy %s: %w", strategyID, err)
	}

	batch := BatchResult{
		ID:            uuid.New().String(),
		StrategyID:    strategyID,
		WeightVersion: strategy.Version,
		Results:       make([]SymbolResult, len(symbols)),
		StartedAt:     r.now().UTC(),
	}
	log := r.log.With().Str("batch", batch.ID).Str("strategy", strategyID).Logger()
	log.Info().Int("symbols", len(symbols)).Int("version", strategy.Version).Msg("Batch started")
	r.emit(&events.BatchStatusData{BatchID: batch.ID, StrategyID: strategyID, Status: "started", Symbols: len(symbols)})
	if r.deps.Metrics != nil {
		r.deps.Metrics.BatchesRunning.Inc()
		defer r.deps.Metrics.BatchesRunning.Dec()
	}

	pf := r.loadPortfolio(ctx, log)

	started := make([]bool, len(symbols))
	var mu sync.Mutex
	g := new(errgroup.Group)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, symbol := range symbols {
		i, symbol := i, symbol
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			mu.Lock()
			started[i] = true
			mu.Unlock()
			batch.Results[i] = r.runSymbol(context.WithoutCancel(ctx), symbol, strategy, pf)
			return nil
		})
	}
	_ = g.Wait()

	results := batch.Results[:0]
	for i, res := range batch.Results {
		if !started[i] {
			batch.NotStarted = append(batch.NotStarted, symbols[i])
			continue
		}
		res.Symbol = symbols[i]
		results = append(results, res)
		switch {
		case res.Failed():
			batch.Failed++
		default:
			batch.Scored++
			if res.Decision != nil && res.Decision.Fired() {
				batch.Fired++
			}
		}
	}
	batch.Results = results
	batch.Cancelled = len(batch.NotStarted) > 0
	batch.FinishedAt = r.now().UTC()

	if r.deps.Metrics != nil {
		r.deps.Metrics.BatchDuration.WithLabelValues(strategyID).Observe(batch.Duration().Seconds())
	}
	r.emit(&events.BatchStatusData{
		BatchID:    batch.ID,
		StrategyID: strategyID,
		Status:     "completed",
		Symbols:    len(symbols),
		Scored:     batch.Scored,
		Fired:      batch.Fired,
		Failed:     batch.Failed,
		Cancelled:  batch.Cancelled,
		Duration:   batch.Duration().Seconds(),
	})
	log.Info().
		Int("scored", batch.Scored).
		Int("fired", batch.Fired).
		Int("failed", batch.Failed).
		Int("not_started", len(batch.NotStarted)).
		Dur("duration", batch.Duration()).
		Msg("Batch completed")
	return batch, nil
}

func (r *Runner) loadPortfolio(ctx context.Context, log zerolog.Logger) portfolio {
	pf := portfolio{bySymbol: make(map[string]domain.Position), sectors: make(map[string]float64)}
	if r.deps.Positions == nil {
		return pf
	}
	positions, err := r.deps.Positions.OpenPositions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load open positions, skipping risk stage")
		r.failure(StagePositions)
		return pf
	}

	pf.known = true
	bySector := make(map[string]float64)
	for _, p := range positions {
		if p.Sector == "" {
			p.Sector = r.deps.Reference.Sectors[p.Symbol]
		}
		pf.bySymbol[p.Symbol] = p
		pf.value += p.MarketValue()
		if p.Sector != "" {
			bySector[p.Sector] += p.MarketValue()
		}
	}
	if pf.value > 0 {
		for sector, v := range bySector {
			pf.sectors[sector] = v / pf.value
		}
	}
	return pf
}

func (r *Runner) runSymbol(ctx context.Context, symbol string, strategy scoring.StrategySnapshot, pf portfolio) SymbolResult {
	res := SymbolResult{Symbol: symbol}
	log := r.log.With().Str("symbol", symbol).Logger()

	snapshot, err := r.deps.Source.GetSnapshot(ctx, symbol)
	if err != nil {
		return r.fail(res, StageSource, err, log)
	}

	score, err := r.deps.Scorer.Compute(ctx, symbol, snapshot, strategy)
	if err != nil {
		return r.fail(res, StageScoring, err, log)
	}
	res.Score = &score
	skipped := score.SkippedDirectives()
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveScore(strategy.StrategyID, score.Score, skipped)
	}
	r.emit(&events.ScoreComputedData{
		ScoreID:       score.ID,
		Symbol:        symbol,
		StrategyID:    strategy.StrategyID,
		Score:         score.Score,
		Delta:         score.Delta(),
		WeightVersion: score.WeightVersion,
		Skipped:       skipped,
	})

	_, held := pf.bySymbol[symbol]
	dc := signals.DecisionContext{
		Now:           r.now(),
		OpenPositions: len(pf.bySymbol),
		Held:          held,
	}
	if v, ok := snapshot.Get(domain.FieldVIX); ok {
		dc.MarketVolatility = domain.Float(v)
	}

	decision := r.deps.Engine.Decide(score, strategy.Thresholds, dc)
	res.Decision = &decision
	r.recordDecision(ctx, decision, log, &res)

	if held && r.deps.Risk != nil {
		res.Risk = r.assess(ctx, pf.bySymbol[symbol], pf, snapshot, score, log, &res)
	}
	return res
}

func (r *Runner) recordDecision(ctx context.Context, d signals.TradeDecision, log zerolog.Logger, res *SymbolResult) {
	if r.deps.Metrics != nil {
		action := ""
		if d.Signal != nil {
			action = string(d.Signal.Action)
		}
		r.deps.Metrics.ObserveDecision(d.StrategyID, d.Fired(), action, d.Suppressed)
	}

	if !d.Fired() {
		r.emit(&events.SignalSuppressedData{
			Symbol:     d.Symbol,
			StrategyID: d.StrategyID,
			Score:      d.Score,
			Reasons:    d.Suppressed,
		})
		return
	}

	s := d.Signal
	if r.deps.Signals != nil {
		if err := r.deps.Signals.Save(ctx, *s); err != nil {
			log.Error().Err(err).Msg("Failed to store trade signal")
			r.failure(StageSignal)
			res.Stage = StageSignal
			res.Error = err.Error()
		}
	}
	r.emit(&events.SignalFiredData{
		SignalID:         s.ID,
		Symbol:           s.Symbol,
		StrategyID:       s.StrategyID,
		Action:           string(s.Action),
		Score:            s.Score,
		Delta:            s.Delta,
		Confidence:       s.Confidence,
		CompositeScoreID: s.CompositeScoreID,
		Timestamp:        s.Timestamp,
	})
}

func (r *Runner) assess(ctx context.Context, p domain.Position, pf portfolio, snapshot domain.IndicatorSnapshot, score scoring.CompositeScore, log zerolog.Logger, res *SymbolResult) *risk.RiskAssessment {
	now := r.now()
	mc := domain.MarketContext{
		Now:               now,
		PortfolioValue:    pf.value,
		SectorExposure:    pf.sectors,
		CompositeScore:    domain.Float(score.Score),
		OpenPositionCount: len(pf.bySymbol),
	}
	if v, ok := snapshot.Get(domain.FieldVolatility); ok {
		mc.Volatility = domain.Float(v)
	}
	if v, ok := snapshot.Get(domain.FieldBenchmarkCorrelation); ok {
		mc.Correlation = domain.Float(v)
	}
	if v, ok := snapshot.Get(domain.FieldVIX); ok {
		mc.MarketVolatility = domain.Float(v)
	}
	if date, ok := r.deps.Reference.Earnings[p.Symbol]; ok {
		mc.DaysToEarnings = domain.Int(daysUntil(date, now))
	}

	a, err := r.deps.Risk.Assess(ctx, p, mc)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store risk assessment")
		r.failure(StageRisk)
		res.Stage = StageRisk
		res.Error = err.Error()
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveRisk(string(a.Level), a.FailedClosed)
	}

	r.emit(&events.RiskAssessedData{
		AssessmentID: a.ID,
		Symbol:       a.Symbol,
		Score:        a.Score,
		Level:        string(a.Level),
		Action:       string(a.Action),
		FailedClosed: a.FailedClosed,
	})
	if a.Action != risk.ActionNone {
		r.emit(&events.RiskActionIssuedData{
			AssessmentID:   a.ID,
			Symbol:         a.Symbol,
			Level:          string(a.Level),
			Action:         string(a.Action),
			NewStopLoss:    a.Response.NewStopLoss,
			ReduceQuantity: a.Response.ReduceQuantity,
			FailedClosed:   a.FailedClosed,
			Timestamp:      a.Timestamp,
		})
	}
	return &a
}

func (r *Runner) fail(res SymbolResult, stage string, err error, log zerolog.Logger) SymbolResult {
	res.Stage = stage
	res.Error = err.Error()
	r.failure(stage)

	ev := log.Warn()
	if !errors.Is(err, domain.ErrIndicatorSourceUnavailable) && !errors.Is(err, domain.ErrMissingIndicatorData) {
		ev = log.Error()
	}
	ev.Err(err).Str("stage", stage).Msg("Symbol failed")
	if r.deps.Events != nil {
		r.deps.Events.EmitError("pipeline", err, map[string]interface{}{"symbol": res.Symbol, "stage": stage})
	}
	return res
}

func (r *Runner) failure(stage string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObserveFailure(stage)
	}
}

func (r *Runner) emit(data events.EventData) {
	if r.deps.Events != nil {
		r.deps.Events.EmitTyped("pipeline", data)
	}
}

// daysUntil counts whole days from now to t, rounding down so that a date already
// passed is negative.
func daysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
