package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrAllDirectivesSkipped is returned when no directive of a strategy could be evaluated.
var ErrAllDirectivesSkipped = errors.New("all directives skipped")

// FailurePolicy decides what a directive error does to the composite.
type FailurePolicy int

const (
	// FailurePolicyAbort fails the whole composite for the symbol.
	FailurePolicyAbort FailurePolicy = iota
	// FailurePolicySkip records the directive as skipped with contribution 0.
	FailurePolicySkip
)

func (p FailurePolicy) String() string {
	switch p {
	case FailurePolicyAbort:
		return "abort"
	case FailurePolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("failure_policy(%d)", int(p))
	}
}

// ParseFailurePolicy accepts "abort" or "skip".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "abort":
		return FailurePolicyAbort, nil
	case "skip":
		return FailurePolicySkip, nil
	}
	return 0, fmt.Errorf("unknown failure policy %q", s)
}

// SkipWeightPolicy decides what happens to the weight of a skipped directive.
type SkipWeightPolicy int

const (
	// SkipWeightFixedCeiling leaves the weight unused, lowering the attainable maximum.
	SkipWeightFixedCeiling SkipWeightPolicy = iota
	// SkipWeightRedistribute scales the remaining weights so they sum to 1.0.
	SkipWeightRedistribute
)

func (p SkipWeightPolicy) String() string {
	switch p {
	case SkipWeightFixedCeiling:
		return "fixed_ceiling"
	case SkipWeightRedistribute:
		return "redistribute"
	default:
		return fmt.Sprintf("skip_weight_policy(%d)", int(p))
	}
}

// ParseSkipWeightPolicy accepts "fixed_ceiling" or "redistribute".
func ParseSkipWeightPolicy(s string) (SkipWeightPolicy, error) {
	switch s {
	case "fixed_ceiling":
		return SkipWeightFixedCeiling, nil
	case "redistribute":
		return SkipWeightRedistribute, nil
	}
	return 0, fmt.Errorf("unknown skip weight policy %q", s)
}

// ScoreHistory stores composite scores and returns the latest one per symbol and strategy.
type ScoreHistory interface {
	Latest(ctx context.Context, symbol, strategyID string) (*CompositeScore, error)
	Save(ctx context.Context, score CompositeScore) error
}

// ScorerOptions configures a Scorer. Both policies must be chosen by the caller.
type ScorerOptions struct {
	FailurePolicy    FailurePolicy
	SkipWeightPolicy SkipWeightPolicy
	// Concurrency bounds parallel directive evaluations; 0 means unbounded.
	Concurrency int
}

// Scorer runs a strategy's directives against a snapshot and aggregates the results.
type Scorer struct {
	history ScoreHistory
	opts    ScorerOptions
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

// NewScorer creates a composite scorer. history may be nil, in which case no previous
// score is looked up and nothing is stored.
func NewScorer(history ScoreHistory, opts ScorerOptions, log zerolog.Logger) *Scorer {
	return &Scorer{
		history: history,
		opts:    opts,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		log:     log.With().Str("component", "composite_scorer").Logger(),
	}
}

// Options returns the scorer's policies.
func (s *Scorer) Options() ScorerOptions {
	return s.opts
}

type evaluation struct {
	result DirectiveResult
	err    error
}

// evaluate runs every directive and waits for all of them before returning.
func (s *Scorer) evaluate(snapshot domain.IndicatorSnapshot, directives []WeightedDirective) []evaluation {
	results := make([]evaluation, len(directives))

	var g errgroup.Group
	if s.opts.Concurrency > 0 {
		g.SetLimit(s.opts.Concurrency)
	}
	for i, wd := range directives {
		i, wd := i, wd
		g.Go(func() error {
			results[i] = runDirective(wd.Directive, snapshot)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runDirective(d Directive, snapshot domain.IndicatorSnapshot) (ev evaluation) {
	defer func() {
		if r := recover(); r != nil {
			ev = evaluation{err: fmt.Errorf("directive %s panicked: %v", d.ID(), r)}
		}
	}()

	result, err := d.Evaluate(snapshot)
	if err != nil {
		return evaluation{err: err}
	}
	if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) {
		return evaluation{err: fmt.Errorf("directive %s returned a non-finite score", d.ID())}
	}
	result.Score = Clamp(result.Score, 0, d.MaxScore())
	return evaluation{result: result}
}

// Aggregate evaluates the strategy against snapshot and builds the score without touching
// history. The result has no id and no previous score.
func (s *Scorer) Aggregate(symbol string, snapshot domain.IndicatorSnapshot, strategy StrategySnapshot) (CompositeScore, error) {
	if len(strategy.Directives) == 0 {
		return CompositeScore{}, &domain.InvalidWeightConfigurationError{
			Owner:  strategy.StrategyID,
			Reason: "strategy has no active directives",
		}
	}

	evals := s.evaluate(snapshot, strategy.Directives)
	components := make([]Component, len(strategy.Directives))
	evaluatedWeight := 0.0
	var firstErr error

	for i, wd := range strategy.Directives {
		d := wd.Directive
		comp := Component{
			DirectiveID: d.ID(),
			Name:        d.Name(),
			MaxScore:    d.MaxScore(),
			Weight:      wd.Weight,
		}
		if err := evals[i].err; err != nil {
			if s.opts.FailurePolicy == FailurePolicyAbort {
				return CompositeScore{}, fmt.Errorf("directive %s failed for %s: %w", d.ID(), symbol, err)
			}
			if firstErr == nil {
				firstErr = err
			}
			comp.Skipped = true
			comp.SkipReason = err.Error()
			s.log.Debug().Err(err).Str("symbol", symbol).Str("directive", d.ID()).Msg("Directive skipped")
		} else {
			comp.RawScore = evals[i].result.Score
			comp.Signal = evals[i].result.Signal
			comp.Explanation = evals[i].result.Explanation
			evaluatedWeight += wd.Weight
		}
		components[i] = comp
	}

	if evaluatedWeight == 0 {
		return CompositeScore{}, fmt.Errorf("%w for %s: %w", ErrAllDirectivesSkipped, symbol, firstErr)
	}

	total := 0.0
	for i := range components {
		comp := &components[i]
		if comp.Skipped {
			continue
		}
		comp.EffectiveWeight = comp.Weight
		if s.opts.SkipWeightPolicy == SkipWeightRedistribute {
			comp.EffectiveWeight = comp.Weight / evaluatedWeight
		}
		comp.Contribution = (comp.RawScore / comp.MaxScore) * 100 * comp.EffectiveWeight
		total += comp.Contribution
	}

	return CompositeScore{
		Symbol:           symbol,
		StrategyID:       strategy.StrategyID,
		Score:            Clamp(total, 0, 100),
		Components:       components,
		WeightVersion:    strategy.Version,
		SkipWeightPolicy: s.opts.SkipWeightPolicy.String(),
		SnapshotTime:     snapshot.Timestamp(),
	}, nil
}

// Compute scores a symbol, attaches the previous composite for the same strategy and stores
// the new record. Storage uses a context detached from cancellation so a finished
// computation is never dropped halfway.
func (s *Scorer) Compute(ctx context.Context, symbol string, snapshot domain.IndicatorSnapshot, strategy StrategySnapshot) (CompositeScore, error) {
	if snap := snapshot.Symbol(); snap != "" && snap != symbol {
		return CompositeScore{}, fmt.Errorf("snapshot is for %s, not %s", snap, symbol)
	}

	score, err := s.Aggregate(symbol, snapshot, strategy)
	if err != nil {
		return CompositeScore{}, err
	}
	score.ID = s.newID()
	score.Timestamp = s.now().UTC()

	if s.history == nil {
		return score, nil
	}

	prev, err := s.history.Latest(ctx, symbol, strategy.StrategyID)
	if err != nil {
		return CompositeScore{}, fmt.Errorf("failed to load previous score for %s: %w", symbol, err)
	}
	if prev != nil {
		p := prev.Score
		score.PreviousScore = &p
	}

	if err := s.history.Save(context.WithoutCancel(ctx), score); err != nil {
		return CompositeScore{}, fmt.Errorf("failed to store composite score for %s: %w", symbol, err)
	}

	s.log.Debug().
		Str("symbol", symbol).
		Str("strategy", strategy.StrategyID).
		Float64("score", score.Score).
		Msg("Composite score computed")
	return score, nil
}
