package signals

import (
	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// DirectionRule picks the action for a score that passed the threshold checks.
// Returning domain.ActionNone suppresses the signal.
type DirectionRule interface {
	Name() string
	Direction(score scoring.CompositeScore) domain.Action
}

// AlwaysBuy is the default rule.
type AlwaysBuy struct{}

func (AlwaysBuy) Name() string { return "always_buy" }

func (AlwaysBuy) Direction(scoring.CompositeScore) domain.Action {
	return domain.ActionBuy
}

// SignalVoteRule weighs the directive signal labels: bullish weight against bearish weight.
// The side with more effective weight wins; the gap must be at least MinMargin.
type SignalVoteRule struct {
	MinMargin float64
}

func (SignalVoteRule) Name() string { return "signal_vote" }

func (r SignalVoteRule) Direction(score scoring.CompositeScore) domain.Action {
	bullish, bearish := 0.0, 0.0
	for _, c := range score.Components {
		if c.Skipped {
			continue
		}
		switch c.Signal {
		case scoring.SignalBullish:
			bullish += c.EffectiveWeight
		case scoring.SignalBearish:
			bearish += c.EffectiveWeight
		}
	}

	switch {
	case bullish > bearish && bullish-bearish >= r.MinMargin:
		return domain.ActionBuy
	case bearish > bullish && bearish-bullish >= r.MinMargin:
		return domain.ActionSell
	default:
		return domain.ActionNone
	}
}

// RuleByName returns a built-in direction rule.
func RuleByName(name string) (DirectionRule, bool) {
	switch name {
	case "", "always_buy":
		return AlwaysBuy{}, true
	case "signal_vote":
		return SignalVoteRule{}, true
	}
	return nil, false
}
