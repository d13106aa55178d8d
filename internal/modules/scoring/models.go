package scoring

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Component is one directive's share of a composite score.
type Component struct {
	DirectiveID     string  `json:"directive_id" msgpack:"directive_id"`
	Name            string  `json:"name" msgpack:"name"`
	RawScore        float64 `json:"raw_score" msgpack:"raw_score"`
	MaxScore        float64 `json:"max_score" msgpack:"max_score"`
	Weight          float64 `json:"weight" msgpack:"weight"`
	EffectiveWeight float64 `json:"effective_weight" msgpack:"effective_weight"`
	Contribution    float64 `json:"contribution" msgpack:"contribution"`
	Signal          string  `json:"signal,omitempty" msgpack:"signal,omitempty"`
	Explanation     string  `json:"explanation,omitempty" msgpack:"explanation,omitempty"`
	Skipped         bool    `json:"skipped,omitempty" msgpack:"skipped,omitempty"`
	SkipReason      string  `json:"skip_reason,omitempty" msgpack:"skip_reason,omitempty"`
}

// CompositeScore is the immutable result of one scoring run for a symbol and strategy.
// It is always produced, whether or not a trade signal follows.
type CompositeScore struct {
	ID               string      `json:"id"`
	Symbol           string      `json:"symbol"`
	StrategyID       string      `json:"strategy_id"`
	Score            float64     `json:"score"`
	PreviousScore    *float64    `json:"previous_score"`
	Components       []Component `json:"components"`
	WeightVersion    int         `json:"weight_version"`
	SkipWeightPolicy string      `json:"skip_weight_policy"`
	SnapshotTime     time.Time   `json:"snapshot_time"`
	Timestamp        time.Time   `json:"timestamp"`
}

// Delta returns Score minus PreviousScore, or nil on the first observation.
func (c CompositeScore) Delta() *float64 {
	if c.PreviousScore == nil {
		return nil
	}
	d := c.Score - *c.PreviousScore
	return &d
}

// Component returns the breakdown entry for a directive.
func (c CompositeScore) Component(directiveID string) (Component, bool) {
	for _, comp := range c.Components {
		if comp.DirectiveID == directiveID {
			return comp, true
		}
	}
	return Component{}, false
}

// SkippedDirectives lists the ids of skipped directives.
func (c CompositeScore) SkippedDirectives() []string {
	var out []string
	for _, comp := range c.Components {
		if comp.Skipped {
			out = append(out, comp.DirectiveID)
		}
	}
	return out
}

// EncodeComponents serializes a breakdown for storage.
func EncodeComponents(components []Component) ([]byte, error) {
	data, err := msgpack.Marshal(components)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score components: %w", err)
	}
	return data, nil
}

// DecodeComponents restores a breakdown written by EncodeComponents.
func DecodeComponents(data []byte) ([]Component, error) {
	var components []Component
	if err := msgpack.Unmarshal(data, &components); err != nil {
		return nil, fmt.Errorf("failed to decode score components: %w", err)
	}
	return components, nil
}
