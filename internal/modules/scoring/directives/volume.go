package directives

import (
	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// Volume scores above-average volume on up days high and on down days low.
type Volume struct {
	base
}

// NewVolume creates the relative volume directive.
func NewVolume() *Volume {
	return &Volume{base: base{
		id:       IDVolume,
		name:     "Relative Volume",
		required: []string{domain.FieldVolume, domain.FieldAvgVolume},
	}}
}

// Evaluate scores 50 + (ratio-1)*50, mirrored when the day's change is negative.
func (d *Volume) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldVolume, domain.FieldAvgVolume)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	volume, avg := v[domain.FieldVolume], v[domain.FieldAvgVolume]
	if avg <= 0 {
		return scoring.DirectiveResult{}, d.invalid(domain.FieldAvgVolume, avg)
	}

	ratio := volume / avg
	score := scoring.Clamp(50+(ratio-1)*50, 0, MaxScore)
	if change, ok := snapshot.Get(domain.FieldChangePct); ok && change < 0 {
		return d.result(100-score, "volume %.2fx average on a down move (%.2f%%)", ratio, change), nil
	}
	return d.result(score, "volume %.2fx average", ratio), nil
}
