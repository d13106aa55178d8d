package directives

import (
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// PortfolioPerformance scores portfolio return relative to a benchmark.
type PortfolioPerformance struct {
	base
}

// NewPortfolioPerformance creates the portfolio performance directive.
func NewPortfolioPerformance() *PortfolioPerformance {
	return &PortfolioPerformance{base: base{
		id:       IDPortfolioPerformance,
		name:     "Portfolio Performance",
		required: []string{domain.FieldPortfolioReturn},
	}}
}

// Evaluate scores 50 + excess return (percent) * 5. A missing benchmark counts as 0.
func (d *PortfolioPerformance) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldPortfolioReturn)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	port := v[domain.FieldPortfolioReturn]
	bench, _ := snapshot.Get(domain.FieldBenchmarkReturn)
	excess := port - bench
	return d.result(50+excess*5, "portfolio %.2f%% vs benchmark %.2f%%", port, bench), nil
}

// WeeklyRhythm favours buying after weak weeks, early in the week.
type WeeklyRhythm struct {
	base
}

// NewWeeklyRhythm creates the weekly rhythm directive.
func NewWeeklyRhythm() *WeeklyRhythm {
	return &WeeklyRhythm{base: base{
		id:       IDWeeklyRhythm,
		name:     "Weekly Rhythm",
		required: []string{domain.FieldWeeklyChangePct},
	}}
}

// Evaluate scores 50 - weekly change * 5, plus 5 on Mondays and minus 5 on Fridays in the
// snapshot's own time zone.
func (d *WeeklyRhythm) Evaluate(snapshot domain.IndicatorSnapshot) (scoring.DirectiveResult, error) {
	v, err := scoring.RequireFields(d.id, snapshot, domain.FieldWeeklyChangePct)
	if err != nil {
		return scoring.DirectiveResult{}, err
	}
	weekly := v[domain.FieldWeeklyChangePct]
	score := 50 - weekly*5

	day := snapshot.Timestamp().Weekday()
	switch day {
	case time.Monday:
		score += 5
	case time.Friday:
		score -= 5
	}
	return d.result(score, "weekly change %.2f%% on %s", weekly, day), nil
}
