package risk

import (
	"fmt"
	"math"

	"github.com/aristath/tradesignal/internal/domain"
)

// factorFunc returns a [0,1] sub-score and a short detail, or an error when the data it
// needs is missing.
type factorFunc func(p domain.Position, mc domain.MarketContext, l Limits) (float64, string, error)

var factors = map[string]factorFunc{
	FactorPositionSize:      positionSize,
	FactorUnrealizedLoss:    unrealizedLoss,
	FactorTimeHeld:          timeHeld,
	FactorVolatility:        volatility,
	FactorCorrelation:       correlation,
	FactorSectorRisk:        sectorRisk,
	FactorEarningsProximity: earningsProximity,
	FactorTechnicalSignals:  technicalSignals,
}

// FactorIDs lists the known risk factors.
func FactorIDs() []string {
	return []string{
		FactorCorrelation, FactorEarningsProximity, FactorPositionSize, FactorSectorRisk,
		FactorTechnicalSignals, FactorTimeHeld, FactorUnrealizedLoss, FactorVolatility,
	}
}

func unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func positionSize(p domain.Position, mc domain.MarketContext, l Limits) (float64, string, error) {
	if mc.PortfolioValue <= 0 {
		return 0, "", fmt.Errorf("portfolio value is unknown")
	}
	pct := p.MarketValue() / mc.PortfolioValue
	return unit(pct / l.MaxPositionPct), fmt.Sprintf("%.1f%% of portfolio", pct*100), nil
}

func unrealizedLoss(p domain.Position, _ domain.MarketContext, l Limits) (float64, string, error) {
	if p.EntryPrice <= 0 {
		return 0, "", fmt.Errorf("entry price is unknown")
	}
	loss := -p.UnrealizedPct()
	if loss <= 0 {
		return 0, fmt.Sprintf("up %.1f%%", -loss*100), nil
	}
	return unit(loss / l.MaxLossPct), fmt.Sprintf("down %.1f%%", loss*100), nil
}

func timeHeld(p domain.Position, mc domain.MarketContext, l Limits) (float64, string, error) {
	if p.OpenedAt.IsZero() {
		return 0, "", fmt.Errorf("open date is unknown")
	}
	days := mc.Now.Sub(p.OpenedAt).Hours() / 24
	return unit(days / l.HoldingPeriodDays), fmt.Sprintf("held %.0f days", days), nil
}

func volatility(_ domain.Position, mc domain.MarketContext, l Limits) (float64, string, error) {
	if mc.Volatility == nil {
		return 0, "", fmt.Errorf("volatility data is missing")
	}
	v := *mc.Volatility
	return unit(v / l.MaxVolatility), fmt.Sprintf("annualized volatility %.1f%%", v*100), nil
}

func correlation(_ domain.Position, mc domain.MarketContext, _ Limits) (float64, string, error) {
	if mc.Correlation == nil {
		return 0, "", fmt.Errorf("correlation data is missing")
	}
	c := *mc.Correlation
	return unit(c), fmt.Sprintf("correlation %.2f", c), nil
}

func sectorRisk(p domain.Position, mc domain.MarketContext, l Limits) (float64, string, error) {
	if p.Sector == "" {
		return 0, "", fmt.Errorf("sector is unknown")
	}
	exposure, ok := mc.SectorExposure[p.Sector]
	if !ok {
		return 0, "", fmt.Errorf("exposure for sector %s is missing", p.Sector)
	}
	return unit(exposure / l.MaxSectorExposure), fmt.Sprintf("%s is %.1f%% of portfolio", p.Sector, exposure*100), nil
}

func earningsProximity(_ domain.Position, mc domain.MarketContext, l Limits) (float64, string, error) {
	if mc.DaysToEarnings == nil {
		return 0, "", fmt.Errorf("earnings date is unknown")
	}
	days := float64(*mc.DaysToEarnings)
	if days < 0 || days > l.EarningsWindowDays {
		return 0, fmt.Sprintf("earnings in %.0f days", days), nil
	}
	return unit(1 - days/l.EarningsWindowDays), fmt.Sprintf("earnings in %.0f days", days), nil
}

func technicalSignals(_ domain.Position, mc domain.MarketContext, _ Limits) (float64, string, error) {
	if mc.CompositeScore == nil {
		return 0, "", fmt.Errorf("composite score is missing")
	}
	s := *mc.CompositeScore
	return unit(1 - s/100), fmt.Sprintf("composite score %.1f", s), nil
}
