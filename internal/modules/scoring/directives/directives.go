// Package directives provides the built-in scoring directives.
package directives

import (
	"fmt"

	"github.com/aristath/tradesignal/internal/modules/scoring"
)

// Built-in directive ids.
const (
	IDRSI                  = "rsi"
	IDMACD                 = "macd"
	IDADX                  = "adx"
	IDMovingAverages       = "moving_averages"
	IDVolume               = "volume"
	IDBollinger            = "bollinger"
	IDEMADistance          = "ema_distance"
	IDPortfolioPerformance = "portfolio_performance"
	IDWeeklyRhythm         = "weekly_rhythm"
)

// MaxScore is the bound every built-in directive scores against.
const MaxScore = 100.0

// Builtins maps each built-in id to a factory using default parameters.
func Builtins() map[string]scoring.Factory {
	return map[string]scoring.Factory{
		IDRSI:                  func() scoring.Directive { return defaultRSI() },
		IDMACD:                 func() scoring.Directive { return NewMACD(DefaultMACDConfig()) },
		IDADX:                  func() scoring.Directive { return NewADX() },
		IDMovingAverages:       func() scoring.Directive { return NewMovingAverages() },
		IDVolume:               func() scoring.Directive { return NewVolume() },
		IDBollinger:            func() scoring.Directive { return NewBollinger() },
		IDEMADistance:          func() scoring.Directive { return NewEMADistance() },
		IDPortfolioPerformance: func() scoring.Directive { return NewPortfolioPerformance() },
		IDWeeklyRhythm:         func() scoring.Directive { return NewWeeklyRhythm() },
	}
}

// defaultRSI builds RSI from the fixed defaults, which always validate.
func defaultRSI() *RSI {
	d, err := NewRSI(DefaultRSIConfig())
	if err != nil {
		panic(fmt.Sprintf("default rsi config: %v", err))
	}
	return d
}

// base carries the identity shared by all built-ins.
type base struct {
	id       string
	name     string
	required []string
}

func (b base) ID() string        { return b.id }
func (b base) Name() string      { return b.name }
func (b base) MaxScore() float64 { return MaxScore }

func (b base) Required() []string {
	return append([]string(nil), b.required...)
}

func (b base) result(score float64, explanation string, args ...interface{}) scoring.DirectiveResult {
	score = scoring.Clamp(score, 0, MaxScore)
	return scoring.DirectiveResult{
		Score:       score,
		Signal:      scoring.SignalFor(score),
		Explanation: fmt.Sprintf(explanation, args...),
	}
}

func (b base) invalid(field string, value float64) error {
	return fmt.Errorf("directive %s: %s must be positive, got %.4f", b.id, field, value)
}
