package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level is a discretized risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
	LevelSevere Level = "severe"
)

// Action is the recommended response to an assessment.
type Action string

const (
	ActionNone           Action = "none"
	ActionAdjustStopLoss Action = "adjust_stop_loss"
	ActionReducePosition Action = "reduce_position"
	ActionClosePosition  Action = "close_position"
)

// levelTolerance absorbs float error so a weighted sum of 0.9 is not read as 0.8999999.
const levelTolerance = 1e-9

// FactorResult is one factor's share of an assessment.
type FactorResult struct {
	Factor       string  `json:"factor"`
	Weight       float64 `json:"weight"`
	SubScore     float64 `json:"sub_score"`
	Contribution float64 `json:"contribution"`
	Detail       string  `json:"detail,omitempty"`
	Failed       bool    `json:"failed,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Response is the concrete adjustment for a position.
type Response struct {
	Action         Action   `json:"action"`
	NewStopLoss    *float64 `json:"new_stop_loss,omitempty"`
	ReduceQuantity float64  `json:"reduce_quantity,omitempty"`
}

// RiskAssessment is the immutable outcome of assessing one position.
type RiskAssessment struct {
	ID           string         `json:"id"`
	Symbol       string         `json:"symbol"`
	ModelID      string         `json:"model_id"`
	Score        float64        `json:"score"`
	Level        Level          `json:"level"`
	Action       Action         `json:"action"`
	Factors      []FactorResult `json:"factors"`
	Response     Response       `json:"response"`
	FailedClosed bool           `json:"failed_closed"`
	Errors       []string       `json:"errors,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Assessor computes risk assessments for a validated model.
type Assessor struct {
	model RiskModel
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// NewAssessor validates model and returns an assessor for it.
func NewAssessor(model RiskModel, log zerolog.Logger) (*Assessor, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	weights := make(map[string]float64, len(model.Weights))
	for k, v := range model.Weights {
		weights[k] = v
	}
	model.Weights = weights

	return &Assessor{
		model: model,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
		log:   log.With().Str("component", "risk_assessor").Logger(),
	}, nil
}

// Model returns a copy of the assessor's model.
func (a *Assessor) Model() RiskModel {
	m := a.model
	m.Weights = make(map[string]float64, len(a.model.Weights))
	for k, v := range a.model.Weights {
		m.Weights[k] = v
	}
	return m
}

// Level maps a score to a level using the model thresholds.
func (a *Assessor) Level(score float64) Level {
	t := a.model.Thresholds
	switch {
	case score+levelTolerance >= t.Severe:
		return LevelSevere
	case score+levelTolerance >= t.High:
		return LevelHigh
	case score+levelTolerance >= t.Moderate:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assess scores a position. A factor that cannot be computed either contributes 0 (when the
// model tolerates partial data) or makes the whole assessment fail closed at the highest
// risk with a close_position response.
func (a *Assessor) Assess(p domain.Position, mc domain.MarketContext) RiskAssessment {
	if mc.Now.IsZero() {
		mc.Now = a.now()
	}
	assessment := RiskAssessment{
		ID:        a.newID(),
		Symbol:    p.Symbol,
		ModelID:   a.model.ID,
		Timestamp: mc.Now.UTC(),
	}

	if err := validatePosition(p); err != nil {
		return a.failClosed(assessment, p, []string{err.Error()})
	}

	ids := make([]string, 0, len(a.model.Weights))
	for id := range a.model.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []string
	total := 0.0
	for _, id := range ids {
		w := a.model.Weights[id]
		fr := FactorResult{Factor: id, Weight: w}
		sub, detail, err := factors[id](p, mc, a.model.Limits)
		if err != nil {
			ferr := &domain.RiskFactorComputationError{Factor: id, Symbol: p.Symbol, Reason: err.Error()}
			errs = append(errs, ferr.Error())
			fr.Failed = true
			fr.Error = ferr.Error()
			assessment.Factors = append(assessment.Factors, fr)
			continue
		}
		fr.SubScore = sub
		fr.Detail = detail
		fr.Contribution = w * sub
		total += fr.Contribution
		assessment.Factors = append(assessment.Factors, fr)
	}

	if len(errs) > 0 && !a.model.ToleratePartial {
		return a.failClosed(assessment, p, errs)
	}

	assessment.Errors = errs
	assessment.Score = unit(total)
	assessment.Level = a.Level(assessment.Score)
	assessment.Response = a.respond(assessment.Level, p)
	assessment.Action = assessment.Response.Action

	a.log.Debug().
		Str("symbol", p.Symbol).
		Float64("score", assessment.Score).
		Str("level", string(assessment.Level)).
		Int("failed_factors", len(errs)).
		Msg("Position assessed")
	return assessment
}

func validatePosition(p domain.Position) error {
	if p.Symbol == "" {
		return fmt.Errorf("position has no symbol")
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("position %s has non-positive quantity %.4f", p.Symbol, p.Quantity)
	}
	switch p.Side {
	case "", domain.SideLong, domain.SideShort:
	default:
		return fmt.Errorf("position %s has unknown side %q", p.Symbol, p.Side)
	}
	if p.CurrentPrice <= 0 {
		return fmt.Errorf("position %s has no current price", p.Symbol)
	}
	return nil
}

func (a *Assessor) failClosed(assessment RiskAssessment, p domain.Position, errs []string) RiskAssessment {
	assessment.Score = 1.0
	assessment.Level = LevelSevere
	assessment.Action = ActionClosePosition
	assessment.Response = Response{Action: ActionClosePosition, ReduceQuantity: p.Quantity}
	assessment.FailedClosed = true
	assessment.Errors = errs

	a.log.Warn().
		Str("symbol", p.Symbol).
		Strs("errors", errs).
		Msg("Risk assessment failed closed")
	return assessment
}

func (a *Assessor) respond(level Level, p domain.Position) Response {
	r := a.model.Response
	switch level {
	case LevelMedium:
		stop := TightenStop(p, r.ModerateStopTightenPct, r.DefaultStopDistancePct)
		return Response{Action: ActionAdjustStopLoss, NewStopLoss: &stop}
	case LevelHigh:
		stop := TightenStop(p, r.HighStopTightenPct, r.DefaultStopDistancePct)
		return Response{
			Action:         ActionReducePosition,
			NewStopLoss:    &stop,
			ReduceQuantity: p.Quantity * r.HighReducePct / 100,
		}
	case LevelSevere:
		return Response{Action: ActionClosePosition, ReduceQuantity: p.Quantity}
	default:
		return Response{Action: ActionNone}
	}
}

// TightenStop moves the stop pct percent closer to the current price. A position without a
// stop starts defaultDistancePct away from the current price: below it for a long, above it
// for a short. A stop already on the wrong side of the price is left alone.
func TightenStop(p domain.Position, pct, defaultDistancePct float64) float64 {
	price := p.CurrentPrice
	stop := p.StopLoss
	if p.IsShort() {
		if stop <= 0 {
			stop = price * (1 + defaultDistancePct/100)
		}
		if stop <= price {
			return stop
		}
		return price + (stop-price)*(1-pct/100)
	}

	if stop <= 0 {
		stop = price * (1 - defaultDistancePct/100)
	}
	if stop >= price {
		return stop
	}
	return price - (price-stop)*(1-pct/100)
}
