package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/aristath/tradesignal/internal/modules/pipeline"
	"github.com/aristath/tradesignal/internal/modules/risk"
	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/signals"
	"gopkg.in/yaml.v3"
)

// ScorerConfig selects the composite scorer policies by name.
type ScorerConfig struct {
	FailurePolicy    string `yaml:"failure_policy"`
	SkipWeightPolicy string `yaml:"skip_weight_policy"`
}

// StrategyFile is the YAML document that seeds strategies, the risk model and static
// reference data.
//
//	scorer:
//	  failure_policy: skip
//	direction_rule: signal_vote
//	directives: [rsi, macd, adx]
//	strategies:
//	  - id: default
//	    weights: {rsi: 0.5, macd: 0.5}
//	    thresholds: {score_threshold: 75, min_change: 10}
//	risk_model:
//	  weights: {unrealized_loss: 0.6, time_held: 0.4}
//	reference:
//	  sectors: {AAPL: Technology}
//	  earnings: {AAPL: 2026-01-29}
type StrategyFile struct {
	Scorer        ScorerConfig       `yaml:"scorer"`
	DirectionRule string             `yaml:"direction_rule"`
	Directives    []string           `yaml:"directives"`
	Strategies    []scoring.Strategy `yaml:"strategies"`
	RiskModel     *risk.RiskModel    `yaml:"risk_model"`
	Reference     pipeline.Reference `yaml:"reference"`
}

// DefaultStrategyFile is used when no file is configured: every built-in directive, one
// "default" strategy weighting RSI and MACD equally, and the default risk model.
func DefaultStrategyFile() StrategyFile {
	m := risk.DefaultRiskModel()
	return StrategyFile{
		Scorer:        ScorerConfig{FailurePolicy: "abort", SkipWeightPolicy: "fixed_ceiling"},
		DirectionRule: "signal_vote",
		Strategies: []scoring.Strategy{{
			ID:         "default",
			Name:       "Default",
			Weights:    map[string]float64{"rsi": 0.5, "macd": 0.5},
			Thresholds: scoring.DefaultThresholds(),
		}},
		RiskModel: &m,
	}
}

// LoadStrategyFile reads and validates a strategy file. An empty path returns the defaults.
func LoadStrategyFile(path string) (StrategyFile, error) {
	if path == "" {
		return DefaultStrategyFile(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return StrategyFile{}, fmt.Errorf("failed to open strategy file: %w", err)
	}
	defer f.Close()

	sf, err := ParseStrategyFile(f)
	if err != nil {
		return StrategyFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return sf, nil
}

// ParseStrategyFile decodes and validates a strategy document. Unknown keys are rejected.
func ParseStrategyFile(r io.Reader) (StrategyFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return StrategyFile{}, fmt.Errorf("failed to read strategy file: %w", err)
	}

	var sf StrategyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return StrategyFile{}, fmt.Errorf("failed to parse strategy file: %w", err)
	}

	for i := range sf.Strategies {
		s := &sf.Strategies[i]
		if s.Name == "" {
			s.Name = s.ID
		}
		if s.Thresholds == (scoring.Thresholds{}) {
			s.Thresholds = scoring.DefaultThresholds()
		}
	}
	if sf.RiskModel == nil {
		m := risk.DefaultRiskModel()
		sf.RiskModel = &m
	} else {
		fillRiskDefaults(sf.RiskModel)
	}
	if sf.DirectionRule == "" {
		sf.DirectionRule = "signal_vote"
	}
	if sf.Scorer.FailurePolicy == "" {
		sf.Scorer.FailurePolicy = "abort"
	}
	if sf.Scorer.SkipWeightPolicy == "" {
		sf.Scorer.SkipWeightPolicy = "fixed_ceiling"
	}

	if err := sf.Validate(); err != nil {
		return StrategyFile{}, err
	}
	return sf, nil
}

// Validate checks policies, weights and thresholds. Directive ids are checked against the
// registry when the strategies are loaded into it.
func (sf StrategyFile) Validate() error {
	var problems []string

	if _, err := sf.ScorerOptions(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, ok := signals.RuleByName(sf.DirectionRule); !ok {
		problems = append(problems, fmt.Sprintf("unknown direction_rule %q", sf.DirectionRule))
	}

	seen := make(map[string]bool, len(sf.Strategies))
	for i, s := range sf.Strategies {
		label := s.ID
		if label == "" {
			label = fmt.Sprintf("strategies[%d]", i)
			problems = append(problems, label+": id is required")
		}
		if seen[s.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate strategy id", label))
		}
		seen[s.ID] = true
		if _, err := domain.ValidateWeights(label, s.Weights); err != nil {
			problems = append(problems, err.Error())
		}
		if err := s.Thresholds.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", label, err))
		}
	}

	if sf.RiskModel != nil {
		if err := sf.RiskModel.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("risk_model: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid strategy file: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ScorerOptions converts the scorer section into scorer options.
func (sf StrategyFile) ScorerOptions() (scoring.ScorerOptions, error) {
	var opts scoring.ScorerOptions
	fp, err := scoring.ParseFailurePolicy(sf.Scorer.FailurePolicy)
	if err != nil {
		return opts, err
	}
	sp, err := scoring.ParseSkipWeightPolicy(sf.Scorer.SkipWeightPolicy)
	if err != nil {
		return opts, err
	}
	opts.FailurePolicy = fp
	opts.SkipWeightPolicy = sp
	return opts, nil
}

// fillRiskDefaults completes sections left out of a risk model. Weights are never filled in.
func fillRiskDefaults(m *risk.RiskModel) {
	d := risk.DefaultRiskModel()
	if m.ID == "" {
		m.ID = d.ID
	}
	if m.Thresholds == (risk.LevelThresholds{}) {
		m.Thresholds = d.Thresholds
	}
	if m.Response == (risk.ResponseConfig{}) {
		m.Response = d.Response
	}
	if m.Limits == (risk.Limits{}) {
		m.Limits = d.Limits
	}
}
