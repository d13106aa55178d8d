package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scoring pipeline. Typed errors below match them via errors.Is.
var (
	ErrMissingIndicatorData       = errors.New("missing indicator data")
	ErrInvalidWeightConfiguration = errors.New("invalid weight configuration")
	ErrIndicatorSourceUnavailable = errors.New("indicator source unavailable")
	ErrRiskFactorComputation      = errors.New("risk factor computation failed")
	ErrUnknownDirective           = errors.New("unknown directive")
	ErrUnknownStrategy            = errors.New("unknown strategy")
)

// MissingIndicatorDataError is returned by a directive when a required field is absent.
type MissingIndicatorDataError struct {
	Directive string
	Symbol    string
	Field     string
}

func (e *MissingIndicatorDataError) Error() string {
	return fmt.Sprintf("directive %s: missing indicator %q for %s", e.Directive, e.Field, e.Symbol)
}

// Is matches ErrMissingIndicatorData.
func (e *MissingIndicatorDataError) Is(target error) bool {
	return target == ErrMissingIndicatorData
}

// InvalidWeightConfigurationError is returned when weights do not form a valid distribution.
// Sum carries the computed total so operators can see how far off the submission was.
type InvalidWeightConfigurationError struct {
	Owner  string // strategy or risk model id
	Sum    float64
	Reason string
}

func (e *InvalidWeightConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid weights for %s: %s", e.Owner, e.Reason)
	}
	return fmt.Sprintf("invalid weights for %s: weights sum to %.2f, expected 1.0", e.Owner, e.Sum)
}

// Is matches ErrInvalidWeightConfiguration.
func (e *InvalidWeightConfigurationError) Is(target error) bool {
	return target == ErrInvalidWeightConfiguration
}

// RiskFactorComputationError is returned when a risk factor lacks the data it needs.
type RiskFactorComputationError struct {
	Factor string
	Symbol string
	Reason string
}

func (e *RiskFactorComputationError) Error() string {
	return fmt.Sprintf("risk factor %s for %s: %s", e.Factor, e.Symbol, e.Reason)
}

// Is matches ErrRiskFactorComputation.
func (e *RiskFactorComputationError) Is(target error) bool {
	return target == ErrRiskFactorComputation
}

// SourceUnavailable wraps an upstream failure so it matches ErrIndicatorSourceUnavailable
// while keeping the original cause reachable through errors.Unwrap.
func SourceUnavailable(symbol string, cause error) error {
	return &sourceUnavailableError{symbol: symbol, cause: cause}
}

type sourceUnavailableError struct {
	symbol string
	cause  error
}

func (e *sourceUnavailableError) Error() string {
	return fmt.Sprintf("indicator source unavailable for %s: %v", e.symbol, e.cause)
}

func (e *sourceUnavailableError) Is(target error) bool {
	return target == ErrIndicatorSourceUnavailable
}

func (e *sourceUnavailableError) Unwrap() error {
	return e.cause
}
