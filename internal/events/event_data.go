package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ScoreComputedData contains data for ScoreComputed events
type ScoreComputedData struct {
	ScoreID       string   `json:"score_id"`
	Symbol        string   `json:"symbol"`
	StrategyID    string   `json:"strategy_id"`
	Score         float64  `json:"score"`
	Delta         *float64 `json:"delta,omitempty"`
	WeightVersion int      `json:"weight_version"`
	Skipped       []string `json:"skipped,omitempty"`
}

// EventType returns the event type for ScoreComputedData
func (d *ScoreComputedData) EventType() EventType {
	return ScoreComputed
}

// SignalFiredData contains data for SignalFired events
type SignalFiredData struct {
	SignalID         string    `json:"signal_id"`
	Symbol           string    `json:"symbol"`
	StrategyID       string    `json:"strategy_id"`
	Action           string    `json:"action"`
	Score            float64   `json:"score"`
	Delta            *float64  `json:"delta,omitempty"`
	Confidence       float64   `json:"confidence"`
	CompositeScoreID string    `json:"composite_score_id"`
	Timestamp        time.Time `json:"timestamp"`
}

// EventType returns the event type for SignalFiredData
func (d *SignalFiredData) EventType() EventType {
	return SignalFired
}

// SignalSuppressedData contains data for SignalSuppressed events
type SignalSuppressedData struct {
	Symbol     string   `json:"symbol"`
	StrategyID string   `json:"strategy_id"`
	Score      float64  `json:"score"`
	Reasons    []string `json:"reasons"`
}

// EventType returns the event type for SignalSuppressedData
func (d *SignalSuppressedData) EventType() EventType {
	return SignalSuppressed
}

// RiskAssessedData contains data for RiskAssessed events
type RiskAssessedData struct {
	AssessmentID string  `json:"assessment_id"`
	Symbol       string  `json:"symbol"`
	Score        float64 `json:"score"`
	Level        string  `json:"level"`
	Action       string  `json:"action"`
	FailedClosed bool    `json:"failed_closed"`
}

// EventType returns the event type for RiskAssessedData
func (d *RiskAssessedData) EventType() EventType {
	return RiskAssessed
}

// RiskActionIssuedData contains data for RiskActionIssued events
// Only emitted when the recommended action is not "none".
type RiskActionIssuedData struct {
	AssessmentID   string    `json:"assessment_id"`
	Symbol         string    `json:"symbol"`
	Level          string    `json:"level"`
	Action         string    `json:"action"`
	NewStopLoss    *float64  `json:"new_stop_loss,omitempty"`
	ReduceQuantity float64   `json:"reduce_quantity,omitempty"`
	FailedClosed   bool      `json:"failed_closed"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventType returns the event type for RiskActionIssuedData
func (d *RiskActionIssuedData) EventType() EventType {
	return RiskActionIssued
}

// BatchStatusData contains data for batch lifecycle events
type BatchStatusData struct {
	BatchID    string  `json:"batch_id"`
	StrategyID string  `json:"strategy_id"`
	Status     string  `json:"status"` // "started", "completed"
	Symbols    int     `json:"symbols"`
	Scored     int     `json:"scored,omitempty"`
	Fired      int     `json:"fired,omitempty"`
	Failed     int     `json:"failed,omitempty"`
	Cancelled  bool    `json:"cancelled,omitempty"`
	Duration   float64 `json:"duration,omitempty"` // seconds
}

// EventType returns the event type for BatchStatusData
// Note: The actual event type is determined by the Status field
func (d *BatchStatusData) EventType() EventType {
	if d.Status == "completed" {
		return BatchCompleted
	}
	return BatchStarted
}

// StrategyChangedData contains data for StrategyChanged events
type StrategyChangedData struct {
	StrategyID string `json:"strategy_id"`
	Version    int    `json:"version"`
}

// EventType returns the event type for StrategyChangedData
func (d *StrategyChangedData) EventType() EventType {
	return StrategyChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// SystemStatusChangedData reports a component moving between states, such as the indicator
// source breaker opening or the market closing.
type SystemStatusChangedData struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Previous  string `json:"previous,omitempty"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// UnmarshalJSON restores typed data based on the event type
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case ScoreComputed:
		eventData = &ScoreComputedData{}
	case SignalFired:
		eventData = &SignalFiredData{}
	case SignalSuppressed:
		eventData = &SignalSuppressedData{}
	case RiskAssessed:
		eventData = &RiskAssessedData{}
	case RiskActionIssued:
		eventData = &RiskActionIssuedData{}
	case BatchStarted, BatchCompleted:
		eventData = &BatchStatusData{}
	case StrategyChanged:
		eventData = &StrategyChangedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	case SystemStatusChanged:
		eventData = &SystemStatusChangedData{}
	default:
		generic := &GenericEventData{Type: aux.Type}
		if err := json.Unmarshal(aux.Data, &generic.Data); err != nil {
			return err
		}
		e.Data = generic
		return nil
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}
