// Package events provides the in-process event bus and the typed event payloads emitted by
// the scoring pipeline.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	ScoreComputed    EventType = "SCORE_COMPUTED"
	SignalFired      EventType = "SIGNAL_FIRED"
	SignalSuppressed EventType = "SIGNAL_SUPPRESSED"
	RiskAssessed     EventType = "RISK_ASSESSED"
	RiskActionIssued EventType = "RISK_ACTION_ISSUED"
	BatchStarted     EventType = "BATCH_STARTED"
	BatchCompleted   EventType = "BATCH_COMPLETED"
	StrategyChanged  EventType = "STRATEGY_CHANGED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"

	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
)

// Event is a published event as delivered to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
