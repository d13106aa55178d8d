package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignalFiredData tests SignalFiredData struct
func TestSignalFiredData(t *testing.T) {
	delta := 12.5
	data := SignalFiredData{
		SignalID:         "sig-1",
		Symbol:           "AAPL",
		StrategyID:       "default",
		Action:           "buy",
		Score:            85,
		Delta:            &delta,
		Confidence:       0.72,
		CompositeScoreID: "score-1",
		Timestamp:        time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}

	jsonData, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"action":"buy"`)
	assert.Contains(t, string(jsonData), `"delta":12.5`)

	var unmarshaled SignalFiredData
	require.NoError(t, json.Unmarshal(jsonData, &unmarshaled))
	assert.Equal(t, data.SignalID, unmarshaled.SignalID)
	require.NotNil(t, unmarshaled.Delta)
	assert.Equal(t, delta, *unmarshaled.Delta)
	assert.True(t, data.Timestamp.Equal(unmarshaled.Timestamp))
}

// TestBatchStatusData_EventType tests the status-dependent event type
func TestBatchStatusData_EventType(t *testing.T) {
	assert.Equal(t, BatchStarted, (&BatchStatusData{Status: "started"}).EventType())
	assert.Equal(t, BatchCompleted, (&BatchStatusData{Status: "completed"}).EventType())
}

// TestEvent_RoundTrip tests typed data restoration from JSON
func TestEvent_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data EventData
	}{
		{"score", &ScoreComputedData{ScoreID: "s1", Symbol: "AAPL", Score: 70.545, Skipped: []string{"adx"}}},
		{"suppressed", &SignalSuppressedData{Symbol: "AAPL", Score: 80, Reasons: []string{"insufficient_change"}}},
		{"risk", &RiskAssessedData{Symbol: "AAPL", Score: 0.9, Level: "severe", Action: "close_position"}},
		{"risk action", &RiskActionIssuedData{Symbol: "AAPL", Action: "reduce_position", ReduceQuantity: 5}},
		{"batch", &BatchStatusData{BatchID: "b1", Status: "completed", Symbols: 3, Fired: 1}},
		{"strategy", &StrategyChangedData{StrategyID: "default", Version: 4}},
		{"error", &ErrorEventData{Error: "boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Event{Type: tt.data.EventType(), Timestamp: time.Unix(1700000000, 0).UTC(), Module: "pipeline", Data: tt.data}
			b, err := json.Marshal(in)
			require.NoError(t, err)

			var out Event
			require.NoError(t, json.Unmarshal(b, &out))
			assert.Equal(t, in.Type, out.Type)
			assert.Equal(t, in.Module, out.Module)
			assert.Equal(t, tt.data, out.Data)
		})
	}
}

// TestEvent_UnknownTypeFallsBackToGeneric tests GenericEventData
func TestEvent_UnknownTypeFallsBackToGeneric(t *testing.T) {
	var out Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"SOMETHING_NEW","module":"x","data":{"k":1}}`), &out))

	generic, ok := out.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("SOMETHING_NEW"), generic.EventType())
	assert.Equal(t, 1.0, generic.Data["k"])
}

func TestBus_SubscribeFiltersAndUnsubscribes(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var all, fired []EventType

	unsubAll := bus.Subscribe(func(e Event) {
		mu.Lock()
		all = append(all, e.Type)
		mu.Unlock()
	})
	bus.Subscribe(func(e Event) {
		mu.Lock()
		fired = append(fired, e.Type)
		mu.Unlock()
	}, SignalFired)
	assert.Equal(t, 2, bus.Subscribers())

	m := NewManager(bus, zerolog.Nop())
	m.EmitTyped("pipeline", &ScoreComputedData{Symbol: "AAPL"})
	m.EmitTyped("pipeline", &SignalFiredData{Symbol: "AAPL"})

	unsubAll()
	unsubAll()
	m.EmitError("pipeline", errors.New("boom"), nil)

	assert.Equal(t, []EventType{ScoreComputed, SignalFired}, all)
	assert.Equal(t, []EventType{SignalFired}, fired)
	assert.Equal(t, 1, bus.Subscribers())
}
