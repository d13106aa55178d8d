package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/aristath/tradesignal/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig() *sarama.Config {
	config := mocks.NewTestConfig()
	config.Producer.Return.Successes = true
	return config
}

func TestPublish_SignalFired(t *testing.T) {
	producer := mocks.NewSyncProducer(t, newConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg struct {
			Type events.EventType       `json:"type"`
			Data events.SignalFiredData `json:"data"`
		}
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Type != events.SignalFired || msg.Data.Symbol != "AAPL" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := New(producer, Topics{Signals: "signals", RiskActions: "risk"}, zerolog.Nop())
	err := p.Publish(events.Event{
		Type:      events.SignalFired,
		Timestamp: time.Now(),
		Data:      &events.SignalFiredData{Symbol: "AAPL", Action: "buy", Score: 85},
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublish_IgnoresUnmappedEvents(t *testing.T) {
	producer := mocks.NewSyncProducer(t, newConfig())
	p := New(producer, Topics{Signals: "signals"}, zerolog.Nop())

	require.NoError(t, p.Publish(events.Event{Type: events.ScoreComputed, Data: &events.ScoreComputedData{}}))
	require.NoError(t, p.Publish(events.Event{Type: events.RiskActionIssued, Data: &events.RiskActionIssuedData{}}))
	require.NoError(t, p.Close())
}

func TestPublish_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, newConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := New(producer, Topics{RiskActions: "risk"}, zerolog.Nop())
	err := p.Publish(events.Event{Type: events.RiskActionIssued, Data: &events.RiskActionIssuedData{Symbol: "AAPL"}})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestAttach_ForwardsFromBus(t *testing.T) {
	producer := mocks.NewSyncProducer(t, newConfig())
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	bus := events.NewBus()
	manager := events.NewManager(bus, zerolog.Nop())
	p := New(producer, Topics{Signals: "signals", RiskActions: "risk"}, zerolog.Nop())
	detach := p.Attach(bus)

	manager.EmitTyped("pipeline", &events.SignalFiredData{Symbol: "AAPL"})
	manager.EmitTyped("pipeline", &events.ScoreComputedData{Symbol: "AAPL"})
	manager.EmitTyped("risk", &events.RiskActionIssuedData{Symbol: "MSFT", Action: "close_position"})

	detach()
	assert.Equal(t, 0, bus.Subscribers())
	require.NoError(t, p.Close())
}
