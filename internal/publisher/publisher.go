// Package publisher forwards trade signal and risk action events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/aristath/tradesignal/internal/events"
	"github.com/rs/zerolog"
)

// Topics maps the forwarded event types to Kafka topics.
type Topics struct {
	Signals     string
	RiskActions string
}

// NewSyncProducer connects a sarama sync producer that waits for all in-sync replicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// Message is the envelope written to Kafka.
type Message struct {
	Type      events.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      events.EventData `json:"data"`
}

// Publisher writes selected bus events to Kafka, keyed by symbol.
type Publisher struct {
	producer sarama.SyncProducer
	topics   map[events.EventType]string
	queue    chan events.Event
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// New creates a publisher. Empty topic names disable forwarding of that event type.
func New(producer sarama.SyncProducer, topics Topics, log zerolog.Logger) *Publisher {
	m := make(map[events.EventType]string)
	if topics.Signals != "" {
		m[events.SignalFired] = topics.Signals
	}
	if topics.RiskActions != "" {
		m[events.RiskActionIssued] = topics.RiskActions
	}
	return &Publisher{
		producer: producer,
		topics:   m,
		queue:    make(chan events.Event, 256),
		log:      log.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Attach subscribes to the bus and starts the delivery goroutine. Events are queued
// without blocking the emitter; when the queue is full the event is dropped and logged.
// The returned function unsubscribes, drains the queue and waits for delivery to finish.
func (p *Publisher) Attach(bus *events.Bus) func() {
	types := make([]events.EventType, 0, len(p.topics))
	for t := range p.topics {
		types = append(types, t)
	}
	if len(types) == 0 {
		return func() {}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for e := range p.queue {
			if err := p.Publish(e); err != nil {
				p.log.Error().Err(err).Str("event_type", string(e.Type)).Msg("Failed to publish event")
			}
		}
	}()

	unsubscribe := bus.Subscribe(func(e events.Event) {
		select {
		case p.queue <- e:
		default:
			p.log.Warn().Str("event_type", string(e.Type)).Msg("Kafka queue full, dropping event")
		}
	}, types...)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(p.queue)
			p.wg.Wait()
		})
	}
}

// Publish writes one event synchronously. Events without a configured topic are ignored.
func (p *Publisher) Publish(e events.Event) error {
	topic, ok := p.topics[e.Type]
	if !ok {
		return nil
	}

	payload, err := json.Marshal(Message{Type: e.Type, Timestamp: e.Timestamp, Data: e.Data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if key := symbolOf(e.Data); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", e.Type, topic, err)
	}
	p.log.Debug().
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event published")
	return nil
}

// PublishContext is Publish with an early exit for a cancelled context.
func (p *Publisher) PublishContext(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Publish(e)
}

// Close closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func symbolOf(data events.EventData) string {
	switch d := data.(type) {
	case *events.SignalFiredData:
		return d.Symbol
	case *events.RiskActionIssuedData:
		return d.Symbol
	}
	return ""
}
