// Package kafka delivers lead activity events to a Kafka topic, falling back
// to a secondary sink while the broker is failing.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/circuit"
)

// Producer is the subset of the Kafka client the sink needs.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// ErrBrokerUnavailable is returned while the breaker is open and no fallback
// is configured.
var ErrBrokerUnavailable = errors.New("lead event broker unavailable")

type Sink struct {
	producer Producer
	topic    string
	fallback audit.Sink
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type Option func(*Sink)

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

func NewSink(producer Producer, topic string, fallback audit.Sink, opts ...Option) *Sink {
	s := &Sink{
		producer: producer,
		topic:    topic,
		fallback: fallback,
		breaker:  circuit.New("kafka-lead-events"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type message struct {
	OwnerID string `json:"owner_id"`
	audit.Event
}

// Append produces the event keyed by owner so one owner's events stay ordered
// within a partition. Events the breaker does not admit, and events the
// broker rejects, go to the fallback instead. Each event lands in exactly
// one sink.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(message{OwnerID: event.OwnerID.String(), Event: event})
	if err != nil {
		return fmt.Errorf("encode lead event: %w", err)
	}

	if !s.breaker.Allow() {
		return s.appendFallback(ctx, event, ErrBrokerUnavailable)
	}

	err = s.producer.Produce(ctx, s.topic, []byte(event.OwnerID.String()), payload)
	if err == nil {
		if change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "lead event broker recovered", "breaker", s.breaker.Name())
		}
		return nil
	}

	if change := s.breaker.RecordFailure(); change.Opened {
		s.logger.WarnContext(ctx, "lead event broker failing, using fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
	return s.appendFallback(ctx, event, err)
}

// appendFallback returns cause when there is no fallback to absorb the event.
func (s *Sink) appendFallback(ctx context.Context, event audit.Event, cause error) error {
	if s.fallback == nil {
		return cause
	}
	return s.fallback.Append(ctx, event)
}
