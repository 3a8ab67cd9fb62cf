// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/logging"
	"github.com/tomtom215/hardstore/internal/metrics"
)

// Topic carries every backup lifecycle event.
const Topic = "hardstore.backup.events"

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// Config tunes the bus buffers and its circuit breaker.
type Config struct {
	// OutputBuffer is the per-subscriber channel buffer.
	OutputBuffer int64

	// FailureThreshold consecutive publish failures open the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultConfig returns the settings used by the server.
func DefaultConfig() Config {
	return Config{
		OutputBuffer:     64,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Bus is an in-process publish/subscribe channel for backup.Event values.
// It implements backup.Notifier: publishing never blocks the operation that
// produced the event and failures only drop the event.
type Bus struct {
	pubsub  pubSub
	breaker *gobreaker.CircuitBreaker[any]
	log     *logging.OperationLogger

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus backed by a watermill Go channel.
func NewBus(cfg Config) *Bus {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.OutputBuffer,
	}, logger)
	return newBus(pubsub, cfg)
}

type pubSub interface {
	message.Publisher
	message.Subscriber
}

func newBus(ps pubSub, cfg Config) *Bus {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}
	return &Bus{
		pubsub:  ps,
		breaker: newBreaker("event_bus", cfg),
		log:     logging.NewOperationLogger(),
	}
}

func newBreaker(name string, cfg Config) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Notify publishes event. It implements backup.Notifier.
func (b *Bus) Notify(ctx context.Context, event backup.Event) {
	if err := b.Publish(ctx, event); err != nil {
		metrics.RecordEventDropped(string(event.Type))
		b.log.LogEventDropped(ctx, string(event.Type), err)
		return
	}
	metrics.RecordEventPublished(string(event.Type))
}

// Publish encodes event and hands it to the subscribers.
func (b *Bus) Publish(ctx context.Context, event backup.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", string(event.Type))
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	_, err = b.breaker.Execute(func() (any, error) {
		return nil, b.pubsub.Publish(Topic, msg)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.breaker.Name(), "rejected").Inc()
		return err
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.breaker.Name(), "failure").Inc()
		return err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.breaker.Name(), "success").Inc()
	b.log.LogEventPublished(ctx, msg.UUID, Topic)
	return nil
}

// Subscribe returns a channel of raw messages on Topic. The channel closes
// when ctx is done or the bus is closed. Messages must be acked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close stops the bus and closes every subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	return b.pubsub.Close()
}

// Decode parses an event from a bus message.
func Decode(msg *message.Message) (backup.Event, error) {
	var event backup.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return backup.Event{}, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return event, nil
}
