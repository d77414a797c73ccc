// Package events provides a small domain event log. Events are appended to
// Postgres inside the publisher's transaction and fanned out to in-process
// subscribers after commit.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/store"
)

// TopicOrderCreated is emitted when a paid session materializes an order.
const TopicOrderCreated = "order.created"

// Event is a published domain event.
type Event struct {
	Topic       string
	AggregateID pgtype.UUID
	Payload     json.RawMessage
}

// Recorder appends events to the durable log.
type Recorder interface {
	InsertDomainEvent(ctx context.Context, arg store.InsertDomainEventParams) (store.DomainEvent, error)
}

// Subscriber receives events after they are recorded.
type Subscriber func(ctx context.Context, ev Event)

// Bus records events and notifies subscribers. Safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Subscriber
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]Subscriber)}
}

// Subscribe registers fn for a topic.
func (b *Bus) Subscribe(topic string, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], fn)
}

// Record appends the event to the log through rec. Pass the transaction-bound
// queries so the event commits atomically with the change it describes.
func (b *Bus) Record(ctx context.Context, rec Recorder, ev Event) error {
	_, err := rec.InsertDomainEvent(ctx, store.InsertDomainEventParams{
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		Payload:     ev.Payload,
	})
	return err
}

// Notify fans the event out to subscribers. Call after the recording
// transaction has committed.
func (b *Bus) Notify(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Topic]
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, ev)
	}
}

// LogSubscriber returns a subscriber that writes each event to the logger.
func LogSubscriber(log zerolog.Logger) Subscriber {
	return func(_ context.Context, ev Event) {
		log.Info().
			Str("topic", ev.Topic).
			RawJSON("payload", ev.Payload).
			Msg("domain event")
	}
}
