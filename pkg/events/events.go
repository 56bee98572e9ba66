// Package events publishes facts about committed claims. Publishing happens
// after the store commit; a failed publish never undoes the claim.
package events

import (
	"context"
	"sync"
	"time"

	"travelcore/pkg/kafka"
	"travelcore/pkg/logger"
)

const (
	CouponRedeemed  = "coupon.redeemed"
	ScheduleClaimed = "schedule.claimed"
	ScheduleUpdated = "schedule.status_changed"
	LegCreated      = "leg.created"
	RoomsBooked     = "rooms.booked"

	SchemaVersion = "1"
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := kafka.NewMessage().
		WithKey(e.Key).
		WithEventType(e.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithValue(e).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

type noopPublisher struct{}

// Noop drops every event; used when no broker is configured.
func Noop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error {
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Emit publishes e detached from the request context and logs a failure.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, eventType, key string, data any) {
	e := Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Data: data}
	if err := p.Publish(context.WithoutCancel(ctx), e); err != nil {
		log.Warn("Failed to publish event", "event_type", eventType, "key", key, "error", err)
	}
}
