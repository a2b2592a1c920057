package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
)

// applicationEventsChannel carries one JSON payload per workflow transition
const applicationEventsChannel = "campusone:application:events"

// EventBus implements port.EventPublisher over Redis pub/sub
type EventBus struct {
	client *redis.Client
}

// NewEventBus creates a new event bus
func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

// PublishApplicationEvent broadcasts the event to subscribers
func (b *EventBus) PublishApplicationEvent(ctx context.Context, event entity.ApplicationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal application event: %w", err)
	}
	if err := b.client.Publish(ctx, applicationEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish application event: %w", err)
	}
	return nil
}

// SubscribeApplicationEvents opens a continuous stream of workflow events.
// Malformed payloads are dropped. The returned channel closes when ctx ends.
func (b *EventBus) SubscribeApplicationEvents(ctx context.Context) (<-chan entity.ApplicationEvent, error) {
	pubsub := b.client.Subscribe(ctx, applicationEventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to application events: %w", err)
	}

	events := make(chan entity.ApplicationEvent)
	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			var event entity.ApplicationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// NoopPublisher discards events. Used when Redis is not configured and in
// service tests.
type NoopPublisher struct{}

// PublishApplicationEvent drops the event
func (NoopPublisher) PublishApplicationEvent(ctx context.Context, event entity.ApplicationEvent) error {
	return nil
}

// Verify interface compliance
var (
	_ port.EventPublisher = (*EventBus)(nil)
	_ port.EventPublisher = NoopPublisher{}
)
