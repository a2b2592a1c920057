package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/domain/entity"
)

// EventStream is the subscription side of the workflow event bus
type EventStream interface {
	SubscribeApplicationEvents(ctx context.Context) (<-chan entity.ApplicationEvent, error)
}

// EventWorker consumes workflow events and writes one audit line per
// transition. It is the delivery point for outbound notifications.
type EventWorker struct {
	stream EventStream
	logger *zap.Logger

	wg sync.WaitGroup
}

// NewEventWorker creates a new event worker
func NewEventWorker(stream EventStream, logger *zap.Logger) *EventWorker {
	return &EventWorker{
		stream: stream,
		logger: logger,
	}
}

// Name returns the worker name
func (w *EventWorker) Name() string {
	return "event_worker"
}

// Start subscribes to the event channel and launches the consumer goroutine.
// The subscription and the goroutine both end when ctx is cancelled.
func (w *EventWorker) Start(ctx context.Context) error {
	events, err := w.stream.SubscribeApplicationEvents(ctx)
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for event := range events {
			w.logger.Info("Application event",
				zap.String("application_id", event.ApplicationID),
				zap.String("action", event.Action),
				zap.String("from_user_id", event.FromUserID),
				zap.String("to_user_id", event.ToUserID),
				zap.String("status", event.Status))
		}
	}()

	w.logger.Info("Event worker started")
	return nil
}

// Stop waits for the consumer goroutine to exit. The manager cancels the
// shared context before calling Stop, which closes the event channel.
func (w *EventWorker) Stop() error {
	w.wg.Wait()
	return nil
}
