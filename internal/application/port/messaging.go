package port

import (
	"context"

	"github.com/vansh-000/CampusOne/internal/domain/entity"
)

// EventPublisher broadcasts workflow events for downstream consumers.
// Publishing is best effort: callers log failures and carry on.
type EventPublisher interface {
	PublishApplicationEvent(ctx context.Context, event entity.ApplicationEvent) error
}

// ImportQueue carries serialized roster rows from the upload handler to the
// import worker
type ImportQueue interface {
	// Push appends a row payload to the queue
	Push(ctx context.Context, payload []byte) error

	// Pop blocks until a row payload is available
	Pop(ctx context.Context) ([]byte, error)
}
