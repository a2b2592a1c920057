package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vansh-000/CampusOne/internal/application/port"
)

// importRowsKey is the list carrying serialized roster rows to the worker
const importRowsKey = "campusone:import:rows"

// ImportQueue implements port.ImportQueue over a Redis list
type ImportQueue struct {
	client *redis.Client
}

// NewImportQueue creates a new import queue
func NewImportQueue(client *redis.Client) *ImportQueue {
	return &ImportQueue{client: client}
}

// Push appends a row payload to the end of the list
func (q *ImportQueue) Push(ctx context.Context, payload []byte) error {
	if err := q.client.RPush(ctx, importRowsKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to push import row: %w", err)
	}
	return nil
}

// Pop blocks until a row payload is available at the front of the list.
// A zero timeout means wait until either an item appears or ctx ends.
func (q *ImportQueue) Pop(ctx context.Context) ([]byte, error) {
	result, err := q.client.BLPop(ctx, 0, importRowsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop import row: %w", err)
	}
	// BLPop returns [key, element]
	return []byte(result[1]), nil
}

// Verify interface compliance
var _ port.ImportQueue = (*ImportQueue)(nil)
