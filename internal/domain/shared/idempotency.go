package shared

import (
	"context"
	"time"
)

// IdempotencyStore guards operations against duplicate execution.
// MarkProcessed must be atomic: the first caller for a key wins.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it already existed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key has already been processed.
	IsProcessed(ctx context.Context, key string) (bool, error)
}
