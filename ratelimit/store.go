package ratelimit

import (
	"context"
	"time"
)

// CounterStore keeps fixed-window counters keyed by an arbitrary identifier.
type CounterStore interface {
	// Get returns the count of the open window for key, or 0 when there is none.
	Get(ctx context.Context, key string) (int, error)
	// Increment adds one to key's counter, opening a new window of the given length when
	// none is open, and returns the new count.
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}
