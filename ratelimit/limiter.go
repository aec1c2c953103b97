package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Limiter dampens abuse by counting attempts per key in fixed windows. It is approximate:
// concurrent callers may briefly pass the limit between the read and the increment.
type Limiter struct {
	store   CounterStore
	enabled bool
}

func New(store CounterStore, enabled bool) *Limiter {
	return &Limiter{store: store, enabled: enabled}
}

// Allow reports whether another attempt for key fits within limit for the current window.
// A rejected attempt is not counted.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !l.enabled {
		return true, nil
	}

	count, err := l.store.Get(ctx, key)
	if err != nil {
		return false, errors.Wrap(err, "[Limiter.Allow] Get")
	}
	if count >= limit {
		return false, nil
	}

	if _, err := l.store.Increment(ctx, key, window); err != nil {
		return false, errors.Wrap(err, "[Limiter.Allow] Increment")
	}
	return true, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// Key joins an action and an identifier, e.g. Key("login", ip).
func Key(action, identifier string) string {
	return action + ":" + identifier
}
