package cache

import (
	"context"
	"time"
)

// Store is a shared counter backend. Implementations must keep state outside
// the process so limits hold across restarts and replicas.
type Store interface {
	// IncrementWithTTL bumps the counter for key, starting a new window of the
	// given length when none is active, and returns the count and remaining window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Ping(ctx context.Context) error
}
