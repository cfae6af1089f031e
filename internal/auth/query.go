package auth

import (
	"context"
	"errors"
	"time"
)

// DefaultQueryTimeout bounds a single credential-store call when none is configured.
const DefaultQueryTimeout = 5 * time.Second

// RunQuery executes fn under the query timeout. Drivers report interrupted
// statements with their own errors, so a reached deadline is joined onto them
// and callers can still match context.DeadlineExceeded.
func RunQuery(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(context.DeadlineExceeded, err)
	}
	return err
}
