package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/metrics"
)

const (
	defaultQueryTimeout     = 5 * time.Second
	defaultRetryMaxAttempts = 3
	defaultRetryMaxWait     = 2 * time.Second
	retryInitialInterval    = 50 * time.Millisecond
)

// StorePolicy bounds every call a service makes into the database.
// Reads that time out are retried with exponential backoff; writes run once.
type StorePolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	MaxWait     time.Duration
}

// DefaultStorePolicy returns the policy used when none is configured.
func DefaultStorePolicy() StorePolicy {
	return StorePolicy{
		Timeout:     defaultQueryTimeout,
		MaxAttempts: defaultRetryMaxAttempts,
		MaxWait:     defaultRetryMaxWait,
	}
}

func (p StorePolicy) normalised() StorePolicy {
	if p.Timeout <= 0 {
		p.Timeout = defaultQueryTimeout
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultRetryMaxAttempts
	}
	if p.MaxWait <= 0 {
		p.MaxWait = defaultRetryMaxWait
	}
	return p
}

// read executes fn under the query timeout, retrying while attempts time out.
func (p StorePolicy) read(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx = ensureContext(ctx)
	p = p.normalised()

	initial := retryInitialInterval
	if initial > p.MaxWait {
		initial = p.MaxWait
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = p.MaxWait
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := p.once(ctx, fn)
		if err == nil {
			return nil
		}
		if isTimeout(err) && ctx.Err() == nil {
			if attempt < p.MaxAttempts {
				metrics.StoreRetries.WithLabelValues(operation).Inc()
			}
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	return storeError(err)
}

// write executes fn exactly once under the query timeout. A timed-out write
// may still have committed, so it is surfaced instead of retried.
func (p StorePolicy) write(ctx context.Context, fn func(context.Context) error) error {
	ctx = ensureContext(ctx)
	return storeError(p.normalised().once(ctx, fn))
}

func (p StorePolicy) once(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && !isTimeout(err) {
		// Drivers report interrupted statements with their own errors.
		return errors.Join(context.DeadlineExceeded, err)
	}
	return err
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTimeout(err) {
		return apperrors.ErrTimeout.WithInternal(err)
	}
	return err
}
