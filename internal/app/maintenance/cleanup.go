package maintenance

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/folio/pkg/logger"
)

// SessionCleaner removes sessions that can no longer be used.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CounterPurger removes rate-limit counters whose window has closed.
type CounterPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Report counts the rows removed by a cleanup pass.
type Report struct {
	Sessions int64 `json:"sessions"`
	Counters int64 `json:"counters"`
}

// Cleaner runs housekeeping on demand. Nothing is scheduled; an administrator
// triggers a pass through the API and expiry itself never depends on it.
type Cleaner struct {
	sessions SessionCleaner
	counters CounterPurger
	log      *zap.Logger
}

// NewCleaner constructs a Cleaner. A nil dependency skips the matching step.
func NewCleaner(sessions SessionCleaner, counters CounterPurger) *Cleaner {
	return &Cleaner{
		sessions: sessions,
		counters: counters,
		log:      logger.WithModule("maintenance"),
	}
}

// RunOnce executes every configured cleanup step and reports all failures together.
func (c *Cleaner) RunOnce(ctx context.Context) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		report Report
		errs   error
	)

	if c.sessions != nil {
		removed, err := c.sessions.CleanupExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sessions: %w", err))
		}
		report.Sessions = removed
	}

	if c.counters != nil {
		removed, err := c.counters.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("counters: %w", err))
		}
		report.Counters = removed
	}

	if errs != nil {
		c.log.Warn("cleanup finished with errors", zap.Error(errs))
	} else {
		c.log.Info("cleanup finished",
			zap.Int64("sessions", report.Sessions),
			zap.Int64("counters", report.Counters),
		)
	}

	return report, errs
}
