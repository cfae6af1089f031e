package checks

import (
	"context"

	"github.com/charlesng35/folio/internal/monitoring"
)

// Pinger is the slice of cache.Store the probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache returns a probe for the counter store behind rate limiting. Rate
// limiting fails open, so an unreachable store only degrades readiness.
func Cache(store Pinger) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "not configured"}
		}
		return monitoring.ResultFromError(store.Ping(ctx), false)
	})
}
