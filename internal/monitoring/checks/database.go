package checks

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/monitoring"
)

// Database returns a probe that pings the database handle. The database is
// required: every page and API call reads from it.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		if db == nil {
			return monitoring.ResultFromError(errors.New("database not configured"), true)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError(err, true)
		}
		return monitoring.ResultFromError(sqlDB.PingContext(ctx), true)
	})
}
