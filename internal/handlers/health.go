package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/cache"
	"github.com/charlesng35/folio/internal/monitoring"
	"github.com/charlesng35/folio/internal/monitoring/checks"
)

const healthCheckTimeout = 2 * time.Second

// Health reports readiness: the database must answer a ping, and the counter
// store when one is configured. An unreachable counter store degrades the
// report without failing it.
func Health(db *gorm.DB, store cache.Store) gin.HandlerFunc {
	manager := monitoring.NewHealthManager(healthCheckTimeout)
	manager.Register(checks.Database(db))
	if store != nil {
		manager.Register(checks.Cache(store))
	}

	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))
		c.JSON(report.HTTPStatus(), report)
	}
}
