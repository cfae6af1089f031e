package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/handlers"
	"github.com/charlesng35/folio/internal/middleware"
)

type adminRouteDeps struct {
	Invites     *handlers.InviteHandler
	Extensions  *handlers.ExtensionHandler
	Companies   *handlers.CompanyHandler
	Activity    *handlers.ActivityHandler
	Stats       *handlers.StatsHandler
	Site        *handlers.SiteHandler
	Maintenance *handlers.MaintenanceHandler
	Security    *handlers.SecurityHandler
}

func registerAdminRoutes(protected *gin.RouterGroup, deps adminRouteDeps) {
	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())

	invites := admin.Group("/invites")
	{
		invites.GET("", deps.Invites.List)
		invites.POST("", deps.Invites.Issue)
		invites.DELETE("/:id", deps.Invites.Delete)
	}

	extensions := admin.Group("/extensions")
	{
		extensions.GET("", deps.Extensions.List)
		extensions.GET("/inconsistencies", deps.Extensions.Inconsistencies)
		extensions.POST("/:id/review", deps.Extensions.Review)
		extensions.POST("/:id/reconcile", deps.Extensions.Reconcile)
	}

	companies := admin.Group("/companies")
	{
		companies.GET("", deps.Companies.List)
		companies.PATCH("/:id/active", deps.Companies.SetActive)
	}

	admin.GET("/activity", deps.Activity.List)
	admin.GET("/stats", deps.Stats.Dashboard)

	site := admin.Group("/site")
	{
		site.PUT("/content", deps.Site.UpdateContent)
		site.PUT("/theme", deps.Site.UpdateTheme)
	}

	admin.POST("/maintenance/sessions/cleanup", deps.Maintenance.Cleanup)
	admin.GET("/security/audit", deps.Security.Audit)
}
