package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/handlers"
	"github.com/charlesng35/folio/internal/middleware"
)

type publicRouteDeps struct {
	Invites  *handlers.InviteHandler
	Site     *handlers.SiteHandler
	Access   *handlers.AccessHandler
	Setup    *handlers.SetupHandler
	Auth     *middleware.Authenticator
	Throttle gin.HandlerFunc
}

func registerPublicRoutes(api, protected *gin.RouterGroup, deps publicRouteDeps) {
	api.GET("/invites/validate", deps.Throttle, deps.Invites.Validate)
	api.GET("/access/route", deps.Auth.Optional(), deps.Access.Route)
	api.GET("/site/theme", deps.Site.Theme)

	protected.GET("/site/content", middleware.RequireActiveAccess(time.Now), deps.Site.Content)

	setup := api.Group("/setup")
	{
		setup.GET("/status", deps.Setup.Status)
		setup.POST("/initialize", deps.Throttle, deps.Setup.Initialize)
	}
}
