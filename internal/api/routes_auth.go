package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/handlers"
	"github.com/charlesng35/folio/internal/middleware"
)

type authRouteDeps struct {
	Handler  *handlers.AuthHandler
	Auth     *middleware.Authenticator
	Throttle gin.HandlerFunc
}

func registerAuthRoutes(api, protected *gin.RouterGroup, deps authRouteDeps) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.Throttle, deps.Handler.Login)
		auth.POST("/refresh", deps.Throttle, deps.Handler.Refresh)
		// A presented session is revoked before the new account signs in.
		auth.POST("/register", deps.Throttle, deps.Auth.Optional(), deps.Handler.Register)
	}

	protected.GET("/auth/me", deps.Handler.Me)
	protected.POST("/auth/logout", deps.Handler.Logout)
	protected.POST("/auth/password", deps.Handler.ChangePassword)
}
