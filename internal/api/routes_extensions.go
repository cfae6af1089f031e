package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/handlers"
)

// Extension routes stay reachable for expired companies: the request form is
// the one thing an expired account can still do.
func registerExtensionRoutes(protected *gin.RouterGroup, handler *handlers.ExtensionHandler) {
	extensions := protected.Group("/extensions")
	{
		extensions.POST("", handler.Submit)
		extensions.GET("/mine", handler.Mine)
	}
}
