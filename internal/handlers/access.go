package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/access"
	"github.com/charlesng35/folio/internal/middleware"
	"github.com/charlesng35/folio/pkg/metrics"
	"github.com/charlesng35/folio/pkg/response"
)

// AccessHandler exposes the access gate so the UI can route page navigations.
type AccessHandler struct {
	now func() time.Time
}

func NewAccessHandler(clock func() time.Time) *AccessHandler {
	if clock == nil {
		clock = time.Now
	}
	return &AccessHandler{now: clock}
}

// GET /api/access/route?path=
func (h *AccessHandler) Route(c *gin.Context) {
	path := c.DefaultQuery("path", access.PathHome)
	state := middleware.StateOf(c, h.now().UTC())
	decision := access.Decide(state, access.ClassifyPath(path))

	metrics.AccessDecisions.WithLabelValues(string(decision.State), string(decision.Action)).Inc()
	response.Success(c, http.StatusOK, decision)
}
