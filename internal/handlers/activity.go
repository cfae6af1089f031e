package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/internal/services"
	"github.com/charlesng35/folio/pkg/response"
)

const (
	defaultActivityPageSize = 50
	maxActivityPageSize     = 200
)

// ActivityHandler serves the admin activity log viewer.
type ActivityHandler struct {
	activity *services.ActivityService
}

func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// GET /api/admin/activity?type=&page=&per_page=
func (h *ActivityHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := parseIntQuery(c, "per_page", defaultActivityPageSize)
	if perPage <= 0 {
		perPage = defaultActivityPageSize
	}
	if perPage > maxActivityPageSize {
		perPage = maxActivityPageSize
	}

	entries, total, err := h.activity.List(requestContext(c), services.ActivityListOptions{
		Page:     page,
		PageSize: perPage,
		Type:     models.ActivityType(strings.TrimSpace(c.Query("type"))),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, response.NewMeta(page, perPage, total))
}
