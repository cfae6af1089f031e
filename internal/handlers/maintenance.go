package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/app/maintenance"
	"github.com/charlesng35/folio/pkg/response"
)

// MaintenanceHandler triggers housekeeping on demand.
type MaintenanceHandler struct {
	cleaner *maintenance.Cleaner
}

func NewMaintenanceHandler(cleaner *maintenance.Cleaner) *MaintenanceHandler {
	return &MaintenanceHandler{cleaner: cleaner}
}

// POST /api/admin/maintenance/sessions/cleanup
func (h *MaintenanceHandler) Cleanup(c *gin.Context) {
	report, err := h.cleaner.RunOnce(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}
