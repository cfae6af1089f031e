package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/internal/services"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/response"
)

// ExtensionHandler serves both sides of the extension workflow: companies
// submit requests and the admin reviews them.
type ExtensionHandler struct {
	extensions *services.ExtensionService
}

func NewExtensionHandler(extensions *services.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

type submitExtensionRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type reviewExtensionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved denied"`
}

// POST /api/extensions
func (h *ExtensionHandler) Submit(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req submitExtensionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	request, err := h.extensions.Submit(requestContext(c), user.ID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, request)
}

// GET /api/extensions/mine
func (h *ExtensionHandler) Mine(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	requests, err := h.extensions.ListForUser(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, requests)
}

// GET /api/admin/extensions?status=pending|reviewed
func (h *ExtensionHandler) List(c *gin.Context) {
	ctx := requestContext(c)

	var (
		requests []models.ExtensionRequest
		err      error
	)
	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", "pending"))) {
	case "pending":
		requests, err = h.extensions.ListPending(ctx)
	case "reviewed":
		requests, err = h.extensions.ListReviewed(ctx)
	default:
		response.Error(c, apperrors.NewBadRequest("status must be pending or reviewed"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, requests)
}

// POST /api/admin/extensions/:id/review
func (h *ExtensionHandler) Review(c *gin.Context) {
	admin, ok := requireUser(c)
	if !ok {
		return
	}

	var req reviewExtensionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	request, err := h.extensions.Review(requestContext(c), c.Param("id"), admin.ID, models.ExtensionStatus(req.Decision))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, request)
}

// GET /api/admin/extensions/inconsistencies
func (h *ExtensionHandler) Inconsistencies(c *gin.Context) {
	found, err := h.extensions.FindInconsistencies(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, found)
}

// POST /api/admin/extensions/:id/reconcile
func (h *ExtensionHandler) Reconcile(c *gin.Context) {
	admin, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.extensions.Reconcile(requestContext(c), c.Param("id"), admin.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id":           user.ID,
		"access_expires_at": user.AccessExpiresAt,
		"is_active":         user.IsActive,
	})
}
