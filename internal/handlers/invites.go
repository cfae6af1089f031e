package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/services"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/response"
)

// InviteHandler exposes the invite ledger.
type InviteHandler struct {
	invites *services.InviteService
}

func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type inviteValidationResponse struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GET /api/invites/validate?token=
func (h *InviteHandler) Validate(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, apperrors.NewBadRequest("token is required"))
		return
	}

	invite, err := h.invites.Validate(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, inviteValidationResponse{Valid: true, ExpiresAt: invite.ExpiresAt})
}

// POST /api/admin/invites
func (h *InviteHandler) Issue(c *gin.Context) {
	admin, ok := requireUser(c)
	if !ok {
		return
	}

	invite, err := h.invites.Issue(requestContext(c), admin.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, invite)
}

// GET /api/admin/invites
func (h *InviteHandler) List(c *gin.Context) {
	invites, err := h.invites.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invites)
}

// DELETE /api/admin/invites/:id
func (h *InviteHandler) Delete(c *gin.Context) {
	if err := h.invites.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
