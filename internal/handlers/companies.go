package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/services"
	"github.com/charlesng35/folio/pkg/response"
)

// CompanyHandler lists invited companies and toggles their active flag.
type CompanyHandler struct {
	users *services.UserService
}

func NewCompanyHandler(users *services.UserService) *CompanyHandler {
	return &CompanyHandler{users: users}
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GET /api/admin/companies
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.users.ListCompanies(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, companies)
}

// PATCH /api/admin/companies/:id/active
func (h *CompanyHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetActive(requestContext(c), c.Param("id"), *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
