package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/services"
	"github.com/charlesng35/folio/pkg/response"
)

// SetupHandler creates the first administrator on a fresh install.
type SetupHandler struct {
	users *services.UserService
}

func NewSetupHandler(users *services.UserService) *SetupHandler {
	return &SetupHandler{users: users}
}

type initializeRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	CompanyName     string `json:"company_name" validate:"max=255"`
	ContactPerson   string `json:"contact_person" validate:"max=255"`
}

// GET /api/setup/status
func (h *SetupHandler) Status(c *gin.Context) {
	exists, err := h.users.HasAdmin(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"initialized": exists})
}

// POST /api/setup/initialize
func (h *SetupHandler) Initialize(c *gin.Context) {
	var req initializeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	admin, err := h.users.CreateAdmin(requestContext(c), services.CreateAdminInput{
		Email:         req.Email,
		Password:      req.Password,
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"admin_id": admin.ID})
}
