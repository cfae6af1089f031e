package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/access"
	"github.com/charlesng35/folio/internal/middleware"
	"github.com/charlesng35/folio/internal/models"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireUser returns the authenticated user or writes 401 and returns false.
func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return nil, false
	}
	return user, true
}

// accessDTO is the evaluated access window shown to the UI.
type accessDTO struct {
	State         access.State `json:"state"`
	IsExpired     bool         `json:"is_expired"`
	DaysRemaining int          `json:"days_remaining"`
	ShowWarning   bool         `json:"show_warning"`
}

type userDTO struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	CompanyName     string     `json:"company_name"`
	ContactPerson   string     `json:"contact_person"`
	IsAdmin         bool       `json:"is_admin"`
	IsActive        bool       `json:"is_active"`
	AccessExpiresAt *time.Time `json:"access_expires_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	Access          accessDTO  `json:"access"`
}

func describeUser(user *models.User, now time.Time, warningDays int) userDTO {
	window := access.EvaluateWithWarning(user.AccessExpiresAt, now, warningDays)
	return userDTO{
		ID:              user.ID,
		Email:           user.Email,
		CompanyName:     user.CompanyName,
		ContactPerson:   user.ContactPerson,
		IsAdmin:         user.IsAdmin,
		IsActive:        user.IsActive,
		AccessExpiresAt: user.AccessExpiresAt,
		LastLoginAt:     user.LastLoginAt,
		Access: accessDTO{
			State:         access.Resolve(middleware.SubjectFor(user), now),
			IsExpired:     window.IsExpired,
			DaysRemaining: window.DaysRemaining,
			ShowWarning:   window.ShowWarning,
		},
	}
}
