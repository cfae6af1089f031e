package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/access"
	"github.com/charlesng35/folio/internal/models"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/metrics"
	"github.com/charlesng35/folio/pkg/response"
)

// SubjectFor converts a user into the gate's view. A nil user is unauthenticated.
func SubjectFor(user *models.User) *access.Subject {
	if user == nil {
		return nil
	}
	return &access.Subject{
		UserID:          user.ID,
		IsAdmin:         user.IsAdmin,
		IsActive:        user.IsActive,
		AccessExpiresAt: user.AccessExpiresAt,
	}
}

// StateOf resolves the access state of the request at now.
func StateOf(c *gin.Context, now time.Time) access.State {
	user, _ := CurrentUser(c)
	return access.Resolve(SubjectFor(user), now)
}

// RequireActiveAccess admits admins and companies whose window is open.
// Expired or deactivated companies get 403 ACCESS_EXPIRED.
func RequireActiveAccess(clock func() time.Time) gin.HandlerFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(c *gin.Context) {
		state := StateOf(c, clock().UTC())
		switch state {
		case access.StateActive, access.StateAdmin:
			metrics.AccessDecisions.WithLabelValues(string(state), "allow").Inc()
			c.Next()
		case access.StateExpired:
			metrics.AccessDecisions.WithLabelValues(string(state), "deny").Inc()
			response.Error(c, apperrors.ErrAccessExpired)
			c.Abort()
		default:
			metrics.AccessDecisions.WithLabelValues(string(state), "deny").Inc()
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
		}
	}
}

// RequireAdmin admits the portfolio owner only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !user.IsAdmin {
			metrics.AccessDecisions.WithLabelValues("non_admin", "deny").Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
