package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/folio/internal/auditctx"
	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/internal/services"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
	CtxUserKey      = "authUser"
)

// SessionValidator confirms that the session named by an access token is still live.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// UserLoader loads the account behind a session.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticator resolves the bearer token on a request into a user.
type Authenticator struct {
	jwt      *iauth.JWTService
	sessions SessionValidator
	users    UserLoader
}

// NewAuthenticator wires the token, session and user lookups.
func NewAuthenticator(jwt *iauth.JWTService, sessions SessionValidator, users UserLoader) *Authenticator {
	return &Authenticator{jwt: jwt, sessions: sessions, users: users}
}

var errNoCredentials = errors.New("auth: no bearer token")

// Required rejects requests without a valid token, live session and existing user.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.authenticate(c); err != nil {
			if isCredentialError(err) {
				c.Header("WWW-Authenticate", "Bearer")
				response.Error(c, apperrors.ErrUnauthorized)
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// Optional resolves the user when credentials are present and valid, and
// otherwise continues as unauthenticated.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.authenticate(c); err != nil && !isCredentialError(err) {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) error {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return errNoCredentials
	}

	claims, err := a.jwt.ValidateAccessToken(token)
	if err != nil {
		return err
	}

	ctx := c.Request.Context()
	if _, err := a.sessions.ValidateSession(ctx, claims.SessionID); err != nil {
		return err
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}

	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxSessionIDKey, claims.SessionID)
	c.Set(CtxUserKey, user)
	c.Request = c.Request.WithContext(auditctx.WithUserID(c.Request.Context(), claims.UserID))
	return nil
}

func bearerToken(header string) (string, bool) {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// isCredentialError reports failures that mean "not signed in" rather than a
// store outage. Outages keep their own status.
func isCredentialError(err error) bool {
	switch {
	case errors.Is(err, errNoCredentials),
		errors.Is(err, iauth.ErrInvalidToken),
		errors.Is(err, iauth.ErrSessionNotFound),
		errors.Is(err, iauth.ErrSessionRevoked),
		errors.Is(err, iauth.ErrSessionExpired),
		errors.Is(err, iauth.ErrSessionInvalidToken),
		errors.Is(err, services.ErrUserNotFound):
		return true
	}
	return false
}

// CurrentUser returns the user resolved by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// CurrentSessionID returns the session id carried by the access token.
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(CtxSessionIDKey)
}
