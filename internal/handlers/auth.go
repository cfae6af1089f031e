package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/folio/internal/access"
	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/auth/providers"
	"github.com/charlesng35/folio/internal/middleware"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/internal/services"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/logger"
	"github.com/charlesng35/folio/pkg/metrics"
	"github.com/charlesng35/folio/pkg/response"
)

// AuthHandlerDeps lists the services behind the auth endpoints.
type AuthHandlerDeps struct {
	Provider     *providers.LocalProvider
	Sessions     *iauth.SessionService
	Users        *services.UserService
	Registration *services.RegistrationService
	Activity     *services.ActivityService
	WarningDays  int
	Clock        func() time.Time
}

// AuthHandler manages authentication flows (login/register/refresh/logout/me/password).
type AuthHandler struct {
	provider     *providers.LocalProvider
	sessions     *iauth.SessionService
	users        *services.UserService
	registration *services.RegistrationService
	activity     *services.ActivityService
	warningDays  int
	now          func() time.Time
	log          *zap.Logger
}

func NewAuthHandler(deps AuthHandlerDeps) (*AuthHandler, error) {
	switch {
	case deps.Provider == nil:
		return nil, errors.New("auth handler: provider is required")
	case deps.Sessions == nil:
		return nil, errors.New("auth handler: session service is required")
	case deps.Users == nil:
		return nil, errors.New("auth handler: user service is required")
	case deps.Registration == nil:
		return nil, errors.New("auth handler: registration service is required")
	}

	h := &AuthHandler{
		provider:     deps.Provider,
		sessions:     deps.Sessions,
		users:        deps.Users,
		registration: deps.Registration,
		activity:     deps.Activity,
		warningDays:  deps.WarningDays,
		now:          deps.Clock,
		log:          logger.WithModule("auth"),
	}
	if h.warningDays <= 0 {
		h.warningDays = access.DefaultWarningDays
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Token           string `json:"token" validate:"required"`
	CompanyName     string `json:"company_name" validate:"notblank,max=255"`
	ContactPerson   string `json:"contact_person" validate:"max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type sessionResponse struct {
	iauth.TokenPair
	User     userDTO `json:"user"`
	Redirect string  `json:"redirect"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	user, err := h.provider.Authenticate(ctx, providers.AuthenticateInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	switch {
	case errors.Is(err, providers.ErrAccountLocked):
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		response.Error(c, apperrors.ErrAccountLocked)
		return
	case errors.Is(err, providers.ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInvalidCredentials)
		return
	case err != nil:
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.FromError(err))
		return
	}

	payload, err := h.startSession(c, user)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.record(c, services.ActivityEntry{
		Type:     models.ActivityLogin,
		UserID:   &user.ID,
		Details:  user.CompanyName + " signed in",
		Metadata: map[string]any{"ip_address": c.ClientIP()},
	})

	response.Success(c, http.StatusOK, payload)
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	// Any session presented with the request ends before the new account starts.
	if sessionID := middleware.CurrentSessionID(c); sessionID != "" {
		if err := h.sessions.RevokeSession(ctx, sessionID); err != nil && !errors.Is(err, iauth.ErrSessionNotFound) {
			h.log.Warn("revoke session before registration", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	user, err := h.registration.Register(ctx, services.RegistrationInput{
		Token:           req.Token,
		CompanyName:     req.CompanyName,
		ContactPerson:   req.ContactPerson,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := h.startSession(c, user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, payload)
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if isSessionError(err) {
			response.Error(c, apperrors.ErrUnauthorized)
			return
		}
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, pair)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	if sessionID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(requestContext(c), sessionID); err != nil && !isSessionError(err) {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true, "redirect": access.PathLogin})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, describeUser(user, h.now().UTC(), h.warningDays))
}

// POST /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.ChangePassword(requestContext(c), user.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) (*sessionResponse, error) {
	pair, _, err := h.sessions.CreateSession(requestContext(c), user, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	now := h.now().UTC()
	described := describeUser(user, now, h.warningDays)
	return &sessionResponse{
		TokenPair: pair,
		User:      described,
		Redirect:  access.Landing(described.Access.State),
	}, nil
}

func (h *AuthHandler) record(c *gin.Context, entry services.ActivityEntry) {
	if h.activity == nil {
		return
	}
	if err := h.activity.Log(requestContext(c), entry); err != nil {
		h.log.Warn("record activity", zap.String("type", string(entry.Type)), zap.Error(err))
	}
}

func isSessionError(err error) bool {
	return errors.Is(err, iauth.ErrSessionNotFound) ||
		errors.Is(err, iauth.ErrSessionRevoked) ||
		errors.Is(err, iauth.ErrSessionExpired) ||
		errors.Is(err, iauth.ErrSessionInvalidToken)
}
