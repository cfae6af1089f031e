package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/api"
	"github.com/charlesng35/folio/internal/app"
	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/cache"
	sharedtestutil "github.com/charlesng35/folio/internal/database/testutil"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
	"github.com/charlesng35/folio/pkg/response"
)

// AdminEmail and AdminPassword identify the administrator created by CreateAdmin.
const (
	AdminEmail    = "owner@example.com"
	AdminPassword = "owner-password"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Config *app.Config
	JWT    *iauth.JWTService
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
// Rate limiting is disabled so tests can log in repeatedly. Overrides run
// against the config before the router is built.
func NewEnv(t *testing.T, overrides ...func(*app.Config)) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Server.BaseURL = "http://folio.test"
	cfg.Auth.JWT.Secret = "test-suite-super-secret-signing-key-for-folio-handlers"
	cfg.Auth.JWT.Issuer = "test-suite"
	cfg.Auth.JWT.TTL = time.Hour
	cfg.RateLimit.Enabled = false
	for _, override := range overrides {
		override(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.SessionServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, sessionSvc, cache.NewDatabaseStore(db))
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		Config: cfg,
		JWT:    jwtSvc,
	}
}

// CreateAdmin inserts the portfolio owner account.
func (e *Env) CreateAdmin() *models.User {
	e.T.Helper()
	return e.createUser(&models.User{
		Email:       AdminEmail,
		CompanyName: "Portfolio Owner",
		IsAdmin:     true,
		IsActive:    true,
	}, AdminPassword)
}

// CreateCompany inserts a company account with the given access window.
func (e *Env) CreateCompany(email, password string, expiresAt *time.Time, active bool) *models.User {
	e.T.Helper()
	return e.createUser(&models.User{
		Email:           email,
		CompanyName:     "Company " + email,
		ContactPerson:   "Contact",
		IsActive:        active,
		AccessExpiresAt: expiresAt,
	}, password)
}

func (e *Env) createUser(user *models.User, password string) *models.User {
	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)
	user.Password = hashed
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// AccessPayload mirrors the evaluated access window.
type AccessPayload struct {
	State         string `json:"state"`
	IsExpired     bool   `json:"is_expired"`
	DaysRemaining int    `json:"days_remaining"`
	ShowWarning   bool   `json:"show_warning"`
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID              string        `json:"id"`
	Email           string        `json:"email"`
	CompanyName     string        `json:"company_name"`
	ContactPerson   string        `json:"contact_person"`
	IsAdmin         bool          `json:"is_admin"`
	IsActive        bool          `json:"is_active"`
	AccessExpiresAt *time.Time    `json:"access_expires_at"`
	Access          AccessPayload `json:"access"`
}

// LoginResult bundles the JSON response from POST /api/auth/login and /register.
type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserPayload `json:"user"`
	Redirect     string      `json:"redirect"`
}

// Login authenticates using the local provider and returns the issued token pair.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.NotEmpty(e.T, result.RefreshToken)
	require.Greater(e.T, result.ExpiresIn, 0)
	require.Equal(e.T, email, result.User.Email)

	return result
}

// LoginAdmin creates the admin account and signs in as it.
func (e *Env) LoginAdmin() LoginResult {
	e.T.Helper()
	e.CreateAdmin()
	return e.Login(AdminEmail, AdminPassword)
}

// IssueInvite creates an invite as the admin and returns its token.
func (e *Env) IssueInvite(adminToken string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/admin/invites", nil, adminToken)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var invite struct {
		Token string `json:"token"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &invite)
	require.NotEmpty(e.T, invite.Token)
	return invite.Token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// ErrorCode returns the error code of a failed response.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success, w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	switch v := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case []byte:
		buf = bytes.NewBuffer(v)
	default:
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	req.RemoteAddr = "192.0.2.10:4321"

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
