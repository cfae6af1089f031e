package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/folio/internal/auth"
	testutil "github.com/charlesng35/folio/internal/database/testutil"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/internal/services"
	"github.com/charlesng35/folio/pkg/response"
)

type authFixture struct {
	db       *gorm.DB
	jwt      *iauth.JWTService
	sessions *iauth.SessionService
	auth     *Authenticator
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	return &authFixture{
		db:       db,
		jwt:      jwtSvc,
		sessions: sessions,
		auth:     NewAuthenticator(jwtSvc, sessions, users),
	}
}

func (f *authFixture) user(t *testing.T, email string, admin, active bool, expiresAt *time.Time) *models.User {
	t.Helper()
	user := &models.User{
		Email:           email,
		Password:        "hash",
		CompanyName:     "Acme",
		IsAdmin:         admin,
		IsActive:        active,
		AccessExpiresAt: expiresAt,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *authFixture) login(t *testing.T, user *models.User) (string, *models.Session) {
	t.Helper()
	pair, session, err := f.sessions.CreateSession(t.Context(), user, iauth.SessionMetadata{})
	require.NoError(t, err)
	return pair.AccessToken, session
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotNil(t, payload.Error)
	return payload.Error.Code
}

func TestAuthRequired(t *testing.T) {
	f := newAuthFixture(t)
	user := f.user(t, "acme@example.com", false, true, nil)
	token, session := f.login(t, user)

	r := gin.New()
	r.GET("/secure", f.auth.Required(), func(c *gin.Context) {
		current, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{
			"user_id":    current.ID,
			"session_id": CurrentSessionID(c),
		})
	})

	w := serve(r, http.MethodGet, "/secure", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = serve(r, http.MethodGet, "/secure", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/secure", token)
	require.Equal(t, http.StatusOK, w.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, user.ID, payload["user_id"])
	require.Equal(t, session.ID, payload["session_id"])

	require.NoError(t, f.sessions.RevokeSession(t.Context(), session.ID))
	w = serve(r, http.MethodGet, "/secure", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHORIZED", decodeError(t, w))
}

func TestAuthRequiredRejectsDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.user(t, "gone@example.com", false, true, nil)
	token, _ := f.login(t, user)

	require.NoError(t, f.db.Unscoped().Delete(&models.User{}, "id = ?", user.ID).Error)

	r := gin.New()
	r.GET("/secure", f.auth.Required(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/secure", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthOptional(t *testing.T) {
	f := newAuthFixture(t)
	user := f.user(t, "acme@example.com", false, true, nil)
	token, _ := f.login(t, user)

	r := gin.New()
	r.GET("/maybe", f.auth.Optional(), func(c *gin.Context) {
		_, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"signed_in": ok})
	})

	for _, tc := range []struct {
		token    string
		signedIn bool
	}{
		{token: "", signedIn: false},
		{token: "garbage", signedIn: false},
		{token: token, signedIn: true},
	} {
		w := serve(r, http.MethodGet, "/maybe", tc.token)
		require.Equal(t, http.StatusOK, w.Code)
		var payload map[string]bool
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		require.Equal(t, tc.signedIn, payload["signed_in"])
	}
}
