package handlers_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/folio/internal/handlers/testutil"
	"github.com/charlesng35/folio/internal/models"
)

func TestInviteHandler_IssueAndList(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()

	w := env.Request(http.MethodPost, "/api/admin/invites", nil, admin.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issued struct {
		ID        string    `json:"id"`
		Token     string    `json:"token"`
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expires_at"`
		IsUsed    bool      `json:"is_used"`
		IsExpired bool      `json:"is_expired"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &issued)
	require.NotEmpty(t, issued.ID)
	require.Equal(t, "http://folio.test/register?token="+url.QueryEscape(issued.Token), issued.URL)
	require.WithinDuration(t, time.Now().Add(env.Config.Access.InviteTTL), issued.ExpiresAt, time.Minute)
	require.False(t, issued.IsUsed)
	require.False(t, issued.IsExpired)

	w = env.Request(http.MethodGet, "/api/admin/invites", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, issued.Token, listed[0]["token"])
}

func TestInviteHandler_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()
	token := env.IssueInvite(admin.AccessToken)

	w := env.Request(http.MethodGet, "/api/invites/validate?token="+url.QueryEscape(token), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Valid bool `json:"valid"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &out)
	require.True(t, out.Valid)

	w = env.Request(http.MethodGet, "/api/invites/validate", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodGet, "/api/invites/validate?token=missing", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "INVITE_NOT_FOUND", testutil.ErrorCode(t, w))

	require.NoError(t, env.DB.Model(&models.InviteToken{}).
		Where("token = ?", token).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	w = env.Request(http.MethodGet, "/api/invites/validate?token="+url.QueryEscape(token), nil, "")
	require.Equal(t, http.StatusGone, w.Code)
	require.Equal(t, "INVITE_EXPIRED", testutil.ErrorCode(t, w))
}

func TestInviteHandler_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()
	token := env.IssueInvite(admin.AccessToken)

	var invite models.InviteToken
	require.NoError(t, env.DB.Where("token = ?", token).Take(&invite).Error)

	w := env.Request(http.MethodDelete, "/api/admin/invites/"+invite.ID, nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodDelete, "/api/admin/invites/"+invite.ID, nil, admin.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet, "/api/invites/validate?token="+url.QueryEscape(token), nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInviteHandler_RequiresAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	future := time.Now().Add(48 * time.Hour)
	env.CreateCompany("acme@example.com", "company-pass", &future, true)
	company := env.Login("acme@example.com", "company-pass")

	w := env.Request(http.MethodPost, "/api/admin/invites", nil, company.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodGet, "/api/admin/invites", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
