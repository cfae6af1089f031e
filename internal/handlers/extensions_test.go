package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/folio/internal/handlers/testutil"
	"github.com/charlesng35/folio/internal/models"
)

type extensionPayload struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CompanyName string `json:"company_name"`
	Reason      string `json:"reason"`
	Status      string `json:"status"`
}

func submitExtension(t *testing.T, env *testutil.Env, token, reason string) extensionPayload {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/extensions", map[string]string{"reason": reason}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out extensionPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &out)
	return out
}

func TestExtensionHandler_ExpiredCompanyRequestsAndAdminApproves(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()

	past := time.Now().Add(-48 * time.Hour)
	company := env.CreateCompany("late@example.com", "company-pass", &past, true)
	session := env.Login("late@example.com", "company-pass")
	require.Equal(t, "/expired", session.Redirect)

	request := submitExtension(t, env, session.AccessToken, "Still evaluating the portfolio for our team")
	require.Equal(t, "pending", request.Status)
	require.Equal(t, company.ID, request.UserID)
	require.Equal(t, company.CompanyName, request.CompanyName)

	w := env.Request(http.MethodPost, "/api/extensions", map[string]string{"reason": "One more request please"}, session.AccessToken)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "EXTENSION_ALREADY_PENDING", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodGet, "/api/extensions/mine", nil, session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []extensionPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &mine)
	require.Len(t, mine, 1)

	w = env.Request(http.MethodGet, "/api/admin/extensions", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []extensionPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &pending)
	require.Len(t, pending, 1)
	require.Equal(t, request.ID, pending[0].ID)

	w = env.Request(http.MethodPost, "/api/admin/extensions/"+request.ID+"/review", map[string]string{"decision": "approved"}, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reviewed extensionPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &reviewed)
	require.Equal(t, "approved", reviewed.Status)

	w = env.Request(http.MethodPost, "/api/admin/extensions/"+request.ID+"/review", map[string]string{"decision": "denied"}, admin.AccessToken)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "EXTENSION_ALREADY_REVIEWED", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodGet, "/api/auth/me", nil, session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var me testutil.UserPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &me)
	require.Equal(t, "active", me.Access.State)
	require.NotNil(t, me.AccessExpiresAt)
	require.WithinDuration(t, time.Now().Add(env.Config.Access.ExtensionGrant), *me.AccessExpiresAt, time.Minute)

	w = env.Request(http.MethodGet, "/api/admin/extensions?status=reviewed", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var history []extensionPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &history)
	require.Len(t, history, 1)

	// A new request is allowed once the previous one is reviewed.
	submitExtension(t, env, session.AccessToken, "Need a little more time to review")
}

func TestExtensionHandler_DenyLeavesAccessUntouched(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()

	past := time.Now().Add(-time.Hour).UTC()
	company := env.CreateCompany("denied@example.com", "company-pass", &past, true)
	session := env.Login("denied@example.com", "company-pass")
	request := submitExtension(t, env, session.AccessToken, "Please extend my access window")

	w := env.Request(http.MethodPost, "/api/admin/extensions/"+request.ID+"/review", map[string]string{"decision": "denied"}, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, env.DB.Where("id = ?", company.ID).Take(&user).Error)
	require.NotNil(t, user.AccessExpiresAt)
	require.WithinDuration(t, past, *user.AccessExpiresAt, time.Second)
}

func TestExtensionHandler_SubmitValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()

	future := time.Now().Add(72 * time.Hour)
	env.CreateCompany("eager@example.com", "company-pass", &future, true)
	session := env.Login("eager@example.com", "company-pass")

	w := env.Request(http.MethodPost, "/api/extensions", map[string]string{"reason": "short"}, session.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_FAILED", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodPost, "/api/extensions", map[string]string{}, session.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPost, "/api/extensions", map[string]string{"reason": "Administrators never expire"}, admin.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/extensions", map[string]string{"reason": "Anonymous visitors cannot ask"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExtensionHandler_ReviewValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()

	w := env.Request(http.MethodPost, "/api/admin/extensions/missing/review", map[string]string{"decision": "maybe"}, admin.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPost, "/api/admin/extensions/missing/review", map[string]string{"decision": "approved"}, admin.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "EXTENSION_NOT_FOUND", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodGet, "/api/admin/extensions?status=everything", nil, admin.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtensionHandler_InconsistenciesAndReconcile(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.LoginAdmin()

	past := time.Now().Add(-time.Hour)
	company := env.CreateCompany("drift@example.com", "company-pass", &past, true)

	reviewedAt := time.Now().UTC()
	request := models.ExtensionRequest{
		UserID:      company.ID,
		CompanyName: company.CompanyName,
		Reason:      "Approved but never applied",
		Status:      models.ExtensionStatusApproved,
		ReviewedAt:  &reviewedAt,
	}
	require.NoError(t, env.DB.Create(&request).Error)

	w := env.Request(http.MethodGet, "/api/admin/extensions/inconsistencies", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found []struct {
		Request     extensionPayload `json:"request"`
		UserMissing bool             `json:"user_missing"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &found)
	require.Len(t, found, 1)
	require.Equal(t, request.ID, found[0].Request.ID)
	require.False(t, found[0].UserMissing)

	w = env.Request(http.MethodPost, "/api/admin/extensions/"+request.ID+"/reconcile", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reconciled struct {
		UserID          string     `json:"user_id"`
		AccessExpiresAt *time.Time `json:"access_expires_at"`
		IsActive        bool       `json:"is_active"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &reconciled)
	require.Equal(t, company.ID, reconciled.UserID)
	require.True(t, reconciled.IsActive)
	require.NotNil(t, reconciled.AccessExpiresAt)
	require.WithinDuration(t, time.Now().Add(env.Config.Access.ExtensionGrant), *reconciled.AccessExpiresAt, time.Minute)

	w = env.Request(http.MethodGet, "/api/admin/extensions/inconsistencies", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	found = nil
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &found)
	require.Empty(t, found)

	w = env.Request(http.MethodPost, "/api/admin/extensions/"+request.ID+"/reconcile", nil, admin.AccessToken)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "NOTHING_TO_RECONCILE", testutil.ErrorCode(t, w))
}
