package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/folio/internal/cache"
	sharedtestutil "github.com/charlesng35/folio/internal/database/testutil"
	"github.com/charlesng35/folio/internal/handlers"
	"github.com/charlesng35/folio/internal/handlers/testutil"
	"github.com/charlesng35/folio/internal/monitoring"
)

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) (monitoring.HealthReport, map[string]monitoring.ProbeResult) {
	t.Helper()
	var report monitoring.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	byName := make(map[string]monitoring.ProbeResult, len(report.Checks))
	for _, check := range report.Checks {
		byName[check.Component] = check
	}
	return report, byName
}

func TestHealth_Ready(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report, checks := decodeHealth(t, w)
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Equal(t, monitoring.StatusUp, checks["database"].Status)
	require.Equal(t, monitoring.StatusUp, checks["cache"].Status)
}

type downStore struct{ cache.Store }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func serveHealth(t *testing.T, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w
}

func TestHealth_DegradedWhenCacheDown(t *testing.T) {
	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	w := serveHealth(t, handlers.Health(db, downStore{}))
	require.Equal(t, http.StatusOK, w.Code)

	report, checks := decodeHealth(t, w)
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Equal(t, "connection refused", checks["cache"].Details)
}

func TestHealth_DownWhenDatabaseClosed(t *testing.T) {
	db := sharedtestutil.MustOpenTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := serveHealth(t, handlers.Health(db, nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	report, checks := decodeHealth(t, w)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, monitoring.StatusDown, checks["database"].Status)
}
