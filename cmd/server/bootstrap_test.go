package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/folio/internal/app"
	"github.com/charlesng35/folio/internal/models"
)

func newTestConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "folio.sqlite")
	cfg.Monitoring.Prometheus.Enabled = false

	_, err = app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg
}

func TestBootstrapRuntime_ServesHealth(t *testing.T) {
	cfg := newTestConfig(t)

	stack, err := bootstrapRuntime(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown()) })

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, err = os.Stat(cfg.Database.Path)
	require.NoError(t, err)
}

func TestSeedAdmin_CreatesOnce(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Bootstrap.AdminEmail = "Owner@Example.com"
	cfg.Bootstrap.AdminPassword = "owner-password"
	cfg.Bootstrap.AdminCompany = "Owner Studio"

	stack, err := bootstrapRuntime(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown()) })

	var admins []models.User
	require.NoError(t, stack.DB.Where("is_admin = ?", true).Find(&admins).Error)
	require.Len(t, admins, 1)
	require.Equal(t, "owner@example.com", admins[0].Email)
	require.Equal(t, "Owner Studio", admins[0].CompanyName)

	cfg.Bootstrap.AdminEmail = "someone-else@example.com"
	require.NoError(t, seedAdmin(t.Context(), stack.DB, cfg, zap.NewNop()))

	var count int64
	require.NoError(t, stack.DB.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSeedAdmin_DisabledWithoutCredentials(t *testing.T) {
	cfg := newTestConfig(t)

	stack, err := bootstrapRuntime(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown()) })

	var count int64
	require.NoError(t, stack.DB.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestLoadApplicationConfig_MissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}
