package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestMemoryDatabasesAreIsolated(t *testing.T) {
	first := openTestDB(t)
	second := openTestDB(t)

	require.NoError(t, AutoMigrate(first))
	require.True(t, first.Migrator().HasTable(&models.User{}))
	require.False(t, second.Migrator().HasTable(&models.User{}))
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db))

	migrator := db.Migrator()
	for _, model := range []any{
		&models.User{},
		&models.InviteToken{},
		&models.ExtensionRequest{},
		&models.ActivityLog{},
		&models.Session{},
		&models.SiteSetting{},
		&models.CacheEntry{},
	} {
		require.True(t, migrator.HasTable(model))
	}
	require.True(t, migrator.HasIndex(&models.ExtensionRequest{}, "idx_extension_requests_pending_user"))

	theme, found, err := GetSiteSetting(context.Background(), db, models.SiteSettingTheme)
	require.NoError(t, err)
	require.True(t, found)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(theme.Value, &decoded))
	require.Equal(t, "#3b82f6", decoded["button_color"])
}

func TestSeedDataKeepsExistingValues(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	_, err := UpsertSiteSetting(context.Background(), db, models.SiteSettingTheme, json.RawMessage(`{"button_color":"#000000"}`), nil)
	require.NoError(t, err)

	require.NoError(t, SeedData(db))

	theme, _, err := GetSiteSetting(context.Background(), db, models.SiteSettingTheme)
	require.NoError(t, err)
	require.JSONEq(t, `{"button_color":"#000000"}`, string(theme.Value))
}

func TestUpsertSiteSetting(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	ctx := context.Background()

	_, found, err := GetSiteSetting(ctx, db, "missing")
	require.NoError(t, err)
	require.False(t, found)

	admin := "admin-1"
	_, err = UpsertSiteSetting(ctx, db, models.SiteSettingContent, json.RawMessage(`{"about_title":"Hello"}`), &admin)
	require.NoError(t, err)
	_, err = UpsertSiteSetting(ctx, db, models.SiteSettingContent, json.RawMessage(`{"about_title":"Updated"}`), &admin)
	require.NoError(t, err)

	stored, found, err := GetSiteSetting(ctx, db, models.SiteSettingContent)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"about_title":"Updated"}`, string(stored.Value))
	require.NotNil(t, stored.UpdatedBy)

	_, err = UpsertSiteSetting(ctx, db, models.SiteSettingContent, json.RawMessage(`["not","an","object"]`), nil)
	require.ErrorIs(t, err, ErrInvalidSettingValue)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
