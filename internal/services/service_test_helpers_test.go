package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/database/testutil"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
)

type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func createCompany(t *testing.T, db *gorm.DB, email string, expiresAt *time.Time, active bool) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Email:           email,
		Password:        hashed,
		CompanyName:     "Company " + email,
		ContactPerson:   "Jordan",
		IsActive:        active,
		AccessExpiresAt: expiresAt,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("admin-password")
	require.NoError(t, err)

	admin := &models.User{
		Email:       "owner@example.com",
		Password:    hashed,
		CompanyName: "Portfolio Owner",
		IsAdmin:     true,
		IsActive:    true,
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

func activityTypes(t *testing.T, db *gorm.DB) []models.ActivityType {
	t.Helper()

	var types []models.ActivityType
	require.NoError(t, db.Model(&models.ActivityLog{}).Order("id ASC").Pluck("type", &types).Error)
	return types
}

func fastStorePolicy() StorePolicy {
	return StorePolicy{Timeout: time.Second, MaxAttempts: 3, MaxWait: time.Millisecond}
}
