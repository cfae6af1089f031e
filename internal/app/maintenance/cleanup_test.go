package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/cache"
	testutil "github.com/charlesng35/folio/internal/database/testutil"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "cleanup-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	clock := &fixedClock{current: time.Now().UTC()}

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		RefreshLength:   16,
		Clock:           clock.Now,
	})
	require.NoError(t, err)

	user := seedUser(t, db, "cleanup@example.com")
	ctx := context.Background()

	_, expiredSession, err := sessionSvc.CreateSession(ctx, user, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", expiredSession.ID).
		Update("expires_at", clock.Now().Add(-2*time.Hour)).Error)

	_, activeSession, err := sessionSvc.CreateSession(ctx, user, iauth.SessionMetadata{})
	require.NoError(t, err)

	_, revokedSession, err := sessionSvc.CreateSession(ctx, user, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, sessionSvc.RevokeSession(ctx, revokedSession.ID))

	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "ratelimit:stale",
		Value:     []byte("3"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "ratelimit:live",
		Value:     []byte("1"),
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	c := NewCleaner(sessionSvc, cache.NewDatabaseStore(db))
	report, err := c.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), report.Sessions)
	require.Equal(t, int64(1), report.Counters)

	assertNotFound := func(id string) {
		var s models.Session
		err := db.First(&s, "id = ?", id).Error
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}
	assertNotFound(expiredSession.ID)
	assertNotFound(revokedSession.ID)

	var remaining models.Session
	require.NoError(t, db.First(&remaining, "id = ?", activeSession.ID).Error)

	var counters int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&counters).Error)
	require.Equal(t, int64(1), counters)
}

func TestCleanerRunOnceJoinsErrors(t *testing.T) {
	c := NewCleaner(
		failingStep{err: errors.New("sessions down")},
		failingStep{err: errors.New("counters down")},
	)

	_, err := c.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorContains(t, err, "sessions down")
	require.ErrorContains(t, err, "counters down")
}

func TestCleanerRunOnceSkipsMissingSteps(t *testing.T) {
	report, err := NewCleaner(nil, nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report)
}

type failingStep struct {
	err error
}

func (f failingStep) CleanupExpired(context.Context) (int64, error) { return 0, f.err }
func (f failingStep) PurgeExpired(context.Context) (int64, error)   { return 0, f.err }

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("Password123!")
	require.NoError(t, err)

	user := &models.User{
		Email:         email,
		CompanyName:   "Cleanup Co",
		ContactPerson: "Casey",
		Password:      hash,
		IsActive:      true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
