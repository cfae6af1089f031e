package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
)

func newInviteTestService(t *testing.T, db *gorm.DB, clock *testClock) (*InviteService, *ActivityService) {
	t.Helper()

	activity, err := NewActivityService(db, WithActivityClock(clock.Now))
	require.NoError(t, err)

	svc, err := NewInviteService(db, activity,
		WithInviteClock(clock.Now),
		WithInviteBaseURL("https://folio.example.com/"),
		WithInviteStorePolicy(fastStorePolicy()),
	)
	require.NoError(t, err)
	return svc, activity
}

func TestInviteServiceIssue(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	admin := createAdmin(t, db)
	svc, _ := newInviteTestService(t, db, clock)

	invite, err := svc.Issue(context.Background(), admin.ID)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(invite.Token, crypto.InviteTokenPrefix+"_"))
	require.False(t, invite.Used)
	require.False(t, invite.IsExpired)
	require.Equal(t, clock.Now().Add(7*24*time.Hour), invite.ExpiresAt.UTC())
	require.Equal(t, "https://folio.example.com/register?token="+invite.Token, invite.URL)
	require.NotNil(t, invite.CreatedBy)
	require.Equal(t, admin.ID, *invite.CreatedBy)

	issuedAt, ok := crypto.InviteTokenTime(invite.Token)
	require.True(t, ok)
	require.Equal(t, clock.Now(), issuedAt.UTC())

	require.Equal(t, []models.ActivityType{models.ActivityInviteCreated}, activityTypes(t, db))
}

func TestInviteServiceValidateWindow(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	svc, _ := newInviteTestService(t, db, clock)
	ctx := context.Background()

	invite, err := svc.Issue(ctx, "")
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	found, err := svc.Validate(ctx, invite.Token)
	require.NoError(t, err)
	require.Equal(t, invite.ID, found.ID)

	clock.Advance(6 * 24 * time.Hour)
	_, err = svc.Validate(ctx, invite.Token)
	require.ErrorIs(t, err, ErrInviteExpired, "an invite is expired at exactly its expiry")

	clock.Advance(24 * time.Hour)
	_, err = svc.Validate(ctx, invite.Token)
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestInviteServiceValidateUnknownToken(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newInviteTestService(t, db, newTestClock())

	_, err := svc.Validate(context.Background(), "inv_missing")
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = svc.Validate(context.Background(), "   ")
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceUsedDominatesExpired(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	svc, _ := newInviteTestService(t, db, clock)
	ctx := context.Background()

	invite, err := svc.Issue(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, invite.Token, "user-1"))

	clock.Advance(30 * 24 * time.Hour)
	_, err = svc.Validate(ctx, invite.Token)
	require.ErrorIs(t, err, ErrInviteAlreadyUsed)
}

func TestInviteServiceRedeem(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	svc, _ := newInviteTestService(t, db, clock)
	ctx := context.Background()

	invite, err := svc.Issue(ctx, "")
	require.NoError(t, err)

	require.NoError(t, svc.Redeem(ctx, invite.Token, "user-1"))

	var stored models.InviteToken
	require.NoError(t, db.Where("id = ?", invite.ID).Take(&stored).Error)
	require.True(t, stored.Used)
	require.NotNil(t, stored.UsedBy)
	require.Equal(t, "user-1", *stored.UsedBy)
	require.NotNil(t, stored.UsedAt)
	require.Equal(t, clock.Now(), stored.UsedAt.UTC())

	err = svc.Redeem(ctx, invite.Token, "user-2")
	require.ErrorIs(t, err, ErrInviteAlreadyUsed)

	require.NoError(t, db.Where("id = ?", invite.ID).Take(&stored).Error)
	require.Equal(t, "user-1", *stored.UsedBy)

	require.Equal(t, []models.ActivityType{
		models.ActivityInviteCreated,
		models.ActivityInviteUsed,
	}, activityTypes(t, db))
}

func TestInviteServiceRedeemClassifiesFailures(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	svc, _ := newInviteTestService(t, db, clock)
	ctx := context.Background()

	err := svc.Redeem(ctx, "inv_unknown", "user-1")
	require.ErrorIs(t, err, ErrInviteNotFound)

	invite, err := svc.Issue(ctx, "")
	require.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)
	err = svc.Redeem(ctx, invite.Token, "user-1")
	require.ErrorIs(t, err, ErrInviteExpired)

	var stored models.InviteToken
	require.NoError(t, db.Where("id = ?", invite.ID).Take(&stored).Error)
	require.False(t, stored.Used)
}

func TestInviteServiceConcurrentRedeemHasOneWinner(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	svc, _ := newInviteTestService(t, db, clock)
	ctx := context.Background()

	invite, err := svc.Issue(ctx, "")
	require.NoError(t, err)

	const contenders = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losses  int
	)
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		userID := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := svc.Redeem(ctx, invite.Token, userID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, userID)
			case errors.Is(err, ErrInviteAlreadyUsed):
				losses++
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Equal(t, contenders-1, losses)

	var stored models.InviteToken
	require.NoError(t, db.Where("id = ?", invite.ID).Take(&stored).Error)
	require.Equal(t, winners[0], *stored.UsedBy)
}

func TestInviteServiceListNewestFirst(t *testing.T) {
	db := openServiceTestDB(t)
	clock := newTestClock()
	svc, _ := newInviteTestService(t, db, clock)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := svc.Issue(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, second.Token, "user-1"))

	clock.Advance(7 * 24 * time.Hour)
	invites, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, invites, 2)

	require.Equal(t, second.ID, invites[0].ID)
	require.True(t, invites[0].Used)
	require.False(t, invites[0].IsExpired, "used invites are reported as used, not expired")

	require.Equal(t, first.ID, invites[1].ID)
	require.True(t, invites[1].IsExpired)
	require.Equal(t, svc.RegistrationURL(first.Token), invites[1].URL)
}

func TestInviteServiceDelete(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newInviteTestService(t, db, newTestClock())
	ctx := context.Background()

	unused, err := svc.Issue(ctx, "")
	require.NoError(t, err)
	used, err := svc.Issue(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, used.Token, "user-1"))

	require.NoError(t, svc.Delete(ctx, unused.ID))
	require.ErrorIs(t, svc.Delete(ctx, unused.ID), ErrInviteNotFound)
	require.ErrorIs(t, svc.Delete(ctx, used.ID), ErrInviteAlreadyUsed)

	total, redeemed, err := svc.Counts(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 1, redeemed)
}

func TestInviteServiceRedeemTxRollsBackWithTransaction(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newInviteTestService(t, db, newTestClock())
	ctx := context.Background()

	invite, err := svc.Issue(ctx, "")
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := svc.RedeemTx(tx, invite.Token, "user-1"); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.EqualError(t, err, "abort")

	_, err = svc.Validate(ctx, invite.Token)
	require.NoError(t, err)
}
