package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
	"github.com/charlesng35/folio/pkg/metrics"
)

const defaultInviteExpiry = 7 * 24 * time.Hour

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build registration links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithInviteExpiry overrides the invite token lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInviteStorePolicy overrides store timeouts and read retries.
func WithInviteStorePolicy(policy StorePolicy) InviteOption {
	return func(s *InviteService) {
		s.store = policy.normalised()
	}
}

// InviteView is an invite as presented to the admin, with its link and status.
type InviteView struct {
	models.InviteToken
	URL       string `json:"url"`
	IsExpired bool   `json:"is_expired"`
}

// InviteService manages the single-use registration invite ledger.
type InviteService struct {
	db       *gorm.DB
	activity *ActivityService
	baseURL  string
	expiry   time.Duration
	now      func() time.Time
	store    StorePolicy
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, activity *ActivityService, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:       db,
		activity: activity,
		expiry:   defaultInviteExpiry,
		now:      time.Now,
		store:    DefaultStorePolicy(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue creates a new unused invite valid for the configured lifetime.
func (s *InviteService) Issue(ctx context.Context, creatorID string) (*InviteView, error) {
	now := s.now().UTC()

	token, err := crypto.GenerateInviteToken(now)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	invite := models.InviteToken{
		BaseModel: models.BaseModel{CreatedAt: now},
		Token:     token,
		CreatedBy: stringPtr(creatorID),
		ExpiresAt: now.Add(s.expiry),
	}

	err = s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(&invite).Error
	})
	if err != nil {
		metrics.InviteOperations.WithLabelValues("issue", "error").Inc()
		return nil, fmt.Errorf("invite service: create invite: %w", err)
	}
	metrics.InviteOperations.WithLabelValues("issue", "success").Inc()

	view := s.view(invite, now)
	recordActivity(s.activity, ctx, activityFor(models.ActivityInviteCreated, creatorID,
		"Invite link generated",
		map[string]any{"invite_id": invite.ID, "expires_at": invite.ExpiresAt},
	))

	return &view, nil
}

// Validate checks that token names an unused, unexpired invite. A used invite
// reports ErrInviteAlreadyUsed regardless of its expiry.
func (s *InviteService) Validate(ctx context.Context, token string) (*models.InviteToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInviteNotFound
	}

	var invite models.InviteToken
	err := s.store.read(ctx, "invites.validate", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("token = ?", token).Take(&invite).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}

	if err := inviteStatusError(&invite, s.now().UTC()); err != nil {
		return nil, err
	}
	return &invite, nil
}

// Redeem marks the invite as used by userID. Of any number of concurrent
// callers at most one succeeds; the rest get ErrInviteAlreadyUsed.
func (s *InviteService) Redeem(ctx context.Context, token, userID string) error {
	err := s.store.write(ctx, func(ctx context.Context) error {
		return s.redeem(s.db.WithContext(ctx), token, userID, s.now().UTC())
	})
	s.observeRedeem(err)
	if err != nil {
		return err
	}

	recordActivity(s.activity, ctx, activityFor(models.ActivityInviteUsed, userID, "Invite redeemed", nil))
	return nil
}

// RedeemTx is Redeem bound to an open transaction. The caller records the
// invite_used activity once the transaction commits.
func (s *InviteService) RedeemTx(tx *gorm.DB, token, userID string) error {
	if tx == nil {
		return errors.New("invite service: tx is required")
	}
	err := s.redeem(tx, token, userID, s.now().UTC())
	s.observeRedeem(err)
	return err
}

func (s *InviteService) redeem(db *gorm.DB, token, userID string, now time.Time) error {
	token = strings.TrimSpace(token)
	userID = strings.TrimSpace(userID)
	if token == "" {
		return ErrInviteNotFound
	}
	if userID == "" {
		return errors.New("invite service: user id is required")
	}

	result := db.Model(&models.InviteToken{}).
		Where("token = ? AND used = ? AND expires_at > ?", token, false, now).
		Updates(map[string]any{
			"used":    true,
			"used_by": userID,
			"used_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("invite service: redeem: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var invite models.InviteToken
	err := db.Where("token = ?", token).Take(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInviteNotFound
	}
	if err != nil {
		return fmt.Errorf("invite service: classify redeem: %w", err)
	}
	if statusErr := inviteStatusError(&invite, now); statusErr != nil {
		return statusErr
	}
	return ErrInviteAlreadyUsed
}

func (s *InviteService) observeRedeem(err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrInviteAlreadyUsed):
		result = "already_used"
	case errors.Is(err, ErrInviteExpired):
		result = "expired"
	case errors.Is(err, ErrInviteNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.InviteOperations.WithLabelValues("redeem", result).Inc()
}

// List returns every invite newest first with its link and current status.
func (s *InviteService) List(ctx context.Context) ([]InviteView, error) {
	var invites []models.InviteToken
	err := s.store.read(ctx, "invites.list", func(ctx context.Context) error {
		invites = invites[:0]
		return s.db.WithContext(ctx).Order("created_at DESC").Order("token DESC").Find(&invites).Error
	})
	if err != nil {
		return nil, fmt.Errorf("invite service: list invites: %w", err)
	}

	now := s.now().UTC()
	views := make([]InviteView, 0, len(invites))
	for _, invite := range invites {
		views = append(views, s.view(invite, now))
	}
	return views, nil
}

// Delete removes an unused invite. Redeemed invites are part of the ledger and stay.
func (s *InviteService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInviteNotFound
	}

	err := s.store.write(ctx, func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Where("id = ? AND used = ?", id, false).
			Delete(&models.InviteToken{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := s.db.WithContext(ctx).Model(&models.InviteToken{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrInviteNotFound
		}
		return ErrInviteAlreadyUsed
	})
	if err != nil {
		metrics.InviteOperations.WithLabelValues("delete", "error").Inc()
		if errors.Is(err, ErrInviteNotFound) || errors.Is(err, ErrInviteAlreadyUsed) {
			return err
		}
		return fmt.Errorf("invite service: delete invite: %w", err)
	}
	metrics.InviteOperations.WithLabelValues("delete", "success").Inc()
	return nil
}

// Counts returns the total number of invites and how many have been redeemed.
func (s *InviteService) Counts(ctx context.Context) (total, used int64, err error) {
	err = s.store.read(ctx, "invites.count", func(ctx context.Context) error {
		if err := s.db.WithContext(ctx).Model(&models.InviteToken{}).Count(&total).Error; err != nil {
			return err
		}
		return s.db.WithContext(ctx).Model(&models.InviteToken{}).Where("used = ?", true).Count(&used).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("invite service: count invites: %w", err)
	}
	return total, used, nil
}

// RegistrationURL builds the link a company follows to register with token.
func (s *InviteService) RegistrationURL(token string) string {
	return fmt.Sprintf("%s/register?token=%s", s.baseURL, url.QueryEscape(token))
}

func (s *InviteService) view(invite models.InviteToken, now time.Time) InviteView {
	return InviteView{
		InviteToken: invite,
		URL:         s.RegistrationURL(invite.Token),
		IsExpired:   !invite.Used && invite.IsExpiredAt(now),
	}
}

func inviteStatusError(invite *models.InviteToken, now time.Time) error {
	if invite.Used {
		return ErrInviteAlreadyUsed
	}
	if invite.IsExpiredAt(now) {
		return ErrInviteExpired
	}
	return nil
}
