package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
	apperrors "github.com/charlesng35/folio/pkg/errors"
)

const defaultInitialWindow = 30 * 24 * time.Hour

// RegistrationInput carries the registration form submitted with an invite.
type RegistrationInput struct {
	Token           string
	CompanyName     string
	ContactPerson   string
	Email           string
	Password        string
	ConfirmPassword string
}

// RegistrationOption customises RegistrationService behaviour.
type RegistrationOption func(*RegistrationService)

// WithRegistrationClock injects a custom clock primarily for testing.
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInitialWindow overrides the access window granted to new companies.
func WithInitialWindow(d time.Duration) RegistrationOption {
	return func(s *RegistrationService) {
		if d > 0 {
			s.initialWindow = d
		}
	}
}

// WithRegistrationStorePolicy overrides the store timeout.
func WithRegistrationStorePolicy(policy StorePolicy) RegistrationOption {
	return func(s *RegistrationService) {
		s.store = policy.normalised()
	}
}

// RegistrationService turns an invite into a company account.
type RegistrationService struct {
	db            *gorm.DB
	invites       *InviteService
	activity      *ActivityService
	initialWindow time.Duration
	now           func() time.Time
	store         StorePolicy
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *gorm.DB, invites *InviteService, activity *ActivityService, opts ...RegistrationOption) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}
	if invites == nil {
		return nil, errors.New("registration service: invite service is required")
	}

	svc := &RegistrationService{
		db:            db,
		invites:       invites,
		activity:      activity,
		initialWindow: defaultInitialWindow,
		now:           time.Now,
		store:         DefaultStorePolicy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates an active company account and consumes the invite in one
// transaction. If the invite cannot be redeemed no account is left behind.
func (s *RegistrationService) Register(ctx context.Context, input RegistrationInput) (*models.User, error) {
	company := strings.TrimSpace(input.CompanyName)
	email := normaliseEmail(input.Email)
	switch {
	case company == "":
		return nil, apperrors.NewValidation("Company name is required")
	case email == "":
		return nil, apperrors.NewValidation("Email is required")
	}
	if err := validatePassword(input.Password, input.ConfirmPassword); err != nil {
		return nil, err
	}

	if _, err := s.invites.Validate(ctx, input.Token); err != nil {
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("registration service: hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Email:           email,
		Password:        hashed,
		CompanyName:     company,
		ContactPerson:   strings.TrimSpace(input.ContactPerson),
		IsActive:        true,
		AccessExpiresAt: timePtr(now.Add(s.initialWindow)),
	}

	err = s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(user).Error; err != nil {
				if isUniqueConstraintError(err) {
					return ErrEmailTaken
				}
				return err
			}
			return s.invites.RedeemTx(tx, input.Token, user.ID)
		})
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("registration service: register: %w", err)
	}

	recordActivity(s.activity, ctx, activityFor(models.ActivityRegistration, user.ID,
		fmt.Sprintf("%s registered", user.CompanyName),
		map[string]any{"email": user.Email},
	))
	recordActivity(s.activity, ctx, activityFor(models.ActivityInviteUsed, user.ID, "Invite redeemed", nil))

	return user, nil
}
