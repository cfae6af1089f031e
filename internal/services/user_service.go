package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/access"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
	apperrors "github.com/charlesng35/folio/pkg/errors"
)

const (
	minPasswordLength   = 8
	defaultAdminCompany = "Portfolio Owner"
)

// CreateAdminInput describes the first administrator account.
type CreateAdminInput struct {
	Email         string
	Password      string
	CompanyName   string
	ContactPerson string
}

// CompanySummary is a company account with its evaluated access window.
type CompanySummary struct {
	models.User
	Access access.Window `json:"access"`
}

// UserOption customises UserService behaviour.
type UserOption func(*UserService)

// WithUserClock injects a custom clock primarily for testing.
func WithUserClock(clock func() time.Time) UserOption {
	return func(s *UserService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithUserStorePolicy overrides store timeouts and read retries.
func WithUserStorePolicy(policy StorePolicy) UserOption {
	return func(s *UserService) {
		s.store = policy.normalised()
	}
}

// WithUserWarningDays sets how close to expiry a window starts warning.
func WithUserWarningDays(days int) UserOption {
	return func(s *UserService) {
		if days > 0 {
			s.warningDays = days
		}
	}
}

// UserService manages the user directory: lookups, company administration and admin setup.
type UserService struct {
	db          *gorm.DB
	now         func() time.Time
	store       StorePolicy
	warningDays int
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}

	svc := &UserService{
		db:          db,
		now:         time.Now,
		store:       DefaultStorePolicy(),
		warningDays: access.DefaultWarningDays,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GetByID loads a user by primary key.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.store.read(ctx, "users.get", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// ListCompanies returns every non-admin account newest first with its access window.
func (s *UserService) ListCompanies(ctx context.Context) ([]CompanySummary, error) {
	var users []models.User
	err := s.store.read(ctx, "users.list", func(ctx context.Context) error {
		users = users[:0]
		return s.db.WithContext(ctx).
			Where("is_admin = ?", false).
			Order("created_at DESC").
			Find(&users).Error
	})
	if err != nil {
		return nil, fmt.Errorf("user service: list companies: %w", err)
	}

	now := s.now().UTC()
	summaries := make([]CompanySummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, CompanySummary{
			User:   user,
			Access: access.EvaluateWithWarning(user.AccessExpiresAt, now, s.warningDays),
		})
	}
	return summaries, nil
}

// SetActive toggles a company's active flag. Administrators cannot be toggled.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	err := s.store.write(ctx, func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ? AND is_admin = ?", id, false).
			Update("is_active", active)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var user models.User
		if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
			return err
		}
		if user.IsAdmin {
			return ErrAdminNotAllowed
		}
		// Same value on drivers that report matched rather than changed rows.
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		if errors.Is(err, ErrAdminNotAllowed) {
			return nil, err
		}
		return nil, fmt.Errorf("user service: set active: %w", err)
	}

	return s.GetByID(ctx, id)
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next, confirm string) error {
	if err := validatePassword(next, confirm); err != nil {
		return err
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(user.Password, current) {
		return ErrCurrentPassword
	}

	hashed, err := crypto.HashPassword(next)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	err = s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"password":        hashed,
				"failed_attempts": 0,
				"locked_until":    nil,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}
	return nil
}

// HasAdmin reports whether an administrator account exists.
func (s *UserService) HasAdmin(ctx context.Context) (bool, error) {
	var count int64
	err := s.store.read(ctx, "users.has_admin", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error
	})
	if err != nil {
		return false, fmt.Errorf("user service: count admins: %w", err)
	}
	return count > 0, nil
}

// CreateAdmin provisions the first administrator. It fails with
// ErrAdminExists once any administrator is present.
func (s *UserService) CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.User, error) {
	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewValidation("Email is required")
	}
	if err := validatePassword(input.Password, input.Password); err != nil {
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	company := strings.TrimSpace(input.CompanyName)
	if company == "" {
		company = defaultAdminCompany
	}

	user := &models.User{
		Email:         email,
		Password:      hashed,
		CompanyName:   company,
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		IsAdmin:       true,
		IsActive:      true,
	}

	err = s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var admins int64
			if err := tx.Model(&models.User{}).Where("is_admin = ?", true).Count(&admins).Error; err != nil {
				return err
			}
			if admins > 0 {
				return ErrAdminExists
			}
			return tx.Create(user).Error
		})
	})
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, ErrAdminExists):
		return nil, err
	case isUniqueConstraintError(err):
		return nil, ErrEmailTaken
	default:
		return nil, fmt.Errorf("user service: create admin: %w", err)
	}
}

// EnsureAdmin creates the administrator when none exists. created is false
// when an administrator was already present.
func (s *UserService) EnsureAdmin(ctx context.Context, input CreateAdminInput) (created bool, err error) {
	exists, err := s.HasAdmin(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := s.CreateAdmin(ctx, input); err != nil {
		if errors.Is(err, ErrAdminExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CompanyCounts returns the number of company accounts and how many currently have access.
func (s *UserService) CompanyCounts(ctx context.Context) (total, active int64, err error) {
	now := s.now().UTC()
	err = s.store.read(ctx, "users.count", func(ctx context.Context) error {
		companies := func() *gorm.DB {
			return s.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", false)
		}
		if err := companies().Count(&total).Error; err != nil {
			return err
		}
		return companies().
			Where("is_active = ?", true).
			Where("access_expires_at IS NULL OR access_expires_at >= ?", now).
			Count(&active).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("user service: count companies: %w", err)
	}
	return total, active, nil
}

func validatePassword(password, confirm string) error {
	if runeLen(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}
