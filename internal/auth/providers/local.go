package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned when the supplied email/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the user has exceeded the permitted failed attempts.
	ErrAccountLocked = errors.New("auth: account locked")
)

// LocalConfig defines tunable behaviour for the local provider.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	QueryTimeout     time.Duration
	Clock            func() time.Time
}

// AuthenticateInput contains metadata required to authenticate a local user.
type AuthenticateInput struct {
	Email     string
	Password  string
	IPAddress string
}

// LocalProvider implements email/password authentication with account lockout controls.
//
// Deactivated and expired companies still authenticate. Whether they may see
// anything is decided by the access gate afterwards.
type LocalProvider struct {
	db        *gorm.DB
	clock     func() time.Time
	threshold int
	duration  time.Duration
	timeout   time.Duration
}

// NewLocalProvider builds a provider with sane defaults.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 15 * time.Minute
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{
		db:        db,
		clock:     clock,
		threshold: threshold,
		duration:  duration,
		timeout:   cfg.QueryTimeout,
	}, nil
}

// Authenticate verifies the supplied credentials and returns the associated user when successful.
func (p *LocalProvider) Authenticate(ctx context.Context, input AuthenticateInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := p.query(ctx, func(ctx context.Context) error {
		return p.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query user: %w", err)
	}

	now := p.clock().UTC()

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, p.recordFailure(ctx, user.ID, now)
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	err = p.query(ctx, func(ctx context.Context) error {
		return p.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"failed_attempts": 0,
			"locked_until":    nil,
			"last_login_at":   now,
			"last_login_ip":   user.LastLoginIP,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("local provider: update user: %w", err)
	}

	return &user, nil
}

// recordFailure counts a bad password in SQL so concurrent attempts all land,
// then locks the account once the stored count reaches the threshold.
func (p *LocalProvider) recordFailure(ctx context.Context, userID string, now time.Time) error {
	locked := false
	err := p.query(ctx, func(ctx context.Context) error {
		return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// An elapsed lock starts a fresh count.
			if err := tx.Model(&models.User{}).
				Where("id = ? AND locked_until IS NOT NULL AND locked_until <= ?", userID, now).
				Updates(map[string]any{"failed_attempts": 0, "locked_until": nil}).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.User{}).
				Where("id = ?", userID).
				Update("failed_attempts", gorm.Expr("failed_attempts + 1")).Error; err != nil {
				return err
			}

			var attempts int
			if err := tx.Model(&models.User{}).
				Where("id = ?", userID).
				Select("failed_attempts").
				Scan(&attempts).Error; err != nil {
				return err
			}
			if attempts < p.threshold {
				return nil
			}

			locked = true
			return tx.Model(&models.User{}).
				Where("id = ? AND (locked_until IS NULL OR locked_until <= ?)", userID, now).
				Update("locked_until", now.Add(p.duration)).Error
		})
	})
	if err != nil {
		return fmt.Errorf("local provider: update failed attempts: %w", err)
	}

	if locked {
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

func (p *LocalProvider) query(ctx context.Context, fn func(context.Context) error) error {
	return auth.RunQuery(ctx, p.timeout, fn)
}
