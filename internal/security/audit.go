package security

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/app"
	iauth "github.com/charlesng35/folio/internal/auth"
	"github.com/charlesng35/folio/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	minSecretBytes         = 32
	recommendedSecretBytes = 48
	maxRefreshTTL          = 30 * 24 * time.Hour
	maxInviteTTL           = 30 * 24 * time.Hour
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService reviews the deployment settings that protect the gated
// portfolio: the owner account, token signing, session lifetime, invite
// lifetime and login throttling.
type AuditService struct {
	db  *gorm.DB
	jwt *iauth.JWTService
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditService(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		jwt: jwt,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkAdminAccount(ctx),
		s.checkJWTSecret(),
		s.checkSessionTTL(),
		s.checkInviteTTL(),
		s.checkLoginThrottle(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func configMissing(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded; unable to evaluate this setting.",
		Remediation: "Load configuration before running the security audit.",
	}
}

func (s *AuditService) checkAdminAccount(ctx context.Context) Check {
	const id = "admin_account"
	if s.db == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Database unavailable; unable to confirm the administrator account.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = ?", true).
		Count(&count).Error; err != nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count administrators: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	switch {
	case count == 0:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No administrator account exists.",
			Remediation: "Complete first-run setup or set FOLIO_BOOTSTRAP_ADMIN_EMAIL and FOLIO_BOOTSTRAP_ADMIN_PASSWORD.",
		}
	case count > 1:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d administrator accounts exist; the portfolio expects a single owner.", count),
			Remediation: "Remove administrator rights from accounts that are not the portfolio owner.",
			Details:     map[string]any{"count": count},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: "Administrator account present.",
		}
	}
}

func (s *AuditService) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if s.jwt == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "JWT service not initialised; unable to assess signing secret strength.",
			Remediation: "Initialise the JWT service with a strong secret.",
		}
	}

	length := s.jwt.SecretLength()
	switch {
	case length < minSecretBytes:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: fmt.Sprintf("Use a randomly generated secret of at least %d bytes.", minSecretBytes),
			Details:     map[string]any{"length": length},
		}
	case length < recommendedSecretBytes:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to %d+ bytes.", length, recommendedSecretBytes),
			Remediation: fmt.Sprintf("Increase the length of FOLIO_AUTH_JWT_SECRET to at least %d bytes.", recommendedSecretBytes),
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkSessionTTL() Check {
	const id = "session_refresh_ttl"
	if s.cfg == nil {
		return configMissing(id)
	}

	ttl := s.cfg.Auth.Session.RefreshTTL
	switch {
	case ttl <= 0:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Refresh token TTL is not configured; using default duration.",
			Remediation: "Set FOLIO_AUTH_SESSION_REFRESH_TOKEN_TTL to control session lifetime.",
		}
	case ttl > maxRefreshTTL:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Refresh token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRefreshTTL),
			Remediation: "Reduce refresh token TTL to 30 days or lower.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("Refresh token TTL is %s.", ttl),
			Details: map[string]any{"ttl": ttl.String()},
		}
	}
}

func (s *AuditService) checkInviteTTL() Check {
	const id = "invite_ttl"
	if s.cfg == nil {
		return configMissing(id)
	}

	ttl := s.cfg.Access.InviteTTL
	if ttl > maxInviteTTL {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Invites stay redeemable for %s; a leaked link remains usable for that long.", ttl),
			Remediation: "Lower FOLIO_ACCESS_INVITE_TTL to 30 days or less.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Invites expire after %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *AuditService) checkLoginThrottle() Check {
	const id = "login_rate_limit"
	if s.cfg == nil {
		return configMissing(id)
	}

	limit := s.cfg.RateLimit
	if !limit.Enabled {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Login, registration and invite validation are not rate limited.",
			Remediation: "Set FOLIO_RATELIMIT_ENABLED=true.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Credential endpoints allow %d requests per %s per client.", limit.Requests, limit.Window),
		Details: map[string]any{"requests": limit.Requests, "window": limit.Window.String()},
	}
}
