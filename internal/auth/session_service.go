package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/crypto"
	"github.com/charlesng35/folio/pkg/metrics"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	QueryTimeout    time.Duration
	Clock           func() time.Time
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

var (
	// ErrSessionNotFound indicates that no session matches the provided token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session that has been revoked by logout or registration.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a session has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned when the supplied refresh token is malformed.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

// SessionService manages creation, rotation, and revocation of user sessions.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	timeout    time.Duration
	now        func() time.Time
}

// NewSessionService constructs a session manager backed by the provided database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	length := cfg.RefreshLength
	if length <= 0 {
		length = 48
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		tokenLen:   length,
		timeout:    cfg.QueryTimeout,
		now:        clock,
	}, nil
}

// CreateSession persists a new session for user and issues a fresh token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *models.User, meta SessionMetadata) (TokenPair, *models.Session, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return TokenPair{}, nil, errors.New("session service: user is required")
	}

	refreshToken, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now().UTC()

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		IPAddress:    strings.TrimSpace(meta.IPAddress),
		UserAgent:    truncate(strings.TrimSpace(meta.UserAgent), 512),
		ExpiresAt:    now.Add(s.refreshTTL),
		LastUsedAt:   now,
	}

	err = s.query(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(session).Error
	})
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	pair, err := s.issue(user.ID, session.ID, user.IsAdmin, refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, session, nil
}

// ValidateSession returns the session when it exists, is not revoked and has not expired.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	err := s.query(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("id = ?", sessionID).Take(&session).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	if err := sessionState(&session, s.now()); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession rotates the refresh token and issues a new access token. A
// refresh token can be exchanged once; replaying it yields ErrSessionNotFound.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, *models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}

	var session models.Session
	err := s.query(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&session).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: find session: %w", err)
	}

	now := s.now().UTC()
	if err := sessionState(&session, now); err != nil {
		return TokenPair{}, nil, err
	}

	var user models.User
	err = s.query(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Select("id", "is_admin").Where("id = ?", session.UserID).Take(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, nil, ErrSessionNotFound
		}
		return TokenPair{}, nil, fmt.Errorf("session service: load user: %w", err)
	}

	newRefresh, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	expiresAt := now.Add(s.refreshTTL)
	var rotated int64
	err = s.query(ctx, func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("id = ? AND refresh_token = ? AND revoked_at IS NULL", session.ID, refreshToken).
			Updates(map[string]any{
				"refresh_token": newRefresh,
				"expires_at":    expiresAt,
				"last_used_at":  now,
			})
		rotated = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: update session: %w", err)
	}
	if rotated == 0 {
		return TokenPair{}, nil, ErrSessionNotFound
	}

	session.RefreshToken = newRefresh
	session.ExpiresAt = expiresAt
	session.LastUsedAt = now

	pair, err := s.issue(session.UserID, session.ID, user.IsAdmin, newRefresh)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, &session, nil
}

// RevokeSession marks a session as revoked, preventing further use of its tokens.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	var revoked int64
	err := s.query(ctx, func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("id = ? AND revoked_at IS NULL", sessionID).
			Update("revoked_at", s.now().UTC())
		revoked = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("session service: revoke session: %w", err)
	}
	if revoked == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(revoked))
	return nil
}

// CleanupExpired removes expired and revoked sessions and updates active session metrics accordingly.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now().UTC()

	var activeExpired int64
	err := s.query(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("expires_at < ? AND revoked_at IS NULL", now).
			Count(&activeExpired).Error
	})
	if err != nil {
		return 0, fmt.Errorf("session service: count expired sessions: %w", err)
	}

	var removed int64
	err = s.query(ctx, func(ctx context.Context) error {
		result := s.db.WithContext(ctx).
			Where("expires_at < ?", now).
			Or("revoked_at IS NOT NULL").
			Delete(&models.Session{})
		removed = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", err)
	}

	if activeExpired > 0 {
		metrics.ActiveSessions.Sub(float64(activeExpired))
	}

	return removed, nil
}

func (s *SessionService) query(ctx context.Context, fn func(context.Context) error) error {
	return RunQuery(ctx, s.timeout, fn)
}

func (s *SessionService) issue(userID, sessionID string, admin bool, refreshToken string) (TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    userID,
		SessionID: sessionID,
		Admin:     admin,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate access token: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwt.TTL().Seconds()),
	}, nil
}

func sessionState(session *models.Session, now time.Time) error {
	if session.RevokedAt != nil {
		return ErrSessionRevoked
	}
	if !session.ExpiresAt.After(now) {
		return ErrSessionExpired
	}
	return nil
}

// truncate caps value at limit bytes without splitting a rune.
func truncate(value string, limit int) string {
	value = strings.ToValidUTF8(value, "")
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
