package models

import "time"

// Session backs a signed-in client. Access tokens carry the session ID and
// stop being accepted once RevokedAt is set.
type Session struct {
	BaseModel

	UserID       string     `gorm:"size:36;not null;index" json:"user_id"`
	RefreshToken string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	IPAddress    string     `gorm:"size:64" json:"ip_address"`
	UserAgent    string     `gorm:"size:512" json:"user_agent"`
	ExpiresAt    time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt   time.Time  `json:"last_used_at"`
	RevokedAt    *time.Time `json:"revoked_at"`
}

// ActiveAt reports whether the session is usable at now.
func (s *Session) ActiveAt(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
