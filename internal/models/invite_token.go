package models

import "time"

// InviteToken is a single-use registration credential. Once Used is set the
// row is never modified again.
type InviteToken struct {
	BaseModel

	Token     string     `gorm:"size:128;uniqueIndex;not null" json:"token"`
	CreatedBy *string    `gorm:"size:36;index" json:"created_by,omitempty"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	Used      bool       `gorm:"not null;index" json:"is_used"`
	UsedBy    *string    `gorm:"size:36" json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// IsExpiredAt reports whether the invite can no longer be redeemed at now.
func (i *InviteToken) IsExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
