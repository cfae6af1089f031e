package models

import "time"

// User is either the portfolio owner (IsAdmin) or an invited company.
// AccessExpiresAt nil means the account has no access window.
type User struct {
	BaseModel

	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	CompanyName   string `gorm:"size:255;not null" json:"company_name"`
	ContactPerson string `gorm:"size:255" json:"contact_person"`

	IsAdmin         bool       `gorm:"not null;index" json:"is_admin"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	AccessExpiresAt *time.Time `gorm:"index" json:"access_expires_at"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `gorm:"size:64" json:"-"`

	FailedAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
}
