package models

import "time"

// ExtensionStatus enumerates the lifecycle states of an extension request.
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "pending"
	ExtensionStatusApproved ExtensionStatus = "approved"
	ExtensionStatusDenied   ExtensionStatus = "denied"
)

// Valid reports whether s is a known status.
func (s ExtensionStatus) Valid() bool {
	switch s {
	case ExtensionStatusPending, ExtensionStatusApproved, ExtensionStatusDenied:
		return true
	default:
		return false
	}
}

// ExtensionRequest records a company's petition for more access time.
//
// PendingUserID mirrors UserID while the request is pending and is cleared on
// review. Its unique index allows at most one pending request per user; NULLs
// do not collide on sqlite, postgres or mysql.
type ExtensionRequest struct {
	BaseModel

	UserID        string          `gorm:"size:36;not null;index" json:"user_id"`
	CompanyName   string          `gorm:"size:255" json:"company_name"`
	Reason        string          `gorm:"type:text;not null" json:"reason"`
	Status        ExtensionStatus `gorm:"size:16;not null;index" json:"status"`
	PendingUserID *string         `gorm:"size:36;uniqueIndex:idx_extension_requests_pending_user" json:"-"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy    *string         `gorm:"size:36" json:"reviewed_by,omitempty"`
}
