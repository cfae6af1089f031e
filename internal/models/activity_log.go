package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType enumerates the domain events written to the activity log.
type ActivityType string

const (
	ActivityLogin              ActivityType = "login"
	ActivityRegistration       ActivityType = "registration"
	ActivityInviteCreated      ActivityType = "invite_created"
	ActivityInviteUsed         ActivityType = "invite_used"
	ActivityExtensionRequested ActivityType = "extension_requested"
	ActivityExtensionReviewed  ActivityType = "extension_reviewed"
)

// ActivityLog is an append-only telemetry row. The auto-increment ID gives a
// total order that pruning relies on.
type ActivityLog struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      ActivityType   `gorm:"size:32;not null;index" json:"type"`
	UserID    *string        `gorm:"size:36;index" json:"user_id,omitempty"`
	Details   string         `gorm:"type:text" json:"details"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
