package models

import (
	"time"

	"gorm.io/datatypes"
)

// Site setting keys.
const (
	SiteSettingContent = "content"
	SiteSettingTheme   = "theme"
)

// SiteSetting persists an opaque JSON document edited through the admin CMS.
type SiteSetting struct {
	Key       string         `gorm:"primaryKey;size:64" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	UpdatedBy *string        `gorm:"size:36" json:"updated_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
