package database

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
)

// DefaultTheme is written on first start so the login page can render before
// the owner has customised anything.
var DefaultTheme = map[string]any{
	"background_color": "#0a0a0a",
	"background_image": "",
	"font_family":      "Inter",
	"text_color":       "#ffffff",
	"nav_color":        "#1a1a1a",
	"heading_color":    "#ffffff",
	"heading_size":     "2rem",
	"heading_font":     "Inter",
	"body_text_font":   "Inter",
	"body_text_color":  "#e5e5e5",
	"body_text_size":   "1rem",
	"button_color":     "#3b82f6",
}

// DefaultContent is the empty portfolio document.
var DefaultContent = map[string]any{
	"about_title":       "",
	"about_intro":       "",
	"about_description": "",
	"tech_stack":        []string{},
	"github_url":        "",
	"linkedin_url":      "",
	"email":             "",
	"projects":          []any{},
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.InviteToken{},
		&models.ExtensionRequest{},
		&models.ActivityLog{},
		&models.Session{},
		&models.SiteSetting{},
		&models.CacheEntry{},
	)
}

// SeedData inserts the default site settings when they are absent. Existing
// values are never overwritten.
func SeedData(db *gorm.DB) error {
	defaults := map[string]map[string]any{
		models.SiteSettingTheme:   DefaultTheme,
		models.SiteSettingContent: DefaultContent,
	}

	for key, value := range defaults {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode default %s: %w", key, err)
		}

		setting := models.SiteSetting{Key: key, Value: datatypes.JSON(raw)}
		if err := db.Where(models.SiteSetting{Key: key}).Attrs(setting).FirstOrCreate(&models.SiteSetting{}).Error; err != nil {
			return err
		}
	}

	return nil
}
