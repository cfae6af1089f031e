package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/folio/internal/models"
)

// ErrInvalidSettingValue is returned when a setting value is not a JSON object.
var ErrInvalidSettingValue = errors.New("site settings: value must be a JSON object")

// GetSiteSetting retrieves a site setting by key. found is false when the key is absent.
func GetSiteSetting(ctx context.Context, db *gorm.DB, key string) (setting models.SiteSetting, found bool, err error) {
	if db == nil {
		return models.SiteSetting{}, false, fmt.Errorf("site settings: db is nil")
	}

	err = db.WithContext(ctx).Where(&models.SiteSetting{Key: key}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SiteSetting{}, false, nil
	}
	if err != nil {
		return models.SiteSetting{}, false, fmt.Errorf("site settings: get %q: %w", key, err)
	}
	return setting, true, nil
}

// UpsertSiteSetting replaces the JSON document stored under key. The value must
// decode to a JSON object; anything else is rejected before touching the store.
func UpsertSiteSetting(ctx context.Context, db *gorm.DB, key string, value json.RawMessage, updatedBy *string) (models.SiteSetting, error) {
	if db == nil {
		return models.SiteSetting{}, fmt.Errorf("site settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return models.SiteSetting{}, fmt.Errorf("site settings: key is required")
	}

	var probe map[string]any
	if err := json.Unmarshal(value, &probe); err != nil || probe == nil {
		return models.SiteSetting{}, ErrInvalidSettingValue
	}

	record := models.SiteSetting{
		Key:       key,
		Value:     datatypes.JSON(value),
		UpdatedBy: updatedBy,
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return models.SiteSetting{}, fmt.Errorf("site settings: upsert %q: %w", key, err)
	}

	return record, nil
}
