package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/database"
	"github.com/charlesng35/folio/internal/models"
)

// SiteDocument is a stored CMS document together with its last edit.
type SiteDocument struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
	UpdatedBy *string         `json:"updated_by,omitempty"`
}

// SiteOption customises SiteService behaviour.
type SiteOption func(*SiteService)

// WithSiteStorePolicy overrides store timeouts and read retries.
func WithSiteStorePolicy(policy StorePolicy) SiteOption {
	return func(s *SiteService) {
		s.store = policy.normalised()
	}
}

// SiteService reads and replaces the portfolio content and theme documents.
type SiteService struct {
	db    *gorm.DB
	store StorePolicy
}

// NewSiteService constructs a SiteService.
func NewSiteService(db *gorm.DB, opts ...SiteOption) (*SiteService, error) {
	if db == nil {
		return nil, errors.New("site service: db is required")
	}
	svc := &SiteService{db: db, store: DefaultStorePolicy()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Content returns the portfolio content document.
func (s *SiteService) Content(ctx context.Context) (*SiteDocument, error) {
	return s.get(ctx, models.SiteSettingContent, database.DefaultContent)
}

// Theme returns the theme document.
func (s *SiteService) Theme(ctx context.Context) (*SiteDocument, error) {
	return s.get(ctx, models.SiteSettingTheme, database.DefaultTheme)
}

// UpdateContent replaces the portfolio content document.
func (s *SiteService) UpdateContent(ctx context.Context, value json.RawMessage, updatedBy string) (*SiteDocument, error) {
	return s.put(ctx, models.SiteSettingContent, value, updatedBy)
}

// UpdateTheme replaces the theme document.
func (s *SiteService) UpdateTheme(ctx context.Context, value json.RawMessage, updatedBy string) (*SiteDocument, error) {
	return s.put(ctx, models.SiteSettingTheme, value, updatedBy)
}

func (s *SiteService) get(ctx context.Context, key string, fallback map[string]any) (*SiteDocument, error) {
	var (
		setting models.SiteSetting
		found   bool
	)
	err := s.store.read(ctx, "site.get", func(ctx context.Context) error {
		var err error
		setting, found, err = database.GetSiteSetting(ctx, s.db, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("site service: get %s: %w", key, err)
	}

	if !found {
		encoded, err := json.Marshal(fallback)
		if err != nil {
			return nil, fmt.Errorf("site service: encode default %s: %w", key, err)
		}
		return &SiteDocument{Key: key, Value: encoded}, nil
	}
	return documentFrom(setting), nil
}

func (s *SiteService) put(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*SiteDocument, error) {
	var setting models.SiteSetting
	err := s.store.write(ctx, func(ctx context.Context) error {
		var err error
		setting, err = database.UpsertSiteSetting(ctx, s.db, key, value, stringPtr(updatedBy))
		return err
	})
	if errors.Is(err, database.ErrInvalidSettingValue) {
		return nil, ErrInvalidSettingValue
	}
	if err != nil {
		return nil, fmt.Errorf("site service: update %s: %w", key, err)
	}
	return documentFrom(setting), nil
}

func documentFrom(setting models.SiteSetting) *SiteDocument {
	return &SiteDocument{
		Key:       setting.Key,
		Value:     json.RawMessage(setting.Value),
		UpdatedAt: setting.UpdatedAt,
		UpdatedBy: setting.UpdatedBy,
	}
}
