package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/auditctx"
	"github.com/charlesng35/folio/internal/models"
)

const defaultActivityRetention = 1000

// ActivityEntry captures a single activity event to persist.
type ActivityEntry struct {
	Type     models.ActivityType
	UserID   *string
	Details  string
	Metadata map[string]any
}

// ActivityListOptions controls pagination and filtering for activity queries.
type ActivityListOptions struct {
	Page     int
	PageSize int
	Type     models.ActivityType
}

// ActivityOption customises ActivityService behaviour.
type ActivityOption func(*ActivityService)

// WithActivityRetention caps the number of rows kept in the log.
func WithActivityRetention(limit int) ActivityOption {
	return func(s *ActivityService) {
		if limit > 0 {
			s.retention = limit
		}
	}
}

// WithActivityClock injects a custom clock primarily for testing.
func WithActivityClock(clock func() time.Time) ActivityOption {
	return func(s *ActivityService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithActivityStorePolicy overrides store timeouts and read retries.
func WithActivityStorePolicy(policy StorePolicy) ActivityOption {
	return func(s *ActivityService) {
		s.store = policy.normalised()
	}
}

// ActivityService appends to and reads the bounded activity log.
type ActivityService struct {
	db        *gorm.DB
	retention int
	now       func() time.Time
	store     StorePolicy
}

// NewActivityService constructs an ActivityService using the provided database handle.
func NewActivityService(db *gorm.DB, opts ...ActivityOption) (*ActivityService, error) {
	if db == nil {
		return nil, errors.New("activity service: db is required")
	}

	svc := &ActivityService{
		db:        db,
		retention: defaultActivityRetention,
		now:       time.Now,
		store:     DefaultStorePolicy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Log appends an entry and prunes everything beyond the newest retention rows.
func (s *ActivityService) Log(ctx context.Context, entry ActivityEntry) error {
	entryType := models.ActivityType(strings.TrimSpace(string(entry.Type)))
	if entryType == "" {
		return errors.New("activity service: type is required")
	}

	row := models.ActivityLog{
		Type:      entryType,
		Details:   strings.TrimSpace(entry.Details),
		CreatedAt: s.now().UTC(),
	}
	if entry.UserID != nil {
		row.UserID = stringPtr(*entry.UserID)
	}
	metadata := withActorMetadata(ctx, entry.Metadata)
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("activity service: marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(encoded)
	}

	err := s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("activity service: append: %w", err)
	}

	if _, err := s.prune(ctx); err != nil {
		return err
	}
	return nil
}

// withActorMetadata adds the request id and client address carried by ctx.
// Keys already set by the caller win.
func withActorMetadata(ctx context.Context, metadata map[string]any) map[string]any {
	actor, ok := auditctx.FromContext(ctx)
	if !ok {
		return metadata
	}

	out := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	if _, set := out["ip_address"]; !set && actor.IPAddress != "" {
		out["ip_address"] = actor.IPAddress
	}
	if _, set := out["request_id"]; !set && actor.RequestID != "" {
		out["request_id"] = actor.RequestID
	}
	return out
}

// prune deletes rows older than the newest retention entries. Concurrent
// appends may briefly leave a few extra rows; the next append removes them.
func (s *ActivityService) prune(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.store.write(ctx, func(ctx context.Context) error {
		var cutoff []uint64
		if err := s.db.WithContext(ctx).
			Model(&models.ActivityLog{}).
			Order("id DESC").
			Offset(s.retention).
			Limit(1).
			Pluck("id", &cutoff).Error; err != nil {
			return err
		}
		if len(cutoff) == 0 {
			return nil
		}

		result := s.db.WithContext(ctx).Where("id <= ?", cutoff[0]).Delete(&models.ActivityLog{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("activity service: prune: %w", err)
	}
	return deleted, nil
}

// List returns paginated activity ordered newest first.
func (s *ActivityService) List(ctx context.Context, opts ActivityListOptions) ([]models.ActivityLog, int64, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.ActivityLog
		total   int64
	)

	err := s.store.read(ctx, "activity.list", func(ctx context.Context) error {
		query := s.db.WithContext(ctx).Model(&models.ActivityLog{})
		if opts.Type != "" {
			query = query.Where("type = ?", opts.Type)
		}

		if err := query.Count(&total).Error; err != nil {
			return err
		}

		results = results[:0]
		return query.
			Order("id DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&results).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("activity service: list: %w", err)
	}

	return results, total, nil
}

// CountSince returns the number of entries created at or after since.
func (s *ActivityService) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.store.read(ctx, "activity.count", func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Model(&models.ActivityLog{}).
			Where("created_at >= ?", since.UTC()).
			Count(&count).Error
	})
	if err != nil {
		return 0, fmt.Errorf("activity service: count: %w", err)
	}
	return count, nil
}
