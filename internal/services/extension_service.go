package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/folio/internal/models"
	apperrors "github.com/charlesng35/folio/pkg/errors"
	"github.com/charlesng35/folio/pkg/logger"
	"github.com/charlesng35/folio/pkg/metrics"
)

const (
	defaultExtensionGrant     = 30 * 24 * time.Hour
	defaultMinReasonLength    = 10
	inconsistencyTolerance    = time.Minute
	extensionLoggerModuleName = "extensions"
)

// ExtensionOption customises ExtensionService behaviour.
type ExtensionOption func(*ExtensionService)

// WithExtensionClock injects a custom clock primarily for testing.
func WithExtensionClock(clock func() time.Time) ExtensionOption {
	return func(s *ExtensionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithExtensionGrant overrides how much access an approval grants from the review time.
func WithExtensionGrant(d time.Duration) ExtensionOption {
	return func(s *ExtensionService) {
		if d > 0 {
			s.grant = d
		}
	}
}

// WithMinReasonLength overrides the minimum reason length in characters.
func WithMinReasonLength(n int) ExtensionOption {
	return func(s *ExtensionService) {
		if n > 0 {
			s.minReason = n
		}
	}
}

// WithExtensionStorePolicy overrides store timeouts and read retries.
func WithExtensionStorePolicy(policy StorePolicy) ExtensionOption {
	return func(s *ExtensionService) {
		s.store = policy.normalised()
	}
}

// Inconsistency is an approved request whose grant is not reflected on the user.
type Inconsistency struct {
	Request         models.ExtensionRequest `json:"request"`
	UserMissing     bool                    `json:"user_missing"`
	AccessExpiresAt *time.Time              `json:"access_expires_at"`
	ExpectedAtLeast time.Time               `json:"expected_at_least"`
}

// ExtensionService runs the extension request workflow: submission by a
// company and approval or denial by the admin.
type ExtensionService struct {
	db        *gorm.DB
	activity  *ActivityService
	grant     time.Duration
	minReason int
	now       func() time.Time
	store     StorePolicy
	log       *zap.Logger
}

// NewExtensionService constructs an ExtensionService.
func NewExtensionService(db *gorm.DB, activity *ActivityService, opts ...ExtensionOption) (*ExtensionService, error) {
	if db == nil {
		return nil, errors.New("extension service: db is required")
	}

	svc := &ExtensionService{
		db:        db,
		activity:  activity,
		grant:     defaultExtensionGrant,
		minReason: defaultMinReasonLength,
		now:       time.Now,
		store:     DefaultStorePolicy(),
		log:       logger.WithModule(extensionLoggerModuleName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit files a pending request for userID. A user holds at most one
// pending request; the unique pending index settles concurrent submissions.
func (s *ExtensionService) Submit(ctx context.Context, userID, reason string) (*models.ExtensionRequest, error) {
	userID = strings.TrimSpace(userID)
	reason = strings.TrimSpace(reason)
	if runeLen(reason) < s.minReason {
		return nil, ErrReasonTooShort.WithMessage(
			fmt.Sprintf("Please provide a reason of at least %d characters", s.minReason))
	}

	var user models.User
	err := s.store.read(ctx, "extensions.submit_user", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("extension service: load user: %w", err)
	}
	if user.IsAdmin {
		return nil, ErrAdminNotAllowed
	}

	pending, err := s.HasPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrExtensionAlreadyPending
	}

	request := models.ExtensionRequest{
		BaseModel:     models.BaseModel{CreatedAt: s.now().UTC()},
		UserID:        user.ID,
		CompanyName:   user.CompanyName,
		Reason:        reason,
		Status:        models.ExtensionStatusPending,
		PendingUserID: &user.ID,
	}

	err = s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(&request).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrExtensionAlreadyPending
		}
		return nil, fmt.Errorf("extension service: create request: %w", err)
	}

	recordActivity(s.activity, ctx, activityFor(models.ActivityExtensionRequested, user.ID,
		fmt.Sprintf("%s requested an extension", user.CompanyName),
		map[string]any{"request_id": request.ID},
	))

	return &request, nil
}

// HasPending reports whether userID has a request awaiting review.
func (s *ExtensionService) HasPending(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.store.read(ctx, "extensions.pending_count", func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Model(&models.ExtensionRequest{}).
			Where("user_id = ? AND status = ?", userID, models.ExtensionStatusPending).
			Count(&count).Error
	})
	if err != nil {
		return false, fmt.Errorf("extension service: count pending: %w", err)
	}
	return count > 0, nil
}

// Review approves or denies a pending request. Approval sets the user's
// expiry to now plus the grant and reactivates the account in the same
// transaction as the status change.
func (s *ExtensionService) Review(ctx context.Context, requestID, adminID string, decision models.ExtensionStatus) (*models.ExtensionRequest, error) {
	requestID = strings.TrimSpace(requestID)
	adminID = strings.TrimSpace(adminID)
	if decision != models.ExtensionStatusApproved && decision != models.ExtensionStatusDenied {
		return nil, ErrInvalidDecision
	}
	if requestID == "" {
		return nil, ErrExtensionNotFound
	}

	now := s.now().UTC()
	var (
		request  models.ExtensionRequest
		grantErr error
	)

	err := s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.ExtensionRequest{}).
				Where("id = ? AND status = ?", requestID, models.ExtensionStatusPending).
				Updates(map[string]any{
					"status":          decision,
					"reviewed_at":     now,
					"reviewed_by":     adminID,
					"pending_user_id": nil,
				})
			if result.Error != nil {
				return result.Error
			}

			if err := tx.Where("id = ?", requestID).Take(&request).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrExtensionNotFound
				}
				return err
			}
			if result.RowsAffected == 0 {
				return ErrExtensionAlreadyReviewed
			}

			if decision != models.ExtensionStatusApproved {
				return nil
			}

			grant := tx.Model(&models.User{}).
				Where("id = ? AND is_admin = ?", request.UserID, false).
				Updates(map[string]any{
					"access_expires_at": now.Add(s.grant),
					"is_active":         true,
				})
			switch {
			case grant.Error != nil:
				grantErr = grant.Error
			case grant.RowsAffected == 0:
				grantErr = ErrUserNotFound
			}
			if grantErr != nil {
				return apperrors.ErrInconsistent.WithInternal(grantErr)
			}
			return nil
		})
	})

	if err != nil {
		s.observeReview(decision, err)
		if grantErr != nil {
			metrics.InconsistentStates.Inc()
			s.log.Error("extension approval could not be applied to the user; review rolled back",
				zap.String("request_id", requestID),
				zap.String("user_id", request.UserID),
				zap.String("admin_id", adminID),
				zap.Error(grantErr),
			)
			return nil, apperrors.ErrInconsistent.WithInternal(grantErr)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("extension service: review: %w", err)
	}
	s.observeReview(decision, nil)

	recordActivity(s.activity, ctx, activityFor(models.ActivityExtensionReviewed, adminID,
		fmt.Sprintf("Extension for %s %s", request.CompanyName, decision),
		map[string]any{"request_id": request.ID, "user_id": request.UserID, "decision": string(decision)},
	))

	return &request, nil
}

func (s *ExtensionService) observeReview(decision models.ExtensionStatus, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrExtensionAlreadyReviewed):
		result = "already_reviewed"
	case errors.Is(err, ErrExtensionNotFound):
		result = "not_found"
	case errors.Is(err, apperrors.ErrInconsistent):
		result = "inconsistent"
	default:
		result = "error"
	}
	metrics.ExtensionReviews.WithLabelValues(string(decision), result).Inc()
}

// ListPending returns requests awaiting review, newest first.
func (s *ExtensionService) ListPending(ctx context.Context) ([]models.ExtensionRequest, error) {
	return s.list(ctx, "extensions.list_pending", func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", models.ExtensionStatusPending).Order("created_at DESC")
	})
}

// ListReviewed returns approved and denied requests, most recently reviewed first.
func (s *ExtensionService) ListReviewed(ctx context.Context) ([]models.ExtensionRequest, error) {
	return s.list(ctx, "extensions.list_reviewed", func(q *gorm.DB) *gorm.DB {
		return q.Where("status <> ?", models.ExtensionStatusPending).Order("reviewed_at DESC")
	})
}

// ListForUser returns a company's own requests, newest first.
func (s *ExtensionService) ListForUser(ctx context.Context, userID string) ([]models.ExtensionRequest, error) {
	return s.list(ctx, "extensions.list_user", func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", strings.TrimSpace(userID)).Order("created_at DESC")
	})
}

// PendingCount returns the number of requests awaiting review.
func (s *ExtensionService) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.store.read(ctx, "extensions.count", func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Model(&models.ExtensionRequest{}).
			Where("status = ?", models.ExtensionStatusPending).
			Count(&count).Error
	})
	if err != nil {
		return 0, fmt.Errorf("extension service: count pending: %w", err)
	}
	return count, nil
}

func (s *ExtensionService) list(ctx context.Context, operation string, scope func(*gorm.DB) *gorm.DB) ([]models.ExtensionRequest, error) {
	var requests []models.ExtensionRequest
	err := s.store.read(ctx, operation, func(ctx context.Context) error {
		requests = requests[:0]
		return scope(s.db.WithContext(ctx).Model(&models.ExtensionRequest{})).Find(&requests).Error
	})
	if err != nil {
		return nil, fmt.Errorf("extension service: list requests: %w", err)
	}
	return requests, nil
}

// FindInconsistencies reports approved requests whose user is missing or
// whose expiry falls short of the grant measured from the review time.
func (s *ExtensionService) FindInconsistencies(ctx context.Context) ([]Inconsistency, error) {
	var (
		approved []models.ExtensionRequest
		users    []models.User
	)
	err := s.store.read(ctx, "extensions.inconsistencies", func(ctx context.Context) error {
		approved = approved[:0]
		if err := s.db.WithContext(ctx).
			Where("status = ?", models.ExtensionStatusApproved).
			Order("reviewed_at DESC").
			Find(&approved).Error; err != nil {
			return err
		}
		if len(approved) == 0 {
			return nil
		}

		ids := make([]string, 0, len(approved))
		for _, request := range approved {
			ids = append(ids, request.UserID)
		}
		users = users[:0]
		return s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	})
	if err != nil {
		return nil, fmt.Errorf("extension service: find inconsistencies: %w", err)
	}

	byID := make(map[string]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	var out []Inconsistency
	for _, request := range approved {
		if finding, ok := s.check(request, byID); ok {
			out = append(out, finding)
		}
	}
	return out, nil
}

func (s *ExtensionService) check(request models.ExtensionRequest, users map[string]models.User) (Inconsistency, bool) {
	var expected time.Time
	if request.ReviewedAt != nil {
		expected = request.ReviewedAt.Add(s.grant)
	}
	finding := Inconsistency{Request: request, ExpectedAtLeast: expected}

	user, ok := users[request.UserID]
	if !ok {
		finding.UserMissing = true
		return finding, true
	}
	finding.AccessExpiresAt = user.AccessExpiresAt
	if user.AccessExpiresAt == nil || user.AccessExpiresAt.Before(expected.Add(-inconsistencyTolerance)) {
		return finding, true
	}
	return finding, false
}

// Reconcile re-applies the grant of an approved request that was not
// reflected on the user, setting the expiry to now plus the grant.
func (s *ExtensionService) Reconcile(ctx context.Context, requestID, adminID string) (*models.User, error) {
	requestID = strings.TrimSpace(requestID)
	now := s.now().UTC()

	var user models.User
	err := s.store.write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var request models.ExtensionRequest
			if err := tx.Where("id = ? AND status = ?", requestID, models.ExtensionStatusApproved).Take(&request).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrExtensionNotFound
				}
				return err
			}

			if err := tx.Where("id = ?", request.UserID).Take(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			if _, inconsistent := s.check(request, map[string]models.User{user.ID: user}); !inconsistent {
				return ErrNothingToReconcile
			}

			expires := now.Add(s.grant)
			if err := tx.Model(&models.User{}).
				Where("id = ?", user.ID).
				Updates(map[string]any{"access_expires_at": expires, "is_active": true}).Error; err != nil {
				return err
			}
			user.AccessExpiresAt = &expires
			user.IsActive = true
			return nil
		})
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("extension service: reconcile: %w", err)
	}

	s.log.Info("reconciled extension grant",
		zap.String("request_id", requestID),
		zap.String("user_id", user.ID),
		zap.String("admin_id", strings.TrimSpace(adminID)),
	)
	return &user, nil
}
