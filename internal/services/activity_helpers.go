package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/folio/internal/models"
	"github.com/charlesng35/folio/pkg/logger"
)

// recordActivity logs the supplied entry while tolerating activity failures.
// It must be called after any surrounding transaction has committed.
func recordActivity(activity *ActivityService, ctx context.Context, entry ActivityEntry) {
	if activity == nil {
		return
	}
	if err := activity.Log(ctx, entry); err != nil {
		logger.WithModule("activity").Warn("failed to record activity",
			zap.String("type", string(entry.Type)),
			zap.Error(err),
		)
	}
}

func activityFor(kind models.ActivityType, userID string, details string, metadata map[string]any) ActivityEntry {
	entry := ActivityEntry{
		Type:     kind,
		Details:  details,
		Metadata: metadata,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	return entry
}
