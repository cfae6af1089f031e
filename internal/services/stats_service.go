package services

import (
	"context"
	"errors"
	"time"
)

// DashboardStats are the counters shown on the admin dashboard.
type DashboardStats struct {
	TotalCompanies    int64 `json:"total_companies"`
	ActiveCompanies   int64 `json:"active_companies"`
	PendingExtensions int64 `json:"pending_extensions"`
	TotalInvites      int64 `json:"total_invites"`
	UsedInvites       int64 `json:"used_invites"`
	RecentActivity    int64 `json:"recent_activity"`
}

// StatsService aggregates dashboard counters from the other services.
type StatsService struct {
	users      *UserService
	invites    *InviteService
	extensions *ExtensionService
	activity   *ActivityService
}

// NewStatsService constructs a StatsService.
func NewStatsService(users *UserService, invites *InviteService, extensions *ExtensionService, activity *ActivityService) (*StatsService, error) {
	if users == nil || invites == nil || extensions == nil || activity == nil {
		return nil, errors.New("stats service: all dependencies are required")
	}
	return &StatsService{
		users:      users,
		invites:    invites,
		extensions: extensions,
		activity:   activity,
	}, nil
}

// Dashboard collects the current counters. Recent activity covers the last 24 hours.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)

	if stats.TotalCompanies, stats.ActiveCompanies, err = s.users.CompanyCounts(ctx); err != nil {
		return nil, err
	}
	if stats.PendingExtensions, err = s.extensions.PendingCount(ctx); err != nil {
		return nil, err
	}
	if stats.TotalInvites, stats.UsedInvites, err = s.invites.Counts(ctx); err != nil {
		return nil, err
	}
	if stats.RecentActivity, err = s.activity.CountSince(ctx, s.activity.now().Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	return &stats, nil
}
