// Package access computes a user's access window and the routing decision that
// follows from it. Everything here is pure: callers pass the current time and
// re-evaluate on every request.
package access

import (
	"math"
	"time"
)

const (
	// Unlimited is reported as DaysRemaining when a user has no expiry.
	Unlimited = -1

	// DefaultWarningDays is the threshold at which the expiry banner is shown.
	DefaultWarningDays = 7

	day = 24 * time.Hour
)

// Window summarises an access-expiry timestamp relative to now.
type Window struct {
	ExpiresAt     *time.Time `json:"access_expires_at"`
	IsExpired     bool       `json:"is_expired"`
	DaysRemaining int        `json:"days_remaining"`
	ShowWarning   bool       `json:"show_warning"`
}

// IsExpired reports whether expiresAt lies strictly before now. A nil expiry never expires.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return expiresAt.Before(now)
}

// DaysRemaining returns ceil((expiresAt-now)/24h) clamped at zero, or Unlimited for a nil expiry.
func DaysRemaining(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return Unlimited
	}
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(day)))
}

// Evaluate computes the full Window using DefaultWarningDays.
func Evaluate(expiresAt *time.Time, now time.Time) Window {
	return EvaluateWithWarning(expiresAt, now, DefaultWarningDays)
}

// EvaluateWithWarning computes the Window with a custom banner threshold.
func EvaluateWithWarning(expiresAt *time.Time, now time.Time, warningDays int) Window {
	w := Window{
		ExpiresAt:     expiresAt,
		IsExpired:     IsExpired(expiresAt, now),
		DaysRemaining: DaysRemaining(expiresAt, now),
	}
	w.ShowWarning = expiresAt != nil && !w.IsExpired && w.DaysRemaining <= warningDays
	return w
}
