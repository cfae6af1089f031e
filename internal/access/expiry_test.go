package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestNilExpiryIsUnlimited(t *testing.T) {
	require.False(t, IsExpired(nil, now))
	require.Equal(t, Unlimited, DaysRemaining(nil, now))

	w := Evaluate(nil, now)
	require.False(t, w.IsExpired)
	require.Equal(t, -1, w.DaysRemaining)
	require.False(t, w.ShowWarning)
}

func TestDaysRemainingRoundsUp(t *testing.T) {
	cases := []struct {
		name string
		in   time.Duration
		want int
	}{
		{"one second left", time.Second, 1},
		{"exactly one day", 24 * time.Hour, 1},
		{"a day and a minute", 24*time.Hour + time.Minute, 2},
		{"thirty days", 30 * 24 * time.Hour, 30},
		{"at the instant", 0, 0},
		{"already passed", -48 * time.Hour, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DaysRemaining(at(tc.in), now))
		})
	}
}

func TestIsExpiredIsStrict(t *testing.T) {
	require.False(t, IsExpired(at(0), now))
	require.True(t, IsExpired(at(-time.Nanosecond), now))
	require.False(t, IsExpired(at(time.Hour), now))
}

func TestEvaluateWarningThreshold(t *testing.T) {
	require.True(t, Evaluate(at(7*24*time.Hour), now).ShowWarning)
	require.False(t, Evaluate(at(7*24*time.Hour+time.Minute), now).ShowWarning)
	require.False(t, Evaluate(at(-time.Hour), now).ShowWarning, "expired windows show the notice page, not the banner")

	w := EvaluateWithWarning(at(10*24*time.Hour), now, 14)
	require.True(t, w.ShowWarning)
	require.Equal(t, 10, w.DaysRemaining)
}
