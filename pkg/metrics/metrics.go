package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessDecisions counts gate outcomes per resolved state and decision.
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_access_decisions_total",
			Help: "Access gate decisions by state and outcome",
		},
		[]string{"state", "decision"},
	)

	// InviteOperations counts invite ledger operations (issue|redeem|delete) by result.
	InviteOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_invite_operations_total",
			Help: "Invite ledger operations by result",
		},
		[]string{"operation", "result"},
	)

	// ExtensionReviews counts reviewed extension requests by decision and result.
	ExtensionReviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_extension_reviews_total",
			Help: "Extension request reviews by decision and result",
		},
		[]string{"decision", "result"},
	)

	// InconsistentStates counts partial multi-write failures that require operator attention.
	InconsistentStates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_inconsistent_states_total",
			Help: "Number of detected partially applied multi-write operations",
		},
	)

	// StoreRetries counts read retries triggered by store timeouts.
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_store_retries_total",
			Help: "Store call retries after a timeout",
		},
		[]string{"operation"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
