// Package metrics provides Prometheus metrics for the session lifecycle and the backend client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fahndung"

var (
	// SessionChecksTotal counts session checks by outcome.
	SessionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_checks_total",
			Help:      "Total number of session checks by result",
		},
		[]string{"result"},
	)

	// SessionPollsTotal counts background session validations.
	SessionPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_polls_total",
			Help:      "Total number of background session validations by result",
		},
		[]string{"trigger", "result"},
	)

	// SessionRefreshesTotal counts proactive token refreshes.
	SessionRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_refreshes_total",
			Help:      "Total number of proactive token refreshes by result",
		},
		[]string{"result"},
	)

	// ForcedLogoutsTotal counts logouts forced by the error triage.
	ForcedLogoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_logouts_total",
			Help:      "Total number of logouts forced by sustained auth failures",
		},
		[]string{"reason"},
	)

	// ActiveVisitors tracks the number of visitors held in memory.
	ActiveVisitors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_visitors",
			Help:      "Number of visitors with a live session store",
		},
	)

	// BackendRequestDuration measures calls to the identity and profile backend.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of backend requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "outcome"},
	)
)
