// Package metrics holds the prometheus collectors shared by the services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roomhold"

// Outcome labels.
const (
	OutcomeCreated      = "created"
	OutcomeConfirmed    = "confirmed"
	OutcomeRejected     = "rejected"
	OutcomeContended    = "contended"
	OutcomeExpired      = "expired"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
	ReasonCanceled      = "canceled"
	ReasonExpired       = "expired"
	ReasonLazilyExpired = "lazy_expired"
)

var (
	HoldRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hold_requests_total",
		Help:      "Hold creation attempts by outcome.",
	}, []string{"outcome"})

	BookingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_requests_total",
		Help:      "Booking confirmation attempts by outcome.",
	}, []string{"outcome"})

	HoldsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "holds_released_total",
		Help:      "Holds whose tentative counts were returned, by reason.",
	}, []string{"reason"})

	InvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invariant_violations_total",
		Help:      "Inventory days observed with booked + tentative above allotment.",
	})

	GateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gate_duration_seconds",
		Help:      "Time spent inside inventory transactions, including lock waits.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"operation"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Expiry sweeper passes by result.",
	}, []string{"result"})
)
