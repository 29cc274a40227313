package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Reservation attempts by package tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	casConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_cas_conflicts_total",
			Help: "Ledger compare-and-swap conflicts during seat reservation",
		},
	)

	codeCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_code_collisions_total",
			Help: "Exam code candidates rejected by the uniqueness constraint",
		},
	)

	breakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breaker_transitions_total",
			Help: "Circuit breaker state transitions per endpoint",
		},
		[]string{"endpoint", "state"},
	)

	fallbackServesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_fallback_serves_total",
			Help: "Status reads answered from the fallback snapshot per endpoint",
		},
		[]string{"endpoint"},
	)
)

func TrackReservation(tier, outcome string) {
	reservationsTotal.WithLabelValues(tier, outcome).Inc()
}

func TrackCASConflict() {
	casConflictsTotal.Inc()
}

func TrackCodeCollision() {
	codeCollisionsTotal.Inc()
}

func TrackBreakerTransition(endpoint, state string) {
	breakerTransitionsTotal.WithLabelValues(endpoint, state).Inc()
}

func TrackFallbackServe(endpoint string) {
	fallbackServesTotal.WithLabelValues(endpoint).Inc()
}
