// File: internal/infra/metrics/assignments.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	claimOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_claim_outcomes_total",
			Help: "Claim attempts by outcome (accepted, capacity, already_assigned, state_conflict, lock_timeout, not_approved).",
		},
		[]string{"outcome"},
	)

	completions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "job_completions_total",
			Help: "Jobs moved to COMPLETED.",
		},
	)
)

func init() {
	register(claimOutcomes, completions)
}

func ObserveClaim(outcome string) { claimOutcomes.WithLabelValues(outcome).Inc() }
func ObserveCompletion()          { completions.Inc() }
