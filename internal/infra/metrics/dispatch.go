// File: internal/infra/metrics/dispatch.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_sends_total",
			Help: "Dispatch fan-out sends by audience and outcome.",
		},
		[]string{"audience", "outcome"},
	)

	dispatchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Dispatch invocations by audience.",
		},
		[]string{"audience"},
	)
)

func init() {
	register(dispatchSends, dispatchRuns)
}

func ObserveDispatch(audience string, succeeded, failed int) {
	dispatchRuns.WithLabelValues(audience).Inc()
	dispatchSends.WithLabelValues(audience, "ok").Add(float64(succeeded))
	dispatchSends.WithLabelValues(audience, "error").Add(float64(failed))
}
