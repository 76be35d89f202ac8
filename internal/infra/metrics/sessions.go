// File: internal/infra/metrics/sessions.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	openSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversation_sessions_open",
			Help: "Conversation sessions currently open across all chats.",
		},
	)

	reminderSweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sweep_sends_total",
			Help: "Reminder/digest sends by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	register(openSessions, reminderSweeps)
}

func SessionOpened()  { openSessions.Inc() }
func SessionClosed()  { openSessions.Dec() }
func ObserveReminder(kind string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	reminderSweeps.WithLabelValues(kind, outcome).Inc()
}
