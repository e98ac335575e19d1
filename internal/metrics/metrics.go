// Package metrics holds the Prometheus collectors for the feedback service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the service collectors around a private registry so tests
// can build as many instances as they need.
type Metrics struct {
	Registry *prometheus.Registry

	feedbackOutcomes *prometheus.CounterVec
	txConflicts      prometheus.Counter
	notifications    prometheus.Counter
}

// New registers the service collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		feedbackOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedback",
			Name:      "send_outcomes_total",
			Help:      "Feedback signals processed, by outcome.",
		}, []string{"outcome"}),
		txConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedback",
			Name:      "store_tx_conflicts_total",
			Help:      "Store transactions retried after a conflict.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedback",
			Name:      "notifications_created_total",
			Help:      "Match notifications committed.",
		}),
	}
	m.Registry.MustRegister(
		m.feedbackOutcomes,
		m.txConflicts,
		m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome counts one processed signal. Safe on a nil receiver.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.feedbackOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveConflict counts one retried transaction.
func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.txConflicts.Inc()
}

// ObserveNotifications counts committed notifications.
func (m *Metrics) ObserveNotifications(n int) {
	if m == nil {
		return
	}
	m.notifications.Add(float64(n))
}
