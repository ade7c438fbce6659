package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts intents and their terminal outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	intents  *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	cascades *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "okrhub",
			Name:      "intents_total",
			Help:      "Intent actions received by the middleware.",
		}, []string{"type"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "okrhub",
			Name:      "outcomes_total",
			Help:      "Terminal actions dispatched, by action type and result.",
		}, []string{"type", "result"}),
		cascades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "okrhub",
			Name:      "cascade_deletes_total",
			Help:      "Objective cascade deletes triggered by area removal.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "okrhub",
			Name:      "orchestration_seconds",
			Help:      "Time from intent receipt to terminal action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.intents, m.outcomes, m.cascades, m.duration)
	}
	return m
}

func (m *Metrics) Intent(intentType string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(intentType).Inc()
}

func (m *Metrics) Outcome(intentType, actionType string, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	m.outcomes.WithLabelValues(actionType, result).Inc()
	m.duration.WithLabelValues(intentType).Observe(elapsed.Seconds())
}

func (m *Metrics) Cascade(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.cascades.WithLabelValues(result).Inc()
}
