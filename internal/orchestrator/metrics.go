package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks turn outcomes across all sessions.
type Metrics struct {
	turnsTotal         *prometheus.CounterVec
	generationFailures prometheus.Counter
	turnDuration       prometheus.Histogram
	activeSessions     prometheus.Gauge
}

// NewMetrics registers the orchestrator metrics on reg. Tests pass their own
// registry to avoid collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medcoder",
			Name:      "turns_total",
			Help:      "Completed question/answer turns by gate rule.",
		}, []string{"rule"}),
		generationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "medcoder",
			Name:      "generation_failures_total",
			Help:      "Turns that failed before an answer was produced.",
		}),
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medcoder",
			Name:      "turn_duration_seconds",
			Help:      "Wall time per turn, generation and feedback included.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "medcoder",
			Name:      "active_sessions",
			Help:      "Conversation sessions currently held in memory.",
		}),
	}
}

func (m *Metrics) observeTurn(rule Rule, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(string(rule)).Inc()
	m.turnDuration.Observe(seconds)
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.generationFailures.Inc()
}

func (m *Metrics) setSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
