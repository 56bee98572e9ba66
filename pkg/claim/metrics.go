package claim

import (
	"sync"
	"time"

	"travelcore/pkg/conflict"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the claim collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claim_attempts_total",
			Help: "Claim attempts by resource kind and terminal outcome",
		}, []string{"resource", "outcome", "reason"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claim_attempt_duration_seconds",
			Help:    "Time from receiving a claim to its terminal state",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "outcome"}),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics is registered on the global registry served by /metrics.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func (m *Metrics) observe(resource string, state State, reason conflict.Reason, elapsed time.Duration) {
	m.attempts.WithLabelValues(resource, string(state), string(reason)).Inc()
	m.duration.WithLabelValues(resource, string(state)).Observe(elapsed.Seconds())
}

// Count returns the counter for one outcome; used by tests.
func (m *Metrics) Count(resource string, state State, reason conflict.Reason) prometheus.Counter {
	return m.attempts.WithLabelValues(resource, string(state), string(reason))
}
