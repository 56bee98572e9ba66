package kafka_middleware

import (
	"context"
	"time"

	"travelcore/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	published *prometheus.CounterVec
	duration  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events handed to Kafka by event type and result",
		}, []string{"event_type", "result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "events_publish_duration_seconds",
			Help:    "Time spent writing one event",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Published(eventType, result string) prometheus.Counter {
	return m.published.WithLabelValues(eventType, result)
}

func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.duration.Observe(time.Since(start).Seconds())

		result := "ok"
		if err != nil {
			result = "error"
		}
		m.published.WithLabelValues(msg.EventType(), result).Inc()
		return err
	}
}
