package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics counts what the publisher did with each outbox row.
type OutboxMetrics struct {
	results *prometheus.CounterVec
	batch   prometheus.Histogram
}

// Publish results recorded by ObservePublish.
const (
	PublishPublished = "published"
	PublishRetry     = "retry"
	PublishParked    = "parked"
)

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_results_total",
			Help:      "Outbox rows handled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Time to fetch, publish and mark one outbox batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.results, m.batch)
	return m
}

func (m *OutboxMetrics) ObservePublish(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(eventType), result).Inc()
}

func (m *OutboxMetrics) ObserveBatch(d time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(d.Seconds())
}
