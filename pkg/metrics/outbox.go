package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcomes of an outbox row that did not publish.
const (
	OutboxRetry        = "retry"
	OutboxPoisoned     = "non_retryable"
	OutboxAttemptsUsed = "max_attempts"
)

// OutboxMetrics counts what the relay did with each row.
type OutboxMetrics struct {
	published prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewOutboxMetrics registers the relay counters. A nil registerer yields a recorder that drops
// everything.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "profile_media_outbox_published_total",
		Help: "Outbox rows published to Pub/Sub.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_media_outbox_failures_total",
		Help: "Outbox publish failures by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(published, failures)
	return &OutboxMetrics{published: published, failures: failures}
}

func (m *OutboxMetrics) Published() {
	if m == nil || m.published == nil {
		return
	}
	m.published.Inc()
}

func (m *OutboxMetrics) Failed(outcome string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(outcome)).Inc()
}
