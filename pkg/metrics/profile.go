package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ProfileMetrics records profile media operations by name and outcome.
type ProfileMetrics struct {
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
}

// NewProfileMetrics registers the profile media metrics on the provided registerer.
// A nil registerer yields a recorder that drops everything.
func NewProfileMetrics(reg prometheus.Registerer) *ProfileMetrics {
	if reg == nil {
		return &ProfileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profile_media_operation_duration_seconds",
		Help:    "Duration of profile media operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_media_operations_total",
		Help: "Profile media operations by outcome.",
	}, []string{"op", "result"})
	reg.MustRegister(duration, operations)
	return &ProfileMetrics{
		duration:   duration,
		operations: operations,
	}
}

// Observe records one finished operation.
func (m *ProfileMetrics) Observe(op string, elapsed time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	op = normalizeLabel(op)
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	m.operations.WithLabelValues(op, result).Inc()
}

// Track starts a timer; call the returned func with the operation's error when it ends.
func (m *ProfileMetrics) Track(op string) func(error) {
	start := time.Now()
	return func(err error) {
		m.Observe(op, time.Since(start), err)
	}
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
