package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fulfillment outcomes used as label values.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
)

// FulfillmentMetrics records factory call outcomes and latency.
type FulfillmentMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fulfillment_request_duration_seconds",
		Help:    "Duration of factory fulfillment calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_requests_total",
		Help: "Factory fulfillment calls by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, outcomes)
	return &FulfillmentMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// Observe records one factory call.
func (f *FulfillmentMetrics) Observe(outcome string, duration time.Duration) {
	if f == nil || f.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	f.duration.WithLabelValues(label).Observe(duration.Seconds())
	f.outcomes.WithLabelValues(label).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
