package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox delivery outcomes used as label values.
const (
	OutboxPublished = "published"
	OutboxRetry     = "retry"
	OutboxTerminal  = "terminal"
)

// OutboxMetrics counts outbox rows by delivery outcome and event type.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_deliveries_total",
		Help: "Outbox rows handled by the publisher, by outcome and event type.",
	}, []string{"outcome", "event_type"})
	reg.MustRegister(deliveries)
	return &OutboxMetrics{deliveries: deliveries}
}

// Observe records one handled outbox row.
func (o *OutboxMetrics) Observe(outcome, eventType string) {
	if o == nil || o.deliveries == nil {
		return
	}
	o.deliveries.WithLabelValues(normalizeLabel(outcome), normalizeLabel(eventType)).Inc()
}
