package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestFulfillmentMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFulfillmentMetrics(reg)
	m.Observe(OutcomeAccepted, 250*time.Millisecond)
	m.Observe(OutcomeRejected, 100*time.Millisecond)
	m.Observe(OutcomeRejected, 100*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "fulfillment_requests_total", "outcome", OutcomeAccepted); err != nil {
		t.Fatalf("fetch accepted: %v", err)
	} else if got != 1 {
		t.Fatalf("expected accepted=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "fulfillment_requests_total", "outcome", OutcomeRejected); err != nil {
		t.Fatalf("fetch rejected: %v", err)
	} else if got != 2 {
		t.Fatalf("expected rejected=2, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "fulfillment_request_duration_seconds", "outcome", OutcomeAccepted); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestHTTPMetricsLabelsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/franchise/{userId}", http.StatusOK, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/franchise/{userId}"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 request, got %f", got)
	}
}

func TestJobMetricsSplitsSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.Observe("stale-fulfillment", time.Millisecond, nil)
	m.Observe("stale-fulfillment", time.Millisecond, fmt.Errorf("boom"))
	m.Observe("stale-fulfillment", time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "job_success_total", "job", "stale-fulfillment"); err != nil || got != 2 {
		t.Fatalf("expected 2 successes, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "job_failure_total", "job", "stale-fulfillment"); err != nil || got != 1 {
		t.Fatalf("expected 1 failure, got %f (%v)", got, err)
	}
}

func TestOutboxMetricsLabelsByOutcomeAndType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Observe(OutboxPublished, "order.created")
	m.Observe(OutboxPublished, "order.fulfilled")
	m.Observe(OutboxRetry, "order.created")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_deliveries_total", "outcome", OutboxPublished); err != nil || got != 1 {
		t.Fatalf("expected first published series to hold 1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_deliveries_total", "outcome", OutboxRetry); err != nil || got != 1 {
		t.Fatalf("expected 1 retry, got %f (%v)", got, err)
	}
	if mf := findMetricFamily(mfs, "outbox_deliveries_total"); mf == nil || len(mf.GetMetric()) != 3 {
		t.Fatalf("expected 3 outcome/type series")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var f *FulfillmentMetrics
	f.Observe(OutcomeAccepted, time.Second)
	NewFulfillmentMetrics(nil).Observe(OutcomeAccepted, time.Second)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "", http.StatusOK, time.Second)
	var j *JobMetrics
	j.Observe("job", time.Second, nil)
	var o *OutboxMetrics
	o.Observe(OutboxTerminal, "user.deleted")
	NewOutboxMetrics(nil).Observe(OutboxTerminal, "user.deleted")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
