package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObservePhase("order_creation", "succeeded")
	m.ObservePhase("order_creation", "succeeded")
	m.ObservePhase("intent_creation", "failed")
	m.AttemptStarted()
	m.AttemptFinished("failed", 1500*time.Millisecond)
	m.ObserveCartMutation("add", nil)
	m.ObserveCartMutation("add", pkgerrors.New(pkgerrors.CodeExceedsStock, "too many"))
	m.ObserveCartMutation("update", errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"checkout_phase_total", map[string]string{"phase": "order_creation", "outcome": "succeeded"}, 2},
		{"checkout_phase_total", map[string]string{"phase": "intent_creation", "outcome": "failed"}, 1},
		{"cart_mutation_total", map[string]string{"op": "add", "outcome": "ok"}, 1},
		{"cart_mutation_total", map[string]string{"op": "add", "outcome": "EXCEEDS_STOCK"}, 1},
		{"cart_mutation_total", map[string]string{"op": "update", "outcome": "INTERNAL_ERROR"}, 1},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.labels)
		if err != nil {
			t.Fatalf("fetch %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s%v expected %f, got %f", c.name, c.labels, c.want, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "checkout_attempt_duration_seconds", map[string]string{"outcome": "failed"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 1.5 {
		t.Fatalf("expected duration sum 1.5, got %f", got)
	}

	mf := findMetricFamily(mfs, "checkout_attempts_in_flight")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 0 {
		t.Fatalf("expected in-flight gauge back at 0")
	}
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.ObservePhase("x", "y")
	m.AttemptStarted()
	m.AttemptFinished("ok", time.Second)
	m.ObserveCartMutation("add", nil)

	unregistered := NewCheckoutMetrics(nil)
	unregistered.ObservePhase("x", "y")
	unregistered.AttemptStarted()
	unregistered.AttemptFinished("ok", time.Second)
	unregistered.ObserveCartMutation("add", nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
