package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

const outcomeOK = "ok"

// CheckoutMetrics records checkout phases, attempt durations and cart mutations.
type CheckoutMetrics struct {
	phases    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	inflight  prometheus.Gauge
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	phases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_phase_total",
		Help: "Concluded checkout phases by outcome.",
	}, []string{"phase", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_attempt_duration_seconds",
		Help:    "Duration of checkout attempts from submit to terminal state.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"outcome"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutation_total",
		Help: "Cart operations by outcome code.",
	}, []string{"op", "outcome"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_attempts_in_flight",
		Help: "Checkout attempts that have started but not finished.",
	})
	reg.MustRegister(phases, duration, mutations, inflight)
	return &CheckoutMetrics{
		phases:    phases,
		duration:  duration,
		mutations: mutations,
		inflight:  inflight,
	}
}

// ObservePhase counts one concluded phase.
func (m *CheckoutMetrics) ObservePhase(phase, outcome string) {
	if m == nil || m.phases == nil {
		return
	}
	m.phases.WithLabelValues(normalizeLabel(phase), normalizeLabel(outcome)).Inc()
}

// AttemptStarted marks an attempt as in flight.
func (m *CheckoutMetrics) AttemptStarted() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Inc()
}

// AttemptFinished records the duration of a terminal attempt.
func (m *CheckoutMetrics) AttemptFinished(outcome string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.inflight.Dec()
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(elapsed.Seconds())
}

// ObserveCartMutation counts a cart operation by its error code, or "ok".
func (m *CheckoutMetrics) ObserveCartMutation(op string, err error) {
	if m == nil || m.mutations == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	m.mutations.WithLabelValues(normalizeLabel(op), outcome).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
