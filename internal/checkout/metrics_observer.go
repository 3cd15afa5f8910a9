package checkout

import (
	"context"
	"time"
)

type phaseMetrics interface {
	ObservePhase(phase, outcome string)
	AttemptStarted()
	AttemptFinished(outcome string, elapsed time.Duration)
}

// MetricsObserver feeds transitions into phase and duration metrics.
type MetricsObserver struct {
	m phaseMetrics
}

func NewMetricsObserver(m phaseMetrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

func (o *MetricsObserver) ObserveCheckout(_ context.Context, ev Event) {
	if o == nil || o.m == nil {
		return
	}
	if ev.From == StatusIdle {
		o.m.AttemptStarted()
	}
	if ev.Phase != "" && ev.From.Phase() == ev.Phase {
		outcome := "succeeded"
		if ev.To == StatusFailed {
			outcome = "failed"
		}
		o.m.ObservePhase(string(ev.Phase), outcome)
	}
	if ev.To.Terminal() {
		o.m.AttemptFinished(string(ev.To), ev.Elapsed)
	}
}
