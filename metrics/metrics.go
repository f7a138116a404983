// Package metrics records announcer dispatch metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coregx/announcer"
)

// Recorder implements announcer.Metrics.
type Recorder struct {
	dispatchDuration *prometheus.HistogramVec
	outcomes         *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "announcer_dispatch_duration_ms",
				Help:    "Duration of dispatching one event to all its subscribers in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
			[]string{"realm", "category"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "announcer_announcements_total",
				Help: "Total number of (subscriber, distributor) pairs evaluated, by outcome (count)",
			},
			[]string{"realm", "distributor", "outcome"},
		),
	}
	for _, c := range []prometheus.Collector{r.dispatchDuration, r.outcomes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveDispatch records how long one dispatch took.
func (r *Recorder) ObserveDispatch(realm, category string, elapsed time.Duration) {
	r.dispatchDuration.WithLabelValues(realm, category).Observe(float64(elapsed.Milliseconds()))
}

// RecordOutcome counts one evaluated pair.
func (r *Recorder) RecordOutcome(realm, distributor string, outcome announcer.Outcome) {
	r.outcomes.WithLabelValues(realm, distributor, string(outcome)).Inc()
}

var _ announcer.Metrics = (*Recorder)(nil)
