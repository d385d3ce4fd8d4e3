/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors recorded by Instrument.
type Metrics struct {
	events   *prometheus.CounterVec
	records  *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	labels := []string{"kind", "table", "mode"}
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "events_total",
			Help:      "Change events handed to the notifier.",
		}, labels),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "records_total",
			Help:      "Records described by change events.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Change events the notifier rejected.",
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "duration_seconds",
			Help:      "Time spent handing a change event to the notifier.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	for _, c := range []prometheus.Collector{m.events, m.records, m.failures, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrument wraps next so that every event is counted and timed.
func Instrument(next Notifier, m *Metrics) Notifier {
	return Func(func(ctx context.Context, ev *Event) error {
		labels := prometheus.Labels{
			"kind":  string(ev.Kind),
			"table": ev.Table,
			"mode":  ev.Mode.String(),
		}
		start := time.Now()
		err := next.Notify(ctx, ev)
		m.latency.With(labels).Observe(time.Since(start).Seconds())
		m.events.With(labels).Inc()
		m.records.With(labels).Add(float64(ev.Len()))
		if err != nil {
			m.failures.With(labels).Inc()
		}
		return err
	})
}
