package broker

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report broker activity.
type Metrics struct {
	events           *prometheus.CounterVec
	persistFailures  prometheus.Counter
	dispatchDuration *prometheus.HistogramVec
}

// MustNewMetrics registers the broker collectors with reg, reusing collectors
// already registered under the same names. A nil reg means the default
// registerer.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eldercare",
			Subsystem: "broker",
			Name:      "events_total",
			Help:      "Published events by type and delivery outcome.",
		}, []string{"event_type", "delivery"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eldercare",
			Subsystem: "broker",
			Name:      "persist_failures_total",
			Help:      "Events that could not be written to the store.",
		}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eldercare",
			Subsystem: "broker",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent inside target handlers, including nested dispatches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
	}
	m.events = register(reg, m.events)
	m.persistFailures = register(reg, m.persistFailures)
	m.dispatchDuration = register(reg, m.dispatchDuration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(r.Event.Type, r.Delivery.String()).Inc()
	if r.PersistErr != nil {
		m.persistFailures.Inc()
	}
}
