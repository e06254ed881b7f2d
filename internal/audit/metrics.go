package audit

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	PersistFailures prometheus.Counter
	Dropped         prometheus.Counter
	QueueDepth      prometheus.Gauge
}

// NewMetrics registers the audit metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vegfest_audit_persist_failures_total",
			Help: "Audit entries the background worker failed to persist",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vegfest_audit_dropped_total",
			Help: "Audit entries rejected because the queue was full or closed",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vegfest_audit_queue_depth",
			Help: "Audit entries waiting to be persisted",
		}),
	}
	reg.MustRegister(m.PersistFailures, m.Dropped, m.QueueDepth)
	return m
}

func (m *Metrics) persistFailed() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) depth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
