package approval

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	StatusChanges    *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	AuditFailures    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vegfest_registration_status_changes_total",
			Help: "Committed registration status changes by resulting status",
		}, []string{"status"}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vegfest_registration_version_conflicts_total",
			Help: "Status change attempts retried after a concurrent write",
		}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vegfest_status_change_audit_failures_total",
			Help: "Status changes whose audit entry could not be recorded",
		}),
	}
	reg.MustRegister(m.StatusChanges, m.VersionConflicts, m.AuditFailures)
	return m
}

func (m *Metrics) statusChanged(status string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) conflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}

func (m *Metrics) auditFailed() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}
