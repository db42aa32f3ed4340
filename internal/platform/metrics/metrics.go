package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics for the crisis pipeline.
type Metrics struct {
	SignalsCreated  prometheus.Counter
	SignalsDeleted  prometheus.Counter
	AuditEvents     *prometheus.CounterVec
	WorkerSweeps    *prometheus.CounterVec
	WorkerSweepTime *prometheus.HistogramVec
}

// New creates and registers all process-level Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SignalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_signals_created_total",
			Help: "Total number of safety signals created",
		}),
		SignalsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_signals_deleted_total",
			Help: "Total number of signals deleted after retention clearance",
		}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_audit_events_total",
			Help: "Audit events emitted, by category",
		}, []string{"category"}),
		WorkerSweeps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_worker_sweeps_total",
			Help: "Background sweep executions, by worker",
		}, []string{"worker"}),
		WorkerSweepTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_worker_sweep_duration_seconds",
			Help:    "Duration of background sweeps, by worker",
			Buckets: prometheus.DefBuckets,
		}, []string{"worker"}),
	}
}
