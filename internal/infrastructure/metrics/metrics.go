package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the application's Prometheus collectors on a private
// registry, shared between the HTTP middleware and the sync engine.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SyncRunsTotal *prometheus.CounterVec
	SyncDuration  *prometheus.HistogramVec
	EventsWritten prometheus.Counter
	EventsDeleted prometheus.Counter
	ChoresWritten prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SyncRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_runs_total",
				Help: "Total number of sync passes by partition kind and result",
			},
			[]string{"kind", "result"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sync_duration_seconds",
				Help:    "Sync pass duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		EventsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_events_written_total",
			Help: "Total number of event rows inserted or updated by sync",
		}),
		EventsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_events_deleted_total",
			Help: "Total number of event rows deleted by sync",
		}),
		ChoresWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_chores_written_total",
			Help: "Total number of chore rows inserted or updated by sync",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.SyncRunsTotal,
		m.SyncDuration,
		m.EventsWritten,
		m.EventsDeleted,
		m.ChoresWritten,
	)

	return m
}
