// Package metrics exposes Prometheus counters for the upload lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels shared by the counters below.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	deletes       *prometheus.CounterVec
	compensations *prometheus.CounterVec
	reconciled    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports",
			Name:      "uploads_total",
			Help:      "Upload attempts by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sports",
			Name:      "upload_bytes_total",
			Help:      "Bytes persisted by successful uploads.",
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports",
			Name:      "deletes_total",
			Help:      "Delete requests by result.",
		}, []string{"result"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports",
			Name:      "upload_compensations_total",
			Help:      "Blobs removed after a failed metadata insert, by outcome.",
		}, []string{"outcome"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports",
			Name:      "reconciled_total",
			Help:      "Inconsistencies handled by the reconcile worker, by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.uploads, m.uploadBytes, m.deletes, m.compensations, m.reconciled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Upload(result string, size int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
	if result == ResultSuccess && size > 0 {
		m.uploadBytes.Add(float64(size))
	}
}

func (m *Metrics) Delete(result string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(result).Inc()
}

func (m *Metrics) Compensation(outcome string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Reconciled(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reconciled.WithLabelValues(kind).Add(float64(n))
}
