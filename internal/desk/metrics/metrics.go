// Package metrics holds the Prometheus collectors of the desk service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FetchTotal      *prometheus.CounterVec
	FetchLatency    *prometheus.HistogramVec
	SnapshotApplied prometheus.Counter
	SnapshotStale   prometheus.Counter
	SnapshotRecords prometheus.Gauge
	DecryptFailures prometheus.Counter
	Transitions     *prometheus.CounterVec
	OverdueRecords  prometheus.Gauge
	ExportedRecords prometheus.Counter
	Exports         *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg means the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitdesk_source_fetch_total",
			Help: "Source fetches, labeled by source and result",
		}, []string{"source", "result"}),
		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "visitdesk_source_fetch_latency_seconds",
			Help:    "Latency of source fetches in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		SnapshotApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "visitdesk_snapshot_applied_total",
			Help: "Refreshes whose result replaced the snapshot",
		}),
		SnapshotStale: f.NewCounter(prometheus.CounterOpts{
			Name: "visitdesk_snapshot_stale_total",
			Help: "Refreshes discarded because a newer one had already landed",
		}),
		SnapshotRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "visitdesk_snapshot_records",
			Help: "Records in the current snapshot",
		}),
		DecryptFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "visitdesk_signature_decrypt_failures_total",
			Help: "Stored signatures that could not be decrypted for display",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitdesk_transitions_total",
			Help: "Attempted record actions, labeled by action and outcome",
		}, []string{"action", "outcome"}),
		OverdueRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "visitdesk_overdue_records",
			Help: "New records past their check-in window by more than 24h",
		}),
		ExportedRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "visitdesk_exported_records_total",
			Help: "Rows written to spreadsheet exports",
		}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitdesk_exports_total",
			Help: "Spreadsheet exports, labeled by result",
		}, []string{"result"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "visitdesk_endpoint_latency_seconds",
			Help:    "Latency of desk API endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	m.FetchTotal.WithLabelValues(source, result(err)).Inc()
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveApply(applied bool, records int) {
	if !applied {
		m.SnapshotStale.Inc()
		return
	}
	m.SnapshotApplied.Inc()
	m.SnapshotRecords.Set(float64(records))
}

func (m *Metrics) ObserveDecryptFailures(n int) {
	if n > 0 {
		m.DecryptFailures.Add(float64(n))
	}
}

func (m *Metrics) ObserveTransition(action, outcome string) {
	m.Transitions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) SetOverdue(n int) {
	m.OverdueRecords.Set(float64(n))
}

func (m *Metrics) ObserveExport(rows int, err error) {
	m.Exports.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.ExportedRecords.Add(float64(rows))
	}
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, d time.Duration) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}
