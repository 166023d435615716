package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "countsheet"

// Outcome labels shared by the count metrics.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSuperseded = "superseded"
	OutcomeRejected   = "rejected"
)

// CountMetrics covers the upload, load, edit and export paths.
type CountMetrics struct {
	uploads         *prometheus.CounterVec
	rowsIngested    prometheus.Counter
	rowsRejected    prometheus.Counter
	loadPages       prometheus.Counter
	persists        *prometheus.CounterVec
	persistDuration prometheus.Histogram
	exports         *prometheus.CounterVec
	workspaces      prometheus.Gauge
}

// NewCountMetrics registers the metrics on reg. A nil reg yields a no-op recorder.
func NewCountMetrics(reg prometheus.Registerer) *CountMetrics {
	if reg == nil {
		return &CountMetrics{}
	}
	m := &CountMetrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Spreadsheet uploads by outcome.",
		}, []string{"outcome"}),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Rows inserted from uploads.",
		}),
		rowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Uploaded rows dropped by validation.",
		}),
		loadPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_pages_total",
			Help:      "Entry pages fetched from the store.",
		}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "count_persists_total",
			Help:      "Count edit persists by outcome.",
		}, []string{"outcome"}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "count_persist_duration_seconds",
			Help:      "Time spent writing a count edit to the store.",
			Buckets:   prometheus.DefBuckets,
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Generated exports by kind.",
		}, []string{"kind"}),
		workspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workspaces_open",
			Help:      "Entry workspaces held in memory.",
		}),
	}
	reg.MustRegister(m.uploads, m.rowsIngested, m.rowsRejected, m.loadPages,
		m.persists, m.persistDuration, m.exports, m.workspaces)
	return m
}

// ObserveUpload records an upload outcome plus its row tallies.
func (m *CountMetrics) ObserveUpload(outcome string, inserted, rejected int) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(outcome)).Inc()
	if inserted > 0 {
		m.rowsIngested.Add(float64(inserted))
	}
	if rejected > 0 {
		m.rowsRejected.Add(float64(rejected))
	}
}

func (m *CountMetrics) IncLoadPage() {
	if m == nil || m.loadPages == nil {
		return
	}
	m.loadPages.Inc()
}

// ObservePersist records one background count write.
func (m *CountMetrics) ObservePersist(outcome string, took time.Duration) {
	if m == nil || m.persists == nil {
		return
	}
	m.persists.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome != OutcomeSuperseded {
		m.persistDuration.Observe(took.Seconds())
	}
}

func (m *CountMetrics) IncExport(kind string) {
	if m == nil || m.exports == nil {
		return
	}
	m.exports.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *CountMetrics) SetWorkspaces(n int) {
	if m == nil || m.workspaces == nil {
		return
	}
	m.workspaces.Set(float64(n))
}
