package metrics

import (
	"time"

	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/prometheus/client_golang/prometheus"
)

// RecognitionMetrics records upload workflow outcomes and inference latency.
type RecognitionMetrics struct {
	uploads   *prometheus.CounterVec
	inference *prometheus.HistogramVec
}

// NewRecognitionMetrics registers the upload workflow metrics on the provided registerer.
func NewRecognitionMetrics(reg prometheus.Registerer) *RecognitionMetrics {
	if reg == nil {
		return &RecognitionMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medrec_uploads_total",
		Help: "Image uploads by workflow outcome.",
	}, []string{"outcome"})
	inference := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medrec_inference_duration_seconds",
		Help:    "Duration of classifier calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	reg.MustRegister(uploads, inference)
	return &RecognitionMetrics{
		uploads:   uploads,
		inference: inference,
	}
}

// IncOutcome counts one upload that finished with the given outcome.
func (m *RecognitionMetrics) IncOutcome(outcome enums.UploadOutcome) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(outcome.String())).Inc()
}

// ObserveInference records one classifier call.
func (m *RecognitionMetrics) ObserveInference(duration time.Duration, err error) {
	if m == nil || m.inference == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.inference.WithLabelValues(status).Observe(duration.Seconds())
}

// ImportMetrics counts catalog import rows by result.
type ImportMetrics struct {
	rows *prometheus.CounterVec
}

// NewImportMetrics registers the catalog import metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medrec_import_rows_total",
		Help: "Catalog import rows by result.",
	}, []string{"result"})
	reg.MustRegister(rows)
	return &ImportMetrics{rows: rows}
}

// AddRows adds n rows with the given result (created, updated, error).
func (m *ImportMetrics) AddRows(result string, n int) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(result)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
