package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters across pipeline stages.
type Metrics struct {
	// Fetch metrics
	PagesFetched    atomic.Int64
	PagesFailed     atomic.Int64
	BytesDownloaded atomic.Int64

	// Record metrics
	RecordsLoaded      atomic.Int64
	RecordsScraped     atomic.Int64
	RecordsDropped     atomic.Int64
	RecordsLabeled     atomic.Int64
	RecordsSynthesized atomic.Int64
	RecordsStored      atomic.Int64

	// Serving metrics
	Predictions      atomic.Int64
	PredictionErrors atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) all() []metric {
	return []metric{
		{"newssort_pages_fetched_total", "Total listing pages fetched", m.PagesFetched.Load()},
		{"newssort_pages_failed_total", "Total listing pages that failed", m.PagesFailed.Load()},
		{"newssort_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"newssort_records_loaded_total", "Total records read from the store", m.RecordsLoaded.Load()},
		{"newssort_records_scraped_total", "Total records extracted from pages", m.RecordsScraped.Load()},
		{"newssort_records_dropped_total", "Total records dropped by cleaning", m.RecordsDropped.Load()},
		{"newssort_records_labeled_total", "Total records labeled", m.RecordsLabeled.Load()},
		{"newssort_records_synthesized_total", "Total records synthesized by balancing", m.RecordsSynthesized.Load()},
		{"newssort_records_stored_total", "Total records written to the store", m.RecordsStored.Load()},
		{"newssort_predictions_total", "Total headline predictions", m.Predictions.Load()},
		{"newssort_prediction_errors_total", "Total failed predictions", m.PredictionErrors.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.all() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":       m.PagesFetched.Load(),
		"pages_failed":        m.PagesFailed.Load(),
		"bytes_downloaded":    m.BytesDownloaded.Load(),
		"records_loaded":      m.RecordsLoaded.Load(),
		"records_scraped":     m.RecordsScraped.Load(),
		"records_dropped":     m.RecordsDropped.Load(),
		"records_labeled":     m.RecordsLabeled.Load(),
		"records_synthesized": m.RecordsSynthesized.Load(),
		"records_stored":      m.RecordsStored.Load(),
		"predictions":         m.Predictions.Load(),
		"prediction_errors":   m.PredictionErrors.Load(),
	}
}

// LogSummary writes the non-zero counters at info level.
func (m *Metrics) LogSummary() {
	args := make([]any, 0, 22)
	for k, v := range m.Snapshot() {
		if v != 0 {
			args = append(args, k, v)
		}
	}
	if len(args) > 0 {
		m.logger.Info("run summary", args...)
	}
}
