package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Pipeline
	StageDuration     HistogramVec
	DiagnosticsTotal  CounterVec
	EntityTotal       GaugeVec
	EntityFiltered    GaugeVec
	ModelsLoadedTotal CounterVec

	// Sessions
	SessionsActive       GaugeVec
	SessionActionsTotal  CounterVec
	SnapshotsSavedTotal  CounterVec
	EventsPublishedTotal CounterVec

	// Infrastructure
	DBQueryDuration  HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	GraphExportNodes GaugeVec
	IndexedDocuments CounterVec

	ErrorsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultStageDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30}
	DefaultSizeBuckets          = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.StageDuration = collector.RegisterHistogram("pipeline_stage_duration_seconds", "Pipeline stage duration", DefaultStageDurationBuckets, "stage")
	m.DiagnosticsTotal = collector.RegisterCounter("diagnostics_total", "Diagnostics reported while cleaning models", "code", "severity")
	m.EntityTotal = collector.RegisterGauge("entities_total", "Entities in the last assembled model", "entity")
	m.EntityFiltered = collector.RegisterGauge("entities_filtered", "Entities passing the last filter", "entity")
	m.ModelsLoadedTotal = collector.RegisterCounter("models_loaded_total", "Models loaded", "status")

	m.SessionsActive = collector.RegisterGauge("sessions_active", "Open exploration sessions", "store")
	m.SessionActionsTotal = collector.RegisterCounter("session_actions_total", "Session actions", "action", "status")
	m.SnapshotsSavedTotal = collector.RegisterCounter("snapshots_saved_total", "Snapshots saved", "status")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Events published", "type", "status")

	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.GraphExportNodes = collector.RegisterGauge("graph_export_nodes", "Nodes written by the last graph export", "kind")
	m.IndexedDocuments = collector.RegisterCounter("indexed_documents_total", "Documents written to the search index", "entity")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Explorer hooks
// ─────────────────────────────────────────────────────────────────────────────

// ObserveStage records how long one pipeline stage took.
func (m *AppMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordDiagnostics counts every diagnostic of a cleaning run.
func (m *AppMetrics) RecordDiagnostics(report diagnostics.Report) {
	for _, d := range report.Diagnostics {
		m.DiagnosticsTotal.WithLabelValues(string(d.Code), string(d.Severity)).Inc()
	}
}

// SetEntityCounts publishes the assembled and filtered population sizes.
func (m *AppMetrics) SetEntityCounts(entity metabolic.Entity, total, filtered int) {
	m.EntityTotal.WithLabelValues(string(entity)).Set(float64(total))
	m.EntityFiltered.WithLabelValues(string(entity)).Set(float64(filtered))
}

// RecordSessionAction counts one session action. Failures also count as
// session errors labelled with the action.
func (m *AppMetrics) RecordSessionAction(action string, err error) {
	m.SessionActionsTotal.WithLabelValues(action, status(err)).Inc()
	if err != nil {
		m.ErrorsTotal.WithLabelValues("session", action).Inc()
	}
}

func (m *AppMetrics) RecordModelLoad(err error) {
	m.ModelsLoadedTotal.WithLabelValues(status(err)).Inc()
}

func (m *AppMetrics) RecordSnapshotSave(err error) {
	m.SnapshotsSavedTotal.WithLabelValues(status(err)).Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, respSize int64) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if respSize >= 0 {
		metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	}
}

func RecordPublish(metrics *AppMetrics, eventType string, err error) {
	metrics.EventsPublishedTotal.WithLabelValues(eventType, status(err)).Inc()
}

func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordGraphExport(metrics *AppMetrics, metabolites, reactions int) {
	metrics.GraphExportNodes.WithLabelValues("metabolite").Set(float64(metabolites))
	metrics.GraphExportNodes.WithLabelValues("reaction").Set(float64(reactions))
}

func RecordIndexed(metrics *AppMetrics, entity metabolic.Entity, n int) {
	metrics.IndexedDocuments.WithLabelValues(string(entity)).Add(float64(n))
}

func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
