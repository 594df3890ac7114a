package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every HyperBlend metric family.
type AppMetrics struct {
	// HTTP server
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// REST client used by the UI and the CLI
	ClientCallsTotal   CounterVec
	ClientCallDuration HistogramVec
	ClientRetriesTotal CounterVec

	// Enrichment
	EnrichmentJobsTotal      CounterVec
	EnrichmentProviderCalls  CounterVec
	EnrichmentProviderTiming HistogramVec

	// Graph view
	GraphNodes         GaugeVec
	GraphEdges         GaugeVec
	LayoutDuration     HistogramVec
	UISessionsActive   GaugeVec
	UIInitFailures     CounterVec
	DBQueryDuration    HistogramVec
	CacheRequestsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultLayoutBuckets       = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2}
)

// NewAppMetrics registers all metric families on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "HTTP requests served", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:  collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),

		ClientCallsTotal:   collector.RegisterCounter("client_calls_total", "REST client calls", "method", "path", "outcome"),
		ClientCallDuration: collector.RegisterHistogram("client_call_duration_seconds", "REST client call latency", DefaultHTTPDurationBuckets, "method"),
		ClientRetriesTotal: collector.RegisterCounter("client_retries_total", "REST client transparent retries", "reason"),

		EnrichmentJobsTotal:      collector.RegisterCounter("enrichment_jobs_total", "Enrichment jobs by terminal status", "entity", "status"),
		EnrichmentProviderCalls:  collector.RegisterCounter("enrichment_provider_calls_total", "Calls to external enrichment providers", "provider", "outcome"),
		EnrichmentProviderTiming: collector.RegisterHistogram("enrichment_provider_duration_seconds", "External provider latency", DefaultHTTPDurationBuckets, "provider"),

		GraphNodes:         collector.RegisterGauge("graph_nodes", "Nodes in the last served graph", "node_type"),
		GraphEdges:         collector.RegisterGauge("graph_edges", "Edges in the last served graph"),
		LayoutDuration:     collector.RegisterHistogram("layout_duration_seconds", "Force layout run time", DefaultLayoutBuckets, "phase"),
		UISessionsActive:   collector.RegisterGauge("ui_sessions_active", "Live UI sessions"),
		UIInitFailures:     collector.RegisterCounter("ui_init_failures_total", "Pages that gave up initialising", "page"),
		DBQueryDuration:    collector.RegisterHistogram("db_query_duration_seconds", "Graph database query latency", DefaultDBDurationBuckets, "operation"),
		CacheRequestsTotal: collector.RegisterCounter("cache_requests_total", "Cache lookups", "cache", "result"),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordClientCall records one REST client round trip.
func (m *AppMetrics) RecordClientCall(method, path string, d time.Duration, err error) {
	m.ClientCallsTotal.WithLabelValues(method, path, outcome(err)).Inc()
	m.ClientCallDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordClientRetry counts a transparent retry.
func (m *AppMetrics) RecordClientRetry(reason string) {
	m.ClientRetriesTotal.WithLabelValues(reason).Inc()
}

// RecordEnrichmentJob counts a job reaching status.
func (m *AppMetrics) RecordEnrichmentJob(entity, status string) {
	m.EnrichmentJobsTotal.WithLabelValues(entity, status).Inc()
}

// RecordProviderCall records one external provider request.
func (m *AppMetrics) RecordProviderCall(provider string, d time.Duration, err error) {
	m.EnrichmentProviderCalls.WithLabelValues(provider, outcome(err)).Inc()
	m.EnrichmentProviderTiming.WithLabelValues(provider).Observe(d.Seconds())
}

// SetGraphSize publishes the size of the last served graph.
func (m *AppMetrics) SetGraphSize(nodesByType map[string]int, edges int) {
	m.GraphNodes.Reset()
	for t, n := range nodesByType {
		m.GraphNodes.WithLabelValues(t).Set(float64(n))
	}
	m.GraphEdges.WithLabelValues().Set(float64(edges))
}

// ObserveLayout records time spent in a layout phase ("tick", "settle").
func (m *AppMetrics) ObserveLayout(phase string, d time.Duration) {
	m.LayoutDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// SetActiveSessions publishes the live UI session count.
func (m *AppMetrics) SetActiveSessions(n int) {
	m.UISessionsActive.WithLabelValues().Set(float64(n))
}

// RecordInitFailure counts a page that exhausted its initialisation retries.
func (m *AppMetrics) RecordInitFailure(page string) {
	m.UIInitFailures.WithLabelValues(page).Inc()
}

// RecordDBQuery records one graph database query.
func (m *AppMetrics) RecordDBQuery(operation string, d time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCacheAccess counts a cache hit or miss.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}
