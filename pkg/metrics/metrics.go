package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Data source metrics
	SourceQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_source_queries_total",
			Help: "Total number of queries issued to metadata and access-log sources",
		},
		[]string{"datasource", "operation", "status"}, // status: success|error
	)

	SourceQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_source_query_duration_seconds",
			Help:    "Source query duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"datasource", "operation"},
	)

	// Cache metrics
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_requests_total",
			Help: "Total number of fetch-cache lookups",
		},
		[]string{"kind", "result"}, // result: hit|miss|error
	)

	// Usage metrics
	UsageWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_usage_warnings_total",
			Help: "Usage statistics requests that degraded to an empty aggregate",
		},
		[]string{"datasource"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_llm_calls_total",
			Help: "Total number of table-description LLM calls",
		},
		[]string{"provider", "model", "status"},
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_llm_latency_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	// MCP metrics
	MCPToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mcp_tool_calls_total",
			Help: "Total MCP tool calls by tool and outcome",
		},
		[]string{"tool", "status"}, // status: success|tool_error|error
	)

	MCPToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_mcp_tool_duration_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(SourceQueries)
		prometheus.MustRegister(SourceQueryDuration)
		prometheus.MustRegister(CacheRequests)
		prometheus.MustRegister(UsageWarnings)
		prometheus.MustRegister(LLMCalls)
		prometheus.MustRegister(LLMLatency)
		prometheus.MustRegister(MCPToolCalls)
		prometheus.MustRegister(MCPToolDuration)
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSourceQuery records one call against a data source.
func RecordSourceQuery(datasource, operation string, duration time.Duration, err error) {
	SourceQueries.WithLabelValues(datasource, operation, status(err)).Inc()
	SourceQueryDuration.WithLabelValues(datasource, operation).Observe(duration.Seconds())
}

// RecordCache records a cache lookup outcome.
func RecordCache(kind, result string) {
	CacheRequests.WithLabelValues(kind, result).Inc()
}

// RecordUsageWarning counts a degraded usage fetch.
func RecordUsageWarning(datasource string) {
	UsageWarnings.WithLabelValues(datasource).Inc()
}

// RecordLLMCall records a description generation call.
func RecordLLMCall(provider, model string, latency time.Duration, err error) {
	LLMCalls.WithLabelValues(provider, model, status(err)).Inc()
	LLMLatency.WithLabelValues(provider, model).Observe(latency.Seconds())
}

// RecordMCPToolCall records one MCP tool invocation.
func RecordMCPToolCall(tool, status string, duration time.Duration) {
	MCPToolCalls.WithLabelValues(tool, status).Inc()
	MCPToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordHTTPRequest records a served request keyed by its mux pattern.
func RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
