package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Service name for metrics
	ServiceName = "scenicloopd"
)

var (
	// Dispatcher message metrics, keyed by wire tag (LIST_GRAPHS,
	// CREATE_GRAPH, START_GENERATION, ...).
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenicloopd_messages_total",
			Help: "Total number of dispatched session messages",
		},
		[]string{"tag", "status"},
	)

	MessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenicloopd_message_duration_seconds",
			Help:    "Dispatched message handling duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"tag"},
	)

	// Enumeration metrics: one enumeration run per START_GENERATION.
	EnumerationRoutesEmitted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scenicloopd_enumeration_routes_emitted",
			Help:    "Number of routes emitted per enumeration run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	EnumerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scenicloopd_enumeration_duration_seconds",
			Help:    "Enumeration run duration in seconds, from START_GENERATION to GENERATION_COMPLETE or cancellation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0},
		},
	)

	EnumerationIterationCapHit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scenicloopd_enumeration_iteration_cap_total",
			Help: "Total number of enumeration runs that stopped at the iteration cap rather than exhausting the frontier",
		},
	)

	// Preparation pipeline metrics, keyed by stage name.
	PrepareStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenicloopd_prepare_stage_duration_seconds",
			Help:    "Graph preparation stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
		[]string{"stage"},
	)

	// External service metrics (Overpass, SRTM tile fetches).
	ExternalServiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenicloopd_external_service_requests_total",
			Help: "Total number of external service requests",
		},
		[]string{"service", "operation", "status"},
	)

	ExternalServiceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenicloopd_external_service_request_duration_seconds",
			Help:    "External service request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"service", "operation"},
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenicloopd_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"service"},
	)

	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenicloopd_rate_limit_wait_duration_seconds",
			Help:    "Time spent waiting for rate limits",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"service"},
	)

	// Cache metrics (elevation tile LRU)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenicloopd_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenicloopd_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenicloopd_cache_size",
			Help: "Current number of items in cache",
		},
		[]string{"cache_type"},
	)

	// Connection metrics
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenicloopd_active_connections",
			Help: "Number of active connections",
		},
		[]string{"transport", "type"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenicloopd_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenicloopd_system_info",
			Help: "System information",
		},
		[]string{"version", "go_version", "build_commit", "build_date"},
	)

	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenicloopd_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenicloopd_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)

	GCRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenicloopd_gc_runs_total",
			Help: "Total number of garbage collection runs",
		},
	)
)

// TransportInfo holds transport configuration and status
type TransportInfo struct {
	Type           string `json:"type"`                      // e.g. "stdio"
	HTTPAddr       string `json:"http_addr,omitempty"`       // monitoring HTTP address if enabled
	ActiveSessions int    `json:"active_sessions,omitempty"` // Active sessions
}

// Service health and info structures
type ServiceHealth struct {
	Service       string                 `json:"service"`
	Version       string                 `json:"version"`
	Status        string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime        time.Duration          `json:"uptime"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	StartTime     time.Time              `json:"start_time,omitempty"`
	Connections   map[string]ConnStatus  `json:"connections"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
	Transport     *TransportInfo         `json:"transport,omitempty"`
}

type ConnStatus struct {
	Status    string `json:"status"`               // "connected", "disconnected", "error"
	Latency   int64  `json:"latency_ms,omitempty"` // Optional latency in milliseconds
	LastError string `json:"last_error,omitempty"` // Last error message if any
}

// Helper functions for common metric updates

// RecordMessage records one dispatched session message's outcome and
// handling latency, keyed by its wire tag.
func RecordMessage(tag string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	MessagesTotal.WithLabelValues(tag, status).Inc()
	MessageDuration.WithLabelValues(tag).Observe(duration.Seconds())
}

// RecordEnumerationRun records one completed or cancelled enumeration run.
func RecordEnumerationRun(routesEmitted int, duration time.Duration, hitIterationCap bool) {
	EnumerationRoutesEmitted.Observe(float64(routesEmitted))
	EnumerationDuration.Observe(duration.Seconds())
	if hitIterationCap {
		EnumerationIterationCapHit.Inc()
	}
}

// RecordPrepareStage records one preparation pipeline stage's duration.
func RecordPrepareStage(stage string, duration time.Duration) {
	PrepareStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordExternalServiceRequest(service, operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	ExternalServiceRequestsTotal.WithLabelValues(service, operation, status).Inc()
	ExternalServiceRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

func UpdateCacheSize(cacheType string, size int) {
	CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

func RecordRateLimitExceeded(service string) {
	RateLimitExceeded.WithLabelValues(service).Inc()
}

func RecordRateLimitWait(service string, duration time.Duration) {
	RateLimitWaitTime.WithLabelValues(service).Observe(duration.Seconds())
}

func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func UpdateActiveConnections(transport, connType string, count int) {
	ActiveConnections.WithLabelValues(transport, connType).Set(float64(count))
}
