package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	// Test that all metrics are properly registered
	metrics := []prometheus.Collector{
		MessagesTotal,
		MessageDuration,
		EnumerationRoutesEmitted,
		EnumerationDuration,
		EnumerationIterationCapHit,
		PrepareStageDuration,
		ExternalServiceRequestsTotal,
		ExternalServiceRequestDuration,
		RateLimitExceeded,
		RateLimitWaitTime,
		CacheHits,
		CacheMisses,
		CacheSize,
		ActiveConnections,
		ErrorsTotal,
		SystemInfo,
		GoRoutines,
		MemoryUsage,
		GCRuns,
	}

	for _, metric := range metrics {
		if metric == nil {
			t.Error("Metric is nil")
		}
	}
}

func TestRecordMessage(t *testing.T) {
	// Clear any existing metrics
	MessagesTotal.Reset()

	// Test successful message
	RecordMessage("LIST_GRAPHS", 100*time.Millisecond, true)

	// Check counter
	if got := testutil.ToFloat64(MessagesTotal.WithLabelValues("LIST_GRAPHS", "success")); got != 1 {
		t.Errorf("Expected 1 successful message, got %v", got)
	}

	// Test failed message
	RecordMessage("LIST_GRAPHS", 200*time.Millisecond, false)

	// Check counter
	if got := testutil.ToFloat64(MessagesTotal.WithLabelValues("LIST_GRAPHS", "error")); got != 1 {
		t.Errorf("Expected 1 failed message, got %v", got)
	}
}

func TestRecordEnumerationRun(t *testing.T) {
	EnumerationIterationCapHit.Add(0) // ensure registered before snapshot
	before := testutil.ToFloat64(EnumerationIterationCapHit)

	RecordEnumerationRun(12, 250*time.Millisecond, false)
	RecordEnumerationRun(0, 10*time.Millisecond, true)

	if got := testutil.ToFloat64(EnumerationIterationCapHit); got != before+1 {
		t.Errorf("Expected iteration cap counter to increment by 1, got delta %v", got-before)
	}
}

func TestRecordPrepareStage(t *testing.T) {
	RecordPrepareStage("consolidate_intersections", 5*time.Millisecond)
	// Histogram observations aren't easily asserted on; this just checks it
	// doesn't panic.
}

func TestRecordExternalServiceRequest(t *testing.T) {
	// Clear any existing metrics
	ExternalServiceRequestsTotal.Reset()

	// Test successful request
	RecordExternalServiceRequest("overpass", "road_network", 500*time.Millisecond, true)

	// Check counter
	if got := testutil.ToFloat64(ExternalServiceRequestsTotal.WithLabelValues("overpass", "road_network", "success")); got != 1 {
		t.Errorf("Expected 1 successful external request, got %v", got)
	}

	// Test failed request
	RecordExternalServiceRequest("overpass", "road_network", 300*time.Millisecond, false)

	// Check counter
	if got := testutil.ToFloat64(ExternalServiceRequestsTotal.WithLabelValues("overpass", "road_network", "error")); got != 1 {
		t.Errorf("Expected 1 failed external request, got %v", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	// Clear any existing metrics
	CacheHits.Reset()
	CacheMisses.Reset()
	CacheSize.Reset()

	// Test cache hit
	RecordCacheHit("elevation_tile")
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("elevation_tile")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}

	// Test cache miss
	RecordCacheMiss("elevation_tile")
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("elevation_tile")); got != 1 {
		t.Errorf("Expected 1 cache miss, got %v", got)
	}

	// Test cache size update
	UpdateCacheSize("elevation_tile", 42)
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("elevation_tile")); got != 42 {
		t.Errorf("Expected cache size 42, got %v", got)
	}
}

func TestRateLimitMetrics(t *testing.T) {
	// Clear any existing metrics
	RateLimitExceeded.Reset()
	RateLimitWaitTime.Reset()

	// Test rate limit exceeded
	RecordRateLimitExceeded("overpass")
	if got := testutil.ToFloat64(RateLimitExceeded.WithLabelValues("overpass")); got != 1 {
		t.Errorf("Expected 1 rate limit exceeded, got %v", got)
	}

	// Test rate limit wait time
	RecordRateLimitWait("overpass", 1*time.Second)
	// We can't easily test histogram values, but we can check that it doesn't panic
}

func TestErrorMetrics(t *testing.T) {
	// Clear any existing metrics
	ErrorsTotal.Reset()

	// Test error recording
	RecordError("prepare", "empty_after_exclusion")
	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("prepare", "empty_after_exclusion")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
}

func TestUpdateActiveConnections(t *testing.T) {
	// Clear any existing metrics
	ActiveConnections.Reset()

	// Test connection update
	UpdateActiveConnections("stdio", "client", 5)
	if got := testutil.ToFloat64(ActiveConnections.WithLabelValues("stdio", "client")); got != 5 {
		t.Errorf("Expected 5 active connections, got %v", got)
	}
}

func BenchmarkRecordMessage(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordMessage("START_GENERATION", 100*time.Millisecond, true)
	}
}

func BenchmarkRecordExternalServiceRequest(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordExternalServiceRequest("overpass", "road_network", 100*time.Millisecond, true)
	}
}

func BenchmarkRecordCacheHit(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordCacheHit("elevation_tile")
	}
}
