package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for dispatcher and pipeline operations
const (
	// Dispatched session message attributes
	AttrMessageTag        = "scenicloop.message.tag"
	AttrMessageStatus     = "scenicloop.message.status"
	AttrMessageDuration   = "scenicloop.message.duration_ms"
	AttrMessageResultSize = "scenicloop.message.result_size"

	// Enumeration run attributes
	AttrEnumStartNode     = "scenicloop.enum.start_node"
	AttrEnumRoutesEmitted = "scenicloop.enum.routes_emitted"
	AttrEnumIterationCap  = "scenicloop.enum.hit_iteration_cap"

	// Preparation pipeline stage attributes
	AttrPrepareStage = "scenicloop.prepare.stage"

	// External service attributes
	AttrServiceName      = "scenicloop.service.name"
	AttrServiceOperation = "scenicloop.service.operation"
	AttrServiceURL       = "scenicloop.service.url"
	AttrServiceStatus    = "scenicloop.service.status"

	// Cache attributes
	AttrCacheType = "scenicloop.cache.type"
	AttrCacheHit  = "scenicloop.cache.hit"
	AttrCacheKey  = "scenicloop.cache.key"

	// Rate limiting attributes
	AttrRateLimitService = "scenicloop.ratelimit.service"
	AttrRateLimitWaitMs  = "scenicloop.ratelimit.wait_ms"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusTimeout     = "timeout"
	StatusRateLimited = "rate_limited"
)

// Service names
const (
	ServiceOverpass  = "overpass"
	ServiceElevation = "elevation_tiles"
)

// Cache types
const (
	CacheTypeElevationTile = "elevation_tile"
	CacheTypeSnap          = "snap"
)

// Helper functions for common attributes

// MessageAttributes returns attributes for a dispatched session message.
func MessageAttributes(tag string, status string, durationMs int64, resultSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMessageTag, tag),
		attribute.String(AttrMessageStatus, status),
		attribute.Int64(AttrMessageDuration, durationMs),
		attribute.Int(AttrMessageResultSize, resultSize),
	}
}

// EnumerationAttributes returns attributes for a completed enumeration run.
func EnumerationAttributes(startNode, routesEmitted int, hitIterationCap bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrEnumStartNode, startNode),
		attribute.Int(AttrEnumRoutesEmitted, routesEmitted),
		attribute.Bool(AttrEnumIterationCap, hitIterationCap),
	}
}

// PrepareStageAttributes returns attributes for one preparation stage.
func PrepareStageAttributes(stage string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrPrepareStage, stage),
	}
}

// ServiceAttributes returns attributes for external service calls
func ServiceAttributes(service, operation, url string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrServiceName, service),
		attribute.String(AttrServiceOperation, operation),
		attribute.String(AttrServiceURL, url),
		attribute.Int(AttrServiceStatus, status),
	}
}

// CacheAttributes returns attributes for cache operations
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
