package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/tracing"
)

// DefaultUserAgent identifies this service to the Overpass endpoint.
const DefaultUserAgent = "scenicloops/0.1.0"

// Client fetches raw road-network data from an Overpass-style endpoint,
// rate limiting requests the way the teacher's osm.Client rate limits
// Nominatim/Overpass/OSRM requests per host.
type Client struct {
	logger      *slog.Logger
	endpointURL string
	userAgent   string
	limiter     *rate.Limiter
	http        *fasthttp.Client
}

// NewClient constructs a Client targeting endpointURL (an Overpass API
// instance) with the given requests-per-second / burst rate limit.
func NewClient(logger *slog.Logger, endpointURL string, rps float64, burst int) *Client {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		logger:      logger,
		endpointURL: endpointURL,
		userAgent:   DefaultUserAgent,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		http: &fasthttp.Client{
			MaxConnsPerHost:     10,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        30 * time.Second,
		},
	}
}

// UpdateRateLimit replaces the limiter, mirroring the teacher's
// UpdateOverpassRateLimits.
func (c *Client) UpdateRateLimit(rps float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// FetchRoadNetwork runs query against the Overpass endpoint and returns
// the raw JSON response body.
func (c *Client) FetchRoadNetwork(ctx context.Context, query string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.fetch_road_network")
	defer span.End()

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for overpass rate limit: %w", err)
	}
	if wait := time.Since(waitStart); wait > 0 {
		monitoring.RecordRateLimitWait(tracing.ServiceOverpass, wait)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpointURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString("data=" + query)

	start := time.Now()
	if err := c.http.Do(req, resp); err != nil {
		monitoring.RecordExternalServiceRequest(tracing.ServiceOverpass, "fetch_road_network", time.Since(start), false)
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		monitoring.RecordExternalServiceRequest(tracing.ServiceOverpass, "fetch_road_network", time.Since(start), false)
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode())
	}
	monitoring.RecordExternalServiceRequest(tracing.ServiceOverpass, "fetch_road_network", time.Since(start), true)

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// CheckHealth does a minimal reachability probe against the endpoint,
// grounded on the teacher's CheckOverpassHealth.
func (c *Client) CheckHealth(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpointURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)

	if err := c.http.DoTimeout(req, resp, 5*time.Second); err != nil {
		return fmt.Errorf("overpass health check failed: %w", err)
	}
	return nil
}
