// Package elevation implements the process-wide elevation oracle: a
// lazily initialized SRTM-backed lookup with a resident 1x1 degree tile
// cache. Two distinct missing-elevation policies exist in this codebase
// and are kept separate on purpose: node-attach time substitutes 0 (see
// pkg/prepare), while route-profile sampling skips the sample entirely
// (see pkg/annotate). This package only ever reports "missing"; it never
// decides which policy applies.
package elevation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/tracing"
)

// TileSource loads the raw sample grid for one 1x1 degree SRTM tile. In
// production this fetches from a local SRTM cache directory or a remote
// tile store; swappable for tests.
type TileSource interface {
	LoadTile(ctx context.Context, tileLat, tileLon int) (*Tile, error)
}

// Tile holds decoded elevation samples for a single 1x1 degree cell. The
// grid is SamplesPerSide x SamplesPerSide, row-major from the
// north-west corner, matching SRTM's HGT layout.
type Tile struct {
	TileLat, TileLon int
	SamplesPerSide   int
	Samples          []int16 // missing sample encoded as math.MinInt16
}

const missingSample = math.MinInt16

// Oracle is the process-wide elevation lookup. Safe for concurrent use;
// internally serializes tile loads via singleflight so concurrent
// first-touches of the same tile collapse into one fetch.
type Oracle struct {
	logger *slog.Logger
	source TileSource

	mu       sync.Mutex
	initOnce sync.Once

	cache *lru.Cache[string, *Tile]
	group singleflight.Group

	missingCount int
}

// New constructs an Oracle backed by source, caching up to tileCapacity
// resident tiles.
func New(logger *slog.Logger, source TileSource, tileCapacity int) (*Oracle, error) {
	if tileCapacity <= 0 {
		tileCapacity = 16
	}
	cache, err := lru.New[string, *Tile](tileCapacity)
	if err != nil {
		return nil, fmt.Errorf("creating tile cache: %w", err)
	}
	return &Oracle{logger: logger, source: source, cache: cache}, nil
}

// Lookup returns the elevation in meters at (lat,lng), or ok=false if the
// sample is missing from the underlying tile. Lazily loads the covering
// tile on first call.
func (o *Oracle) Lookup(ctx context.Context, lat, lng float64) (meters float64, ok bool) {
	tile, err := o.tileFor(ctx, lat, lng)
	if err != nil {
		o.logger.Warn("elevation tile load failed", "lat", lat, "lng", lng, "error", err)
		o.recordMissing()
		return 0, false
	}

	row, col := sampleIndex(tile, lat, lng)
	idx := row*tile.SamplesPerSide + col
	if idx < 0 || idx >= len(tile.Samples) {
		o.recordMissing()
		return 0, false
	}
	v := tile.Samples[idx]
	if v == missingSample {
		o.recordMissing()
		return 0, false
	}
	return float64(v), true
}

func (o *Oracle) recordMissing() {
	o.mu.Lock()
	o.missingCount++
	o.mu.Unlock()
}

// MissingCount returns the number of lookups that reported a missing
// sample since the oracle was constructed, for logging at the end of a
// pipeline run.
func (o *Oracle) MissingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.missingCount
}

func (o *Oracle) tileFor(ctx context.Context, lat, lng float64) (*Tile, error) {
	tileLat := int(math.Floor(lat))
	tileLon := int(math.Floor(lng))
	key := tileKey(tileLat, tileLon)

	if t, ok := o.cache.Get(key); ok {
		monitoring.RecordCacheHit(tracing.CacheTypeElevationTile)
		return t, nil
	}
	monitoring.RecordCacheMiss(tracing.CacheTypeElevationTile)

	ctx, span := tracing.StartSpan(ctx, "elevation.load_tile")
	defer span.End()

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		if t, ok := o.cache.Get(key); ok {
			return t, nil
		}
		t, err := o.source.LoadTile(ctx, tileLat, tileLon)
		if err != nil {
			return nil, err
		}
		o.cache.Add(key, t)
		monitoring.UpdateCacheSize(tracing.CacheTypeElevationTile, o.cache.Len())
		return t, nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return v.(*Tile), nil
}

func tileKey(tileLat, tileLon int) string {
	return fmt.Sprintf("%d:%d", tileLat, tileLon)
}

func sampleIndex(tile *Tile, lat, lng float64) (row, col int) {
	fracLat := lat - math.Floor(lat)
	fracLon := lng - math.Floor(lng)
	n := tile.SamplesPerSide
	// Row 0 is the northernmost edge of the tile.
	row = int(math.Round((1 - fracLat) * float64(n-1)))
	col = int(math.Round(fracLon * float64(n-1)))
	if row < 0 {
		row = 0
	}
	if row >= n {
		row = n - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= n {
		col = n - 1
	}
	return row, col
}
