package enumerate

import (
	"math"

	"github.com/NERVsystems/scenicloops/pkg/bitset"
	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// dedup tracks acceptance state across a single enumeration run: the
// exact-mask uniqueness check (spec.md §9's fixed "equality, not
// superset" decision) plus whichever diversity mode is configured.
type dedup struct {
	nodeCount      int
	diversity      DiversityMode
	minDistM       float64
	similarityCeil float64

	masks            map[string]struct{}
	acceptedMasks    []*bitset.Set
	acceptedCentroid []geo.Point

	// lastCentroid is set by accept on success so the caller can attach
	// it to the Route without recomputing.
	lastCentroid geo.Point
}

// accept evaluates the exact-mask-uniqueness and diversity filters (in
// that order, as spec.md §4.F lists them after length/ratio) and, if both
// pass, records the new route's mask/centroid for subsequent comparisons.
func (d *dedup) accept(g *routegraph.Graph, mask *bitset.Set, nodes []int) bool {
	key := mask.Key()
	if _, dup := d.masks[key]; dup {
		return false
	}

	switch d.diversity {
	case DiversityJaccard:
		for _, prev := range d.acceptedMasks {
			if mask.JaccardSimilarity(prev) > d.similarityCeil {
				return false
			}
		}
	default:
		centroid := routeCentroid(g, nodes)
		for _, prev := range d.acceptedCentroid {
			if centroidDistanceM(centroid, prev) < d.minDistM {
				return false
			}
		}
		d.lastCentroid = centroid
		d.acceptedCentroid = append(d.acceptedCentroid, centroid)
	}

	d.masks[key] = struct{}{}
	d.acceptedMasks = append(d.acceptedMasks, mask)
	if d.diversity == DiversityJaccard {
		d.lastCentroid = routeCentroid(g, nodes)
	}
	return true
}

// routeCentroid samples the reconstructed route's geometry at 50m
// spacing and averages the resulting lat/lng, matching
// _calculate_path_centroid in the system this was ported from.
func routeCentroid(g *routegraph.Graph, nodes []int) geo.Point {
	poly := routegraph.BuildPolyline(g, nodes)
	samples := geo.UniformSamples(poly, centroidSampleSpacingM)
	if len(samples) == 0 {
		return geo.Point{}
	}
	var sumLat, sumLng float64
	for _, s := range samples {
		sumLat += s.Lat
		sumLng += s.Lng
	}
	n := float64(len(samples))
	return geo.Point{Lat: sumLat / n, Lng: sumLng / n}
}

// centroidDistanceM approximates the distance between two centroids using
// the degree approximation (111139 m/deg), matching the diversity
// filter's documented degree-approximation bias per spec.md §9.
func centroidDistanceM(a, b geo.Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * geo.MetersPerDegreeCentroid
}
