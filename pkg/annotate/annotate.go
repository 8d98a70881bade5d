// Package annotate turns a node sequence from the loop enumerator into a
// fully annotated route: a uniformly sampled elevation/bearing profile,
// climb/descent totals, a difficulty score, a centroid, and a GeoJSON
// feature ready to push to the map client.
package annotate

import (
	"context"
	"fmt"
	"math"

	geojson "github.com/paulmach/go.geojson"

	"github.com/NERVsystems/scenicloops/pkg/bitset"
	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// ProfileSampleSpacingM is the arc-length spacing used for the elevation
// profile and for centroid computation when none is supplied.
const ProfileSampleSpacingM = 50.0

// dedupeRadiusM drops a sample that falls within this distance of the
// previous retained sample; edge boundaries otherwise emit one sample on
// each side.
const dedupeRadiusM = 1.0

const metersToFeet = 3.28084

// ElevationLookup resolves a single elevation sample; satisfied by
// *elevation.Oracle without an import cycle.
type ElevationLookup interface {
	Lookup(ctx context.Context, lat, lng float64) (meters float64, ok bool)
}

// ProfileRow is one row of the sampled elevation/bearing profile, rounded
// to the precision spec.md §4.G fixes: 3dp miles, 1dp feet, 6dp lat/lng,
// 1dp bearing.
type ProfileRow struct {
	Miles      float64
	Feet       float64
	Lat        float64
	Lng        float64
	BearingDeg float64
}

// Route is a fully annotated loop ready for the wire protocol's
// PATH_RECEIVED payload.
type Route struct {
	Nodes         []int
	Mask          *bitset.Set
	Turns         int
	LoopRatio     float64
	LoopMiles     float64
	TotalMiles    float64
	ClimbFeet     float64
	DescentFeet   float64
	Difficulty    float64
	Profile       []ProfileRow
	Centroid      geo.Point
	geometry      []geo.Point
}

// Annotate samples the node sequence's geometry, queries elevation for
// each unique sample, and computes summary statistics. loopRatio/turns
// are carried through from the enumerator's acceptance decision rather
// than recomputed.
func Annotate(ctx context.Context, g *routegraph.Graph, nodes []int, mask *bitset.Set, turns int, loopDistanceM, totalDistanceM, loopRatio float64, oracle ElevationLookup) Route {
	polyline := routegraph.BuildPolyline(g, nodes)
	samples := sampleDeduped(polyline, ProfileSampleSpacingM)

	var profile []ProfileRow
	var climbM, descentM float64
	var sumLat, sumLng float64
	retained := 0
	var prevElevM float64
	havePrev := false

	for _, s := range samples {
		elevM, ok := oracle.Lookup(ctx, s.Lat, s.Lng)
		if !ok {
			continue
		}
		if havePrev {
			delta := elevM - prevElevM
			if delta > 0 {
				climbM += delta
			} else {
				descentM += -delta
			}
		}
		prevElevM = elevM
		havePrev = true

		miles := s.CumulativeM / geo.MilesToMeters
		profile = append(profile, ProfileRow{
			Miles:      round(miles, 3),
			Feet:       round(elevM*metersToFeet, 1),
			Lat:        round(s.Lat, 6),
			Lng:        round(s.Lng, 6),
			BearingDeg: round(s.BearingDeg, 1),
		})
		sumLat += s.Lat
		sumLng += s.Lng
		retained++
	}

	centroid := geo.Point{}
	if retained > 0 {
		centroid = geo.Point{Lat: sumLat / float64(retained), Lng: sumLng / float64(retained)}
	}

	climbFeet := climbM * metersToFeet
	descentFeet := descentM * metersToFeet
	totalMiles := totalDistanceM / geo.MilesToMeters
	loopMiles := loopDistanceM / geo.MilesToMeters

	return Route{
		Nodes:       nodes,
		Mask:        mask,
		Turns:       turns,
		LoopRatio:   loopRatio,
		LoopMiles:   round(loopMiles, 3),
		TotalMiles:  round(totalMiles, 3),
		ClimbFeet:   round(climbFeet, 1),
		DescentFeet: round(descentFeet, 1),
		Difficulty:  difficulty(climbFeet, totalMiles),
		Profile:     profile,
		Centroid:    centroid,
		geometry:    polyline,
	}
}

// difficulty implements spec.md §4.G's formula, clamped to [1,10] since
// the raw formula can exceed either bound.
func difficulty(climbFeet, miles float64) float64 {
	if miles <= 0 {
		return 1
	}
	raw := 1 + 9*(climbFeet/miles)/200
	if raw < 1 {
		raw = 1
	}
	if raw > 10 {
		raw = 10
	}
	return round(raw, 1)
}

// sampleDeduped uniformly samples polyline and drops any sample within
// dedupeRadiusM of the previously retained one, matching spec.md §4.G's
// "edge boundaries emit one sample on each side" allowance.
func sampleDeduped(polyline []geo.Point, spacingM float64) []geo.Sample {
	raw := geo.UniformSamples(polyline, spacingM)
	if len(raw) == 0 {
		return nil
	}
	out := make([]geo.Sample, 0, len(raw))
	out = append(out, raw[0])
	for _, s := range raw[1:] {
		last := out[len(out)-1]
		d := geo.HaversineDistance(last.Lat, last.Lng, s.Lat, s.Lng)
		if d < dedupeRadiusM {
			continue
		}
		out = append(out, s)
	}
	return out
}

func round(v float64, dp int) float64 {
	scale := math.Pow(10, float64(dp))
	return math.Round(v*scale) / scale
}

// GeoJSON builds the map-client feature: the merged route polyline plus
// every property spec.md §4.G lists.
func (r Route) GeoJSON() *geojson.Feature {
	coords := make([][]float64, 0, len(r.geometry))
	for _, p := range r.geometry {
		coords = append(coords, []float64{p.Lng, p.Lat})
	}
	feature := geojson.NewFeature(geojson.NewLineStringGeometry(coords))

	feature.SetProperty("turns", r.Turns)
	feature.SetProperty("visited_mask", r.Mask.HexString())
	feature.SetProperty("loop_ratio", r.LoopRatio)
	feature.SetProperty("loop_miles", r.LoopMiles)
	feature.SetProperty("total_miles", r.TotalMiles)
	feature.SetProperty("node_count", len(r.Nodes))
	feature.SetProperty("climb_feet", r.ClimbFeet)
	feature.SetProperty("descent_feet", r.DescentFeet)
	feature.SetProperty("difficulty", r.Difficulty)
	feature.SetProperty("profile", r.Profile)
	feature.SetProperty("centroid", []float64{r.Centroid.Lat, r.Centroid.Lng})

	return feature
}

// MarshalJSON allows Route to serve directly as the wire protocol's
// PATH_RECEIVED "path" field.
func (r Route) MarshalJSON() ([]byte, error) {
	feature := r.GeoJSON()
	b, err := feature.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshaling route geojson: %w", err)
	}
	return b, nil
}
