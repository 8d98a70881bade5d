package ingest

import (
	"math"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// circleSegments is the number of vertices used to realize a circle
// boundary as a polygon.
const circleSegments = 64

// RealizeBoundary converts a boundary descriptor into the bounding box
// used to query Overpass plus, for polygon and circle boundaries, the
// boundary polygon itself. A box boundary yields a nil polygon; an
// unknown type yields a zero box and a nil polygon.
func RealizeBoundary(b routegraph.Boundary) (geo.BoundingBox, []geo.Point) {
	switch b.Type {
	case routegraph.BoundaryBox:
		return geo.BoundingBox{MinLat: b.South, MinLon: b.West, MaxLat: b.North, MaxLon: b.East}, nil
	case routegraph.BoundaryPolygon:
		poly := make([]geo.Point, 0, len(b.Coordinates))
		for _, ll := range b.Coordinates {
			poly = append(poly, geo.Point{Lat: ll[0], Lng: ll[1]})
		}
		return boundingBoxOf(poly), poly
	case routegraph.BoundaryCircle:
		poly := circlePolygon(b.Center[0], b.Center[1], b.RadiusMiles)
		return boundingBoxOf(poly), poly
	default:
		return geo.BoundingBox{}, nil
	}
}

// circlePolygon realizes a circle boundary as a 64-segment polygon, each
// vertex placed on the unit circle and affine-scaled by the degree-mile
// approximation (69 mi/degree latitude, 69*cos(lat) mi/degree longitude).
func circlePolygon(centerLat, centerLng, radiusMiles float64) []geo.Point {
	latRadius := geo.MilesToDegreesLat(radiusMiles)
	lngRadius := geo.MilesToDegreesLon(radiusMiles, centerLat)

	poly := make([]geo.Point, 0, circleSegments)
	for i := 0; i < circleSegments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(circleSegments)
		poly = append(poly, geo.Point{
			Lat: centerLat + latRadius*math.Sin(theta),
			Lng: centerLng + lngRadius*math.Cos(theta),
		})
	}
	return poly
}

func boundingBoxOf(poly []geo.Point) geo.BoundingBox {
	if len(poly) == 0 {
		return geo.BoundingBox{}
	}
	bb := geo.BoundingBox{MinLat: poly[0].Lat, MaxLat: poly[0].Lat, MinLon: poly[0].Lng, MaxLon: poly[0].Lng}
	for _, p := range poly[1:] {
		if p.Lat < bb.MinLat {
			bb.MinLat = p.Lat
		}
		if p.Lat > bb.MaxLat {
			bb.MaxLat = p.Lat
		}
		if p.Lng < bb.MinLon {
			bb.MinLon = p.Lng
		}
		if p.Lng > bb.MaxLon {
			bb.MaxLon = p.Lng
		}
	}
	return bb
}
