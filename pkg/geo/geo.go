// Package geo provides the WGS84 geometry primitives every other package
// builds on: point/bounding-box types, great-circle distance and bearing,
// geodesic polyline length, arc-length sampling, and polygon containment.
package geo

import "math"

// EarthRadiusMeters is the mean radius used for haversine distance.
const EarthRadiusMeters = 6371000.0

// MetersPerDegree is the degree-approximation used for small local buffers
// and coarse centroid-distance filters. It is deliberately distinct from
// the geodesic calculations used for reported route mileage; see
// GeodesicLength for the great-circle computation.
const MetersPerDegree = 111111.0

// MetersPerDegreeCentroid is the degree approximation used specifically by
// the diversity filter's centroid-distance check, matching the constant
// used by the system this was ported from.
const MetersPerDegreeCentroid = 111139.0

// Location is a WGS84 point.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Point is an alias used where the coordinate carries no semantic meaning
// beyond "a vertex of a polyline".
type Point struct {
	Lat float64
	Lng float64
}

// BoundingBox is an axis-aligned lat/lng box.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains reports whether p lies within the box, inclusive of edges.
func (b BoundingBox) Contains(p Location) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// HaversineDistance returns the great-circle distance in meters between
// two lat/lng points.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// BearingDeg returns the WGS84 forward azimuth from p1 to p2 in [0,360).
func BearingDeg(p1, p2 Point) float64 {
	phi1 := p1.Lat * math.Pi / 180
	phi2 := p2.Lat * math.Pi / 180
	dLambda := (p2.Lng - p1.Lng) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	deg := math.Mod(theta*180/math.Pi+360, 360)
	return deg
}

// GeodesicLength sums the haversine distance between consecutive vertices
// of a polyline, in meters.
func GeodesicLength(polyline []Point) float64 {
	total := 0.0
	for i := 1; i < len(polyline); i++ {
		total += HaversineDistance(polyline[i-1].Lat, polyline[i-1].Lng, polyline[i].Lat, polyline[i].Lng)
	}
	return total
}

// Interpolate returns the point at the given arc-length fraction (0..1)
// along polyline, measured by the polyline's own geodesic length. A
// polyline of fewer than two points returns its single point (or the zero
// Point if empty).
func Interpolate(polyline []Point, fraction float64) Point {
	if len(polyline) == 0 {
		return Point{}
	}
	if len(polyline) == 1 || fraction <= 0 {
		return polyline[0]
	}
	if fraction >= 1 {
		return polyline[len(polyline)-1]
	}

	total := GeodesicLength(polyline)
	target := total * fraction
	acc := 0.0
	for i := 1; i < len(polyline); i++ {
		segLen := HaversineDistance(polyline[i-1].Lat, polyline[i-1].Lng, polyline[i].Lat, polyline[i].Lng)
		if acc+segLen >= target || i == len(polyline)-1 {
			if segLen == 0 {
				return polyline[i]
			}
			segFrac := (target - acc) / segLen
			if segFrac < 0 {
				segFrac = 0
			}
			if segFrac > 1 {
				segFrac = 1
			}
			return Point{
				Lat: polyline[i-1].Lat + (polyline[i].Lat-polyline[i-1].Lat)*segFrac,
				Lng: polyline[i-1].Lng + (polyline[i].Lng-polyline[i-1].Lng)*segFrac,
			}
		}
		acc += segLen
	}
	return polyline[len(polyline)-1]
}

// Sample is one uniform arc-length sample: cumulative distance from the
// start of the polyline, the point, and the forward bearing at that point.
type Sample struct {
	CumulativeM float64
	Lat         float64
	Lng         float64
	BearingDeg  float64
}

// UniformSamples yields samples at approximately spacingM intervals along
// polyline, guaranteeing at least two samples (both endpoints) when the
// polyline has at least two vertices. Bearing at each sample is the
// forward azimuth of the segment the sample falls on.
func UniformSamples(polyline []Point, spacingM float64) []Sample {
	if len(polyline) < 2 || spacingM <= 0 {
		if len(polyline) == 1 {
			return []Sample{{CumulativeM: 0, Lat: polyline[0].Lat, Lng: polyline[0].Lng}}
		}
		return nil
	}

	total := GeodesicLength(polyline)
	n := int(math.Ceil(total / spacingM))
	if n < 1 {
		n = 1
	}

	samples := make([]Sample, 0, n+1)
	for i := 0; i <= n; i++ {
		d := float64(i) * total / float64(n)
		frac := 0.0
		if total > 0 {
			frac = d / total
		}
		pt := Interpolate(polyline, frac)
		bearing := segmentBearingAt(polyline, frac)
		samples = append(samples, Sample{CumulativeM: d, Lat: pt.Lat, Lng: pt.Lng, BearingDeg: bearing})
	}
	return samples
}

// segmentBearingAt finds the bearing of the segment covering arc-length
// fraction frac.
func segmentBearingAt(polyline []Point, frac float64) float64 {
	total := GeodesicLength(polyline)
	target := total * frac
	acc := 0.0
	for i := 1; i < len(polyline); i++ {
		segLen := HaversineDistance(polyline[i-1].Lat, polyline[i-1].Lng, polyline[i].Lat, polyline[i].Lng)
		if acc+segLen >= target || i == len(polyline)-1 {
			return BearingDeg(polyline[i-1], polyline[i])
		}
		acc += segLen
	}
	return BearingDeg(polyline[len(polyline)-2], polyline[len(polyline)-1])
}

// PolygonContains reports whether point lies strictly inside the polygon
// (ray casting, vertices as lat/lng). The polygon is treated as an open
// ring; callers pass a closed or open vertex list.
func PolygonContains(poly []Point, point Point) bool {
	inside := false
	n := len(poly)
	if n < 3 {
		return false
	}
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := poly[i].Lng, poly[i].Lat
		xj, yj := poly[j].Lng, poly[j].Lat
		if ((yi > point.Lat) != (yj > point.Lat)) &&
			(point.Lng < (xj-xi)*(point.Lat-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}
	return inside
}

// LineBuffer returns a bounding box around line, expanded by degrees in
// every direction. This is the degree-approximation buffer used for
// coarse "nodes near polyline" spatial queries, not a precise geodesic
// buffer polygon.
func LineBuffer(line []Point, degrees float64) BoundingBox {
	if len(line) == 0 {
		return BoundingBox{}
	}
	bb := BoundingBox{
		MinLat: line[0].Lat, MaxLat: line[0].Lat,
		MinLon: line[0].Lng, MaxLon: line[0].Lng,
	}
	for _, p := range line[1:] {
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
	bb.MinLat -= degrees
	bb.MaxLat += degrees
	bb.MinLon -= degrees
	bb.MaxLon += degrees
	return bb
}

// MetersToDegreesLat converts a meter offset to an approximate degrees-of-
// latitude offset, using the degree approximation (not geodesic).
func MetersToDegreesLat(m float64) float64 {
	return m / MetersPerDegree
}

// MilesToDegreesLat converts a statute-mile radius to an approximate
// degrees-of-latitude offset, matching the 69 mi/degree approximation used
// for circle-boundary realization.
func MilesToDegreesLat(miles float64) float64 {
	return miles / 69.0
}

// MilesToDegreesLon converts a statute-mile radius to an approximate
// degrees-of-longitude offset at the given latitude, matching the
// 69*cos(lat) mi/degree approximation used for circle-boundary
// realization.
func MilesToDegreesLon(miles, atLat float64) float64 {
	return miles / (69.0 * math.Cos(atLat*math.Pi/180))
}

const MilesToMeters = 1609.34
