package routegraph

import "github.com/NERVsystems/scenicloops/pkg/geo"

// BoundaryType discriminates the three ways a graph's coverage area can
// be described.
type BoundaryType string

const (
	BoundaryBox     BoundaryType = "box"
	BoundaryPolygon BoundaryType = "polygon"
	BoundaryCircle  BoundaryType = "circle"
)

// Boundary is the sidecar descriptor persisted alongside a graph blob,
// matching the wire protocol's boundary JSON shape.
type Boundary struct {
	Type BoundaryType `json:"type"`

	South float64 `json:"south,omitempty"`
	West  float64 `json:"west,omitempty"`
	North float64 `json:"north,omitempty"`
	East  float64 `json:"east,omitempty"`

	Coordinates [][2]float64 `json:"coordinates,omitempty"`

	Center      [2]float64 `json:"center,omitempty"`
	RadiusMiles float64    `json:"radius_miles,omitempty"`

	ExclusionZones [][][2]float64 `json:"exclusion_zones,omitempty"`
}

// ExclusionPolygons converts the JSON exclusion zones into geo.Point
// rings for use by the preparation pipeline's exclusion-masking stage.
func (b Boundary) ExclusionPolygons() [][]geo.Point {
	if len(b.ExclusionZones) == 0 {
		return nil
	}
	out := make([][]geo.Point, 0, len(b.ExclusionZones))
	for _, zone := range b.ExclusionZones {
		ring := make([]geo.Point, 0, len(zone))
		for _, ll := range zone {
			ring = append(ring, geo.Point{Lat: ll[0], Lng: ll[1]})
		}
		out = append(out, ring)
	}
	return out
}
