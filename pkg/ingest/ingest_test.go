package ingest

import (
	"strings"
	"testing"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

func TestQueryBuilderDefaultFilter(t *testing.T) {
	q := NewQueryBuilder().WithBoundingBox(geo.BoundingBox{MinLat: 1, MinLon: 2, MaxLat: 3, MaxLon: 4}).Build()
	if !strings.Contains(q, DefaultFilter) {
		t.Errorf("Build() = %q, want it to contain default filter %q", q, DefaultFilter)
	}
	if !strings.Contains(q, "(1,2,3,4)") {
		t.Errorf("Build() = %q, want bounding box clause", q)
	}
}

func TestQueryBuilderCustomFilter(t *testing.T) {
	q := NewQueryBuilder().WithFilter(`["highway"="residential"]`).Build()
	if !strings.Contains(q, `["highway"="residential"]`) {
		t.Errorf("Build() = %q, want custom filter honored", q)
	}
}

func TestRealizeBoundaryBox(t *testing.T) {
	b := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 1, West: 2, North: 3, East: 4}
	bb, poly := RealizeBoundary(b)
	if bb.MinLat != 1 || bb.MaxLon != 4 {
		t.Errorf("RealizeBoundary() bbox = %+v", bb)
	}
	if poly != nil {
		t.Errorf("expected nil polygon for box boundary, got %v", poly)
	}
}

func TestRealizeBoundaryCircleHas64Segments(t *testing.T) {
	b := routegraph.Boundary{Type: routegraph.BoundaryCircle, Center: [2]float64{40, -105}, RadiusMiles: 5}
	_, poly := RealizeBoundary(b)
	if len(poly) != circleSegments {
		t.Errorf("len(poly) = %d, want %d", len(poly), circleSegments)
	}
}

func TestNearestNode(t *testing.T) {
	g := routegraph.New()
	g.AddNode(&routegraph.Node{ID: 0, Latitude: 0, Longitude: 0})
	g.AddNode(&routegraph.Node{ID: 1, Latitude: 10, Longitude: 10})

	id, ok := NearestNode(g, geo.Point{Lat: 0.001, Lng: 0.001})
	if !ok || id != 0 {
		t.Errorf("NearestNode() = (%d, %v), want (0, true)", id, ok)
	}
}

func TestShortestPathAlongPolyline(t *testing.T) {
	g := routegraph.New()
	g.AddNode(&routegraph.Node{ID: 0, Latitude: 0, Longitude: 0})
	g.AddNode(&routegraph.Node{ID: 1, Latitude: 0, Longitude: 0.01})
	g.AddNode(&routegraph.Node{ID: 2, Latitude: 0, Longitude: 0.02})
	g.AddEdge(&routegraph.Edge{From: 0, To: 1, LengthM: 100})
	g.AddEdge(&routegraph.Edge{From: 1, To: 2, LengthM: 100})

	path, ok := ShortestPathAlongPolyline(g, []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.02}})
	if !ok {
		t.Fatalf("expected a path to be found")
	}
	if len(path) == 0 || path[0] != 0 || path[len(path)-1] != 2 {
		t.Errorf("path = %v, want it to start at 0 and end at 2", path)
	}
}
