package graphstore

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/NERVsystems/scenicloops/pkg/elevation"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

type zeroSource struct{}

func (zeroSource) LoadTile(ctx context.Context, tileLat, tileLon int) (*elevation.Tile, error) {
	n := 4
	samples := make([]int16, n*n)
	for i := range samples {
		samples[i] = 42
	}
	return &elevation.Tile{TileLat: tileLat, TileLon: tileLon, SamplesPerSide: n, Samples: samples}, nil
}

func testGraph() *routegraph.Graph {
	g := routegraph.New()
	g.AddNode(&routegraph.Node{ID: 0, Latitude: 10, Longitude: 20})
	g.AddNode(&routegraph.Node{ID: 1, Latitude: 10.001, Longitude: 20.001})
	g.AddEdge(&routegraph.Edge{From: 0, To: 1, LengthM: 120, Name: routegraph.SingleName("Test Rd")})
	g.AddEdge(&routegraph.Edge{From: 1, To: 0, LengthM: 120, Name: routegraph.SingleName("Test Rd")})
	return g
}

func TestSaveListLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	oracle, err := elevation.New(slog.Default(), zeroSource{}, 4)
	if err != nil {
		t.Fatalf("elevation.New() error = %v", err)
	}
	store, err := New(dir, slog.Default(), oracle)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	g := testGraph()
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 9, West: 19, North: 11, East: 21}
	if err := store.Save("test-area", g, boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != "test-area" {
		t.Fatalf("List() = %v, want [test-area]", names)
	}

	loaded, loadedBoundary, err := store.Load(context.Background(), "test-area")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.NodeCount() != g.NodeCount() {
		t.Errorf("NodeCount() = %d, want %d", loaded.NodeCount(), g.NodeCount())
	}
	if loadedBoundary.Type != routegraph.BoundaryBox {
		t.Errorf("Boundary.Type = %q, want box", loadedBoundary.Type)
	}
}

func TestLoadMissingGraphReturnsErrNotFound(t *testing.T) {
	dir := t.TempDir()
	oracle, _ := elevation.New(slog.Default(), zeroSource{}, 4)
	store, _ := New(dir, slog.Default(), oracle)

	_, _, err := store.Load(context.Background(), "does-not-exist")
	if err == nil {
		t.Fatalf("expected an error for a missing graph")
	}
}

func TestListBoundariesServesFromCacheAfterSidecarRemoval(t *testing.T) {
	dir := t.TempDir()
	oracle, _ := elevation.New(slog.Default(), zeroSource{}, 4)
	store, err := New(dir, slog.Default(), oracle)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	g := testGraph()
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 1, West: 2, North: 3, East: 4}
	if err := store.Save("cached-area", g, boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := store.ListBoundaries(); err != nil {
		t.Fatalf("ListBoundaries() error = %v", err)
	}

	if err := os.Remove(store.boundaryPath("cached-area")); err != nil {
		t.Fatalf("removing sidecar: %v", err)
	}

	boundaries, err := store.ListBoundaries()
	if err != nil {
		t.Fatalf("ListBoundaries() error = %v", err)
	}
	got, ok := boundaries["cached-area"]
	if !ok {
		t.Fatalf("expected cached-area to still be served from cache after sidecar removal")
	}
	if got.Type != routegraph.BoundaryBox || got.South != 1 {
		t.Errorf("ListBoundaries() = %+v, want the saved boundary", got)
	}
}

func TestSwitchInstallsActiveGraph(t *testing.T) {
	dir := t.TempDir()
	oracle, _ := elevation.New(slog.Default(), zeroSource{}, 4)
	store, _ := New(dir, slog.Default(), oracle)

	g := testGraph()
	_ = store.Save("area-a", g, routegraph.Boundary{Type: routegraph.BoundaryBox})

	if store.Active() != nil {
		t.Fatalf("expected no active graph before Switch")
	}
	if err := store.Switch(context.Background(), "area-a"); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if got := store.Active(); got == nil || got.Name != "area-a" {
		t.Fatalf("Active() = %+v, want area-a", got)
	}
}
