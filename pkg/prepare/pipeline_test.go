package prepare

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addBidirectional(g *routegraph.Graph, a, b int, lengthM float64) {
	g.AddEdge(&routegraph.Edge{From: a, To: b, LengthM: lengthM})
	g.AddEdge(&routegraph.Edge{From: b, To: a, LengthM: lengthM})
}

// dumbbellGraph builds the S2 fixture: two triangles joined by a bridge of
// 9 intermediate degree-2 nodes (10 bridge edges), all bidirectional.
func dumbbellGraph() *routegraph.Graph {
	g := routegraph.New()
	// Triangle A: 0,1,2.
	for id := 0; id < 3; id++ {
		g.AddNode(&routegraph.Node{ID: id, Latitude: float64(id) * 0.0001, Longitude: 0})
	}
	addBidirectional(g, 0, 1, 10)
	addBidirectional(g, 1, 2, 10)
	addBidirectional(g, 2, 0, 10)

	// Triangle B: 13,14,15 (ids reserved above the bridge's interior nodes).
	base := 13
	for i := 0; i < 3; i++ {
		id := base + i
		g.AddNode(&routegraph.Node{ID: id, Latitude: float64(id) * 0.0001, Longitude: 1})
	}
	addBidirectional(g, base, base+1, 10)
	addBidirectional(g, base+1, base+2, 10)
	addBidirectional(g, base+2, base, 10)

	// Bridge: node 2 -(9 interior degree-2 nodes)- node 13, 10 edges total.
	prev := 2
	for i := 0; i < 9; i++ {
		id := 3 + i
		g.AddNode(&routegraph.Node{ID: id, Latitude: 0, Longitude: float64(i+1) * 0.1})
		addBidirectional(g, prev, id, 5)
		prev = id
	}
	addBidirectional(g, prev, base, 5)

	return g
}

func TestPipelineDumbbellCollapsesBridge(t *testing.T) {
	g := dumbbellGraph()
	out, err := Run(context.Background(), discardLogger(), g, Options{MinComponentLengthM: 1, ConsolidationToleranceM: 1}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.NodeCount() != 6 {
		t.Errorf("node count = %d, want 6", out.NodeCount())
	}
	// Each triangle contributes 3 undirected roads (6 directed edges); the
	// bridge collapses to 1 undirected road (2 directed edges).
	if out.EdgeCount() != 14 {
		t.Errorf("edge count = %d, want 14", out.EdgeCount())
	}
}

// deadEndForestGraph builds the S3 fixture: an 8-node cycle totaling 2000m
// decorated with dead-end spurs well under the pruning threshold.
func deadEndForestGraph() *routegraph.Graph {
	g := routegraph.New()
	const cycleNodes = 8
	const segmentM = 2000.0 / cycleNodes
	for id := 0; id < cycleNodes; id++ {
		g.AddNode(&routegraph.Node{ID: id, Latitude: float64(id), Longitude: 0})
	}
	for id := 0; id < cycleNodes; id++ {
		addBidirectional(g, id, (id+1)%cycleNodes, segmentM)
	}

	spurID := 100
	for i := 0; i < 3; i++ {
		attachTo := i % cycleNodes
		g.AddNode(&routegraph.Node{ID: spurID, Latitude: 50 + float64(i), Longitude: 50})
		addBidirectional(g, attachTo, spurID, 20)
		spurID++
	}
	return g
}

// TestPipelineDeadEndForestPrunesSpurs exercises stage 4 (biconnected
// pruning) in isolation: degree-2 merging later in the pipeline would
// further collapse the surviving cycle, which isn't what the pruning
// invariant itself is about.
func TestPipelineDeadEndForestPrunesSpurs(t *testing.T) {
	g := deadEndForestGraph()
	pruneBiconnected(g, 500)

	for id, n := range g.Nodes {
		if n.Latitude >= 50 {
			t.Errorf("spur node %d survived pruning", id)
		}
	}
	if g.NodeCount() != 8 {
		t.Errorf("node count = %d, want 8 (only the main cycle)", g.NodeCount())
	}
}

// exclusionGridGraph builds the S4 fixture: a 3x3 grid with the middle
// column inside an exclusion rectangle.
func exclusionGridGraph() (*routegraph.Graph, []geo.Point) {
	g := routegraph.New()
	id := func(r, c int) int { return r*3 + c }
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			g.AddNode(&routegraph.Node{ID: id(r, c), Latitude: float64(r), Longitude: float64(c)})
		}
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if c+1 < 3 {
				addBidirectional(g, id(r, c), id(r, c+1), 100)
			}
			if r+1 < 3 {
				addBidirectional(g, id(r, c), id(r+1, c), 100)
			}
		}
	}

	poly := []geo.Point{
		{Lat: -0.5, Lng: 0.5},
		{Lat: -0.5, Lng: 1.5},
		{Lat: 2.5, Lng: 1.5},
		{Lat: 2.5, Lng: 0.5},
	}
	return g, poly
}

func TestPipelineExclusionPolygonRemovesInsideColumn(t *testing.T) {
	g, poly := exclusionGridGraph()

	before := g.NodeCount()
	excludeNodes(g, [][]geo.Point{poly})
	if g.NodeCount() != before-3 {
		t.Fatalf("node count after exclusion = %d, want %d", g.NodeCount(), before-3)
	}
	for id, n := range g.Nodes {
		if n.Longitude == 1 {
			t.Errorf("excluded-column node %d survived", id)
		}
	}
	for u, dests := range g.Out {
		for v := range dests {
			if g.Nodes[u] == nil || g.Nodes[v] == nil {
				t.Errorf("dangling edge %d->%d after exclusion", u, v)
			}
		}
	}
}
