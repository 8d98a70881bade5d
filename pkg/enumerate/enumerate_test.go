package enumerate

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addBidirectional(g *routegraph.Graph, a, b int, lengthM float64, name routegraph.EdgeName) {
	g.AddEdge(&routegraph.Edge{From: a, To: b, LengthM: lengthM, Name: name})
	g.AddEdge(&routegraph.Edge{From: b, To: a, LengthM: lengthM, Name: name})
}

// squareGrid5x5 builds the S1 fixture: a 5x5 grid of unit-length roads,
// each grid line carrying its own street name so that the four unit
// squares incident to the origin are zero-turn loops.
func squareGrid5x5(unit float64) *routegraph.Graph {
	g := routegraph.New()
	id := func(r, c int) int { return r*5 + c }
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			g.AddNode(&routegraph.Node{ID: id(r, c), Latitude: float64(r) * unit / 111111, Longitude: float64(c) * unit / 111111})
		}
	}
	for r := 0; r < 5; r++ {
		rowName := routegraph.SingleName("row")
		for c := 0; c < 4; c++ {
			addBidirectional(g, id(r, c), id(r, c+1), unit, rowName)
		}
	}
	for c := 0; c < 5; c++ {
		colName := routegraph.SingleName("col")
		for r := 0; r < 4; r++ {
			addBidirectional(g, id(r, c), id(r+1, c), unit, colName)
		}
	}
	return g
}

func collect(ch <-chan Route) []Route {
	var out []Route
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestSquareGridEmitsUnitSquares(t *testing.T) {
	g := squareGrid5x5(100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := Run(ctx, discardLogger(), g, Params{
		StartNode:      0,
		MinPathLengthM: 3 * 100,
		MaxPathLengthM: 15 * 100,
		MinLoopLengthM: 3 * 100,
		LoopRatioFloor: 0.3,
		NumPaths:       10,
	})
	routes := collect(ch)
	if len(routes) == 0 {
		t.Fatal("expected at least one accepted route")
	}
	for _, r := range routes[:min(4, len(routes))] {
		if r.LoopRatio != 1.0 {
			t.Errorf("loop ratio = %v, want 1.0 for a zero-out-leg square", r.LoopRatio)
		}
		wantLoopM := 4 * 100.0
		if diff := r.LoopDistanceM - wantLoopM; diff < -1 || diff > 1 {
			t.Errorf("loop distance = %v, want ~%v", r.LoopDistanceM, wantLoopM)
		}
	}
}

func TestEnumeratorMonotonicity(t *testing.T) {
	g := squareGrid5x5(100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := Run(ctx, discardLogger(), g, Params{
		StartNode:      6, // an interior node, more loop options
		MinPathLengthM: 2 * 100,
		MaxPathLengthM: 20 * 100,
		MinLoopLengthM: 2 * 100,
		LoopRatioFloor: 0.1,
		NumPaths:       20,
	})
	routes := collect(ch)
	for i := 1; i < len(routes); i++ {
		prev, cur := routes[i-1], routes[i]
		if cur.Turns < prev.Turns {
			t.Fatalf("route %d turns %d < previous %d: not monotone", i, cur.Turns, prev.Turns)
		}
		if cur.Turns == prev.Turns && cur.TotalDistanceM < prev.TotalDistanceM-1e-9 {
			t.Fatalf("route %d distance %v < previous %v at equal turns: not monotone", i, cur.TotalDistanceM, prev.TotalDistanceM)
		}
	}
}

func TestMinDistDiversityFilter(t *testing.T) {
	g := squareGrid5x5(100)

	run := func(minDist float64) int {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ch := Run(ctx, discardLogger(), g, Params{
			StartNode:      0,
			MinPathLengthM: 2 * 100,
			MaxPathLengthM: 15 * 100,
			MinLoopLengthM: 2 * 100,
			LoopRatioFloor: 0.1,
			NumPaths:       30,
			Diversity:      DiversityCentroid,
			MinDistM:       minDist,
		})
		return len(collect(ch))
	}

	loose := run(0)
	strict := run(10 * 100)
	if strict > loose {
		t.Fatalf("stricter min_dist_m produced more routes: strict=%d loose=%d", strict, loose)
	}
	if strict > 1 {
		t.Errorf("min_dist_m=1000m on a 400m-square grid should emit at most one loop, got %d", strict)
	}
}

func TestCancellationStopsEnumeration(t *testing.T) {
	g := squareGrid5x5(100)
	ctx, cancel := context.WithCancel(context.Background())

	ch := Run(ctx, discardLogger(), g, Params{
		StartNode:      0,
		MinPathLengthM: 2 * 100,
		MaxPathLengthM: 15 * 100,
		MinLoopLengthM: 2 * 100,
		LoopRatioFloor: 0.1,
		NumPaths:       1000,
	})

	<-ch // first route
	cancel()

	drained := 0
	for range ch {
		drained++
		if drained > 5 {
			t.Fatal("channel did not close promptly after cancellation")
		}
	}
}
