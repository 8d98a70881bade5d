package prepare

import "github.com/NERVsystems/scenicloops/pkg/routegraph"

// reduceParallelEdges collapses every ordered pair (u,v) with more than
// one directed edge down to the single edge with minimum length.
func reduceParallelEdges(g *routegraph.Graph) {
	for u, dests := range g.Out {
		for v, edges := range dests {
			if len(edges) <= 1 {
				continue
			}
			best := edges[0]
			for _, e := range edges[1:] {
				if e.LengthM < best.LengthM {
					best = e
				}
			}
			g.SetEdgesBetween(u, v, []*routegraph.Edge{best})
		}
	}
}
