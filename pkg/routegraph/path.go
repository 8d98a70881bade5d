package routegraph

import "github.com/NERVsystems/scenicloops/pkg/geo"

// BuildPolyline concatenates the edge geometries along a node sequence
// into a single polyline, falling back to a straight segment between
// consecutive node coordinates when an edge has no geometry. Shared by
// the loop enumerator (centroid sampling) and the route annotator (full
// route geometry).
func BuildPolyline(g *Graph, nodeIDs []int) []geo.Point {
	var poly []geo.Point
	for i, id := range nodeIDs {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		if i == 0 {
			poly = append(poly, n.Point())
			continue
		}
		u, v := nodeIDs[i-1], nodeIDs[i]
		if edges := g.EdgesBetween(u, v); len(edges) > 0 && len(edges[0].Geometry) > 1 {
			poly = append(poly, edges[0].Geometry[1:]...)
			continue
		}
		poly = append(poly, n.Point())
	}
	return poly
}

// EdgeSequence returns the directed edge traversed between each
// consecutive pair of nodeIDs, or nil at position i if no edge exists
// between nodeIDs[i] and nodeIDs[i+1].
func EdgeSequence(g *Graph, nodeIDs []int) []*Edge {
	if len(nodeIDs) < 2 {
		return nil
	}
	out := make([]*Edge, 0, len(nodeIDs)-1)
	for i := 1; i < len(nodeIDs); i++ {
		edges := g.EdgesBetween(nodeIDs[i-1], nodeIDs[i])
		if len(edges) == 0 {
			out = append(out, nil)
			continue
		}
		out = append(out, edges[0])
	}
	return out
}
