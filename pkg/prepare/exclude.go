package prepare

import (
	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// excludeNodes removes every node whose coordinate lies strictly inside
// any exclusion polygon. Edges incident to a removed node vanish with it
// as a side effect of RemoveNode.
func excludeNodes(g *routegraph.Graph, polygons [][]geo.Point) {
	if len(polygons) == 0 {
		return
	}
	var toRemove []int
	for id, n := range g.Nodes {
		p := geo.Point{Lat: n.Latitude, Lng: n.Longitude}
		for _, poly := range polygons {
			if geo.PolygonContains(poly, p) {
				toRemove = append(toRemove, id)
				break
			}
		}
	}
	for _, id := range toRemove {
		g.RemoveNode(id)
	}
}
