package prepare

import "github.com/NERVsystems/scenicloops/pkg/routegraph"

// finalCleanup removes self-loops left behind by consolidation or splicing
// and drops any node that ended up with no incident edges at all.
func finalCleanup(g *routegraph.Graph) {
	for u, dests := range g.Out {
		if edges, ok := dests[u]; ok && len(edges) > 0 {
			g.RemoveEdgesBetween(u, u)
		}
	}

	var isolated []int
	for id := range g.Nodes {
		if g.UndirectedDegree(id) == 0 {
			isolated = append(isolated, id)
		}
	}
	for _, id := range isolated {
		g.RemoveNode(id)
	}
}
