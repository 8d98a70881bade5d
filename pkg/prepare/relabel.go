package prepare

import (
	"sort"

	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// relabel rebuilds g with node ids remapped to a dense 0..N-1 range,
// assigned in ascending order of the original ids so the result is
// deterministic for a fixed input graph.
func relabel(g *routegraph.Graph) *routegraph.Graph {
	ids := make([]int, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	remap := make(map[int]int, len(ids))
	out := routegraph.New()
	for newID, oldID := range ids {
		n := *g.Nodes[oldID]
		n.ID = newID
		out.AddNode(&n)
		remap[oldID] = newID
	}

	for _, e := range g.AllEdges() {
		cp := *e
		cp.From, cp.To = remap[e.From], remap[e.To]
		out.AddEdge(&cp)
	}

	return out
}
