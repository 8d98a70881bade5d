package prepare

import (
	"math"

	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

type unionFind struct{ parent map[int]int }

func newUnionFind(ids []int) *unionFind {
	uf := &unionFind{parent: make(map[int]int, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}

// consolidateIntersections merges nodes whose projected positions (local
// meter-based coordinates around the graph's centroid) lie within
// toleranceM of each other, rebuilding edges across the merged
// super-nodes.
func consolidateIntersections(g *routegraph.Graph, toleranceM float64) {
	ids := make([]int, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}

	meanLat := 0.0
	for _, id := range ids {
		meanLat += g.Nodes[id].Latitude
	}
	meanLat /= float64(len(ids))

	type xy struct{ x, y float64 }
	proj := make(map[int]xy, len(ids))
	for _, id := range ids {
		n := g.Nodes[id]
		proj[id] = xy{
			x: (n.Longitude) * metersPerDegreeLon(meanLat),
			y: (n.Latitude) * metersPerDegreeLat,
		}
	}

	uf := newUnionFind(ids)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := proj[ids[i]], proj[ids[j]]
			dx, dy := a.x-b.x, a.y-b.y
			if math.Hypot(dx, dy) <= toleranceM {
				uf.union(ids[i], ids[j])
			}
		}
	}

	groups := make(map[int][]int)
	for _, id := range ids {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	// Nothing to merge.
	merged := false
	for _, members := range groups {
		if len(members) > 1 {
			merged = true
			break
		}
	}
	if !merged {
		return
	}

	remap := make(map[int]int, len(ids))
	newGraph := routegraph.New()
	for root, members := range groups {
		lat, lng := 0.0, 0.0
		for _, id := range members {
			lat += g.Nodes[id].Latitude
			lng += g.Nodes[id].Longitude
		}
		lat /= float64(len(members))
		lng /= float64(len(members))
		newGraph.AddNode(&routegraph.Node{ID: root, Latitude: lat, Longitude: lng})
		for _, id := range members {
			remap[id] = root
		}
	}

	for _, e := range g.AllEdges() {
		from, to := remap[e.From], remap[e.To]
		if from == to {
			continue // self-loop created by merge; dropped here, final cleanup also guards this
		}
		cp := *e
		cp.From, cp.To = from, to
		newGraph.AddEdge(&cp)
	}

	*g = *newGraph
}

const metersPerDegreeLat = 111320.0

func metersPerDegreeLon(atLatDeg float64) float64 {
	return 111320.0 * math.Cos(atLatDeg*math.Pi/180)
}
