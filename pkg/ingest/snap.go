package ingest

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dijkstra"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// NearestNode returns the id of the graph node closest to p by haversine
// distance.
func NearestNode(g *routegraph.Graph, p geo.Point) (int, bool) {
	best := -1
	bestDist := 0.0
	found := false
	for id, n := range g.Nodes {
		d := geo.HaversineDistance(p.Lat, p.Lng, n.Latitude, n.Longitude)
		if !found || d < bestDist {
			best, bestDist, found = id, d, true
		}
	}
	return best, found
}

// ShortestPathAlongPolyline snaps each vertex of line to its nearest
// graph node and returns the node sequence of the shortest path chaining
// consecutive snapped endpoints, using lvlath's Dijkstra implementation.
// An empty result (ok=false) means no path exists between some pair of
// snapped endpoints — an upstream-class failure per spec.md's error
// taxonomy, not a hard error.
func ShortestPathAlongPolyline(g *routegraph.Graph, line []geo.Point) ([]int, bool) {
	if len(line) < 2 {
		return nil, false
	}

	lg := toLvlathGraph(g)

	snapped := make([]int, 0, len(line))
	for _, p := range line {
		id, ok := NearestNode(g, p)
		if !ok {
			return nil, false
		}
		snapped = append(snapped, id)
	}

	full := []int{snapped[0]}
	for i := 1; i < len(snapped); i++ {
		if snapped[i] == snapped[i-1] {
			continue
		}
		_, prev, err := dijkstra.Dijkstra(lg, dijkstra.Source(vertexID(snapped[i-1])), dijkstra.WithReturnPath())
		if err != nil {
			return nil, false
		}
		segment, ok := reconstructPath(prev, snapped[i-1], snapped[i])
		if !ok {
			return nil, false
		}
		full = append(full, segment[1:]...)
	}
	return full, true
}

func toLvlathGraph(g *routegraph.Graph) *core.Graph {
	lg := core.NewGraph(core.WithDirected(true), core.WithWeighted(), core.WithMultiEdges())
	for id := range g.Nodes {
		lg.AddVertex(&core.Vertex{ID: vertexID(id)})
	}
	for _, e := range g.AllEdges() {
		weight := int64(e.LengthM)
		if weight < 1 {
			weight = 1
		}
		lg.AddEdge(vertexID(e.From), vertexID(e.To), weight)
	}
	return lg
}

func vertexID(nodeID int) string {
	return strconv.Itoa(nodeID)
}

func nodeIDFromVertex(v string) (int, error) {
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid vertex id %q: %w", v, err)
	}
	return id, nil
}

func reconstructPath(prev map[string]string, from, to int) ([]int, bool) {
	toVertex := vertexID(to)
	fromVertex := vertexID(from)

	var chain []string
	cur := toVertex
	for {
		chain = append(chain, cur)
		if cur == fromVertex {
			break
		}
		p, ok := prev[cur]
		if !ok || p == "" {
			return nil, false
		}
		cur = p
	}
	// chain is to -> ... -> from; reverse it.
	out := make([]int, len(chain))
	for i, v := range chain {
		id, err := nodeIDFromVertex(v)
		if err != nil {
			return nil, false
		}
		out[len(chain)-1-i] = id
	}
	return out, true
}
