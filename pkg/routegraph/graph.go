// Package routegraph defines the prepared routing graph's data model: a
// directed multigraph of nodes (coordinate + elevation) and edges
// (length, geometry, canonical name), plus binary persistence.
package routegraph

import "github.com/NERVsystems/scenicloops/pkg/geo"

// EdgeNameKind discriminates the canonical edge-name sum type.
type EdgeNameKind int

const (
	// EdgeNameNone is the zero value: no name, never matches another name
	// during turn detection.
	EdgeNameNone EdgeNameKind = iota
	EdgeNameSingle
	EdgeNameSet
)

// EdgeName is a tagged variant of none | string | set<string>, used only
// for turn detection: two names "match" iff they share at least one
// element, and EdgeNameNone never matches anything.
type EdgeName struct {
	Kind   EdgeNameKind
	Single string
	Set    map[string]struct{}
}

// None constructs the empty edge name.
func None() EdgeName { return EdgeName{Kind: EdgeNameNone} }

// SingleName constructs a single-string edge name.
func SingleName(s string) EdgeName { return EdgeName{Kind: EdgeNameSingle, Single: s} }

// NewSet constructs a set-valued edge name from one or more strings.
func NewSet(values ...string) EdgeName {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return EdgeName{Kind: EdgeNameSet, Set: m}
}

// Shares reports whether a and b share at least one element. EdgeNameNone
// never shares, matching the spec's turn-detection rule that reaching a
// no-name edge always counts as a turn.
func (a EdgeName) Shares(b EdgeName) bool {
	if a.Kind == EdgeNameNone || b.Kind == EdgeNameNone {
		return false
	}
	av := a.values()
	bv := b.values()
	for _, x := range av {
		for _, y := range bv {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (a EdgeName) values() []string {
	switch a.Kind {
	case EdgeNameSingle:
		return []string{a.Single}
	case EdgeNameSet:
		out := make([]string, 0, len(a.Set))
		for k := range a.Set {
			out = append(out, k)
		}
		return out
	default:
		return nil
	}
}

// Node is a routing graph vertex: integer id, coordinate, elevation.
type Node struct {
	ID        int
	Latitude  float64
	Longitude float64
	// ElevationM is in meters; 0 substitutes for a missing SRTM reading at
	// node-attach time (distinct from the route-sampling skip policy).
	ElevationM float64
}

func (n Node) Point() geo.Point { return geo.Point{Lat: n.Latitude, Lng: n.Longitude} }

// Edge is a directed, attributed edge.
type Edge struct {
	From, To int
	LengthM  float64
	// Geometry is the ordered polyline of (lat,lng) vertices whose
	// endpoints equal the endpoint nodes' coordinates. Nil means a
	// straight segment between endpoints.
	Geometry []geo.Point
	Name     EdgeName
	Highway  string
	OsmID    int64
}

// Graph is a directed multigraph during preparation, and a simple directed
// graph (at most one edge per ordered pair) after preparation completes.
type Graph struct {
	Nodes map[int]*Node
	// Adjacency stores all outgoing edges per node, keyed by destination
	// to permit several parallel edges before pipeline stage 6 collapses
	// them to one.
	Out map[int]map[int][]*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes: make(map[int]*Node),
		Out:   make(map[int]map[int][]*Edge),
	}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if _, ok := g.Out[n.ID]; !ok {
		g.Out[n.ID] = make(map[int][]*Edge)
	}
}

// AddEdge appends a directed edge, permitting parallels.
func (g *Graph) AddEdge(e *Edge) {
	if _, ok := g.Out[e.From]; !ok {
		g.Out[e.From] = make(map[int][]*Edge)
	}
	g.Out[e.From][e.To] = append(g.Out[e.From][e.To], e)
}

// RemoveNode deletes a node and every edge incident to it (in either
// direction).
func (g *Graph) RemoveNode(id int) {
	delete(g.Nodes, id)
	delete(g.Out, id)
	for _, dests := range g.Out {
		delete(dests, id)
	}
}

// EdgesBetween returns all parallel directed edges from u to v.
func (g *Graph) EdgesBetween(u, v int) []*Edge {
	return g.Out[u][v]
}

// SetEdgesBetween replaces the edge list from u to v.
func (g *Graph) SetEdgesBetween(u, v int, edges []*Edge) {
	if len(edges) == 0 {
		if dests, ok := g.Out[u]; ok {
			delete(dests, v)
		}
		return
	}
	if _, ok := g.Out[u]; !ok {
		g.Out[u] = make(map[int][]*Edge)
	}
	g.Out[u][v] = edges
}

// RemoveEdgesBetween removes all directed edges from u to v.
func (g *Graph) RemoveEdgesBetween(u, v int) {
	if dests, ok := g.Out[u]; ok {
		delete(dests, v)
	}
}

// Neighbors returns the set of distinct nodes reachable by one outgoing
// edge from u.
func (g *Graph) Neighbors(u int) []int {
	seen := make(map[int]struct{})
	for v := range g.Out[u] {
		seen[v] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	return out
}

// UndirectedNeighbors returns the set of distinct nodes adjacent to u via
// an edge in either direction, used by degree computation and the
// degree-2 merge stage.
func (g *Graph) UndirectedNeighbors(u int) []int {
	seen := make(map[int]struct{})
	for v := range g.Out[u] {
		seen[v] = struct{}{}
	}
	for src, dests := range g.Out {
		if src == u {
			continue
		}
		if _, ok := dests[u]; ok {
			seen[src] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	return out
}

// UndirectedDegree counts distinct undirected neighbors of u.
func (g *Graph) UndirectedDegree(u int) int {
	return len(g.UndirectedNeighbors(u))
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	out := New()
	for id, n := range g.Nodes {
		cp := *n
		out.Nodes[id] = &cp
		out.Out[id] = make(map[int][]*Edge)
	}
	for u, dests := range g.Out {
		for v, edges := range dests {
			copied := make([]*Edge, len(edges))
			for i, e := range edges {
				cp := *e
				cp.Geometry = append([]geo.Point(nil), e.Geometry...)
				copied[i] = &cp
			}
			if _, ok := out.Out[u]; !ok {
				out.Out[u] = make(map[int][]*Edge)
			}
			out.Out[u][v] = copied
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of directed edges, counting parallels.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, dests := range g.Out {
		for _, edges := range dests {
			n += len(edges)
		}
	}
	return n
}

// AllEdges returns every directed edge in the graph.
func (g *Graph) AllEdges() []*Edge {
	out := make([]*Edge, 0, g.EdgeCount())
	for _, dests := range g.Out {
		for _, edges := range dests {
			out = append(out, edges...)
		}
	}
	return out
}
