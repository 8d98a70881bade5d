package prepare

import (
	"log/slog"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// mergeDegree2 repeatedly splices degree-2 interior nodes into their two
// neighbors until a full pass removes nothing. A node whose incident
// edges can't be resolved into a consistent chain direction (missing
// geometry endpoint, or no directed pairing at all) is marked
// unspliceable and excluded from further attempts in this run rather than
// retried forever, which is a deliberate improvement over simply letting
// the outer loop terminate with such a node still present.
func mergeDegree2(g *routegraph.Graph, logger *slog.Logger) {
	unspliceable := make(map[int]bool)

	for {
		removedThisPass := 0
		for id := range g.Nodes {
			if unspliceable[id] {
				continue
			}
			if _, ok := g.Nodes[id]; !ok {
				continue // removed earlier in this pass
			}
			neighbors := g.UndirectedNeighbors(id)
			if len(neighbors) != 2 {
				continue
			}
			u, v := neighbors[0], neighbors[1]
			if u == v {
				continue
			}
			if spliceNode(g, id, u, v) {
				removedThisPass++
			} else {
				unspliceable[id] = true
				logger.Warn("degree-2 node could not be spliced; leaving in place", "node", id)
			}
		}
		if removedThisPass == 0 {
			break
		}
	}
}

// spliceNode attempts to remove n (whose only undirected neighbors are u
// and v) by merging its incident edges into direct u<->v edges. Returns
// false if the incident edges don't form a usable chain.
func spliceNode(g *routegraph.Graph, n, u, v int) bool {
	fwdUN := soleEdge(g, u, n)
	fwdNV := soleEdge(g, n, v)
	fwdVN := soleEdge(g, v, n)
	fwdNU := soleEdge(g, n, u)

	haveUToV := fwdUN != nil && fwdNV != nil
	haveVToU := fwdVN != nil && fwdNU != nil

	if !haveUToV && !haveVToU {
		return false
	}

	var uToVLen float64
	var uToVGeom []geo.Point
	var name routegraph.EdgeName
	if haveUToV {
		merged, ok := concatDedup(edgeGeometry(g, u, n, fwdUN), edgeGeometry(g, n, v, fwdNV))
		if !ok {
			return false
		}
		uToVLen = fwdUN.LengthM + fwdNV.LengthM
		uToVGeom = merged
		name = combineNames(fwdUN.Name, fwdNV.Name)
	}

	var vToULen float64
	var vToUGeom []geo.Point
	if haveVToU {
		merged, ok := concatDedup(edgeGeometry(g, v, n, fwdVN), edgeGeometry(g, n, u, fwdNU))
		if !ok {
			return false
		}
		vToULen = fwdVN.LengthM + fwdNU.LengthM
		vToUGeom = merged
		if name.Kind == routegraph.EdgeNameNone {
			name = combineNames(fwdVN.Name, fwdNU.Name)
		}
	}

	g.RemoveEdgesBetween(u, n)
	g.RemoveEdgesBetween(n, u)
	g.RemoveEdgesBetween(n, v)
	g.RemoveEdgesBetween(v, n)
	g.RemoveNode(n)

	// When u and v are already adjacent, the shorter of the existing and
	// the spliced edge survives, so each ordered pair keeps one edge.
	add := func(e *routegraph.Edge) {
		if cur := soleEdge(g, e.From, e.To); cur != nil && cur.LengthM <= e.LengthM {
			return
		}
		g.SetEdgesBetween(e.From, e.To, []*routegraph.Edge{e})
	}

	switch {
	case haveUToV && haveVToU:
		// Two-way road: per spec.md's mirror-geometry invariant the
		// reverse direction carries the forward geometry reversed, even
		// though the two splice computations may each have their own
		// independently summed geometry.
		add(&routegraph.Edge{From: u, To: v, LengthM: uToVLen, Geometry: uToVGeom, Name: name})
		add(&routegraph.Edge{From: v, To: u, LengthM: uToVLen, Geometry: reversePoints(uToVGeom), Name: name})
	case haveUToV:
		add(&routegraph.Edge{From: u, To: v, LengthM: uToVLen, Geometry: uToVGeom, Name: name})
	default:
		add(&routegraph.Edge{From: v, To: u, LengthM: vToULen, Geometry: vToUGeom, Name: name})
	}
	return true
}

func soleEdge(g *routegraph.Graph, from, to int) *routegraph.Edge {
	edges := g.EdgesBetween(from, to)
	if len(edges) == 0 {
		return nil
	}
	return edges[0]
}

// edgeGeometry returns e's polyline oriented from->to, falling back to
// the straight two-point segment when Geometry is absent.
func edgeGeometry(g *routegraph.Graph, from, to int, e *routegraph.Edge) []geo.Point {
	if len(e.Geometry) >= 2 {
		return e.Geometry
	}
	fn, tn := g.Nodes[from], g.Nodes[to]
	if fn == nil || tn == nil {
		return nil
	}
	return []geo.Point{fn.Point(), tn.Point()}
}

// concatDedup joins a (ending at the shared vertex) and b (starting at
// the shared vertex), dropping the duplicated shared point. Returns
// ok=false if either polyline is missing an endpoint.
func concatDedup(a, b []geo.Point) ([]geo.Point, bool) {
	if len(a) < 2 || len(b) < 2 {
		return nil, false
	}
	out := make([]geo.Point, 0, len(a)+len(b)-1)
	out = append(out, a...)
	out = append(out, b[1:]...)
	return out, true
}

func reversePoints(pts []geo.Point) []geo.Point {
	out := make([]geo.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func combineNames(a, b routegraph.EdgeName) routegraph.EdgeName {
	if a.Kind == routegraph.EdgeNameNone {
		return b
	}
	return a
}
