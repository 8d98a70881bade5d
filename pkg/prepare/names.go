package prepare

import "github.com/NERVsystems/scenicloops/pkg/routegraph"

// cleanupEdgeNames normalizes each edge's canonical name. A name already
// present (single or set) is left exactly as ingest produced it, matching
// the source system's behavior of never re-deriving an existing name;
// only a bare ref-derived set with exactly one element is collapsed to a
// single string, keeping the sum type canonical and this stage idempotent
// on its own output.
func cleanupEdgeNames(g *routegraph.Graph) {
	for _, e := range g.AllEdges() {
		if e.Name.Kind == routegraph.EdgeNameSet && len(e.Name.Set) == 1 {
			for v := range e.Name.Set {
				e.Name = routegraph.SingleName(v)
			}
		}
	}
}
