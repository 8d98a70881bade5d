package prepare

import "github.com/NERVsystems/scenicloops/pkg/routegraph"

// stripAttributes is a no-op in this implementation: routegraph.Edge
// already carries exactly {geometry, length, name, highway, osmid} and
// nothing else survives ingest, so there is nothing further to drop.
// Kept as an explicit pipeline stage so the stage count and order match
// spec.md's contract and so a future ingest path that attaches extra OSM
// tags has a single place to strip them.
func stripAttributes(g *routegraph.Graph) {
	_ = g
}
