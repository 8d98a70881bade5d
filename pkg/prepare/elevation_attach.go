package prepare

import (
	"context"

	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// attachElevation looks up every node's elevation and substitutes 0 when
// the oracle has no data for that point, returning the number of nodes
// substituted this way. This is the node-attach policy: route sampling
// later applies the stricter skip-on-missing policy instead of reusing
// this substituted value.
func attachElevation(ctx context.Context, g *routegraph.Graph, oracle ElevationLookup) int {
	if oracle == nil {
		return len(g.Nodes)
	}
	missing := 0
	for _, n := range g.Nodes {
		meters, ok := oracle.Lookup(ctx, n.Latitude, n.Longitude)
		if !ok {
			missing++
			meters = 0
		}
		n.ElevationM = meters
	}
	return missing
}
