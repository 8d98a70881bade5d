// Package enumerate implements the bounded best-first loop search:
// given a prepared graph and a start node, it streams distinct,
// length-bounded loops ordered by non-decreasing (turns, distance),
// deduplicated by visited-mask equality and filtered for diversity
// (centroid separation or Jaccard similarity of visited masks).
package enumerate

import (
	"container/heap"
	"context"
	"log/slog"

	"github.com/NERVsystems/scenicloops/pkg/bitset"
	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// DiversityMode selects how a newly accepted route is checked against
// previously accepted ones.
type DiversityMode string

const (
	DiversityCentroid DiversityMode = "centroid"
	DiversityJaccard  DiversityMode = "jaccard"
)

const (
	// DefaultMinLoopLengthM is the spec's default minimum cyclic-portion
	// length; the dispatcher may override with 600.
	DefaultMinLoopLengthM = 500.0
	// DefaultMaxIterations bounds the search defensively regardless of
	// num_paths or graph size.
	DefaultMaxIterations = 500_000
	// centroidSampleSpacingM is the arc-length spacing used to sample a
	// reconstructed route before averaging into a centroid.
	centroidSampleSpacingM = 50.0
)

// Params configures one enumeration run. Zero MinLoopLengthM,
// MaxIterations, Diversity and NumPaths fall back to the spec's defaults
// via withDefaults; the other fields are used as given.
type Params struct {
	StartNode         int
	MinPathLengthM    float64
	MaxPathLengthM    float64
	MinLoopLengthM    float64
	LoopRatioFloor    float64
	NumPaths          int
	Diversity         DiversityMode
	MinDistM          float64
	SimilarityCeiling float64
	MaxIterations     int
}

func (p Params) withDefaults() Params {
	if p.MinLoopLengthM <= 0 {
		p.MinLoopLengthM = DefaultMinLoopLengthM
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = DefaultMaxIterations
	}
	if p.Diversity == "" {
		p.Diversity = DiversityCentroid
	}
	if p.NumPaths <= 0 {
		p.NumPaths = 50
	}
	return p
}

// pathNode is a singly linked frontier chain entry. Several frontier
// entries share ownership of a common ancestor chain; under Go's GC a
// chain is collected once no live entry retains a pointer into it, which
// is the reference-counting behavior spec.md §9 describes.
type pathNode struct {
	id          int
	prev        *pathNode
	cumulativeM float64
	turns       int
	hasEdge     bool
	lastName    routegraph.EdgeName
}

// Route is one accepted, fully reconstructed loop.
type Route struct {
	Nodes          []int
	Mask           *bitset.Set
	Turns          int
	TotalDistanceM float64
	LoopDistanceM  float64
	LoopRatio      float64
	Centroid       geo.Point
}

type frontierEntry struct {
	node *pathNode
	mask *bitset.Set
}

// frontier is a min-heap keyed on the lexicographic cost tuple
// (turns, distance, tiebreak node id).
type frontier []*frontierEntry

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	a, b := f[i].node, f[j].node
	if a.turns != b.turns {
		return a.turns < b.turns
	}
	if a.cumulativeM != b.cumulativeM {
		return a.cumulativeM < b.cumulativeM
	}
	return a.id < b.id
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(*frontierEntry)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return item
}

// Run starts a bounded best-first search over g from params.StartNode and
// returns a channel of accepted routes in non-decreasing (turns,distance)
// order. The search runs in its own goroutine and computes at most one
// route ahead of what the caller has received: the goroutine blocks on
// channel send, so an unread channel halts the search. Cancelling ctx
// stops the search at its next iteration boundary or pending send;
// abandoning the channel without cancelling ctx leaves the goroutine
// blocked on its send.
func Run(ctx context.Context, logger *slog.Logger, g *routegraph.Graph, p Params) <-chan Route {
	p = p.withDefaults()
	out := make(chan Route)
	go func() {
		defer close(out)
		search(ctx, logger, g, p, out)
	}()
	return out
}

func search(ctx context.Context, logger *slog.Logger, g *routegraph.Graph, p Params, out chan<- Route) {
	h := &frontier{}
	heap.Init(h)
	heap.Push(h, &frontierEntry{
		node: &pathNode{id: p.StartNode},
		mask: bitset.New(g.NodeCount()),
	})

	d := &dedup{
		masks:           make(map[string]struct{}),
		nodeCount:       g.NodeCount(),
		minDistM:        p.MinDistM,
		similarityCeil:  p.SimilarityCeiling,
		diversity:       p.Diversity,
	}

	accepted := 0
	iterations := 0

	for h.Len() > 0 {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if iterations >= p.MaxIterations {
			logger.Warn("loop enumeration iteration cap reached",
				"cap", p.MaxIterations, "accepted", accepted)
			return
		}
		iterations++

		e := heap.Pop(h).(*frontierEntry)
		c := e.node

		if c.cumulativeM > p.MaxPathLengthM {
			continue
		}

		if e.mask.Test(c.id) && c.cumulativeM >= p.MinPathLengthM {
			if route, ok := tryAccept(g, p, c, d); ok {
				select {
				case out <- route:
				case <-ctx.Done():
					return
				}
				accepted++
				if accepted >= p.NumPaths {
					return
				}
			}
		}

		expand(h, g, e, c)
	}
}

// expand pushes every valid neighbor extension of c onto the frontier.
// Immediate backtracking to c.prev.id is forbidden; revisiting any other
// previously-visited node is allowed and is exactly what produces loop
// candidates at a later pop.
func expand(h *frontier, g *routegraph.Graph, e *frontierEntry, c *pathNode) {
	newMask := e.mask.Clone()
	newMask.Set(c.id)

	for _, v := range g.Neighbors(c.id) {
		if c.prev != nil && v == c.prev.id {
			continue
		}
		edges := g.EdgesBetween(c.id, v)
		if len(edges) == 0 {
			continue
		}
		edge := edges[0]

		turns := c.turns
		if c.hasEdge && !c.lastName.Shares(edge.Name) {
			turns++
		}

		child := &pathNode{
			id:          v,
			prev:        c,
			cumulativeM: c.cumulativeM + edge.LengthM,
			turns:       turns,
			hasEdge:     true,
			lastName:    edge.Name,
		}
		heap.Push(h, &frontierEntry{node: child, mask: newMask})
	}
}

// findLoopStart walks c's ancestor chain for the nearest prior occurrence
// of c's own node id, which is the loop's starting position L.
func findLoopStart(c *pathNode) *pathNode {
	for n := c.prev; n != nil; n = n.prev {
		if n.id == c.id {
			return n
		}
	}
	return nil
}

// reconstructRoute builds the full out-leg + loop + return-leg node
// sequence and sets every visited node's bit in mask.
func reconstructRoute(c, loopStart *pathNode, mask *bitset.Set) []int {
	var chain []*pathNode
	for n := c; n != nil; n = n.prev {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	var outLeg, loopLeg []int
	inLoop := false
	for _, n := range chain {
		switch {
		case n == loopStart:
			inLoop = true
			outLeg = append(outLeg, n.id)
		case !inLoop:
			outLeg = append(outLeg, n.id)
		default:
			loopLeg = append(loopLeg, n.id)
		}
	}

	for _, id := range outLeg {
		mask.Set(id)
	}
	for _, id := range loopLeg {
		mask.Set(id)
	}

	full := make([]int, 0, len(outLeg)+len(loopLeg)+len(outLeg))
	full = append(full, outLeg...)
	full = append(full, loopLeg...)
	for i := len(outLeg) - 2; i >= 0; i-- {
		full = append(full, outLeg[i])
	}
	return full
}

func tryAccept(g *routegraph.Graph, p Params, c *pathNode, d *dedup) (Route, bool) {
	loopStart := findLoopStart(c)
	if loopStart == nil {
		return Route{}, false
	}

	loopDist := c.cumulativeM - loopStart.cumulativeM
	if loopDist < p.MinLoopLengthM {
		return Route{}, false
	}

	totalDist := 2*loopStart.cumulativeM + loopDist
	if totalDist <= 0 {
		return Route{}, false
	}
	loopRatio := loopDist / totalDist
	if loopRatio < p.LoopRatioFloor {
		return Route{}, false
	}

	mask := bitset.New(d.nodeCount)
	nodes := reconstructRoute(c, loopStart, mask)

	if !d.accept(g, mask, nodes) {
		return Route{}, false
	}

	return Route{
		Nodes:          nodes,
		Mask:           mask,
		Turns:          c.turns,
		TotalDistanceM: totalDist,
		LoopDistanceM:  loopDist,
		LoopRatio:      loopRatio,
		Centroid:       d.lastCentroid,
	}, true
}
