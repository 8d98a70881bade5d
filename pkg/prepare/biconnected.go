package prepare

import "github.com/NERVsystems/scenicloops/pkg/routegraph"

// undirectedEdge is an unordered node pair, canonicalized with the lower
// id first so it can key a map.
type undirectedEdge struct{ a, b int }

func edgeKey(a, b int) undirectedEdge {
	if a > b {
		a, b = b, a
	}
	return undirectedEdge{a, b}
}

// undirectedProjection builds a simple (no parallels) undirected
// adjacency list plus the minimum directed-edge length for every
// undirected pair, the "edge-length weight" basis for component sizing.
func undirectedProjection(g *routegraph.Graph) (adj map[int]map[int]struct{}, weight map[undirectedEdge]float64) {
	adj = make(map[int]map[int]struct{})
	weight = make(map[undirectedEdge]float64)

	ensure := func(id int) {
		if _, ok := adj[id]; !ok {
			adj[id] = make(map[int]struct{})
		}
	}
	for id := range g.Nodes {
		ensure(id)
	}
	for u, dests := range g.Out {
		for v, edges := range dests {
			if u == v {
				continue
			}
			ensure(u)
			ensure(v)
			adj[u][v] = struct{}{}
			adj[v][u] = struct{}{}

			k := edgeKey(u, v)
			for _, e := range edges {
				if cur, ok := weight[k]; !ok || e.LengthM < cur {
					weight[k] = e.LengthM
				}
			}
		}
	}
	return adj, weight
}

// block is one biconnected component: its member nodes and the sum of
// the minimum parallel-edge length over every undirected edge it
// contains.
type block struct {
	id     int
	nodes  map[int]struct{}
	weight float64
}

// biconnect runs a classic edge-stack Tarjan DFS over adj, returning the
// biconnected components and the set of articulation points.
func biconnect(adj map[int]map[int]struct{}, weight map[undirectedEdge]float64) ([]*block, map[int]bool) {
	disc := make(map[int]int)
	low := make(map[int]int)
	parent := make(map[int]int)
	timer := 0
	articulation := make(map[int]bool)
	var stack []undirectedEdge
	var blocks []*block

	popComponent := func(until undirectedEdge) *block {
		nodes := make(map[int]struct{})
		w := 0.0
		seen := make(map[undirectedEdge]struct{})
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			nodes[top.a] = struct{}{}
			nodes[top.b] = struct{}{}
			k := edgeKey(top.a, top.b)
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				w += weight[k]
			}
			if top == until {
				break
			}
		}
		return &block{nodes: nodes, weight: w}
	}

	var visit func(u int)
	visit = func(u int) {
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0

		// Deterministic neighbor order keeps results reproducible across
		// runs for a fixed graph, matching the spec's determinism note.
		neighbors := sortedKeys(adj[u])
		for _, v := range neighbors {
			if pu, ok := parent[u]; ok && pu == v && !multiEdgeBetween(adj, u, v) {
				continue
			}
			if _, visited := disc[v]; !visited {
				parent[v] = u
				stack = append(stack, edgeKey(u, v))
				children++
				visit(v)
				if low[v] < low[u] {
					low[u] = low[v]
				}

				isRoot := !hasParent(parent, u)
				if (isRoot && children > 1) || (!isRoot && low[v] >= disc[u]) {
					articulation[u] = true
					blocks = append(blocks, popComponent(edgeKey(u, v)))
				}
			} else if disc[v] < disc[u] {
				stack = append(stack, edgeKey(u, v))
				if disc[v] < low[u] {
					low[u] = disc[v]
				}
			}
		}
	}

	for id := range adj {
		if _, visited := disc[id]; !visited {
			visit(id)
			if len(stack) > 0 {
				blocks = append(blocks, popComponent(stack[0]))
			}
		}
	}

	for i, b := range blocks {
		b.id = i
	}
	return blocks, articulation
}

func hasParent(parent map[int]int, u int) bool {
	_, ok := parent[u]
	return ok
}

// multiEdgeBetween is always false here: adj is a simple projection with
// parallels already collapsed into the weight map, so the "don't
// backtrack over the same parent edge" rule in visit never needs to
// special-case true multigraph edges.
func multiEdgeBetween(adj map[int]map[int]struct{}, u, v int) bool { return false }

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

const minLargeBlockNodes = 3

func isLarge(b *block, minComponentLengthM float64) bool {
	return len(b.nodes) >= minLargeBlockNodes && b.weight >= minComponentLengthM
}

// pruneBiconnected implements stage 4: within each block-cut tree
// connected component that has a large block, it keeps exactly the
// nodes of the blocks and articulation vertices on the minimal subtree
// connecting its large blocks, deleting everything else.
func pruneBiconnected(g *routegraph.Graph, minComponentLengthM float64) {
	adj, weight := undirectedProjection(g)
	if len(adj) == 0 {
		return
	}
	blocks, articulation := biconnect(adj, weight)

	keepNode := make(map[int]bool)

	// A 2-node block is always a bridge edge and can never be "large" by
	// length alone; isLarge already enforces the >=3-node floor so no
	// special case is needed here.
	bct := buildBlockCutTree(blocks, articulation)

	for _, comp := range bct.components() {
		hasLarge := false
		for _, bIdx := range comp.blockIndices {
			if isLarge(blocks[bIdx], minComponentLengthM) {
				hasLarge = true
				break
			}
		}
		if !hasLarge {
			continue
		}
		kept := bct.keepPropagate(comp, blocks, minComponentLengthM)
		for k := range kept {
			keepNode[k] = true
		}
	}

	var toRemove []int
	for id := range g.Nodes {
		if !keepNode[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		g.RemoveNode(id)
	}
}
