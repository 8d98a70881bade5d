package routegraph

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// blobVersion is bumped whenever the on-disk gob schema changes in a way
// that requires migration on load (see pkg/graphstore).
const blobVersion = 2

// gobNode/gobEdge/gobGraph are the exact shapes persisted to disk. They
// exist so the wire (gob) format is decoupled from in-memory pointer
// structure and can be versioned independently of Graph's internals.
type gobNode struct {
	ID         int
	Latitude   float64
	Longitude  float64
	ElevationM float64
	HasElev    bool
}

type gobEdgeName struct {
	Kind   EdgeNameKind
	Single string
	Set    []string
}

type gobEdge struct {
	From, To int
	LengthM  float64
	Geometry []gobPoint
	Name     gobEdgeName
	Highway  string
	OsmID    int64
}

type gobPoint struct {
	Lat, Lng float64
}

type gobGraph struct {
	Version int
	Nodes   []gobNode
	Edges   []gobEdge
}

// Marshal encodes g as a versioned gob blob. hasElevation reports, per
// node id, whether that node already carries a real elevation reading
// (used by the graph store's migration-on-load check).
func Marshal(g *Graph, hasElevation map[int]bool) ([]byte, error) {
	gg := gobGraph{Version: blobVersion}
	for _, n := range g.Nodes {
		gg.Nodes = append(gg.Nodes, gobNode{
			ID:         n.ID,
			Latitude:   n.Latitude,
			Longitude:  n.Longitude,
			ElevationM: n.ElevationM,
			HasElev:    hasElevation == nil || hasElevation[n.ID],
		})
	}
	for _, e := range g.AllEdges() {
		ge := gobEdge{From: e.From, To: e.To, LengthM: e.LengthM, Highway: e.Highway, OsmID: e.OsmID}
		for _, p := range e.Geometry {
			ge.Geometry = append(ge.Geometry, gobPoint{Lat: p.Lat, Lng: p.Lng})
		}
		ge.Name = gobEdgeName{Kind: e.Name.Kind, Single: e.Name.Single}
		if e.Name.Kind == EdgeNameSet {
			for v := range e.Name.Set {
				ge.Name.Set = append(ge.Name.Set, v)
			}
		}
		gg.Edges = append(gg.Edges, ge)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gg); err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a gob blob into a Graph, returning the stored blob
// version and a per-node elevation-present map so the caller can decide
// whether migration is required.
func Unmarshal(data []byte) (*Graph, int, map[int]bool, error) {
	var gg gobGraph
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gg); err != nil {
		return nil, 0, nil, fmt.Errorf("unmarshal graph: %w", err)
	}

	g := New()
	hasElev := make(map[int]bool, len(gg.Nodes))
	for _, n := range gg.Nodes {
		g.AddNode(&Node{ID: n.ID, Latitude: n.Latitude, Longitude: n.Longitude, ElevationM: n.ElevationM})
		hasElev[n.ID] = n.HasElev
	}
	for _, e := range gg.Edges {
		edge := &Edge{From: e.From, To: e.To, LengthM: e.LengthM, Highway: e.Highway, OsmID: e.OsmID}
		for _, p := range e.Geometry {
			edge.Geometry = append(edge.Geometry, geoPointOf(p))
		}
		switch e.Name.Kind {
		case EdgeNameSingle:
			edge.Name = SingleName(e.Name.Single)
		case EdgeNameSet:
			edge.Name = NewSet(e.Name.Set...)
		default:
			edge.Name = None()
		}
		g.AddEdge(edge)
	}
	return g, gg.Version, hasElev, nil
}
