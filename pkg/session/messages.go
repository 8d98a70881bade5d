// Package session implements the stateful per-client message dispatcher:
// it maps incoming line-delimited JSON commands (list/switch/create graph,
// spatial queries, start generation) onto the graph store, network
// ingest, preparation pipeline, loop enumerator and route annotator, and
// streams results back over a Sender the caller supplies. The actual
// push transport is out of scope here; Sender is the seam.
package session

import (
	"github.com/goccy/go-json"

	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// Tag names, verbatim from the wire protocol's message table.
const (
	TagListGraphs   = "LIST_GRAPHS"
	TagGraphsList   = "GRAPHS_LIST"
	TagSwitchGraph  = "SWITCH_GRAPH"
	TagGraphSwitched = "GRAPH_SWITCHED"

	TagCreateGraph      = "CREATE_GRAPH"
	TagGraphCreating    = "GRAPH_CREATING"
	TagGraphCreated     = "GRAPH_CREATED"
	TagGraphCreateError = "GRAPH_CREATE_ERROR"

	TagGetNodesInRegion = "GET_NODES_IN_REGION"
	TagNodesInRegion    = "NODES_IN_REGION"

	TagGetNodesNearPolyline = "GET_NODES_NEAR_POLYLINE"
	TagNodesAlongPath       = "NODES_ALONG_PATH"

	TagStartGeneration   = "START_GENERATION"
	TagPathsetCreated    = "PATHSET_CREATED"
	TagPathReceived      = "PATH_RECEIVED"
	TagGenerationComplete = "GENERATION_COMPLETE"

	// TagGetNodeInfo and TagNodeInfo are a supplemented read-only query not
	// in the protocol table: resolve a single node id to its coordinate,
	// elevation and MGRS string.
	TagGetNodeInfo = "GET_NODE_INFO"
	TagNodeInfo    = "NODE_INFO"
)

// outEnvelope is the outer shape of every line sent to the client: a tag
// plus a typed payload, marshaled as-is by the Sender implementation.
type outEnvelope struct {
	Tag     string `json:"tag"`
	Payload any    `json:"payload,omitempty"`
}

// rawEnvelope decodes an incoming line before the payload is parsed
// against the specific shape the tag calls for.
type rawEnvelope struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- client -> server payloads ---

type switchGraphPayload struct {
	Name string `json:"name"`
}

type createGraphPayload struct {
	Name         string         `json:"name"`
	BoundaryType string         `json:"boundary_type"`
	Filter       string         `json:"filter,omitempty"`
	South, West  float64        `json:"south,omitempty"`
	North, East  float64        `json:"north,omitempty"`
	Coordinates  [][2]float64   `json:"coordinates,omitempty"`
	Center       [2]float64     `json:"center,omitempty"`
	RadiusMiles  float64        `json:"radius_miles,omitempty"`
	ExclusionZones [][][2]float64 `json:"exclusion_zones,omitempty"`
}

type coordinatesPayload struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type startGenerationPayload struct {
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	MinPathLenMi      float64 `json:"min_path_len"`
	MaxPathLenMi      float64 `json:"max_path_len"`
	LoopRatio         float64 `json:"loop_ratio"`
	SimCeiling        float64 `json:"sim_ceiling"`
	NumPaths          int     `json:"num_paths"`
	Algorithm         string  `json:"algorithm"`
	Deduplication     string  `json:"deduplication"`
	MinDistM          float64 `json:"min_dist_m"`
}

type nodeInfoRequestPayload struct {
	NodeID int `json:"node_id"`
}

// --- server -> client payloads ---

type graphsListPayload struct {
	Graphs     []string                        `json:"graphs"`
	Active     *string                         `json:"active"`
	Boundaries map[string]routegraph.Boundary `json:"boundaries"`
}

type graphSwitchedPayload struct {
	Name string `json:"name"`
}

type nodesInRegionPayload struct {
	Mask string `json:"mask"`
}

type nodesAlongPathPayload struct {
	Mask  string `json:"mask"`
	Edges any    `json:"edges,omitempty"`
}

type pathsetCreatedPayload struct {
	PathSetID      string     `json:"pathSetId"`
	MarkerPosition [2]float64 `json:"markerPosition"`
}

type pathReceivedPayload struct {
	PathSetID string `json:"pathSetId"`
	Path      any    `json:"path"`
}

type generationCompletePayload struct {
	PathSetID string `json:"pathSetId"`
}

type nodeInfoPayload struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	ElevationM float64 `json:"elevation_m"`
	MGRS       string  `json:"mgrs,omitempty"`
}
