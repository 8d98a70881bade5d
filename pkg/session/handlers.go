package session

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/NERVsystems/scenicloops/pkg/annotate"
	"github.com/NERVsystems/scenicloops/pkg/bitset"
	"github.com/NERVsystems/scenicloops/pkg/enumerate"
	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/ingest"
	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/prepare"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
	"github.com/NERVsystems/scenicloops/pkg/tracing"
)

// handleSwitchGraph loads and installs name as the active graph, unless
// this session has an active enumeration, in which case it errors
// (spec.md §5's "switching is disallowed while an enumeration is
// active"). Failures reuse GRAPH_CREATE_ERROR, matching the system this
// was ported from rather than introducing a dedicated error tag.
func (s *Session) handleSwitchGraph(ctx context.Context, raw json.RawMessage, out Sender) {
	var p switchGraphPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Name == "" {
		s.logger.Warn("ignoring malformed SWITCH_GRAPH", "error", err)
		return
	}

	s.enumMu.Lock()
	active := s.enumCancel != nil
	s.enumMu.Unlock()
	if active {
		s.logger.Warn("switch rejected: enumeration active", "name", p.Name, "error", errSwitchDuringEnumeration)
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	if err := s.store.Switch(ctx, p.Name); err != nil {
		s.logger.Error("switch failed", "name", p.Name, "error", fmt.Errorf("%w: %v", ErrIO, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}
	s.send(ctx, out, TagGraphSwitched, graphSwitchedPayload{Name: p.Name})
}

// handleCreateGraph downloads, prepares, persists and activates a new
// graph. This is CPU- and network-heavy, so it runs on its own goroutine
// (spec.md §5's "background worker") while the message loop keeps
// serving other messages; GRAPH_CREATING is sent immediately so the
// client knows the request was accepted.
func (s *Session) handleCreateGraph(ctx context.Context, raw json.RawMessage, out Sender) {
	var p createGraphPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Name == "" || p.BoundaryType == "" {
		s.logger.Warn("ignoring malformed CREATE_GRAPH", "error", err)
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	boundary, err := boundaryFromPayload(p)
	if err != nil {
		s.logger.Warn("rejecting CREATE_GRAPH", "error", fmt.Errorf("%w: %v", ErrInputInvalid, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	s.send(ctx, out, TagGraphCreating, nil)

	go s.createGraph(ctx, p.Name, boundary, p.Filter, out)
}

func (s *Session) createGraph(ctx context.Context, name string, boundary routegraph.Boundary, filter string, out Sender) {
	ctx, span := tracing.StartSpan(ctx, "session.create_graph")
	defer span.End()

	bbox, poly := ingest.RealizeBoundary(boundary)
	query := ingest.NewQueryBuilder().WithBoundingBox(bbox).WithFilter(filter).Build()

	raw, err := s.ingestClient.FetchRoadNetwork(ctx, query)
	if err != nil {
		s.logger.Error("road network fetch failed", "name", name, "error", fmt.Errorf("%w: %v", ErrUpstream, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	g, err := ingest.ParseRoadNetwork(raw)
	if err != nil {
		s.logger.Error("road network parse failed", "name", name, "error", fmt.Errorf("%w: %v", ErrUpstream, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	_ = poly // the realized polygon only feeds the Overpass bounding box; exclusion zones come from boundary.ExclusionPolygons

	opts := s.prepareOpts
	opts.ExclusionPolygons = boundary.ExclusionPolygons()

	prepared, err := prepare.Run(ctx, s.logger, g, opts, s.oracle)
	if err != nil {
		s.logger.Error("preparation failed", "name", name, "error", fmt.Errorf("%w: %v", ErrInternalInvariant, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	if err := s.store.Save(name, prepared, boundary); err != nil {
		s.logger.Error("saving prepared graph failed", "name", name, "error", fmt.Errorf("%w: %v", ErrIO, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}
	if err := s.store.Switch(ctx, name); err != nil {
		s.logger.Error("activating prepared graph failed", "name", name, "error", fmt.Errorf("%w: %v", ErrIO, err))
		s.send(ctx, out, TagGraphCreateError, nil)
		return
	}

	s.send(ctx, out, TagGraphCreated, nil)
	s.sendGraphsList(ctx, out)
}

func boundaryFromPayload(p createGraphPayload) (routegraph.Boundary, error) {
	switch routegraph.BoundaryType(p.BoundaryType) {
	case routegraph.BoundaryBox:
		return routegraph.Boundary{
			Type: routegraph.BoundaryBox,
			South: p.South, West: p.West, North: p.North, East: p.East,
			ExclusionZones: p.ExclusionZones,
		}, nil
	case routegraph.BoundaryPolygon:
		if len(p.Coordinates) < 3 {
			return routegraph.Boundary{}, fmt.Errorf("polygon boundary needs at least 3 vertices, got %d", len(p.Coordinates))
		}
		return routegraph.Boundary{
			Type: routegraph.BoundaryPolygon,
			Coordinates: p.Coordinates,
			ExclusionZones: p.ExclusionZones,
		}, nil
	case routegraph.BoundaryCircle:
		if p.RadiusMiles <= 0 {
			return routegraph.Boundary{}, fmt.Errorf("circle boundary needs a positive radius_miles, got %v", p.RadiusMiles)
		}
		return routegraph.Boundary{
			Type: routegraph.BoundaryCircle,
			Center: p.Center, RadiusMiles: p.RadiusMiles,
			ExclusionZones: p.ExclusionZones,
		}, nil
	default:
		return routegraph.Boundary{}, fmt.Errorf("unknown boundary_type %q", p.BoundaryType)
	}
}

// handleGetNodesInRegion masks every active-graph node strictly inside
// the region polygon. Missing or too-small coordinates are ignored with
// a server log, matching spec.md §7's query-message error class.
func (s *Session) handleGetNodesInRegion(ctx context.Context, raw json.RawMessage, out Sender) {
	var p coordinatesPayload
	if err := json.Unmarshal(raw, &p); err != nil || len(p.Coordinates) < 3 {
		s.logger.Warn("ignoring GET_NODES_IN_REGION: need at least 3 coordinates", "error", err)
		return
	}

	ag := s.store.Active()
	if ag == nil {
		s.logger.Warn("ignoring GET_NODES_IN_REGION", "error", ErrGraphNotLoaded)
		return
	}

	poly := make([]geo.Point, 0, len(p.Coordinates))
	for _, ll := range p.Coordinates {
		poly = append(poly, geo.Point{Lat: ll[0], Lng: ll[1]})
	}

	mask := bitset.New(ag.Graph.NodeCount())
	for id, n := range ag.Graph.Nodes {
		if geo.PolygonContains(poly, n.Point()) {
			mask.Set(id)
		}
	}

	s.send(ctx, out, TagNodesInRegion, nodesInRegionPayload{Mask: mask.HexString()})
}

// handleGetNodesNearPolyline snaps each polyline vertex to its nearest
// graph node and returns the visited mask along the shortest path
// chaining the snapped endpoints. No path between some pair of endpoints
// is an upstream-class failure (spec.md §7): it yields an empty result
// rather than an error.
func (s *Session) handleGetNodesNearPolyline(ctx context.Context, raw json.RawMessage, out Sender) {
	var p coordinatesPayload
	if err := json.Unmarshal(raw, &p); err != nil || len(p.Coordinates) < 2 {
		s.logger.Warn("ignoring GET_NODES_NEAR_POLYLINE: need at least 2 coordinates", "error", err)
		return
	}

	ag := s.store.Active()
	if ag == nil {
		s.logger.Warn("ignoring GET_NODES_NEAR_POLYLINE", "error", ErrGraphNotLoaded)
		return
	}

	line := make([]geo.Point, 0, len(p.Coordinates))
	for _, ll := range p.Coordinates {
		line = append(line, geo.Point{Lat: ll[0], Lng: ll[1]})
	}

	nodes, ok := ingest.ShortestPathAlongPolyline(ag.Graph, line)
	if !ok {
		s.logger.Warn("no path between snapped endpoints", "error", ErrUpstream)
		s.send(ctx, out, TagNodesAlongPath, nodesAlongPathPayload{Mask: bitset.New(ag.Graph.NodeCount()).HexString()})
		return
	}

	mask := bitset.New(ag.Graph.NodeCount())
	for _, id := range nodes {
		mask.Set(id)
	}
	poly := routegraph.BuildPolyline(ag.Graph, nodes)
	edges := geoJSONLineString(poly)

	s.send(ctx, out, TagNodesAlongPath, nodesAlongPathPayload{Mask: mask.HexString(), Edges: edges})
}

// handleStartGeneration snaps (lat,lng) to the nearest active-graph node
// and streams the enumerator's output through the annotator, one
// PATH_RECEIVED per route, finishing with GENERATION_COMPLETE. This runs
// on its own goroutine; a prior active enumeration on the session is
// cancelled first, since a session holds at most one at a time.
func (s *Session) handleStartGeneration(ctx context.Context, raw json.RawMessage, out Sender) {
	var p startGenerationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("ignoring malformed START_GENERATION", "error", err)
		return
	}
	var present struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(raw, &present); err != nil || present.Lat == nil || present.Lng == nil {
		s.logger.Warn("ignoring START_GENERATION: missing lat/lng")
		return
	}

	ag := s.store.Active()
	if ag == nil {
		s.logger.Warn("ignoring START_GENERATION", "error", ErrGraphNotLoaded)
		return
	}

	start, ok := ingest.NearestNode(ag.Graph, geo.Point{Lat: p.Lat, Lng: p.Lng})
	if !ok {
		s.logger.Warn("ignoring START_GENERATION: empty active graph")
		return
	}

	params := startParamsFromPayload(p, start, s.minLoopLengthM)

	s.enumMu.Lock()
	if s.enumCancel != nil {
		s.enumCancel()
	}
	enumCtx, cancel := context.WithCancel(ctx)
	s.enumCancel = cancel
	s.enumMu.Unlock()

	pathSetID := uuid.NewString()
	s.send(ctx, out, TagPathsetCreated, pathsetCreatedPayload{
		PathSetID:      pathSetID,
		MarkerPosition: [2]float64{p.Lat, p.Lng},
	})

	go s.runGeneration(enumCtx, cancel, ag.Graph, params, pathSetID, out)
}

func (s *Session) runGeneration(ctx context.Context, cancel context.CancelFunc, g *routegraph.Graph, params enumerate.Params, pathSetID string, out Sender) {
	ctx, span := tracing.StartSpan(ctx, "session.run_generation")
	span.SetAttributes(tracing.EnumerationAttributes(params.StartNode, 0, false)...)
	start := time.Now()
	emitted := 0
	defer func() {
		cancel()
		s.enumMu.Lock()
		if s.enumCancel != nil {
			s.enumCancel = nil
		}
		s.enumMu.Unlock()
		monitoring.RecordEnumerationRun(emitted, time.Since(start), false)
		span.End()
	}()

	routes := enumerate.Run(ctx, s.logger, g, params)
	for route := range routes {
		annotated := annotate.Annotate(ctx, g, route.Nodes, route.Mask, route.Turns, route.LoopDistanceM, route.TotalDistanceM, route.LoopRatio, s.oracle)
		select {
		case <-ctx.Done():
			return
		default:
		}
		emitted++
		s.send(ctx, out, TagPathReceived, pathReceivedPayload{PathSetID: pathSetID, Path: annotated})
	}
	s.send(ctx, out, TagGenerationComplete, generationCompletePayload{PathSetID: pathSetID})
}

func startParamsFromPayload(p startGenerationPayload, start int, minLoopLengthM float64) enumerate.Params {
	minMi, maxMi := p.MinPathLenMi, p.MaxPathLenMi
	if minMi <= 0 {
		minMi = 2
	}
	if maxMi <= 0 {
		maxMi = 50
	}
	loopRatio := p.LoopRatio
	if loopRatio <= 0 {
		loopRatio = 0.5
	}
	simCeil := p.SimCeiling
	if simCeil <= 0 {
		simCeil = 0.7
	}
	numPaths := p.NumPaths
	if numPaths <= 0 {
		numPaths = 50
	}
	minDist := p.MinDistM
	if minDist <= 0 {
		minDist = 50
	}

	diversity := enumerate.DiversityCentroid
	if p.Deduplication == "jaccard" {
		diversity = enumerate.DiversityJaccard
	}

	return enumerate.Params{
		StartNode:         start,
		MinPathLengthM:    minMi * geo.MilesToMeters,
		MaxPathLengthM:    maxMi * geo.MilesToMeters,
		MinLoopLengthM:    minLoopLengthM,
		LoopRatioFloor:    loopRatio,
		NumPaths:          numPaths,
		Diversity:         diversity,
		MinDistM:          minDist,
		SimilarityCeiling: simCeil,
	}
}

// handleGetNodeInfo resolves a single node id to its coordinate,
// elevation, and MGRS string. Supplemented, read-only; not in spec.md's
// message table.
func (s *Session) handleGetNodeInfo(ctx context.Context, raw json.RawMessage, out Sender) {
	var p nodeInfoRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("ignoring malformed GET_NODE_INFO", "error", err)
		return
	}

	ag := s.store.Active()
	if ag == nil {
		s.logger.Warn("ignoring GET_NODE_INFO", "error", ErrGraphNotLoaded)
		return
	}
	n, ok := ag.Graph.Nodes[p.NodeID]
	if !ok {
		s.logger.Warn("ignoring GET_NODE_INFO: unknown node id", "node_id", p.NodeID)
		return
	}

	mgrs, err := geo.ToMGRS(n.Latitude, n.Longitude, 5)
	if err != nil {
		s.logger.Warn("mgrs conversion failed", "node_id", p.NodeID, "error", err)
	}

	s.send(ctx, out, TagNodeInfo, nodeInfoPayload{
		Lat: n.Latitude, Lng: n.Longitude, ElevationM: n.ElevationM, MGRS: mgrs,
	})
}

func geoJSONLineString(poly []geo.Point) any {
	coords := make([][]float64, 0, len(poly))
	for _, p := range poly {
		coords = append(coords, []float64{p.Lng, p.Lat})
	}
	return map[string]any{
		"type":        "LineString",
		"coordinates": coords,
	}
}
