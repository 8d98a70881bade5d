package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

// overpassElement mirrors the teacher's osm.OverpassElement, narrowed to
// the fields a road network response actually carries: nodes bring
// lat/lng, ways bring an ordered node-id list and tags.
type overpassElement struct {
	ID      int64             `json:"id"`
	Type    string            `json:"type"`
	Lat     float64           `json:"lat,omitempty"`
	Lon     float64           `json:"lon,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
	NodeIDs []int64           `json:"nodes,omitempty"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// ParseRoadNetwork decodes an Overpass JSON response built by QueryBuilder
// (way body followed by a recursive node skeleton) into a raw routegraph
// ready for pkg/prepare. Node IDs are relabeled to a dense 0..N-1 range,
// matching what the preparation pipeline's relabel stage expects on
// input as well as output.
func ParseRoadNetwork(data []byte) (*routegraph.Graph, error) {
	var resp overpassResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding overpass response: %w", err)
	}

	coords := make(map[int64]geo.Point)
	var ways []overpassElement
	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			coords[el.ID] = geo.Point{Lat: el.Lat, Lng: el.Lon}
		case "way":
			if len(el.NodeIDs) >= 2 {
				ways = append(ways, el)
			}
		}
	}

	g := routegraph.New()
	ids := make(map[int64]int)
	nodeID := func(osmID int64) int {
		if id, ok := ids[osmID]; ok {
			return id
		}
		id := len(ids)
		ids[osmID] = id
		p := coords[osmID]
		g.AddNode(&routegraph.Node{ID: id, Latitude: p.Lat, Longitude: p.Lng})
		return id
	}

	for _, way := range ways {
		geometry := make([]geo.Point, 0, len(way.NodeIDs))
		for _, osmID := range way.NodeIDs {
			if p, ok := coords[osmID]; ok {
				geometry = append(geometry, p)
			}
		}
		if len(geometry) < 2 {
			continue
		}

		name := edgeNameFromTags(way.Tags)
		highway := way.Tags["highway"]
		oneway := way.Tags["oneway"] == "yes" || way.Tags["oneway"] == "1"

		for i := 1; i < len(way.NodeIDs); i++ {
			fromOSM, toOSM := way.NodeIDs[i-1], way.NodeIDs[i]
			if _, ok := coords[fromOSM]; !ok {
				continue
			}
			if _, ok := coords[toOSM]; !ok {
				continue
			}
			from, to := nodeID(fromOSM), nodeID(toOSM)
			segGeom := geometry[i-1 : i+1]
			length := geo.GeodesicLength(segGeom)

			g.AddEdge(&routegraph.Edge{
				From: from, To: to, LengthM: length,
				Geometry: append([]geo.Point(nil), segGeom...),
				Name:     name, Highway: highway, OsmID: way.ID,
			})
			if !oneway {
				rev := make([]geo.Point, len(segGeom))
				for j, p := range segGeom {
					rev[len(segGeom)-1-j] = p
				}
				g.AddEdge(&routegraph.Edge{
					From: to, To: from, LengthM: length,
					Geometry: rev,
					Name:     name, Highway: highway, OsmID: way.ID,
				})
			}
		}
	}

	return g, nil
}

// edgeNameFromTags builds the canonical edge name from a way's name/ref
// tags: both present yields a set (either counts as a match during turn
// detection), only one present yields a single name, neither yields none.
func edgeNameFromTags(tags map[string]string) routegraph.EdgeName {
	name := strings.TrimSpace(tags["name"])
	ref := strings.TrimSpace(tags["ref"])
	switch {
	case name != "" && ref != "" && name != ref:
		return routegraph.NewSet(name, ref)
	case name != "":
		return routegraph.SingleName(name)
	case ref != "":
		return routegraph.SingleName(ref)
	default:
		return routegraph.None()
	}
}
