package annotate

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"
)

// GPX renders the route's sampled profile as a single-track GPX document,
// supplemental to the protocol's mandatory GeoJSON feature (spec.md §4.G
// names only GeoJSON; this is additive for a client "download as GPX"
// affordance).
func (r Route) GPX() (*gpx.GPX, error) {
	points := make([]gpx.GPXPoint, 0, len(r.Profile))
	for _, row := range r.Profile {
		points = append(points, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  row.Lat,
				Longitude: row.Lng,
				Elevation: *gpx.NewNullableFloat64(row.Feet / metersToFeet),
			},
		})
	}

	doc := &gpx.GPX{
		Version: "1.1",
		Creator: "scenicloopd",
		Tracks: []gpx.GPXTrack{
			{
				Name:     "scenic loop",
				Segments: []gpx.GPXTrackSegment{{Points: points}},
			},
		},
	}
	return doc, nil
}

// GPXString renders GPX and serializes it to XML.
func (r Route) GPXString() (string, error) {
	doc, err := r.GPX()
	if err != nil {
		return "", err
	}
	xmlBytes, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return "", fmt.Errorf("rendering gpx xml: %w", err)
	}
	return string(xmlBytes), nil
}
