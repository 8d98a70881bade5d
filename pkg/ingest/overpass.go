// Package ingest downloads raw OpenStreetMap road networks for a
// boundary (box, polygon, or circle) under an Overpass-style tag filter,
// and offers a snap-to-nearest-node shortest-path helper used by the
// GET_NODES_NEAR_POLYLINE query.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NERVsystems/scenicloops/pkg/geo"
)

// DefaultFilter is the OSM tag predicate used when a CREATE_GRAPH request
// omits one.
const DefaultFilter = `["highway"~"trunk|primary|secondary|tertiary"]`

// QueryBuilder assembles an Overpass QL query string for a boundary and
// tag filter, following the teacher's fluent builder shape.
type QueryBuilder struct {
	timeoutSeconds int
	outputFormat   string
	bbox           *geo.BoundingBox
	filter         string
}

// NewQueryBuilder returns a builder with Overpass's conventional 25s
// timeout and json output.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{timeoutSeconds: 25, outputFormat: "json"}
}

func (b *QueryBuilder) WithTimeout(seconds int) *QueryBuilder {
	b.timeoutSeconds = seconds
	return b
}

func (b *QueryBuilder) WithOutputFormat(format string) *QueryBuilder {
	b.outputFormat = format
	return b
}

func (b *QueryBuilder) WithBoundingBox(bbox geo.BoundingBox) *QueryBuilder {
	b.bbox = &bbox
	return b
}

// WithFilter sets the raw OSM tag predicate, e.g.
// `["highway"~"trunk|primary|secondary|tertiary"]`.
func (b *QueryBuilder) WithFilter(filter string) *QueryBuilder {
	b.filter = filter
	return b
}

// Build assembles the final Overpass QL query string.
func (b *QueryBuilder) Build() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:%s][timeout:%d];(", b.outputFormat, b.timeoutSeconds)

	filter := b.filter
	if filter == "" {
		filter = DefaultFilter
	}

	bboxClause := ""
	if b.bbox != nil {
		bboxClause = fmt.Sprintf("(%s,%s,%s,%s)",
			trimFloat(b.bbox.MinLat), trimFloat(b.bbox.MinLon),
			trimFloat(b.bbox.MaxLat), trimFloat(b.bbox.MaxLon))
	}

	fmt.Fprintf(&sb, "way%s%s;", filter, bboxClause)
	sb.WriteString(");out body;>;out skel qt;")
	return sb.String()
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
