// Package prepare implements the graph preparation pipeline: a sequence
// of deterministic, idempotent stages that turn a raw road multigraph
// into a compact, topologically clean routing graph.
package prepare

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NERVsystems/scenicloops/pkg/geo"
	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
	"github.com/NERVsystems/scenicloops/pkg/tracing"
)

// stageTimer returns a func to call when a pipeline stage completes,
// recording its duration to both Prometheus and the active trace span.
func stageTimer(ctx context.Context, stage string) func() {
	start := time.Now()
	_, span := tracing.StartSpan(ctx, "prepare."+stage)
	span.SetAttributes(tracing.PrepareStageAttributes(stage)...)
	return func() {
		monitoring.RecordPrepareStage(stage, time.Since(start))
		span.End()
	}
}

// DefaultMinComponentLengthM is the minimum edge-length weight a
// biconnected component must carry to be considered "large" during
// pruning.
const DefaultMinComponentLengthM = 3000.0

// DefaultConsolidationToleranceM is the distance within which two
// intersections are merged into one super-node.
const DefaultConsolidationToleranceM = 15.0

// ElevationLookup resolves a single elevation sample; satisfied by
// *elevation.Oracle without creating an import cycle.
type ElevationLookup interface {
	Lookup(ctx context.Context, lat, lng float64) (meters float64, ok bool)
}

// Options configures a pipeline run. Zero values fall back to the spec's
// defaults.
type Options struct {
	ExclusionPolygons      [][]geo.Point
	MinComponentLengthM    float64
	ConsolidationToleranceM float64
}

func (o Options) withDefaults() Options {
	if o.MinComponentLengthM <= 0 {
		o.MinComponentLengthM = DefaultMinComponentLengthM
	}
	if o.ConsolidationToleranceM <= 0 {
		o.ConsolidationToleranceM = DefaultConsolidationToleranceM
	}
	return o
}

// ErrEmptyAfterExclusion is returned when exclusion masking removes every
// node from the input graph.
var ErrEmptyAfterExclusion = errors.New("graph is empty after exclusion masking")

// Run executes all ten pipeline stages in order and returns the prepared
// graph. Pruning failures (stage 4 producing an empty graph) are
// recovered from by skipping pruning, logging a warning, matching
// spec.md's internal-invariant error class; they do not fail the run.
func Run(ctx context.Context, logger *slog.Logger, g *routegraph.Graph, opts Options, oracle ElevationLookup) (*routegraph.Graph, error) {
	ctx, span := tracing.StartSpan(ctx, "prepare.run")
	defer span.End()

	opts = opts.withDefaults()

	done := stageTimer(ctx, "exclusion_masking")
	excludeNodes(g, opts.ExclusionPolygons)
	done()
	if g.NodeCount() == 0 {
		tracing.RecordError(ctx, ErrEmptyAfterExclusion)
		return nil, ErrEmptyAfterExclusion
	}

	done = stageTimer(ctx, "edge_name_cleanup")
	cleanupEdgeNames(g)
	done()

	done = stageTimer(ctx, "attribute_stripping")
	stripAttributes(g)
	done()

	before := g.NodeCount()
	pruned := g.Clone()
	done = stageTimer(ctx, "biconnected_pruning")
	pruneBiconnected(pruned, opts.MinComponentLengthM)
	done()
	if pruned.NodeCount() == 0 && before > 0 {
		logger.Warn("biconnected pruning would empty the graph; skipping pruning", "nodes_before", before)
	} else {
		g = pruned
	}

	done = stageTimer(ctx, "intersection_consolidation")
	consolidateIntersections(g, opts.ConsolidationToleranceM)
	done()

	done = stageTimer(ctx, "parallel_edge_reduction")
	reduceParallelEdges(g)
	done()

	done = stageTimer(ctx, "degree2_merge")
	mergeDegree2(g, logger)
	done()

	done = stageTimer(ctx, "final_cleanup")
	finalCleanup(g)
	done()

	done = stageTimer(ctx, "relabel")
	relabeled := relabel(g)
	done()

	done = stageTimer(ctx, "elevation_attach")
	missing := attachElevation(ctx, relabeled, oracle)
	done()
	if missing > 0 {
		logger.Warn("elevation missing for nodes", "missing_count", missing, "total_nodes", relabeled.NodeCount())
	}

	return relabeled, nil
}
