// Package graphstore persists prepared graphs to disk (one binary blob
// plus a sidecar boundary JSON per named graph) and owns the single
// process-wide "active graph" handle the session dispatcher operates
// against.
package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NERVsystems/scenicloops/pkg/elevation"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

const (
	graphExt    = ".graph"
	boundaryExt = ".boundary.json"

	// boundaryCacheSize bounds the resident set of parsed boundary
	// sidecars: ListBoundaries is called on every session's connect and
	// every LIST_GRAPHS round trip, so re-parsing every sidecar JSON on
	// each call is wasted work once a directory holds more than a
	// handful of graphs.
	boundaryCacheSize = 64
)

// ErrNotFound is returned by Load when the named graph has no blob on
// disk.
var ErrNotFound = fmt.Errorf("graph not found")

// Store is a directory of named prepared graphs plus the single active
// handle. Reads are concurrent; create/switch operations take the
// per-process lock described in spec.md's concurrency model.
type Store struct {
	dir    string
	logger *slog.Logger
	oracle *elevation.Oracle

	mu     sync.RWMutex
	active *ActiveGraph

	boundaryCache *lru.Cache[string, routegraph.Boundary]
}

// ActiveGraph is the currently loaded graph and its boundary descriptor.
type ActiveGraph struct {
	Name     string
	Graph    *routegraph.Graph
	Boundary routegraph.Boundary
}

// New constructs a Store rooted at dir. dir is created if absent.
func New(dir string, logger *slog.Logger, oracle *elevation.Oracle) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating graphs directory: %w", err)
	}
	cache, err := lru.New[string, routegraph.Boundary](boundaryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating boundary cache: %w", err)
	}
	return &Store{dir: dir, logger: logger, oracle: oracle, boundaryCache: cache}, nil
}

// List returns the names of every graph with a blob present on disk, in
// lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading graphs directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), graphExt) {
			names = append(names, strings.TrimSuffix(e.Name(), graphExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListBoundaries returns every graph's boundary descriptor, keyed by
// name. Graphs whose sidecar is missing or unreadable are skipped with a
// logged warning rather than failing the whole call.
func (s *Store) ListBoundaries() (map[string]routegraph.Boundary, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]routegraph.Boundary, len(names))
	for _, name := range names {
		b, err := s.loadBoundary(name)
		if err != nil {
			s.logger.Warn("skipping unreadable boundary sidecar", "graph", name, "error", err)
			continue
		}
		out[name] = b
	}
	return out, nil
}

// Save writes graph and boundary to disk under name, overwriting any
// existing blob.
func (s *Store) Save(name string, g *routegraph.Graph, boundary routegraph.Boundary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := routegraph.Marshal(g, nil)
	if err != nil {
		return fmt.Errorf("marshal graph %q: %w", name, err)
	}
	if err := os.WriteFile(s.graphPath(name), blob, 0o644); err != nil {
		return fmt.Errorf("writing graph blob %q: %w", name, err)
	}

	bjson, err := json.Marshal(boundary)
	if err != nil {
		return fmt.Errorf("marshal boundary %q: %w", name, err)
	}
	if err := os.WriteFile(s.boundaryPath(name), bjson, 0o644); err != nil {
		return fmt.Errorf("writing boundary sidecar %q: %w", name, err)
	}
	s.boundaryCache.Add(name, boundary)
	return nil
}

// Load reads the named graph, migrating it in place (attaching elevation
// and rewriting the blob) if its format predates elevation attachment.
// Migration is detected by checking a single sample node, matching the
// original system's cheap migration trigger.
func (s *Store) Load(ctx context.Context, name string) (*routegraph.Graph, routegraph.Boundary, error) {
	blobPath := s.graphPath(name)
	data, err := os.ReadFile(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, routegraph.Boundary{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, routegraph.Boundary{}, fmt.Errorf("reading graph blob %q: %w", name, err)
	}

	g, _, hasElev, err := routegraph.Unmarshal(data)
	if err != nil {
		return nil, routegraph.Boundary{}, fmt.Errorf("decoding graph blob %q: %w", name, err)
	}

	boundary, err := s.loadBoundary(name)
	if err != nil {
		return nil, routegraph.Boundary{}, fmt.Errorf("loading boundary for %q: %w", name, err)
	}

	if needsElevationMigration(g, hasElev) {
		s.logger.Info("migrating graph to attach elevation", "graph", name)
		attachElevation(ctx, g, s.oracle, s.logger)
		if err := s.Save(name, g, boundary); err != nil {
			return nil, routegraph.Boundary{}, fmt.Errorf("rewriting migrated graph %q: %w", name, err)
		}
	}

	return g, boundary, nil
}

// needsElevationMigration checks a single sample node (any node) for a
// present elevation flag; this mirrors the original's cheap one-sample
// migration check rather than scanning every node.
func needsElevationMigration(g *routegraph.Graph, hasElev map[int]bool) bool {
	for id := range g.Nodes {
		return !hasElev[id]
	}
	return false
}

func attachElevation(ctx context.Context, g *routegraph.Graph, oracle *elevation.Oracle, logger *slog.Logger) {
	missing := 0
	for _, n := range g.Nodes {
		if m, ok := oracle.Lookup(ctx, n.Latitude, n.Longitude); ok {
			n.ElevationM = m
		} else {
			n.ElevationM = 0
			missing++
		}
	}
	if missing > 0 {
		logger.Warn("elevation missing for nodes during migration", "missing_count", missing, "total_nodes", g.NodeCount())
	}
}

// loadBoundary returns name's boundary descriptor, serving from the
// resident cache when present. A cache hit skips both the file read and
// the JSON unmarshal.
func (s *Store) loadBoundary(name string) (routegraph.Boundary, error) {
	if b, ok := s.boundaryCache.Get(name); ok {
		return b, nil
	}

	data, err := os.ReadFile(s.boundaryPath(name))
	if err != nil {
		return routegraph.Boundary{}, err
	}
	var b routegraph.Boundary
	if err := json.Unmarshal(data, &b); err != nil {
		return routegraph.Boundary{}, fmt.Errorf("parsing boundary sidecar: %w", err)
	}
	s.boundaryCache.Add(name, b)
	return b, nil
}

func (s *Store) graphPath(name string) string    { return filepath.Join(s.dir, name+graphExt) }
func (s *Store) boundaryPath(name string) string { return filepath.Join(s.dir, name+boundaryExt) }

// Active returns the currently active graph, or nil if none is loaded.
func (s *Store) Active() *ActiveGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Switch loads name and installs it as the active graph. The previous
// active graph is released only after the new one is fully loaded, so an
// observer never sees a half-swapped state.
func (s *Store) Switch(ctx context.Context, name string) error {
	g, boundary, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	next := &ActiveGraph{Name: name, Graph: g, Boundary: boundary}

	s.mu.Lock()
	s.active = next
	s.mu.Unlock()
	return nil
}
