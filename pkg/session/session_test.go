package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/NERVsystems/scenicloops/pkg/elevation"
	"github.com/NERVsystems/scenicloops/pkg/graphstore"
	"github.com/NERVsystems/scenicloops/pkg/ingest"
	"github.com/NERVsystems/scenicloops/pkg/prepare"
	"github.com/NERVsystems/scenicloops/pkg/routegraph"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	Tag     string
	Payload any
}

// recordingSender collects every sent message in order, safe for
// concurrent use since the dispatcher's background workers send
// independently of the message loop.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	ch   chan sentMessage
}

func newRecordingSender() *recordingSender {
	return &recordingSender{ch: make(chan sentMessage, 256)}
}

func (r *recordingSender) Send(_ context.Context, tag string, payload any) error {
	r.mu.Lock()
	r.sent = append(r.sent, sentMessage{Tag: tag, Payload: payload})
	r.mu.Unlock()
	r.ch <- sentMessage{Tag: tag, Payload: payload}
	return nil
}

func (r *recordingSender) waitForTag(t *testing.T, tag string, timeout time.Duration) sentMessage {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case m := <-r.ch:
			if m.Tag == tag {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for tag %q", tag)
		}
	}
}

type zeroElevation struct{}

func (zeroElevation) LoadTile(_ context.Context, tileLat, tileLon int) (*elevation.Tile, error) {
	n := 2
	samples := make([]int16, n*n)
	return &elevation.Tile{TileLat: tileLat, TileLon: tileLon, SamplesPerSide: n, Samples: samples}, nil
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	logger := discardLogger()
	store, err := graphstore.New(t.TempDir(), logger, mustOracle(t, logger))
	if err != nil {
		t.Fatalf("graphstore.New() error = %v", err)
	}
	client := ingest.NewClient(logger, "http://overpass.invalid/api/interpreter", 1, 1)
	return New(logger, store, mustOracle(t, logger), client, prepare.Options{}, 0)
}

func mustOracle(t *testing.T, logger *slog.Logger) *elevation.Oracle {
	t.Helper()
	o, err := elevation.New(logger, zeroElevation{}, 4)
	if err != nil {
		t.Fatalf("elevation.New() error = %v", err)
	}
	return o
}

// squareGrid5x5 mirrors the enumerator's S1 fixture: a 5x5 grid of unit
// roads, every row edge named "row" and every column edge named "col".
func squareGrid5x5(unit float64) *routegraph.Graph {
	g := routegraph.New()
	id := func(r, c int) int { return r*5 + c }
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			g.AddNode(&routegraph.Node{ID: id(r, c), Latitude: float64(r) * unit / 111111, Longitude: float64(c) * unit / 111111})
		}
	}
	add := func(a, b int, name routegraph.EdgeName) {
		g.AddEdge(&routegraph.Edge{From: a, To: b, LengthM: unit, Name: name})
		g.AddEdge(&routegraph.Edge{From: b, To: a, LengthM: unit, Name: name})
	}
	for r := 0; r < 5; r++ {
		rowName := routegraph.SingleName("row")
		for c := 0; c < 4; c++ {
			add(id(r, c), id(r, c+1), rowName)
		}
	}
	for c := 0; c < 5; c++ {
		colName := routegraph.SingleName("col")
		for r := 0; r < 4; r++ {
			add(id(r, c), id(r+1, c), colName)
		}
	}
	return g
}

func sendLine(t *testing.T, in chan []byte, tag string, payload any) {
	t.Helper()
	b, err := json.Marshal(struct {
		Tag     string `json:"tag"`
		Payload any    `json:"payload"`
	}{Tag: tag, Payload: payload})
	if err != nil {
		t.Fatalf("marshal test message: %v", err)
	}
	in <- b
}

func TestRunSendsInitialGraphsList(t *testing.T) {
	d := newTestDispatcher(t)
	s := d.NewSession()
	out := newRecordingSender()
	in := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, in, out) }()

	msg := out.waitForTag(t, TagGraphsList, time.Second)
	gl, ok := msg.Payload.(graphsListPayload)
	if !ok {
		t.Fatalf("payload type = %T, want graphsListPayload", msg.Payload)
	}
	if len(gl.Graphs) != 0 {
		t.Errorf("Graphs = %v, want empty on a fresh store", gl.Graphs)
	}

	close(in)
	cancel()
	<-done
}

func TestSwitchGraph(t *testing.T) {
	d := newTestDispatcher(t)
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 0, West: 0, North: 1, East: 1}
	if err := d.store.Save("grid", squareGrid5x5(100), boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s := d.NewSession()
	out := newRecordingSender()
	in := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx, in, out) }()
	out.waitForTag(t, TagGraphsList, time.Second)

	sendLine(t, in, TagSwitchGraph, map[string]any{"name": "grid"})
	msg := out.waitForTag(t, TagGraphSwitched, time.Second)
	sw, ok := msg.Payload.(graphSwitchedPayload)
	if !ok || sw.Name != "grid" {
		t.Fatalf("GRAPH_SWITCHED payload = %+v", msg.Payload)
	}

	close(in)
	cancel()
}

func TestGetNodesInRegion(t *testing.T) {
	d := newTestDispatcher(t)
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 0, West: 0, North: 1, East: 1}
	g := squareGrid5x5(100)
	if err := d.store.Save("grid", g, boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := d.store.Switch(context.Background(), "grid"); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}

	s := d.NewSession()
	out := newRecordingSender()
	in := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx, in, out) }()
	out.waitForTag(t, TagGraphsList, time.Second)

	unit := 100.0
	deg := unit / 111111
	// A small box around node (0,0) only.
	coords := [][2]float64{{-deg * 0.4, -deg * 0.4}, {deg * 0.4, -deg * 0.4}, {deg * 0.4, deg * 0.4}, {-deg * 0.4, deg * 0.4}}
	sendLine(t, in, TagGetNodesInRegion, map[string]any{"coordinates": coords})

	msg := out.waitForTag(t, TagNodesInRegion, time.Second)
	nr, ok := msg.Payload.(nodesInRegionPayload)
	if !ok {
		t.Fatalf("payload type = %T", msg.Payload)
	}
	if nr.Mask == "0x0" {
		t.Errorf("expected node (0,0) to be masked in, got empty mask")
	}

	close(in)
	cancel()
}

func TestStartGenerationStreamsAndCompletes(t *testing.T) {
	d := newTestDispatcher(t)
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 0, West: 0, North: 1, East: 1}
	g := squareGrid5x5(200) // unit squares loop at 800m, clearing the dispatcher's 600m floor
	if err := d.store.Save("grid", g, boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := d.store.Switch(context.Background(), "grid"); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}

	s := d.NewSession()
	out := newRecordingSender()
	in := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx, in, out) }()
	out.waitForTag(t, TagGraphsList, time.Second)

	sendLine(t, in, TagStartGeneration, map[string]any{
		"lat": 0.0, "lng": 0.0,
		"min_path_len": 0.1, "max_path_len": 5.0,
		"loop_ratio": 0.1, "num_paths": 3,
	})

	created := out.waitForTag(t, TagPathsetCreated, time.Second)
	pc, ok := created.Payload.(pathsetCreatedPayload)
	if !ok || pc.PathSetID == "" {
		t.Fatalf("PATHSET_CREATED payload = %+v", created.Payload)
	}

	route := out.waitForTag(t, TagPathReceived, 2*time.Second)
	pr, ok := route.Payload.(pathReceivedPayload)
	if !ok || pr.PathSetID != pc.PathSetID {
		t.Fatalf("PATH_RECEIVED payload = %+v, want pathSetId %q", route.Payload, pc.PathSetID)
	}

	complete := out.waitForTag(t, TagGenerationComplete, 2*time.Second)
	gc, ok := complete.Payload.(generationCompletePayload)
	if !ok || gc.PathSetID != pc.PathSetID {
		t.Fatalf("GENERATION_COMPLETE payload = %+v", complete.Payload)
	}

	close(in)
	cancel()
}

func TestSwitchRejectedDuringEnumeration(t *testing.T) {
	d := newTestDispatcher(t)
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 0, West: 0, North: 1, East: 1}
	g := squareGrid5x5(200)
	if err := d.store.Save("grid", g, boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := d.store.Save("other", squareGrid5x5(50), boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := d.store.Switch(context.Background(), "grid"); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}

	s := d.NewSession()
	out := newRecordingSender()
	in := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx, in, out) }()
	out.waitForTag(t, TagGraphsList, time.Second)

	sendLine(t, in, TagStartGeneration, map[string]any{
		"lat": 0.0, "lng": 0.0,
		"min_path_len": 0.1, "max_path_len": 5.0,
		"loop_ratio": 0.1, "num_paths": 1000,
	})
	out.waitForTag(t, TagPathsetCreated, time.Second)

	sendLine(t, in, TagSwitchGraph, map[string]any{"name": "other"})
	msg := out.waitForTag(t, TagGraphCreateError, time.Second)
	if msg.Tag != TagGraphCreateError {
		t.Fatalf("expected GRAPH_CREATE_ERROR, got %s", msg.Tag)
	}

	close(in)
	cancel()
}

func TestGetNodeInfo(t *testing.T) {
	d := newTestDispatcher(t)
	boundary := routegraph.Boundary{Type: routegraph.BoundaryBox, South: 0, West: 0, North: 1, East: 1}
	g := squareGrid5x5(100)
	if err := d.store.Save("grid", g, boundary); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := d.store.Switch(context.Background(), "grid"); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}

	s := d.NewSession()
	out := newRecordingSender()
	in := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx, in, out) }()
	out.waitForTag(t, TagGraphsList, time.Second)

	sendLine(t, in, TagGetNodeInfo, map[string]any{"node_id": 0})
	msg := out.waitForTag(t, TagNodeInfo, time.Second)
	ni, ok := msg.Payload.(nodeInfoPayload)
	if !ok {
		t.Fatalf("payload type = %T", msg.Payload)
	}
	if ni.MGRS == "" {
		t.Errorf("expected a non-empty MGRS string")
	}

	close(in)
	cancel()
}
