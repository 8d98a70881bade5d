package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/NERVsystems/scenicloops/pkg/elevation"
	"github.com/NERVsystems/scenicloops/pkg/graphstore"
	"github.com/NERVsystems/scenicloops/pkg/ingest"
	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/prepare"
	"github.com/NERVsystems/scenicloops/pkg/tracing"
)

// Sender delivers one tagged message to the connected client. The push
// transport that ultimately frames and writes these lines is out of
// scope here (spec.md §1); Sender is the seam a transport implements.
type Sender interface {
	Send(ctx context.Context, tag string, payload any) error
}

// Dispatcher holds the resources shared by every session on a process:
// the graph store singleton, the elevation oracle, and the network
// ingest client. One Dispatcher constructs many Sessions, one per
// connected client.
type Dispatcher struct {
	logger       *slog.Logger
	store        *graphstore.Store
	oracle       *elevation.Oracle
	ingestClient *ingest.Client
	prepareOpts  prepare.Options

	// minLoopLengthM is the dispatcher's override of the enumerator's
	// default minimum loop length, matching the value the system this
	// was ported from hardcodes in its start-generation handler rather
	// than exposing on the wire (spec.md §4.F).
	minLoopLengthM float64
}

// New constructs a Dispatcher. minLoopLengthM <= 0 falls back to 600m,
// the hardcoded value spec.md §4.F attributes to the dispatcher.
func New(logger *slog.Logger, store *graphstore.Store, oracle *elevation.Oracle, ingestClient *ingest.Client, prepareOpts prepare.Options, minLoopLengthM float64) *Dispatcher {
	if minLoopLengthM <= 0 {
		minLoopLengthM = 600
	}
	return &Dispatcher{
		logger:         logger,
		store:          store,
		oracle:         oracle,
		ingestClient:   ingestClient,
		prepareOpts:    prepareOpts,
		minLoopLengthM: minLoopLengthM,
	}
}

// Session is one connected client's mutable state: at most one active
// enumeration, cancellable independently of the message loop.
type Session struct {
	*Dispatcher
	logger *slog.Logger

	enumMu     sync.Mutex
	enumCancel context.CancelFunc
}

// NewSession starts a session bound to d.
func (d *Dispatcher) NewSession() *Session {
	return &Session{Dispatcher: d, logger: d.logger}
}

// Run is the session's cooperative message loop: it sends an initial
// GRAPHS_LIST, then dispatches each line arriving on in by tag until in
// closes or ctx is cancelled. A panic inside a single handler is
// recovered and logged so one malformed message cannot take down the
// session (spec.md §7's "no internal failure brings down the session").
func (s *Session) Run(ctx context.Context, in <-chan []byte, out Sender) error {
	s.sendGraphsList(ctx, out)

	for {
		select {
		case <-ctx.Done():
			s.cancelActiveEnumeration()
			return ctx.Err()
		case line, ok := <-in:
			if !ok {
				s.cancelActiveEnumeration()
				return nil
			}
			s.dispatch(ctx, line, out)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, line []byte, out Sender) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic handling message", "panic", r)
		}
	}()

	var env rawEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		s.logger.Warn("dropping malformed message", "error", err)
		return
	}

	ctx, span := tracing.StartSpan(ctx, "session.dispatch")
	span.SetAttributes(tracing.MessageAttributes(env.Tag, tracing.StatusSuccess, 0, 0)...)
	start := time.Now()
	defer func() {
		monitoring.RecordMessage(env.Tag, time.Since(start), true)
		span.End()
	}()

	switch env.Tag {
	case TagListGraphs:
		s.sendGraphsList(ctx, out)
	case TagSwitchGraph:
		s.handleSwitchGraph(ctx, env.Payload, out)
	case TagCreateGraph:
		s.handleCreateGraph(ctx, env.Payload, out)
	case TagGetNodesInRegion:
		s.handleGetNodesInRegion(ctx, env.Payload, out)
	case TagGetNodesNearPolyline:
		s.handleGetNodesNearPolyline(ctx, env.Payload, out)
	case TagStartGeneration:
		s.handleStartGeneration(ctx, env.Payload, out)
	case TagGetNodeInfo:
		s.handleGetNodeInfo(ctx, env.Payload, out)
	default:
		s.logger.Warn("dropping message with unknown tag", "tag", env.Tag)
	}
}

func (s *Session) cancelActiveEnumeration() {
	s.enumMu.Lock()
	defer s.enumMu.Unlock()
	if s.enumCancel != nil {
		s.enumCancel()
		s.enumCancel = nil
	}
}

func (s *Session) send(ctx context.Context, out Sender, tag string, payload any) {
	if err := out.Send(ctx, tag, payload); err != nil {
		s.logger.Warn("send failed", "tag", tag, "error", err)
	}
}

func (s *Session) sendGraphsList(ctx context.Context, out Sender) {
	names, err := s.store.List()
	if err != nil {
		s.logger.Error("listing graphs failed", "error", fmt.Errorf("%w: %v", ErrIO, err))
		names = nil
	}
	boundaries, err := s.store.ListBoundaries()
	if err != nil {
		s.logger.Error("listing boundaries failed", "error", fmt.Errorf("%w: %v", ErrIO, err))
	}

	var active *string
	if ag := s.store.Active(); ag != nil {
		name := ag.Name
		active = &name
	}

	s.send(ctx, out, TagGraphsList, graphsListPayload{
		Graphs:     names,
		Active:     active,
		Boundaries: boundaries,
	})
}
