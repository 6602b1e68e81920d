// Package editor implements the editing session that orchestrates one
// automation's lifecycle: load graph, mutate via user actions, validate,
// serialize, and submit to the persistence service.
//
// The session owns its flow graph exclusively. It performs no user-facing
// presentation itself; it translates structured errors from the graph
// core and transport into results the surrounding surface can display.
// All mutations are synchronous; the only asynchronous operations are the
// load and save calls to the persistence service.
package editor

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowforge/pkg/automation"
	apperrors "github.com/matzehuels/flowforge/pkg/errors"
	"github.com/matzehuels/flowforge/pkg/flow"
	"github.com/matzehuels/flowforge/pkg/wire"
)

// ErrSaveInFlight is returned by Save while a previous save has not
// finished. The editor disables further saves until then.
var ErrSaveInFlight = errors.New("a save is already in flight")

// ErrSessionClosed is returned by operations on a torn-down session.
var ErrSessionClosed = errors.New("session is closed")

// Service is the persistence surface a session needs. *client.Client
// satisfies it; tests provide stubs.
type Service interface {
	Get(ctx context.Context, id string) (*automation.Automation, error)
	Create(ctx context.Context, name string, flowData wire.Graph) (*automation.Automation, error)
	Update(ctx context.Context, id string, upd automation.Update) (*automation.Automation, error)
}

// NodeCommands is the narrow command interface injected into each node's
// editing surface. Nodes request changes to themselves through it instead
// of reaching for shared state; the session is the single receiver.
type NodeCommands interface {
	// UpdateConfig shallow-merges patch into the node's config.
	UpdateConfig(nodeID string, patch map[string]any) error

	// DeleteNode removes the node and its edges. Start and end nodes are
	// protected; deleting one is rejected as a local no-op.
	DeleteNode(nodeID string) error
}

// Session drives one automation editing session.
type Session struct {
	svc    Service
	logger *log.Logger
	now    func() time.Time

	graph  *flow.Graph
	id     string // empty until the automation is first created
	name   string
	saving bool
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides the validation clock. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session for a brand-new automation, seeded with
// the minimal valid graph (start connected to end).
func NewSession(svc Service, opts ...Option) *Session {
	s := &Session{
		svc:    svc,
		logger: log.Default(),
		now:    time.Now,
		graph:  flow.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the session's graph with the persisted automation.
// A NotFound error is terminal for the session: the caller should tear
// it down and return the user to a safe view. If the session was closed
// while the request was in flight, the result is discarded.
func (s *Session) Load(ctx context.Context, id string) error {
	if s.closed {
		return ErrSessionClosed
	}

	a, err := s.svc.Get(ctx, id)
	if s.closed {
		// Navigated away mid-load; drop the result.
		s.logger.Debug("discarding load result for closed session", "automation", id)
		return ErrSessionClosed
	}
	if err != nil {
		return err
	}

	g, err := wire.ToFlow(a.FlowData)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "stored graph for %s is corrupt", id)
	}

	s.graph = g
	s.id = a.ID
	s.name = a.Name
	s.logger.Debug("loaded automation", "automation", id, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return nil
}

// Graph exposes the session's in-memory graph for rendering and tests.
func (s *Session) Graph() *flow.Graph { return s.graph }

// ID returns the persisted automation's ID, or "" before first save.
func (s *Session) ID() string { return s.id }

// Name returns the automation name as of the last load or save.
func (s *Session) Name() string { return s.name }

// AddNode adds a node of the given kind at the position.
func (s *Session) AddNode(k flow.Kind, pos flow.Position) (*flow.Node, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.graph.AddNode(k, pos)
}

// Connect adds an edge; branch tags the edge for condition sources.
func (s *Session) Connect(sourceID, targetID, branch string) (*flow.Edge, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.graph.Connect(sourceID, targetID, branch)
}

// UpdateConfig implements NodeCommands. An unknown node ID is a silent
// no-op (logged at debug), preserving the permissive editing flow.
func (s *Session) UpdateConfig(nodeID string, patch map[string]any) error {
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.graph.Node(nodeID); !ok {
		s.logger.Debug("config update for unknown node ignored", "node", nodeID)
		return nil
	}
	return s.graph.UpdateNodeConfig(nodeID, patch)
}

// DeleteNode implements NodeCommands.
func (s *Session) DeleteNode(nodeID string) error {
	if s.closed {
		return ErrSessionClosed
	}
	err := s.graph.DeleteNode(nodeID)
	if errors.Is(err, flow.ErrProtectedNode) {
		return apperrors.Wrap(apperrors.ErrCodeProtectedNode, err, "cannot delete %s", nodeID)
	}
	return err
}

// Save validates the graph and submits it to the persistence service,
// creating the automation on first save and updating it afterwards.
//
// Validation failures abort the save with every collected reason and
// leave the in-memory graph untouched. Transport failures likewise
// preserve the graph so no work is lost; the session stays usable for a
// retry. Overlapping saves are rejected with ErrSaveInFlight.
func (s *Session) Save(ctx context.Context, name string) (*automation.Automation, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.saving {
		return nil, ErrSaveInFlight
	}
	s.saving = true
	defer func() { s.saving = false }()

	if err := automation.ValidateName(name); err != nil {
		return nil, err
	}
	if problems := s.graph.Validate(s.now()); len(problems) > 0 {
		return nil, apperrors.NewValidationError(problems)
	}

	flowData, err := wire.FromFlow(s.graph)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "serialize graph")
	}

	var a *automation.Automation
	if s.id == "" {
		a, err = s.svc.Create(ctx, name, flowData)
	} else {
		a, err = s.svc.Update(ctx, s.id, automation.Update{Name: &name, FlowData: &flowData})
	}
	if err != nil {
		return nil, err
	}

	s.id = a.ID
	s.name = a.Name
	s.logger.Info("saved automation", "automation", a.ID, "name", a.Name)
	return a, nil
}

// Close tears the session down. The graph is discarded; any in-flight
// load result will be dropped on arrival.
func (s *Session) Close() {
	s.closed = true
}

// Ensure Session implements NodeCommands.
var _ NodeCommands = (*Session)(nil)
