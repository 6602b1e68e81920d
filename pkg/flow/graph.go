package flow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

var (
	// ErrProtectedNode is returned by [Graph.DeleteNode] when the target is
	// a start or end node. These are never removable; the graph is left
	// untouched.
	ErrProtectedNode = errors.New("start and end nodes cannot be deleted")

	// ErrUnknownNode is returned when an operation references a node ID
	// that does not exist in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownSourceNode is returned by [Graph.Connect] when the source
	// endpoint does not exist. Edges never reference missing nodes.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.Connect] when the target
	// endpoint does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrDuplicateNodeID is returned when a node with the same ID already
	// exists. IDs are unique for the lifetime of the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")
)

// Branch tags distinguishing a condition node's two outgoing edges.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Position is a 2D canvas coordinate. It is presentation-only: carried
// through serialization, irrelevant to execution semantics.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Node is one step of the automation.
type Node struct {
	ID       string
	Kind     Kind
	Position Position
	Config   Config
}

// Edge is a directed connection between two nodes. SourceHandle carries
// the branch tag ("true"/"false") for edges leaving a condition node;
// both handles are passed through serialization verbatim.
type Edge struct {
	ID           string
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Graph is the mutable in-memory flow graph for one editing session.
// It is not safe for concurrent use; a session owns its graph exclusively.
type Graph struct {
	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	edgeOrder []string
	outgoing  map[string][]string // node ID -> outgoing edge IDs
	incoming  map[string][]string // node ID -> incoming edge IDs
	ids       func() string
}

// Default IDs for the minimal graph a new editing session starts from.
const (
	defaultStartID = "start-1"
	defaultEndID   = "end-1"
	defaultEdgeID  = "e-start-end"
)

// New creates the minimal valid graph: one start node, one end node, and
// a single edge connecting them. This is the state every new automation
// editing session begins with.
func New() *Graph {
	return NewWithIDs(uuid.NewString)
}

// NewWithIDs is like [New] but uses gen to produce ID suffixes for nodes
// and edges added later. Tests inject a deterministic generator.
func NewWithIDs(gen func() string) *Graph {
	g := &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		ids:      gen,
	}
	g.putNode(&Node{ID: defaultStartID, Kind: KindStart, Position: Position{X: 250, Y: 50}, Config: StartConfig{}})
	g.putNode(&Node{ID: defaultEndID, Kind: KindEnd, Position: Position{X: 250, Y: 400}, Config: EndConfig{}})
	g.putEdge(&Edge{ID: defaultEdgeID, Source: defaultStartID, Target: defaultEndID})
	return g
}

// Empty creates a graph with no nodes or edges. It is the starting point
// for deserialization, which restores nodes and edges explicitly.
func Empty() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		ids:      uuid.NewString,
	}
}

// AddNode allocates a fresh node of the given kind at the position,
// attaches the kind's default config, and inserts it. No validation
// happens here: incomplete graphs are legal while editing.
func (g *Graph) AddNode(k Kind, pos Position) (*Node, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown node kind %q", k)
	}
	n := &Node{
		ID:       fmt.Sprintf("%s-%s", k, g.ids()),
		Kind:     k,
		Position: pos,
		Config:   DefaultConfig(k),
	}
	if _, exists := g.nodes[n.ID]; exists {
		return nil, ErrDuplicateNodeID
	}
	g.putNode(n)
	return n, nil
}

// RestoreNode inserts a node with an explicit ID and config, as read from
// a persisted graph. Returns ErrDuplicateNodeID if the ID is taken.
func (g *Graph) RestoreNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("node ID must not be empty")
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Config == nil {
		n.Config = DefaultConfig(n.Kind)
	}
	g.putNode(&n)
	return nil
}

// UpdateNodeConfig shallow-merges patch into the node's config: patch keys
// (JSON field names) overwrite, all other fields are retained. A missing
// node ID is a silent no-op, matching the permissive editing flow.
func (g *Graph) UpdateNodeConfig(nodeID string, patch map[string]any) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return nil
	}
	merged, err := mergeConfig(n.Config, patch)
	if err != nil {
		return fmt.Errorf("update node %s: %w", nodeID, err)
	}
	n.Config = merged
	return nil
}

// DeleteNode removes a node and every edge touching it. Start and end
// nodes are protected: deleting one returns ErrProtectedNode and mutates
// nothing.
func (g *Graph) DeleteNode(nodeID string) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("delete node %s: %w", nodeID, ErrUnknownNode)
	}
	if n.Kind.IsTerminal() {
		return ErrProtectedNode
	}

	for _, eid := range slices.Concat(g.outgoing[nodeID], g.incoming[nodeID]) {
		g.removeEdge(eid)
	}
	delete(g.nodes, nodeID)
	delete(g.outgoing, nodeID)
	delete(g.incoming, nodeID)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(id string) bool { return id == nodeID })
	return nil
}

// Connect creates an edge from source to target. branch is the branch tag
// for edges leaving a condition node ("true"/"false"); pass "" otherwise.
// Connect does not enforce branch completeness or terminal-kind rules;
// those run at save time, so the editor can hold transiently incomplete
// graphs.
func (g *Graph) Connect(sourceID, targetID, branch string) (*Edge, error) {
	if _, ok := g.nodes[sourceID]; !ok {
		return nil, ErrUnknownSourceNode
	}
	if _, ok := g.nodes[targetID]; !ok {
		return nil, ErrUnknownTargetNode
	}
	e := &Edge{
		ID:           "e-" + g.ids(),
		Source:       sourceID,
		Target:       targetID,
		SourceHandle: branch,
	}
	g.putEdge(e)
	return e, nil
}

// RestoreEdge inserts an edge with an explicit ID, as read from a
// persisted graph. Edges referencing missing nodes are rejected, never
// silently kept.
func (g *Graph) RestoreEdge(e Edge) error {
	if e.ID == "" {
		return fmt.Errorf("edge ID must not be empty")
	}
	if _, exists := g.edges[e.ID]; exists {
		return fmt.Errorf("duplicate edge ID %q", e.ID)
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("edge %s: %w: %s", e.ID, ErrUnknownSourceNode, e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("edge %s: %w: %s", e.ID, ErrUnknownTargetNode, e.Target)
	}
	g.putEdge(&e)
	return nil
}

// Node returns the node with the given ID, or false if absent.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns value copies of all nodes in insertion order. Together
// with [Graph.Edges] this is the persistable snapshot consumed by the
// serializer; no transient state survives the copy.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns value copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, *g.edges[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Outgoing returns the edges leaving the node, in insertion order.
func (g *Graph) Outgoing(nodeID string) []Edge {
	out := make([]Edge, 0, len(g.outgoing[nodeID]))
	for _, eid := range g.outgoing[nodeID] {
		out = append(out, *g.edges[eid])
	}
	return out
}

// Incoming returns the edges entering the node, in insertion order.
func (g *Graph) Incoming(nodeID string) []Edge {
	out := make([]Edge, 0, len(g.incoming[nodeID]))
	for _, eid := range g.incoming[nodeID] {
		out = append(out, *g.edges[eid])
	}
	return out
}

// Start returns the unique start node, or false if the graph has zero or
// multiple start nodes.
func (g *Graph) Start() (*Node, bool) {
	var start *Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Kind == KindStart {
			if start != nil {
				return nil, false
			}
			start = n
		}
	}
	return start, start != nil
}

func (g *Graph) putNode(n *Node) {
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
}

func (g *Graph) putEdge(e *Edge) {
	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.ID)
	g.incoming[e.Target] = append(g.incoming[e.Target], e.ID)
}

func (g *Graph) removeEdge(edgeID string) {
	e, ok := g.edges[edgeID]
	if !ok {
		return
	}
	delete(g.edges, edgeID)
	g.edgeOrder = slices.DeleteFunc(g.edgeOrder, func(id string) bool { return id == edgeID })
	g.outgoing[e.Source] = slices.DeleteFunc(g.outgoing[e.Source], func(id string) bool { return id == edgeID })
	g.incoming[e.Target] = slices.DeleteFunc(g.incoming[e.Target], func(id string) bool { return id == edgeID })
}
