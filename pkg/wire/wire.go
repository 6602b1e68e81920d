// Package wire defines the canonical serialization format for automation
// flow graphs.
//
// The format is the bit-exact contract shared with the backend executor:
//
//	{
//	  "nodes": [{"id", "type", "position": {"x", "y"}, "data"}, ...],
//	  "edges": [{"id", "source", "target", "sourceHandle?", "targetHandle?"}, ...]
//	}
//
// It is a strict subset of the in-memory representation: derived and
// presentation-only state is dropped, branch handles pass through
// verbatim. For every graph satisfying the flow invariants,
// ToFlow(FromFlow(g)) is structurally equal to g.
package wire

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/flowforge/pkg/flow"
)

// Graph is the wire/storage representation of a flow graph.
// Used for API payloads, Mongo documents, and file import/export.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node projects a flow node to {id, type, position, data}, where data is
// the kind-specific config payload.
type Node struct {
	ID       string         `json:"id" bson:"id"`
	Type     string         `json:"type" bson:"type"`
	Position flow.Position  `json:"position" bson:"position"`
	Data     map[string]any `json:"data" bson:"data"`
}

// Edge projects a flow edge. SourceHandle/TargetHandle carry the branch
// tag for edges leaving condition nodes and are omitted when empty.
type Edge struct {
	ID           string `json:"id" bson:"id"`
	Source       string `json:"source" bson:"source"`
	Target       string `json:"target" bson:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" bson:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" bson:"targetHandle,omitempty"`
}

// FromFlow projects an in-memory graph to its wire representation.
// Nodes and edges are sorted by ID for deterministic output.
func FromFlow(g *flow.Graph) (Graph, error) {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b flow.Node) int { return strings.Compare(a.ID, b.ID) })

	edges := g.Edges()
	slices.SortFunc(edges, func(a, b flow.Edge) int { return strings.Compare(a.ID, b.ID) })

	out := Graph{
		Nodes: make([]Node, len(nodes)),
		Edges: make([]Edge, len(edges)),
	}

	for i, n := range nodes {
		data, err := configToMap(n.Config)
		if err != nil {
			return Graph{}, fmt.Errorf("node %s: %w", n.ID, err)
		}
		out.Nodes[i] = Node{
			ID:       n.ID,
			Type:     string(n.Kind),
			Position: n.Position,
			Data:     data,
		}
	}

	for i, e := range edges {
		out.Edges[i] = Edge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		}
	}

	return out, nil
}

// ToFlow reconstructs an in-memory graph from its wire representation.
// An entirely empty wire graph yields the minimal default graph (start,
// end, one connecting edge) so a brand-new automation loads cleanly.
// Unknown node types and edges referencing missing nodes are rejected,
// never silently kept.
func ToFlow(w Graph) (*flow.Graph, error) {
	if len(w.Nodes) == 0 && len(w.Edges) == 0 {
		return flow.New(), nil
	}

	g := flow.Empty()

	for _, nw := range w.Nodes {
		kind, err := flow.ParseKind(nw.Type)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nw.ID, err)
		}
		cfg, err := configFromMap(kind, nw.Data)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nw.ID, err)
		}
		n := flow.Node{
			ID:       nw.ID,
			Kind:     kind,
			Position: nw.Position,
			Config:   cfg,
		}
		if err := g.RestoreNode(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", nw.ID, err)
		}
	}

	for _, ew := range w.Edges {
		e := flow.Edge{
			ID:           ew.ID,
			Source:       ew.Source,
			Target:       ew.Target,
			SourceHandle: ew.SourceHandle,
			TargetHandle: ew.TargetHandle,
		}
		if err := g.RestoreEdge(e); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func configToMap(cfg flow.Config) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return m, nil
}

func configFromMap(k flow.Kind, data map[string]any) (flow.Config, error) {
	if len(data) == 0 {
		return flow.DefaultConfig(k), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return flow.DecodeConfig(k, raw)
}
