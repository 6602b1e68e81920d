package wire

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/flowforge/pkg/flow"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%d", n)
	}
}

// buildRichGraph wires one of every node kind into a valid graph.
func buildRichGraph(t *testing.T) *flow.Graph {
	t.Helper()
	g := flow.NewWithIDs(seqIDs())

	a, _ := g.AddNode(flow.KindAction, flow.Position{X: 100, Y: 150})
	d, _ := g.AddNode(flow.KindDelay, flow.Position{X: 100, Y: 250})
	c, _ := g.AddNode(flow.KindCondition, flow.Position{X: 100, Y: 350})

	mustUpdate := func(id string, patch map[string]any) {
		t.Helper()
		if err := g.UpdateNodeConfig(id, patch); err != nil {
			t.Fatalf("UpdateNodeConfig(%s): %v", id, err)
		}
	}
	mustUpdate(a.ID, map[string]any{"message": "welcome"})
	mustUpdate(d.ID, map[string]any{"delayValue": 2, "delayUnit": "hours"})
	mustUpdate(c.ID, map[string]any{
		"rules":    []map[string]any{{"field": "email", "operator": "ends_with", "value": "@example.com"}},
		"operator": "OR",
	})

	mustConnect := func(src, dst, branch string) {
		t.Helper()
		if _, err := g.Connect(src, dst, branch); err != nil {
			t.Fatalf("Connect(%s, %s): %v", src, dst, err)
		}
	}
	mustConnect("start-1", a.ID, "")
	mustConnect(a.ID, d.ID, "")
	mustConnect(d.ID, c.ID, "")
	mustConnect(c.ID, "end-1", flow.BranchTrue)
	mustConnect(c.ID, "end-1", flow.BranchFalse)

	return g
}

func TestRoundTrip(t *testing.T) {
	g := buildRichGraph(t)
	if problems := g.Validate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); len(problems) != 0 {
		t.Fatalf("fixture graph invalid: %v", problems)
	}

	w, err := FromFlow(g)
	if err != nil {
		t.Fatalf("FromFlow: %v", err)
	}

	back, err := ToFlow(w)
	if err != nil {
		t.Fatalf("ToFlow: %v", err)
	}

	if !reflect.DeepEqual(sortedNodes(g), sortedNodes(back)) {
		t.Errorf("nodes differ after round trip:\n got %+v\nwant %+v", sortedNodes(back), sortedNodes(g))
	}
	if !reflect.DeepEqual(sortedEdges(g), sortedEdges(back)) {
		t.Errorf("edges differ after round trip:\n got %+v\nwant %+v", sortedEdges(back), sortedEdges(g))
	}

	// The round trip is stable: a second pass produces the identical wire
	// form.
	w2, err := FromFlow(back)
	if err != nil {
		t.Fatalf("FromFlow(second): %v", err)
	}
	if !reflect.DeepEqual(w, w2) {
		t.Errorf("wire form not stable:\n got %+v\nwant %+v", w2, w)
	}
}

func sortedNodes(g *flow.Graph) []flow.Node {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b flow.Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

func sortedEdges(g *flow.Graph) []flow.Edge {
	edges := g.Edges()
	slices.SortFunc(edges, func(a, b flow.Edge) int { return strings.Compare(a.ID, b.ID) })
	return edges
}

func TestFromFlowShape(t *testing.T) {
	g := flow.New()
	w, err := FromFlow(g)
	if err != nil {
		t.Fatalf("FromFlow: %v", err)
	}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)

	for _, want := range []string{
		`"nodes":`, `"edges":`,
		`"id":"start-1"`, `"type":"start"`,
		`"position":{"x":250,"y":50}`,
		`"id":"e-start-end"`, `"source":"start-1"`, `"target":"end-1"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("wire JSON missing %s:\n%s", want, s)
		}
	}
	// Absent branch handles are omitted, not null.
	if strings.Contains(s, "sourceHandle") {
		t.Errorf("empty sourceHandle serialized:\n%s", s)
	}
}

func TestToFlowEmptyYieldsDefault(t *testing.T) {
	g, err := ToFlow(Graph{})
	if err != nil {
		t.Fatalf("ToFlow: %v", err)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Errorf("got %d nodes, %d edges, want minimal default graph", g.NodeCount(), g.EdgeCount())
	}
	if _, ok := g.Node("start-1"); !ok {
		t.Error("default graph missing start-1")
	}
}

func TestToFlowRejects(t *testing.T) {
	tests := []struct {
		name string
		w    Graph
	}{
		{
			name: "unknown node type",
			w: Graph{
				Nodes: []Node{{ID: "x-1", Type: "webhook"}},
			},
		},
		{
			name: "duplicate node ID",
			w: Graph{
				Nodes: []Node{
					{ID: "a", Type: "start"},
					{ID: "a", Type: "end"},
				},
			},
		},
		{
			name: "edge with missing target",
			w: Graph{
				Nodes: []Node{{ID: "start-1", Type: "start"}},
				Edges: []Edge{{ID: "e-1", Source: "start-1", Target: "ghost"}},
			},
		},
		{
			name: "edge with missing source",
			w: Graph{
				Nodes: []Node{{ID: "end-1", Type: "end"}},
				Edges: []Edge{{ID: "e-1", Source: "ghost", Target: "end-1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ToFlow(tt.w); err == nil {
				t.Error("ToFlow succeeded, want error")
			}
		})
	}
}

func TestToFlowDefaultsEmptyData(t *testing.T) {
	w := Graph{
		Nodes: []Node{
			{ID: "start-1", Type: "start"},
			{ID: "delay-1", Type: "delay"},
			{ID: "end-1", Type: "end"},
		},
		Edges: []Edge{
			{ID: "e-1", Source: "start-1", Target: "delay-1"},
			{ID: "e-2", Source: "delay-1", Target: "end-1"},
		},
	}

	g, err := ToFlow(w)
	if err != nil {
		t.Fatalf("ToFlow: %v", err)
	}
	n, _ := g.Node("delay-1")
	cfg, ok := n.Config.(flow.DelayConfig)
	if !ok {
		t.Fatalf("Config = %T, want DelayConfig", n.Config)
	}
	if cfg.Type != flow.DelayRelative || cfg.Value != 5 || cfg.Unit != flow.UnitMinutes {
		t.Errorf("empty data did not default: %+v", cfg)
	}
}

func TestBranchHandlesPassThrough(t *testing.T) {
	w := Graph{
		Nodes: []Node{
			{ID: "start-1", Type: "start"},
			{ID: "condition-1", Type: "condition", Data: map[string]any{
				"rules":    []any{map[string]any{"field": "email", "operator": "equals", "value": "x"}},
				"operator": "AND",
			}},
			{ID: "end-1", Type: "end"},
		},
		Edges: []Edge{
			{ID: "e-1", Source: "start-1", Target: "condition-1"},
			{ID: "e-2", Source: "condition-1", Target: "end-1", SourceHandle: "true"},
			{ID: "e-3", Source: "condition-1", Target: "end-1", SourceHandle: "false"},
		},
	}

	g, err := ToFlow(w)
	if err != nil {
		t.Fatalf("ToFlow: %v", err)
	}

	out, err := FromFlow(g)
	if err != nil {
		t.Fatalf("FromFlow: %v", err)
	}
	handles := map[string]string{}
	for _, e := range out.Edges {
		handles[e.ID] = e.SourceHandle
	}
	if handles["e-2"] != "true" || handles["e-3"] != "false" {
		t.Errorf("branch handles lost: %v", handles)
	}
}

func TestGraphFileRoundTrip(t *testing.T) {
	g := buildRichGraph(t)
	path := filepath.Join(t.TempDir(), "flow.json")

	if err := WriteGraphFile(g, path); err != nil {
		t.Fatalf("WriteGraphFile: %v", err)
	}
	back, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}

	if !reflect.DeepEqual(sortedEdges(g), sortedEdges(back)) {
		t.Errorf("edges differ after file round trip")
	}
	if !reflect.DeepEqual(sortedNodes(g), sortedNodes(back)) {
		t.Errorf("nodes differ after file round trip")
	}
}

func TestReadGraphFileMissing(t *testing.T) {
	if _, err := ReadGraphFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("ReadGraphFile(missing) succeeded, want error")
	}
}

func TestMarshalGraphDeterministic(t *testing.T) {
	g := buildRichGraph(t)

	a, err := MarshalGraph(g)
	if err != nil {
		t.Fatalf("MarshalGraph: %v", err)
	}
	b, err := MarshalGraph(g)
	if err != nil {
		t.Fatalf("MarshalGraph: %v", err)
	}
	if string(a) != string(b) {
		t.Error("MarshalGraph output not deterministic")
	}
}
