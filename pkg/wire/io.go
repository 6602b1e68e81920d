package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flowforge/pkg/flow"
)

// MarshalGraph converts a flow graph to JSON bytes in the wire format.
// Nodes and edges are sorted by ID for deterministic output.
func MarshalGraph(g *flow.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalGraph deserializes JSON bytes to a wire Graph without
// reconstructing the in-memory model. Use [ToFlow] for that.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// WriteGraph writes a flow graph as wire-format JSON to w.
func WriteGraph(g *flow.Graph, w io.Writer) error {
	return writeGraphTo(g, w)
}

// WriteGraphFile writes a flow graph to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(g *flow.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeGraphTo(g, f)
}

// ReadGraph decodes wire-format JSON from r into a flow graph.
func ReadGraph(r io.Reader) (*flow.Graph, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToFlow(data)
}

// ReadGraphFile reads a JSON file and reconstructs the flow graph.
func ReadGraphFile(path string) (*flow.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

func writeGraphTo(g *flow.Graph, w io.Writer) error {
	out, err := FromFlow(g)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
