package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"linkmesh/internal/domain"
)

// NetJSONCodec handles NetJSON-like document import/export.
type NetJSONCodec struct{}

// NewNetJSON creates a new NetJSON codec.
func NewNetJSON() *NetJSONCodec {
	return &NetJSONCodec{}
}

// Format returns the codec format identifier.
func (c *NetJSONCodec) Format() string {
	return "netjson"
}

// Parse decodes a fetched topology document. Malformed input is reported as
// a domain.DecodeError, which aborts the whole reconciliation run.
func (c *NetJSONCodec) Parse(r io.Reader) (*domain.NetworkGraph, error) {
	var graph domain.NetworkGraph
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&graph); err != nil {
		return nil, &domain.DecodeError{Err: err}
	}

	// documents may omit either array entirely
	if graph.Nodes == nil {
		graph.Nodes = []domain.GraphNode{}
	}
	if graph.Links == nil {
		graph.Links = []domain.GraphEdge{}
	}

	return &graph, nil
}

// Export renders a graph document to the writer.
func (c *NetJSONCodec) Export(graph *domain.NetworkGraph, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(graph); err != nil {
		return fmt.Errorf("encode network graph: %w", err)
	}

	return nil
}
