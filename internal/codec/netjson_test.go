package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"linkmesh/internal/domain"
)

func TestNetJSONParse(t *testing.T) {
	c := NewNetJSON()

	t.Run("parses nodes and weighted links", func(t *testing.T) {
		doc := `{
			"nodes": [{"id": "172.16.40.2"}, {"id": "172.16.40.4"}],
			"links": [{"source": "172.16.40.2", "target": "172.16.40.4", "weight": 1.01}]
		}`
		graph, err := c.Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(graph.Nodes) != 2 {
			t.Errorf("expected 2 nodes, got %d", len(graph.Nodes))
		}
		if len(graph.Links) != 1 {
			t.Fatalf("expected 1 link, got %d", len(graph.Links))
		}
		edge := graph.Links[0]
		if edge.Source != "172.16.40.2" || edge.Target != "172.16.40.4" || edge.Weight != 1.01 {
			t.Errorf("unexpected edge: %+v", edge)
		}
	})

	t.Run("missing arrays become empty slices", func(t *testing.T) {
		graph, err := c.Parse(strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if graph.Nodes == nil || graph.Links == nil {
			t.Error("expected non-nil nodes and links")
		}
	})

	t.Run("malformed document is a decode error", func(t *testing.T) {
		_, err := c.Parse(strings.NewReader(`{"links": [`))
		var decodeErr *domain.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("expected DecodeError, got %v", err)
		}
	})
}

func TestNetJSONExport(t *testing.T) {
	c := NewNetJSON()
	source := &domain.TopologySource{Protocol: "OLSR", Version: "0.6", Metric: "ETX"}
	graph := domain.NewNetworkGraph(source)

	var buf bytes.Buffer
	if err := c.Export(graph, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"type": "NetworkGraph"`, `"protocol": "OLSR"`, `"nodes": []`, `"links": []`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got:\n%s", want, out)
		}
	}
}
