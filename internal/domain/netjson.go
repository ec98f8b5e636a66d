package domain

// NetworkGraph is the NetJSON-like document schema used both for decoding
// fetched topology data and for exporting current link state.
//
// Incoming documents only carry nodes and links; exported documents add the
// type, protocol, version and metric fields copied from the source.
type NetworkGraph struct {
	Type     string      `json:"type,omitempty"`
	Protocol string      `json:"protocol,omitempty"`
	Version  string      `json:"version,omitempty"`
	Metric   string      `json:"metric,omitempty"`
	Nodes    []GraphNode `json:"nodes"`
	Links    []GraphEdge `json:"links"`
}

// GraphNode identifies a participant by address (IP or MAC).
type GraphNode struct {
	ID string `json:"id"`
}

// GraphEdge is a weighted connection between two addresses.
type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// NewNetworkGraph returns an empty export document for the given source.
// Nodes and Links are initialized so they serialize as [] and never null.
func NewNetworkGraph(source *TopologySource) *NetworkGraph {
	return &NetworkGraph{
		Type:     "NetworkGraph",
		Protocol: source.Protocol,
		Version:  source.Version,
		Metric:   source.Metric,
		Nodes:    []GraphNode{},
		Links:    []GraphEdge{},
	}
}
