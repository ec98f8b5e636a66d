package domain

// TopologySource is an external feed describing a network graph, typically a
// routing protocol export (OLSR, batman-adv). Links produced by reconciling
// a source carry a back-reference to it; manually created links carry none.
type TopologySource struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
	Protocol string `json:"protocol,omitempty"`
	Version  string `json:"version,omitempty"`
	Metric   string `json:"metric,omitempty"`
}
