package domain

// Point is a geographic coordinate (WGS84).
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Line is the two-point path drawn between the nodes of a link.
// It is computed once at save time and never recomputed afterwards.
type Line struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Layer is a logical grouping of nodes (a community network zone).
type Layer struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Node is a physical location participating in the mesh.
type Node struct {
	ID      int64  `json:"id"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Point   Point  `json:"point"`
	LayerID int64  `json:"layer_id"`
	Layer   *Layer `json:"layer,omitempty"`
}
