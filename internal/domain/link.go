package domain

import "time"

// LinkStatus is the lifecycle state of a link.
type LinkStatus string

const (
	StatusPlanned      LinkStatus = "planned"
	StatusActive       LinkStatus = "active"
	StatusDisconnected LinkStatus = "disconnected"
	// StatusDown is reserved for monitoring; reconciliation never sets it.
	StatusDown LinkStatus = "down"
)

// LinkType is the transmission medium of a link.
type LinkType string

const (
	LinkTypeRadio    LinkType = "radio"
	LinkTypeEthernet LinkType = "ethernet"
	LinkTypeVirtual  LinkType = "virtual"
)

// LinkData caches derived display strings on the link record so consumers
// never need to join back to nodes and interfaces. Fields are filled lazily
// at save time and kept once set, except LayerSlug which always tracks the
// current layer. Extra holds forward-compatible attributes.
type LinkData struct {
	NodeAName     string            `json:"node_a_name,omitempty"`
	NodeBName     string            `json:"node_b_name,omitempty"`
	NodeASlug     string            `json:"node_a_slug,omitempty"`
	NodeBSlug     string            `json:"node_b_slug,omitempty"`
	InterfaceAMAC string            `json:"interface_a_mac,omitempty"`
	InterfaceBMAC string            `json:"interface_b_mac,omitempty"`
	LayerSlug     string            `json:"layer_slug,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Link is a physical or logical connection between two interfaces.
// Designed for both wireless and wired links.
//
// InterfaceA and InterfaceB are mandatory except for planned links, where
// only the nodes may be known. NodeA, NodeB, Layer and Line are shortcuts
// derived at save time, never supplied directly.
type Link struct {
	ID int64 `json:"id"`

	TopologyID int64           `json:"topology_id,omitempty"`
	Topology   *TopologySource `json:"-"`

	InterfaceAID int64      `json:"interface_a_id,omitempty"`
	InterfaceBID int64      `json:"interface_b_id,omitempty"`
	InterfaceA   *Interface `json:"interface_a,omitempty"`
	InterfaceB   *Interface `json:"interface_b,omitempty"`

	NodeA *Node  `json:"node_a,omitempty"`
	NodeB *Node  `json:"node_b,omitempty"`
	Layer *Layer `json:"layer,omitempty"`
	Line  *Line  `json:"line,omitempty"`

	Status LinkStatus `json:"status"`
	Type   LinkType   `json:"type,omitempty"`

	MetricType  string   `json:"metric_type,omitempty"`
	MetricValue *float64 `json:"metric_value,omitempty"`
	MaxRate     *int     `json:"max_rate,omitempty"`
	MinRate     *int     `json:"min_rate,omitempty"`

	// Radio-only averages; validation rejects them on any other link type.
	DBM   *int `json:"dbm,omitempty"`
	Noise *int `json:"noise,omitempty"`

	Data LinkData `json:"data"`

	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks the link save rules:
//  1. interface_a and interface_b mandatory except for planned links
//  2. interface_a and interface_b must differ
//  3. planned links must have node_a and node_b filled in
//  4. dbm and noise can be filled only for radio links
//  5. interface a and b type must match
func (l *Link) Validate() error {
	if l.Status != StatusPlanned {
		if l.InterfaceA == nil || l.InterfaceB == nil {
			return &ValidationError{Reason: `"interface_a" and "interface_b" are mandatory except for planned links`}
		}
		if l.InterfaceA == l.InterfaceB || (l.InterfaceA.ID != 0 && l.InterfaceA.ID == l.InterfaceB.ID) {
			return &ValidationError{Reason: `link cannot have the same "interface_a" and "interface_b"`}
		}
	}
	if l.Status == StatusPlanned && (l.NodeA == nil || l.NodeB == nil) {
		return &ValidationError{Reason: `"node_a" and "node_b" are mandatory for planned links`}
	}
	// an unset type counts as non-radio here: inference runs after validation
	if l.Type != LinkTypeRadio && (l.DBM != nil || l.Noise != nil) {
		return &ValidationError{Reason: `only links of type "radio" can carry "dbm" and "noise" information`}
	}
	if l.InterfaceA != nil && l.InterfaceB != nil && l.InterfaceA.Type != l.InterfaceB.Type {
		return &ValidationError{
			Reason: `link cannot be between interfaces of different types: interface_a is "` +
				string(l.InterfaceA.Type) + `" while interface_b is "` + string(l.InterfaceB.Type) + `"`,
		}
	}
	return nil
}

// InferType sets the link type from interface_a's physical type when the
// type is unset: wireless becomes radio, ethernet stays ethernet, anything
// else is virtual.
func (l *Link) InferType() {
	if l.Type != "" || l.InterfaceA == nil {
		return
	}
	switch l.InterfaceA.Type {
	case InterfaceWireless:
		l.Type = LinkTypeRadio
	case InterfaceEthernet:
		l.Type = LinkTypeEthernet
	default:
		l.Type = LinkTypeVirtual
	}
}

// Derive fills the shortcut fields and cached display data before a link is
// persisted. Every step only fills a field that is currently unset, with one
// exception: LayerSlug is always refreshed to match the current layer.
//
// The node name fill is gated on NodeAName alone and fills both names
// together; callers rely on the pair staying consistent.
func (l *Link) Derive() {
	if l.NodeA == nil && l.InterfaceA != nil {
		l.NodeA = l.InterfaceA.Node
	}
	if l.NodeB == nil && l.InterfaceB != nil {
		l.NodeB = l.InterfaceB.Node
	}

	if l.Layer == nil && l.NodeA != nil {
		l.Layer = l.NodeA.Layer
	}

	if l.Line == nil && l.NodeA != nil && l.NodeB != nil {
		l.Line = &Line{A: l.NodeA.Point, B: l.NodeB.Point}
	}

	if l.NodeA != nil && l.NodeB != nil {
		if l.Data.NodeAName == "" {
			l.Data.NodeAName = l.NodeA.Name
			l.Data.NodeBName = l.NodeB.Name
		}
		if l.Data.NodeASlug == "" || l.Data.NodeBSlug == "" {
			l.Data.NodeASlug = l.NodeA.Slug
			l.Data.NodeBSlug = l.NodeB.Slug
		}
	}

	if l.Data.InterfaceAMAC == "" && l.InterfaceA != nil {
		l.Data.InterfaceAMAC = l.InterfaceA.MAC
	}
	if l.Data.InterfaceBMAC == "" && l.InterfaceB != nil {
		l.Data.InterfaceBMAC = l.InterfaceB.MAC
	}

	if l.Layer != nil && l.Data.LayerSlug != l.Layer.Slug {
		l.Data.LayerSlug = l.Layer.Slug
	}
}

// Quality rates the link between 1 and 6; 0 means unknown.
// Scoring by metric type is not implemented yet, so any measured link gets
// the fixed top score.
func (l *Link) Quality() int {
	if l.MetricValue == nil {
		return 0
	}
	return 6
}
