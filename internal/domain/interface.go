package domain

// InterfaceType is the physical type of a network interface.
type InterfaceType string

const (
	InterfaceWireless InterfaceType = "wireless"
	InterfaceEthernet InterfaceType = "ethernet"
	InterfaceVirtual  InterfaceType = "virtual"
	InterfaceOther    InterfaceType = "other"
)

// Interface is a network interface record: the endpoint of a link.
// It is identified by MAC, may carry any number of IP addresses, and is
// owned by exactly one node (shared by reference, never copied).
type Interface struct {
	ID        int64         `json:"id"`
	MAC       string        `json:"mac"`
	Type      InterfaceType `json:"type"`
	Addresses []string      `json:"addresses,omitempty"`
	NodeID    int64         `json:"node_id"`
	Node      *Node         `json:"node,omitempty"`
}

// PrimaryAddress returns the identifier used to represent this interface in
// exported graph documents: the first IP address when one exists, otherwise
// the MAC.
func (i *Interface) PrimaryAddress() string {
	if len(i.Addresses) > 0 {
		return i.Addresses[0]
	}
	return i.MAC
}
