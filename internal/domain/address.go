package domain

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// AddressKind classifies the identifier formats accepted by the address index.
type AddressKind string

const (
	AddressIPv4    AddressKind = "ipv4"
	AddressIPv6    AddressKind = "ipv6"
	AddressMAC     AddressKind = "mac"
	AddressUnknown AddressKind = ""
)

// ClassifyAddress determines the kind of a single address string.
func ClassifyAddress(s string) AddressKind {
	if addr, err := netip.ParseAddr(s); err == nil {
		if addr.Is4() {
			return AddressIPv4
		}
		return AddressIPv6
	}
	if _, err := net.ParseMAC(s); err == nil {
		return AddressMAC
	}
	return AddressUnknown
}

// ClassifyPair validates that two addresses are of the same kind: both IPv4,
// both IPv6, or both MAC. Mixed or malformed pairs are rejected with
// ErrInvalidAddress.
func ClassifyPair(a, b string) (AddressKind, error) {
	ka := ClassifyAddress(a)
	kb := ClassifyAddress(b)
	if ka == AddressUnknown || kb == AddressUnknown || ka != kb {
		return AddressUnknown, fmt.Errorf("%w: expected two ipv4, two ipv6 or two mac addresses, got %q and %q", ErrInvalidAddress, a, b)
	}
	return ka, nil
}

// NormalizeMAC lowercases a MAC address for storage and comparison.
func NormalizeMAC(mac string) string {
	return strings.ToLower(mac)
}
