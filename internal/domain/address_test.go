package domain

import (
	"errors"
	"testing"
)

func TestClassifyAddress(t *testing.T) {
	cases := []struct {
		in   string
		want AddressKind
	}{
		{"172.16.40.22", AddressIPv4},
		{"10.0.0.1", AddressIPv4},
		{"fe80::216:3eff:fe24:5847", AddressIPv6},
		{"2001:db8::1", AddressIPv6},
		{"00:27:22:00:50:71", AddressMAC},
		{"00-27-22-00-50-71", AddressMAC},
		{"test", AddressUnknown},
		{"", AddressUnknown},
		{"999.1.1.1", AddressUnknown},
	}

	for _, c := range cases {
		if got := ClassifyAddress(c.in); got != c.want {
			t.Errorf("ClassifyAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestClassifyPair(t *testing.T) {
	t.Run("two ipv4 addresses", func(t *testing.T) {
		kind, err := ClassifyPair("172.16.41.42", "172.16.40.22")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if kind != AddressIPv4 {
			t.Errorf("expected ipv4 kind, got %q", kind)
		}
	})

	t.Run("two mac addresses", func(t *testing.T) {
		kind, err := ClassifyPair("00:27:22:00:50:71", "00:27:22:00:50:72")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if kind != AddressMAC {
			t.Errorf("expected mac kind, got %q", kind)
		}
	})

	t.Run("mixed ip and mac is rejected", func(t *testing.T) {
		_, err := ClassifyPair("127.0.0.1", "00:27:22:00:50:71")
		if !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("expected ErrInvalidAddress, got %v", err)
		}
	})

	t.Run("mixed ipv4 and ipv6 is rejected", func(t *testing.T) {
		_, err := ClassifyPair("127.0.0.1", "2001:db8::1")
		if !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("expected ErrInvalidAddress, got %v", err)
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := ClassifyPair("test", "also-not-an-address")
		if !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("expected ErrInvalidAddress, got %v", err)
		}
	})
}
