package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"linkmesh/internal/domain"
	"linkmesh/internal/repository"
)

// Resolver maps addresses to interfaces (the address index) and address
// pairs to links (the link resolver).
type Resolver struct {
	repo   repository.Repository
	events *EventBus

	// serializes find-or-create so two concurrent calls for the same pair
	// cannot both create; the unique pair index in the store is the backstop
	mu sync.Mutex
}

// NewResolver creates a new resolver.
func NewResolver(repo repository.Repository, events *EventBus) *Resolver {
	return &Resolver{repo: repo, events: events}
}

// ResolveAddress resolves a single address (IPv4, IPv6 or MAC) to the owning
// interface. Malformed addresses fail with ErrInvalidAddress; well-formed
// addresses unknown to the inventory fail with AddressNotFoundError.
func (r *Resolver) ResolveAddress(ctx context.Context, address string) (*domain.Interface, error) {
	switch domain.ClassifyAddress(address) {
	case domain.AddressIPv4, domain.AddressIPv6:
		iface, err := r.repo.FindInterfaceByIP(ctx, address)
		if err != nil {
			return nil, err
		}
		if iface == nil {
			return nil, &domain.AddressNotFoundError{Address: address}
		}
		return iface, nil
	case domain.AddressMAC:
		iface, err := r.repo.FindInterfaceByMAC(ctx, address)
		if err != nil {
			return nil, err
		}
		if iface == nil {
			return nil, &domain.AddressNotFoundError{Address: address}
		}
		return iface, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a valid ipv4, ipv6 or mac address", domain.ErrInvalidAddress, address)
	}
}

// resolvePair resolves both addresses of an edge, rejecting mixed-kind pairs
// before any lookup.
func (r *Resolver) resolvePair(ctx context.Context, addrA, addrB string) (*domain.Interface, *domain.Interface, error) {
	if _, err := domain.ClassifyPair(addrA, addrB); err != nil {
		return nil, nil, err
	}
	ifaceA, err := r.ResolveAddress(ctx, addrA)
	if err != nil {
		return nil, nil, err
	}
	ifaceB, err := r.ResolveAddress(ctx, addrB)
	if err != nil {
		return nil, nil, err
	}
	return ifaceA, ifaceB, nil
}

// FindFromAddressPair finds the link joining the interfaces that own the two
// addresses, in either orientation. A missing link fails with
// LinkNotFoundError carrying the resolved pair.
func (r *Resolver) FindFromAddressPair(ctx context.Context, addrA, addrB string) (*domain.Link, error) {
	ifaceA, ifaceB, err := r.resolvePair(ctx, addrA, addrB)
	if err != nil {
		return nil, err
	}

	link, err := r.repo.FindLinkByInterfacePair(ctx, ifaceA.ID, ifaceB.ID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, &domain.LinkNotFoundError{InterfaceA: ifaceA, InterfaceB: ifaceB}
	}
	return link, nil
}

// FindOrCreate behaves like FindFromAddressPair but creates an active link
// when none exists. Calling it twice with the same pair returns the same
// link both times; the created flag reports whether this call created it.
func (r *Resolver) FindOrCreate(ctx context.Context, addrA, addrB string) (link *domain.Link, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, err = r.FindFromAddressPair(ctx, addrA, addrB)
	if err == nil {
		return link, false, nil
	}

	var notFound *domain.LinkNotFoundError
	if !errors.As(err, &notFound) {
		return nil, false, err
	}

	link = &domain.Link{
		InterfaceA: notFound.InterfaceA,
		InterfaceB: notFound.InterfaceB,
		Status:     domain.StatusActive,
	}
	if err := r.repo.SaveLink(ctx, link); err != nil {
		return nil, false, err
	}

	r.events.Publish(Event{
		Type:    EventLinkCreated,
		Payload: map[string]int64{"link_id": link.ID},
	})

	return link, true, nil
}
