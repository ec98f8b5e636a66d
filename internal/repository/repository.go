package repository

import (
	"context"

	"linkmesh/internal/domain"
)

// LinkFilter narrows link listings and counts. Zero values match everything.
type LinkFilter struct {
	TopologyID int64
	Status     domain.LinkStatus
}

// Repository defines data access for the link tracker.
//
// Lookup methods return (nil, nil) when no record matches; the service layer
// translates that into its typed not-found errors.
type Repository interface {
	// Inventory: the endpoint/node store consulted by the address index.
	UpsertLayer(ctx context.Context, layer *domain.Layer) error
	UpsertNode(ctx context.Context, node *domain.Node) error
	UpsertInterface(ctx context.Context, iface *domain.Interface) error
	GetInterface(ctx context.Context, id int64) (*domain.Interface, error)
	FindInterfaceByMAC(ctx context.Context, mac string) (*domain.Interface, error)
	FindInterfaceByIP(ctx context.Context, address string) (*domain.Interface, error)

	// Topology sources.
	UpsertTopology(ctx context.Context, source *domain.TopologySource) error
	GetTopologyBySlug(ctx context.Context, slug string) (*domain.TopologySource, error)
	ListTopologies(ctx context.Context) ([]*domain.TopologySource, error)

	// Links. SaveLink validates, derives and persists; creation assigns the
	// ID. FindLinkByInterfacePair matches either orientation of the pair.
	SaveLink(ctx context.Context, link *domain.Link) error
	GetLink(ctx context.Context, id int64) (*domain.Link, error)
	FindLinkByInterfacePair(ctx context.Context, aID, bID int64) (*domain.Link, error)
	ListLinks(ctx context.Context, filter LinkFilter) ([]*domain.Link, error)
	CountLinks(ctx context.Context, filter LinkFilter) (int, error)
	DeleteAllLinks(ctx context.Context) error

	// Close releases resources.
	Close() error
}
