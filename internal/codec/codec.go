// Package codec parses and renders the NetJSON-like graph documents
// exchanged with topology collaborators.
package codec

import (
	"io"

	"linkmesh/internal/domain"
)

// Importer parses a topology document into a graph.
type Importer interface {
	Parse(r io.Reader) (*domain.NetworkGraph, error)
	Format() string
}

// Exporter renders a graph for an external consumer.
type Exporter interface {
	Export(graph *domain.NetworkGraph, w io.Writer) error
	Format() string
}
