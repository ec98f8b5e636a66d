// Package repository defines the data access interface for linkmesh.
//
// The Repository interface covers three concerns: the read-mostly inventory
// of layers, nodes and interfaces (the backing store of the address index),
// topology sources, and the durable link collection with its
// order-insensitive endpoint-pair lookup.
//
// The sqlite subpackage provides the only implementation. It enforces the
// unordered-pair uniqueness per topology source with a normalized (lo, hi)
// unique index, so two concurrent create attempts for the same pair cannot
// both succeed even if they race past the resolver's serialization.
package repository
