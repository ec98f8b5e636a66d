// Package domain defines the core types for the linkmesh topology link tracker.
//
// This package contains the entities and value objects the reconciliation
// engine operates on: interfaces, nodes, layers, links, topology sources and
// the NetJSON-like graph document exchanged with external collaborators.
//
// # Core Types
//
// Interface represents a network interface (endpoint) identified by a MAC
// address, carrying zero or more IP addresses and owned by exactly one Node.
//
// Link is the central entity: a physical or logical connection between two
// interfaces, with a status lifecycle (planned, active, disconnected), a
// type inferred from its endpoints, link metrics, and cached display
// shortcuts derived at save time.
//
// TopologySource describes an external feed (routing protocol export) whose
// graph is reconciled into Link records.
//
// NetworkGraph is the nodes/links/weight document schema used both when
// decoding fetched topology data and when exporting current link state.
//
// # Design Principles
//
// - No database or transport dependencies
// - Explicit *ID fields next to cached object pointers; load-by-id wins
// - Validation and save-time derivation are plain methods, run by the store
package domain
