// Package loader seeds the inventory (layers, nodes, interfaces and
// topology sources) from a YAML file. The import is upsert-based and safe
// to re-run on every startup.
package loader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"linkmesh/internal/domain"
	"linkmesh/internal/repository"
)

// InventoryYAML represents the YAML file structure.
type InventoryYAML struct {
	Layers     []LayerYAML     `yaml:"layers,omitempty"`
	Nodes      []NodeYAML      `yaml:"nodes"`
	Interfaces []InterfaceYAML `yaml:"interfaces"`
	Topologies []TopologyYAML  `yaml:"topologies,omitempty"`
}

// LayerYAML represents a layer entry.
type LayerYAML struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name,omitempty"`
}

// NodeYAML represents a node entry.
type NodeYAML struct {
	Slug  string  `yaml:"slug"`
	Name  string  `yaml:"name,omitempty"`
	Layer string  `yaml:"layer,omitempty"`
	Lat   float64 `yaml:"lat"`
	Lon   float64 `yaml:"lon"`
}

// InterfaceYAML represents an interface entry.
type InterfaceYAML struct {
	MAC       string   `yaml:"mac"`
	Node      string   `yaml:"node"`
	Type      string   `yaml:"type,omitempty"`
	Addresses []string `yaml:"addresses,omitempty"`
}

// TopologyYAML represents a topology source entry.
type TopologyYAML struct {
	Slug     string `yaml:"slug"`
	URL      string `yaml:"url"`
	Protocol string `yaml:"protocol,omitempty"`
	Version  string `yaml:"version,omitempty"`
	Metric   string `yaml:"metric,omitempty"`
}

// LoadYAML loads an inventory from a YAML file.
func LoadYAML(path string) (*InventoryYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses an inventory from YAML bytes.
func ParseYAML(data []byte) (*InventoryYAML, error) {
	var inv InventoryYAML
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parse inventory YAML: %w", err)
	}
	return &inv, nil
}

// Import upserts the inventory into the repository in dependency order:
// layers, then nodes, then interfaces with their addresses, then topology
// sources.
func (inv *InventoryYAML) Import(ctx context.Context, repo repository.Repository) error {
	layers := make(map[string]*domain.Layer, len(inv.Layers))
	for _, l := range inv.Layers {
		layer := &domain.Layer{Slug: l.Slug, Name: l.Name}
		if layer.Name == "" {
			layer.Name = l.Slug
		}
		if err := repo.UpsertLayer(ctx, layer); err != nil {
			return err
		}
		layers[layer.Slug] = layer
	}

	nodes := make(map[string]*domain.Node, len(inv.Nodes))
	for _, n := range inv.Nodes {
		node := &domain.Node{
			Slug:  n.Slug,
			Name:  n.Name,
			Point: domain.Point{Lat: n.Lat, Lon: n.Lon},
		}
		if node.Name == "" {
			node.Name = n.Slug
		}
		if n.Layer != "" {
			layer, ok := layers[n.Layer]
			if !ok {
				return fmt.Errorf("node %q references unknown layer %q", n.Slug, n.Layer)
			}
			node.LayerID = layer.ID
			node.Layer = layer
		}
		if err := repo.UpsertNode(ctx, node); err != nil {
			return err
		}
		nodes[node.Slug] = node
	}

	for _, i := range inv.Interfaces {
		node, ok := nodes[i.Node]
		if !ok {
			return fmt.Errorf("interface %q references unknown node %q", i.MAC, i.Node)
		}
		ifaceType := domain.InterfaceType(i.Type)
		if ifaceType == "" {
			ifaceType = domain.InterfaceOther
		}
		iface := &domain.Interface{
			MAC:       i.MAC,
			Type:      ifaceType,
			Addresses: i.Addresses,
			NodeID:    node.ID,
			Node:      node,
		}
		if err := repo.UpsertInterface(ctx, iface); err != nil {
			return err
		}
	}

	for _, t := range inv.Topologies {
		source := &domain.TopologySource{
			Slug:     t.Slug,
			URL:      t.URL,
			Protocol: t.Protocol,
			Version:  t.Version,
			Metric:   t.Metric,
		}
		if err := repo.UpsertTopology(ctx, source); err != nil {
			return err
		}
	}

	return nil
}
