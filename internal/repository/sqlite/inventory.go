package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkmesh/internal/domain"
)

// UpsertLayer inserts or updates a layer by slug, filling in its ID.
func (r *Repository) UpsertLayer(ctx context.Context, layer *domain.Layer) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO layers (slug, name) VALUES (?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name
		RETURNING id
	`, layer.Slug, layer.Name).Scan(&layer.ID)
	if err != nil {
		return fmt.Errorf("upsert layer %q: %w", layer.Slug, err)
	}
	return nil
}

// UpsertNode inserts or updates a node by slug, filling in its ID.
func (r *Repository) UpsertNode(ctx context.Context, node *domain.Node) error {
	var layerID interface{}
	if node.LayerID != 0 {
		layerID = node.LayerID
	} else if node.Layer != nil {
		layerID = node.Layer.ID
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO nodes (slug, name, lat, lon, layer_id) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			lat = excluded.lat,
			lon = excluded.lon,
			layer_id = excluded.layer_id
		RETURNING id
	`, node.Slug, node.Name, node.Point.Lat, node.Point.Lon, layerID).Scan(&node.ID)
	if err != nil {
		return fmt.Errorf("upsert node %q: %w", node.Slug, err)
	}
	return nil
}

// UpsertInterface inserts or updates an interface by MAC, replacing its IP
// address set, and fills in its ID.
func (r *Repository) UpsertInterface(ctx context.Context, iface *domain.Interface) error {
	nodeID := iface.NodeID
	if nodeID == 0 && iface.Node != nil {
		nodeID = iface.Node.ID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	mac := domain.NormalizeMAC(iface.MAC)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO interfaces (mac, type, node_id) VALUES (?, ?, ?)
		ON CONFLICT(mac) DO UPDATE SET type = excluded.type, node_id = excluded.node_id
		RETURNING id
	`, mac, string(iface.Type), nodeID).Scan(&iface.ID)
	if err != nil {
		return fmt.Errorf("upsert interface %q: %w", iface.MAC, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ip_addresses WHERE interface_id = ?`, iface.ID); err != nil {
		return fmt.Errorf("clear addresses for interface %q: %w", iface.MAC, err)
	}
	for _, addr := range iface.Addresses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ip_addresses (address, interface_id) VALUES (?, ?)
		`, addr, iface.ID); err != nil {
			return fmt.Errorf("insert address %q: %w", addr, err)
		}
	}

	return tx.Commit()
}

// GetInterface loads an interface by ID with its owning node, layer and
// address list attached. Returns (nil, nil) when it does not exist.
func (r *Repository) GetInterface(ctx context.Context, id int64) (*domain.Interface, error) {
	return r.scanInterface(ctx, `WHERE i.id = ?`, id)
}

// FindInterfaceByMAC looks an interface up by MAC, case-insensitively.
func (r *Repository) FindInterfaceByMAC(ctx context.Context, mac string) (*domain.Interface, error) {
	return r.scanInterface(ctx, `WHERE i.mac = ? COLLATE NOCASE`, domain.NormalizeMAC(mac))
}

// FindInterfaceByIP looks up the interface owning an IP address.
func (r *Repository) FindInterfaceByIP(ctx context.Context, address string) (*domain.Interface, error) {
	return r.scanInterface(ctx, `
		JOIN ip_addresses ip ON ip.interface_id = i.id
		WHERE ip.address = ?`, address)
}

func (r *Repository) scanInterface(ctx context.Context, clause string, arg interface{}) (*domain.Interface, error) {
	query := `
		SELECT i.id, i.mac, i.type, i.node_id,
		       n.slug, n.name, n.lat, n.lon, n.layer_id,
		       l.id, l.slug, l.name
		FROM interfaces i
		JOIN nodes n ON n.id = i.node_id
		LEFT JOIN layers l ON l.id = n.layer_id
	` + clause

	var (
		iface                domain.Interface
		node                 domain.Node
		layerID              sql.NullInt64
		nodeLayerID          sql.NullInt64
		layerSlug, layerName sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&iface.ID, &iface.MAC, &iface.Type, &iface.NodeID,
		&node.Slug, &node.Name, &node.Point.Lat, &node.Point.Lon, &nodeLayerID,
		&layerID, &layerSlug, &layerName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query interface: %w", err)
	}

	node.ID = iface.NodeID
	if nodeLayerID.Valid {
		node.LayerID = nodeLayerID.Int64
	}
	if layerID.Valid {
		node.Layer = &domain.Layer{ID: layerID.Int64, Slug: layerSlug.String, Name: layerName.String}
	}
	iface.Node = &node

	rows, err := r.db.QueryContext(ctx, `
		SELECT address FROM ip_addresses WHERE interface_id = ? ORDER BY id
	`, iface.ID)
	if err != nil {
		return nil, fmt.Errorf("query interface addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		iface.Addresses = append(iface.Addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}

	return &iface, nil
}
