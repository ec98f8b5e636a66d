package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"linkmesh/internal/domain"
	"linkmesh/internal/repository"
)

// SaveLink validates, derives and persists a link. A zero ID means create;
// the assigned ID is written back onto the link.
//
// Interfaces referenced by ID are always reloaded from the database first,
// so a stale cached object can never leak into the persisted record.
func (r *Repository) SaveLink(ctx context.Context, link *domain.Link) error {
	if link.InterfaceAID == 0 && link.InterfaceA != nil {
		link.InterfaceAID = link.InterfaceA.ID
	}
	if link.InterfaceBID == 0 && link.InterfaceB != nil {
		link.InterfaceBID = link.InterfaceB.ID
	}

	if link.InterfaceAID != 0 {
		iface, err := r.GetInterface(ctx, link.InterfaceAID)
		if err != nil {
			return err
		}
		if iface == nil {
			return fmt.Errorf("interface %d does not exist", link.InterfaceAID)
		}
		link.InterfaceA = iface
	}
	if link.InterfaceBID != 0 {
		iface, err := r.GetInterface(ctx, link.InterfaceBID)
		if err != nil {
			return err
		}
		if iface == nil {
			return fmt.Errorf("interface %d does not exist", link.InterfaceBID)
		}
		link.InterfaceB = iface
	}

	if err := link.Validate(); err != nil {
		return err
	}
	link.InferType()
	link.Derive()

	var lineJSON interface{}
	if link.Line != nil {
		b, err := json.Marshal(link.Line)
		if err != nil {
			return fmt.Errorf("marshal line: %w", err)
		}
		lineJSON = b
	}
	dataJSON, err := json.Marshal(link.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	var nodeAID, nodeBID, layerID int64
	if link.NodeA != nil {
		nodeAID = link.NodeA.ID
	}
	if link.NodeB != nil {
		nodeBID = link.NodeB.ID
	}
	if link.Layer != nil {
		layerID = link.Layer.ID
	}

	pairLo, pairHi := link.InterfaceAID, link.InterfaceBID
	if pairLo > pairHi {
		pairLo, pairHi = pairHi, pairLo
	}

	now := time.Now().UTC()
	link.UpdatedAt = now

	args := []interface{}{
		nullID(link.TopologyID),
		nullID(link.InterfaceAID), nullID(link.InterfaceBID),
		nullID(pairLo), nullID(pairHi),
		nullID(nodeAID), nullID(nodeBID), nullID(layerID),
		string(link.Status), nullString(string(link.Type)),
		nullString(link.MetricType), nullFloat(link.MetricValue),
		nullInt(link.MaxRate), nullInt(link.MinRate),
		nullInt(link.DBM), nullInt(link.Noise),
		lineJSON, dataJSON,
		nullTime(link.FirstSeen), nullTime(link.LastSeen),
	}

	if link.ID == 0 {
		link.CreatedAt = now
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO links (
				topology_id, interface_a_id, interface_b_id, pair_lo, pair_hi,
				node_a_id, node_b_id, layer_id, status, type,
				metric_type, metric_value, max_rate, min_rate, dbm, noise,
				line, data, first_seen, last_seen, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(args, now, now)...)
		if err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted link id: %w", err)
		}
		link.ID = id
		return nil
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE links SET
			topology_id = ?, interface_a_id = ?, interface_b_id = ?, pair_lo = ?, pair_hi = ?,
			node_a_id = ?, node_b_id = ?, layer_id = ?, status = ?, type = ?,
			metric_type = ?, metric_value = ?, max_rate = ?, min_rate = ?, dbm = ?, noise = ?,
			line = ?, data = ?, first_seen = ?, last_seen = ?, updated_at = ?
		WHERE id = ?
	`, append(args, now, link.ID)...)
	if err != nil {
		return fmt.Errorf("update link %d: %w", link.ID, err)
	}
	return nil
}

const linkColumns = `
	id, topology_id, interface_a_id, interface_b_id, node_a_id, node_b_id, layer_id,
	status, type, metric_type, metric_value, max_rate, min_rate, dbm, noise,
	line, data, first_seen, last_seen, created_at, updated_at
`

// GetLink loads a link by ID, or (nil, nil) when it does not exist.
func (r *Repository) GetLink(ctx context.Context, id int64) (*domain.Link, error) {
	link, err := r.scanLink(ctx, r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return link, err
}

// FindLinkByInterfacePair finds the link joining two interfaces, matching
// either orientation of the pair. Returns (nil, nil) when no link matches.
func (r *Repository) FindLinkByInterfacePair(ctx context.Context, aID, bID int64) (*domain.Link, error) {
	link, err := r.scanLink(ctx, r.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE (interface_a_id = ? AND interface_b_id = ?)
		   OR (interface_a_id = ? AND interface_b_id = ?)
		ORDER BY id LIMIT 1
	`, aID, bID, bID, aID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return link, err
}

// ListLinks returns links matching the filter in creation order.
func (r *Repository) ListLinks(ctx context.Context, filter repository.LinkFilter) ([]*domain.Link, error) {
	where, args := filterClause(filter)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var (
		links []*domain.Link
		refs  []linkRefs
	)
	for rows.Next() {
		link, ref, err := scanLinkRow(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// release the cursor before hydrating: the follow-up queries would
	// otherwise compete with the open result set for a pool connection
	rows.Close()

	for i, link := range links {
		if err := r.hydrateLink(ctx, link, refs[i]); err != nil {
			return nil, err
		}
	}
	return links, nil
}

// CountLinks counts links matching the filter.
func (r *Repository) CountLinks(ctx context.Context, filter repository.LinkFilter) (int, error) {
	where, args := filterClause(filter)
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return count, nil
}

// DeleteAllLinks removes every link. Intended for tests and resets.
func (r *Repository) DeleteAllLinks(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

// linkRefs carries the foreign keys of a scanned row until the cursor is
// released and they can be hydrated with follow-up queries.
type linkRefs struct {
	topologyID, ifaceAID, ifaceBID sql.NullInt64
	nodeAID, nodeBID, layerID      sql.NullInt64
}

func (r *Repository) scanLink(ctx context.Context, row rowScanner) (*domain.Link, error) {
	link, refs, err := scanLinkRow(row)
	if err != nil {
		return nil, err
	}
	if err := r.hydrateLink(ctx, link, refs); err != nil {
		return nil, err
	}
	return link, nil
}

// scanLinkRow reads the scalar columns of one row. It issues no queries of
// its own, so it is safe to call while the result set is still open.
func scanLinkRow(row rowScanner) (*domain.Link, linkRefs, error) {
	var (
		link                         domain.Link
		refs                         linkRefs
		linkType, metricType         sql.NullString
		metricValue                  sql.NullFloat64
		maxRate, minRate, dbm, noise sql.NullInt64
		lineJSON, dataJSON           []byte
		firstSeen, lastSeen          sql.NullTime
	)

	err := row.Scan(
		&link.ID, &refs.topologyID, &refs.ifaceAID, &refs.ifaceBID, &refs.nodeAID, &refs.nodeBID, &refs.layerID,
		&link.Status, &linkType, &metricType, &metricValue, &maxRate, &minRate, &dbm, &noise,
		&lineJSON, &dataJSON, &firstSeen, &lastSeen, &link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refs, err
		}
		return nil, refs, fmt.Errorf("scan link: %w", err)
	}

	link.Type = domain.LinkType(linkType.String)
	link.MetricType = metricType.String
	if metricValue.Valid {
		v := metricValue.Float64
		link.MetricValue = &v
	}
	link.MaxRate = intFromNull(maxRate)
	link.MinRate = intFromNull(minRate)
	link.DBM = intFromNull(dbm)
	link.Noise = intFromNull(noise)
	if firstSeen.Valid {
		t := firstSeen.Time
		link.FirstSeen = &t
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		link.LastSeen = &t
	}

	if len(lineJSON) > 0 {
		var line domain.Line
		if err := json.Unmarshal(lineJSON, &line); err != nil {
			return nil, refs, fmt.Errorf("unmarshal link line: %w", err)
		}
		link.Line = &line
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &link.Data); err != nil {
			return nil, refs, fmt.Errorf("unmarshal link data: %w", err)
		}
	}

	if refs.ifaceAID.Valid {
		link.InterfaceAID = refs.ifaceAID.Int64
	}
	if refs.ifaceBID.Valid {
		link.InterfaceBID = refs.ifaceBID.Int64
	}
	if refs.topologyID.Valid {
		link.TopologyID = refs.topologyID.Int64
	}

	return &link, refs, nil
}

// hydrateLink reconstitutes the referenced objects; interfaces loaded by id
// carry their node and layer.
func (r *Repository) hydrateLink(ctx context.Context, link *domain.Link, refs linkRefs) error {
	if refs.ifaceAID.Valid {
		iface, err := r.GetInterface(ctx, refs.ifaceAID.Int64)
		if err != nil {
			return err
		}
		link.InterfaceA = iface
		if iface != nil {
			link.NodeA = iface.Node
		}
	}
	if refs.ifaceBID.Valid {
		iface, err := r.GetInterface(ctx, refs.ifaceBID.Int64)
		if err != nil {
			return err
		}
		link.InterfaceB = iface
		if iface != nil {
			link.NodeB = iface.Node
		}
	}
	if link.NodeA == nil && refs.nodeAID.Valid {
		node, err := r.getNode(ctx, refs.nodeAID.Int64)
		if err != nil {
			return err
		}
		link.NodeA = node
	}
	if link.NodeB == nil && refs.nodeBID.Valid {
		node, err := r.getNode(ctx, refs.nodeBID.Int64)
		if err != nil {
			return err
		}
		link.NodeB = node
	}
	if link.NodeA != nil && link.NodeA.Layer != nil {
		link.Layer = link.NodeA.Layer
	} else if refs.layerID.Valid {
		layer, err := r.getLayer(ctx, refs.layerID.Int64)
		if err != nil {
			return err
		}
		link.Layer = layer
	}
	if refs.topologyID.Valid {
		source, err := r.getTopology(ctx, refs.topologyID.Int64)
		if err != nil {
			return err
		}
		link.Topology = source
	}
	return nil
}

func (r *Repository) getNode(ctx context.Context, id int64) (*domain.Node, error) {
	var (
		node    domain.Node
		layerID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, lat, lon, layer_id FROM nodes WHERE id = ?
	`, id).Scan(&node.ID, &node.Slug, &node.Name, &node.Point.Lat, &node.Point.Lon, &layerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query node %d: %w", id, err)
	}
	if layerID.Valid {
		node.LayerID = layerID.Int64
		layer, err := r.getLayer(ctx, layerID.Int64)
		if err != nil {
			return nil, err
		}
		node.Layer = layer
	}
	return &node, nil
}

func (r *Repository) getLayer(ctx context.Context, id int64) (*domain.Layer, error) {
	var layer domain.Layer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name FROM layers WHERE id = ?
	`, id).Scan(&layer.ID, &layer.Slug, &layer.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query layer %d: %w", id, err)
	}
	return &layer, nil
}

func (r *Repository) getTopology(ctx context.Context, id int64) (*domain.TopologySource, error) {
	source, err := r.scanTopology(r.db.QueryRowContext(ctx, `
		SELECT id, slug, url, protocol, version, metric FROM topologies WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query topology %d: %w", id, err)
	}
	return source, nil
}

func filterClause(f repository.LinkFilter) (string, []interface{}) {
	where := ""
	var args []interface{}
	add := func(cond string, arg interface{}) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, arg)
	}
	if f.TopologyID != 0 {
		add("topology_id = ?", f.TopologyID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	return where, args
}

func nullID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
